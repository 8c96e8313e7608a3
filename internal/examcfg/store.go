package examcfg

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"certmaster/internal/storage"
)

// Store keeps one Config per certificate, falling back to Default when a
// certificate has none.
type Store struct {
	store storage.Store

	mu      sync.RWMutex
	configs map[string]Config
}

func NewStore(ctx context.Context, store storage.Store) (*Store, error) {
	s := &Store{store: store, configs: make(map[string]Config)}
	raw, ok, err := store.Get(ctx, storage.KeyExamConfigs)
	if err != nil {
		return nil, fmt.Errorf("load exam configs: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &s.configs); err != nil {
			return nil, fmt.Errorf("decode exam configs: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Get(certID string) Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[certID]; ok {
		return cfg
	}
	return Default(certID)
}

func (s *Store) Put(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.configs[cfg.CertID]
	s.configs[cfg.CertID] = cfg
	if err := s.flushLocked(ctx); err != nil {
		if had {
			s.configs[cfg.CertID] = prev
		} else {
			delete(s.configs, cfg.CertID)
		}
		return err
	}
	return nil
}

// UpdateField applies one partial update through the pure WithField updater.
func (s *Store) UpdateField(ctx context.Context, certID, field string, value int) (Config, error) {
	cur := s.Get(certID)
	next, err := cur.WithField(field, value)
	if err != nil {
		return Config{}, err
	}
	if err := s.Put(ctx, next); err != nil {
		return Config{}, err
	}
	return next, nil
}

func (s *Store) flushLocked(ctx context.Context) error {
	raw, err := json.Marshal(s.configs)
	if err != nil {
		return fmt.Errorf("encode exam configs: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyExamConfigs, raw); err != nil {
		return fmt.Errorf("flush exam configs: %w", err)
	}
	return nil
}
