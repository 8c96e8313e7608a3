package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"certmaster/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyBatch   = errors.New("empty question batch")
)

// Service is the question repository: questions, their source files,
// certificates and bookmarks, loaded from the store at startup and flushed
// back on every mutation.
type Service struct {
	store storage.Store

	mu        sync.RWMutex
	questions []Question
	files     []QuestionFile
	certs     []Certificate
	bookmarks []string
}

func NewService(ctx context.Context, store storage.Store) (*Service, error) {
	s := &Service{store: store}
	if err := loadJSON(ctx, store, storage.KeyQuestions, &s.questions); err != nil {
		return nil, err
	}
	if err := loadJSON(ctx, store, storage.KeyFiles, &s.files); err != nil {
		return nil, err
	}
	if err := loadJSON(ctx, store, storage.KeyCerts, &s.certs); err != nil {
		return nil, err
	}
	if err := loadJSON(ctx, store, storage.KeyBookmarks, &s.bookmarks); err != nil {
		return nil, err
	}
	return s, nil
}

func loadJSON(ctx context.Context, store storage.Store, key string, dst interface{}) error {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func flushJSON(ctx context.Context, store storage.Store, key string, src interface{}) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("flush %s: %w", key, err)
	}
	return nil
}

// Questions returns the questions scoped to a certificate. An empty certID
// returns the whole bank.
func (s *Service) Questions(certID string) []Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		if certID == "" || q.CertID == certID {
			out = append(out, q)
		}
	}
	return out
}

func (s *Service) GetQuestion(id string) (Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return Question{}, ErrNotFound
}

// ResolveQuestions maps ids to live questions, silently dropping ids that no
// longer resolve.
func (s *Service) ResolveQuestions(ids []string) []Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := make(map[string]Question, len(s.questions))
	for _, q := range s.questions {
		byID[q.ID] = q
	}
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

func (s *Service) Files(certID string) []QuestionFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]QuestionFile, 0, len(s.files))
	for _, f := range s.files {
		if certID == "" || f.CertID == certID {
			out = append(out, f)
		}
	}
	return out
}

// SaveQuestion updates an existing question in place or inserts a new one
// into the certificate's manual-entry file. On update the stored cert scope
// is preserved regardless of what the caller sends.
func (s *Service) SaveQuestion(ctx context.Context, q Question) (Question, error) {
	if err := validateQuestion(q); err != nil {
		return Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.questions {
		if existing.ID == q.ID {
			q.CertID = existing.CertID
			q.FileID = existing.FileID
			s.questions[i] = q
			if err := flushJSON(ctx, s.store, storage.KeyQuestions, s.questions); err != nil {
				s.questions[i] = existing
				return Question{}, err
			}
			return q, nil
		}
	}

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	file := s.manualFileLocked(q.CertID)
	q.FileID = file.ID
	s.questions = append(s.questions, q)
	s.adjustFileCountLocked(file.ID, 1)
	if err := s.flushBankLocked(ctx); err != nil {
		return Question{}, err
	}
	return q, nil
}

// manualFileLocked finds or creates the certificate's manual-entry file.
func (s *Service) manualFileLocked(certID string) QuestionFile {
	id := "manual-" + certID
	for _, f := range s.files {
		if f.ID == id {
			return f
		}
	}
	f := QuestionFile{
		ID:         id,
		CertID:     certID,
		Name:       "Manual entry",
		UploadDate: time.Now().UnixMilli(),
		IsActive:   true,
	}
	s.files = append(s.files, f)
	return f
}

func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, q := range s.questions {
		if q.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	fileID := s.questions[idx].FileID
	s.questions = append(s.questions[:idx], s.questions[idx+1:]...)
	s.adjustFileCountLocked(fileID, -1)
	return s.flushBankLocked(ctx)
}

func (s *Service) adjustFileCountLocked(fileID string, delta int) {
	for i, f := range s.files {
		if f.ID == fileID {
			f.QuestionCount += delta
			if f.QuestionCount < 0 {
				f.QuestionCount = 0
			}
			s.files[i] = f
			return
		}
	}
}

// MergeQuestions inserts an imported or generated batch under a new question
// file, skipping entries whose hash already exists anywhere in the bank. An
// all-duplicates batch still records the file so the skip count is visible.
func (s *Service) MergeQuestions(ctx context.Context, certID, fileName string, batch []Question) (*MergeReport, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	if strings.TrimSpace(certID) == "" {
		return nil, fmt.Errorf("%w: cert id is required", ErrInvalidInput)
	}
	// Reject the whole batch before touching state; a bad entry must not
	// leave earlier survivors behind.
	for _, q := range batch {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.questions))
	for _, q := range s.questions {
		existing[q.Hash] = struct{}{}
	}

	fileID := uuid.NewString()
	added := 0
	for _, q := range batch {
		if _, dup := existing[q.Hash]; dup {
			continue
		}
		existing[q.Hash] = struct{}{}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.CertID = certID
		q.FileID = fileID
		s.questions = append(s.questions, q)
		added++
	}

	file := QuestionFile{
		ID:            fileID,
		CertID:        certID,
		Name:          fileName,
		UploadDate:    time.Now().UnixMilli(),
		QuestionCount: added,
		SkippedCount:  len(batch) - added,
		IsActive:      true,
	}
	s.files = append(s.files, file)

	if err := s.flushBankLocked(ctx); err != nil {
		return nil, err
	}
	return &MergeReport{
		FileID:   fileID,
		Added:    added,
		Skipped:  len(batch) - added,
		FileName: fileName,
	}, nil
}

// DeleteFile removes a question file and cascades to its questions.
func (s *Service) DeleteFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, f := range s.files {
		if f.ID == fileID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	s.files = append(s.files[:idx], s.files[idx+1:]...)
	kept := s.questions[:0]
	for _, q := range s.questions {
		if q.FileID != fileID {
			kept = append(kept, q)
		}
	}
	s.questions = kept
	return s.flushBankLocked(ctx)
}

func (s *Service) SetFileActive(ctx context.Context, fileID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.ID == fileID {
			f.IsActive = active
			s.files[i] = f
			return flushJSON(ctx, s.store, storage.KeyFiles, s.files)
		}
	}
	return ErrNotFound
}

// ClearCertificate removes every question and file belonging to a certificate.
func (s *Service) ClearCertificate(ctx context.Context, certID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearCertLocked(ctx, certID)
}

func (s *Service) clearCertLocked(ctx context.Context, certID string) error {
	keptQ := s.questions[:0]
	for _, q := range s.questions {
		if q.CertID != certID {
			keptQ = append(keptQ, q)
		}
	}
	s.questions = keptQ

	keptF := s.files[:0]
	for _, f := range s.files {
		if f.CertID != certID {
			keptF = append(keptF, f)
		}
	}
	s.files = keptF
	return s.flushBankLocked(ctx)
}

func (s *Service) Certificates() []Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Certificate, len(s.certs))
	copy(out, s.certs)
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

func (s *Service) GetCertificate(id string) (Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.certs {
		if c.ID == id {
			return c, nil
		}
	}
	return Certificate{}, ErrNotFound
}

func (s *Service) SaveCertificate(ctx context.Context, c Certificate) (Certificate, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Certificate{}, fmt.Errorf("%w: certificate name is required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c.UpdatedAt = time.Now().UnixMilli()
	for i, existing := range s.certs {
		if existing.ID == c.ID {
			s.certs[i] = c
			return c, flushJSON(ctx, s.store, storage.KeyCerts, s.certs)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.certs = append(s.certs, c)
	return c, flushJSON(ctx, s.store, storage.KeyCerts, s.certs)
}

// DeleteCertificate removes the certificate and clears its question bank.
func (s *Service) DeleteCertificate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.certs {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	s.certs = append(s.certs[:idx], s.certs[idx+1:]...)
	if err := flushJSON(ctx, s.store, storage.KeyCerts, s.certs); err != nil {
		return err
	}
	return s.clearCertLocked(ctx, id)
}

// ToggleBookmark flips a question's bookmark flag and reports the new state.
// Toggling twice restores the original set.
func (s *Service) ToggleBookmark(ctx context.Context, questionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.bookmarks {
		if id == questionID {
			s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
			return false, flushJSON(ctx, s.store, storage.KeyBookmarks, s.bookmarks)
		}
	}
	s.bookmarks = append(s.bookmarks, questionID)
	return true, flushJSON(ctx, s.store, storage.KeyBookmarks, s.bookmarks)
}

func (s *Service) IsBookmarked(questionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.bookmarks {
		if id == questionID {
			return true
		}
	}
	return false
}

// Bookmarked returns the bookmarked questions for a certificate, resolved
// against the live bank so stale ids drop out.
func (s *Service) Bookmarked(certID string) []Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	marked := make(map[string]struct{}, len(s.bookmarks))
	for _, id := range s.bookmarks {
		marked[id] = struct{}{}
	}
	out := make([]Question, 0)
	for _, q := range s.questions {
		if certID != "" && q.CertID != certID {
			continue
		}
		if _, ok := marked[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out
}

func (s *Service) flushBankLocked(ctx context.Context) error {
	if err := flushJSON(ctx, s.store, storage.KeyQuestions, s.questions); err != nil {
		return err
	}
	return flushJSON(ctx, s.store, storage.KeyFiles, s.files)
}

func validateQuestion(q Question) error {
	if strings.TrimSpace(q.Content) == "" {
		return fmt.Errorf("%w: question content is required", ErrInvalidInput)
	}
	if q.Type != TypeSingle && q.Type != TypeMultiple {
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, q.Type)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options required", ErrInvalidInput)
	}
	labels := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		label := strings.TrimSpace(opt.Label)
		if label == "" {
			return fmt.Errorf("%w: empty option label", ErrInvalidInput)
		}
		if _, dup := labels[label]; dup {
			return fmt.Errorf("%w: duplicate option label %q", ErrInvalidInput, label)
		}
		labels[label] = struct{}{}
	}
	if len(q.Answer) == 0 {
		return fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}
	if q.Type == TypeSingle && len(q.Answer) != 1 {
		return fmt.Errorf("%w: single-type question must have exactly one answer", ErrInvalidInput)
	}
	for _, a := range q.Answer {
		if _, ok := labels[a]; !ok {
			return fmt.Errorf("%w: answer label %q is not an option", ErrInvalidInput, a)
		}
	}
	return nil
}
