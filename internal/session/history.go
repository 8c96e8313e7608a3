package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"certmaster/internal/storage"
)

var ErrSessionNotFound = errors.New("session not found")

// PracticeSession is the durable record of one attempt, completed or not.
// Incomplete practice records carry enough state to resume: the ordered
// question ids, the saved answers and the cursor position.
type PracticeSession struct {
	ID                 string              `json:"id"`
	CertID             string              `json:"cert_id"`
	Date               int64               `json:"date"`
	Type               Mode                `json:"type"`
	Score              int                 `json:"score"`
	TotalQuestions     int                 `json:"total_questions"`
	Duration           int                 `json:"duration"`
	WrongQuestionIDs   []string            `json:"wrong_question_ids"`
	CurrentIndex       int                 `json:"current_index"`
	SessionQuestionIDs []string            `json:"session_question_ids"`
	SavedAnswers       map[string][]string `json:"saved_answers"`
	IsCompleted        bool                `json:"is_completed"`
}

type KnowledgeStat struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// UserStats accumulates across every session ever completed. Only attempted
// questions contribute to the counters.
type UserStats struct {
	TotalAnswered  int                      `json:"total_answered"`
	CorrectCount   int                      `json:"correct_count"`
	KnowledgeStats map[string]KnowledgeStat `json:"knowledge_stats"`
	History        []PracticeSession        `json:"history"`
}

// StatsAccumulation selects how a completed session contributes to the
// cumulative counters when the session had a prior partial save.
//
// AccumulateFull reproduces the source behavior: every completion adds the
// session's full attempted/correct counts, so a resumed session's earlier
// answers are credited twice. AccumulateDelta subtracts the contribution
// already credited by the prior partial save of the same session id.
type StatsAccumulation int

const (
	AccumulateFull StatsAccumulation = iota
	AccumulateDelta
)

// History owns the UserStats aggregate: the session history list plus the
// cumulative answer counters, flushed to the store on every change.
type History struct {
	store storage.Store

	mu    sync.RWMutex
	stats UserStats
}

func NewHistory(ctx context.Context, store storage.Store) (*History, error) {
	h := &History{store: store, stats: UserStats{KnowledgeStats: make(map[string]KnowledgeStat)}}
	raw, ok, err := store.Get(ctx, storage.KeyStats)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &h.stats); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		if h.stats.KnowledgeStats == nil {
			h.stats.KnowledgeStats = make(map[string]KnowledgeStat)
		}
	}
	return h, nil
}

// Apply upserts the session record by id and folds the outcome into the
// cumulative counters. When a prior outcome is supplied (delta accumulation
// on a resumed session) its counts are subtracted first so earlier answers
// are not credited twice.
func (h *History) Apply(ctx context.Context, record PracticeSession, outcome Outcome, prior *Outcome) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	answered := outcome.AnsweredCount
	correct := outcome.CorrectCount
	if prior != nil {
		answered -= prior.AnsweredCount
		correct -= prior.CorrectCount
		if answered < 0 {
			answered = 0
		}
		if correct < 0 {
			correct = 0
		}
	}

	h.stats.TotalAnswered += answered
	h.stats.CorrectCount += correct
	// Walk the union of both outcomes' knowledge points: a point the user
	// cleared before completing appears only in the prior and still needs
	// its earlier credit taken back.
	points := make(map[string]struct{}, len(outcome.KnowledgeDelta))
	for kp := range outcome.KnowledgeDelta {
		points[kp] = struct{}{}
	}
	if prior != nil {
		for kp := range prior.KnowledgeDelta {
			points[kp] = struct{}{}
		}
	}
	for kp := range points {
		add := outcome.KnowledgeDelta[kp]
		if prior != nil {
			if pd, ok := prior.KnowledgeDelta[kp]; ok {
				add.Total -= pd.Total
				add.Correct -= pd.Correct
			}
		}
		stat := h.stats.KnowledgeStats[kp]
		stat.Total += add.Total
		stat.Correct += add.Correct
		if stat.Total < 0 {
			stat.Total = 0
		}
		if stat.Correct < 0 {
			stat.Correct = 0
		}
		h.stats.KnowledgeStats[kp] = stat
	}

	replaced := false
	for i, rec := range h.stats.History {
		if rec.ID == record.ID {
			h.stats.History[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		h.stats.History = append(h.stats.History, record)
	}

	return h.flushLocked(ctx)
}

func (h *History) Stats() UserStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.copyStatsLocked()
}

func (h *History) copyStatsLocked() UserStats {
	out := UserStats{
		TotalAnswered:  h.stats.TotalAnswered,
		CorrectCount:   h.stats.CorrectCount,
		KnowledgeStats: make(map[string]KnowledgeStat, len(h.stats.KnowledgeStats)),
		History:        make([]PracticeSession, len(h.stats.History)),
	}
	for k, v := range h.stats.KnowledgeStats {
		out.KnowledgeStats[k] = v
	}
	copy(out.History, h.stats.History)
	return out
}

func (h *History) Get(id string) (PracticeSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, rec := range h.stats.History {
		if rec.ID == id {
			return rec, nil
		}
	}
	return PracticeSession{}, ErrSessionNotFound
}

// Records lists a certificate's history, newest first.
func (h *History) Records(certID string) []PracticeSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]PracticeSession, 0)
	for _, rec := range h.stats.History {
		if certID == "" || rec.CertID == certID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// ListResumable returns the incomplete practice sessions for a certificate.
// Exam records never qualify; they are always completed.
func (h *History) ListResumable(certID string) []PracticeSession {
	out := make([]PracticeSession, 0)
	for _, rec := range h.Records(certID) {
		if rec.Type == ModePractice && !rec.IsCompleted {
			out = append(out, rec)
		}
	}
	return out
}

// WrongQuestionIDs returns the deduplicated union of wrong-question ids
// across the certificate's history, in first-seen order.
func (h *History) WrongQuestionIDs(certID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, rec := range h.stats.History {
		if certID != "" && rec.CertID != certID {
			continue
		}
		for _, id := range rec.WrongQuestionIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func (h *History) flushLocked(ctx context.Context) error {
	raw, err := json.Marshal(h.stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := h.store.Set(ctx, storage.KeyStats, raw); err != nil {
		return fmt.Errorf("flush stats: %w", err)
	}
	return nil
}
