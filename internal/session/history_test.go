package session

import (
	"context"
	"errors"
	"testing"

	"certmaster/internal/storage"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := NewHistory(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return h
}

func TestHistory_ApplyUpsertsByID(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	first := PracticeSession{ID: "s1", CertID: "cka", Date: 10, Type: ModePractice, Score: 50}
	if err := h.Apply(ctx, first, Outcome{AnsweredCount: 2, CorrectCount: 1}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := first
	second.Date = 20
	second.Score = 75
	second.IsCompleted = true
	if err := h.Apply(ctx, second, Outcome{AnsweredCount: 4, CorrectCount: 3}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := h.Stats()
	if len(stats.History) != 1 {
		t.Fatalf("expected one record after upsert, got %d", len(stats.History))
	}
	if stats.History[0].Score != 75 || !stats.History[0].IsCompleted {
		t.Fatalf("expected updated record, got %+v", stats.History[0])
	}
}

func TestHistory_FullAccumulationDoubleCounts(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	rec := PracticeSession{ID: "s1", CertID: "cka", Type: ModePractice}
	partial := Outcome{AnsweredCount: 2, CorrectCount: 2, KnowledgeDelta: map[string]KnowledgeDelta{"storage": {Total: 2, Correct: 2}}}
	if err := h.Apply(ctx, rec, partial, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	full := Outcome{AnsweredCount: 4, CorrectCount: 3, KnowledgeDelta: map[string]KnowledgeDelta{"storage": {Total: 4, Correct: 3}}}
	if err := h.Apply(ctx, rec, full, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := h.Stats()
	// Full accumulation re-credits the first two answers.
	if stats.TotalAnswered != 6 {
		t.Fatalf("expected total answered=6, got=%d", stats.TotalAnswered)
	}
	if stats.CorrectCount != 5 {
		t.Fatalf("expected correct=5, got=%d", stats.CorrectCount)
	}
	if kp := stats.KnowledgeStats["storage"]; kp.Total != 6 || kp.Correct != 5 {
		t.Fatalf("expected storage 5/6, got %d/%d", kp.Correct, kp.Total)
	}
}

func TestHistory_DeltaAccumulationSubtractsPrior(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	rec := PracticeSession{ID: "s1", CertID: "cka", Type: ModePractice}
	partial := Outcome{AnsweredCount: 2, CorrectCount: 2, KnowledgeDelta: map[string]KnowledgeDelta{"storage": {Total: 2, Correct: 2}}}
	if err := h.Apply(ctx, rec, partial, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	full := Outcome{AnsweredCount: 4, CorrectCount: 3, KnowledgeDelta: map[string]KnowledgeDelta{"storage": {Total: 4, Correct: 3}}}
	if err := h.Apply(ctx, rec, full, &partial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := h.Stats()
	if stats.TotalAnswered != 4 {
		t.Fatalf("expected total answered=4, got=%d", stats.TotalAnswered)
	}
	if stats.CorrectCount != 3 {
		t.Fatalf("expected correct=3, got=%d", stats.CorrectCount)
	}
	if kp := stats.KnowledgeStats["storage"]; kp.Total != 4 || kp.Correct != 3 {
		t.Fatalf("expected storage 3/4, got %d/%d", kp.Correct, kp.Total)
	}
}

func TestHistory_DeltaAccumulationRevokesClearedKnowledgePoint(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	rec := PracticeSession{ID: "s1", CertID: "cka", Type: ModePractice}
	partial := Outcome{
		AnsweredCount: 1,
		CorrectCount:  1,
		KnowledgeDelta: map[string]KnowledgeDelta{
			"storage": {Total: 1, Correct: 1},
		},
	}
	if err := h.Apply(ctx, rec, partial, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The user cleared the only storage answer before completing, so the
	// final outcome never mentions that knowledge point.
	full := Outcome{
		AnsweredCount: 1,
		CorrectCount:  0,
		KnowledgeDelta: map[string]KnowledgeDelta{
			"network": {Total: 1, Correct: 0},
		},
	}
	if err := h.Apply(ctx, rec, full, &partial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := h.Stats()
	if kp := stats.KnowledgeStats["storage"]; kp.Total != 0 || kp.Correct != 0 {
		t.Fatalf("expected storage credit revoked, got %d/%d", kp.Correct, kp.Total)
	}
	if kp := stats.KnowledgeStats["network"]; kp.Total != 1 || kp.Correct != 0 {
		t.Fatalf("expected network 0/1, got %d/%d", kp.Correct, kp.Total)
	}
}

func TestHistory_PersistsAcrossReload(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	h1, err := NewHistory(ctx, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := PracticeSession{ID: "s1", CertID: "cka", Type: ModePractice, Score: 80}
	if err := h1.Apply(ctx, rec, Outcome{AnsweredCount: 5, CorrectCount: 4}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h2, err := NewHistory(ctx, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := h2.Stats()
	if stats.TotalAnswered != 5 || stats.CorrectCount != 4 {
		t.Fatalf("expected reloaded counters 4/5, got %d/%d", stats.CorrectCount, stats.TotalAnswered)
	}
	if _, err := h2.Get("s1"); err != nil {
		t.Fatalf("expected record after reload, got %v", err)
	}
}

func TestHistory_RecordsNewestFirst(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for _, rec := range []PracticeSession{
		{ID: "old", CertID: "cka", Date: 10, Type: ModePractice},
		{ID: "new", CertID: "cka", Date: 30, Type: ModePractice},
		{ID: "mid", CertID: "cka", Date: 20, Type: ModePractice},
		{ID: "other", CertID: "aws", Date: 40, Type: ModePractice},
	} {
		if err := h.Apply(ctx, rec, Outcome{}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := h.Records("cka")
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if got[i].ID != want {
			t.Fatalf("expected %s at position %d, got %s", want, i, got[i].ID)
		}
	}
}

func TestHistory_ListResumable(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for _, rec := range []PracticeSession{
		{ID: "open", CertID: "cka", Date: 1, Type: ModePractice, IsCompleted: false},
		{ID: "done", CertID: "cka", Date: 2, Type: ModePractice, IsCompleted: true},
		{ID: "exam", CertID: "cka", Date: 3, Type: ModeExam, IsCompleted: true},
	} {
		if err := h.Apply(ctx, rec, Outcome{}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := h.ListResumable("cka")
	if len(got) != 1 || got[0].ID != "open" {
		t.Fatalf("expected only the open practice record, got %+v", got)
	}
}

func TestHistory_WrongQuestionIDsDeduplicated(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for _, rec := range []PracticeSession{
		{ID: "s1", CertID: "cka", Date: 1, Type: ModePractice, WrongQuestionIDs: []string{"q1", "q2"}},
		{ID: "s2", CertID: "cka", Date: 2, Type: ModePractice, WrongQuestionIDs: []string{"q2", "q3"}},
		{ID: "s3", CertID: "aws", Date: 3, Type: ModePractice, WrongQuestionIDs: []string{"q9"}},
	} {
		if err := h.Apply(ctx, rec, Outcome{}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := h.WrongQuestionIDs("cka")
	want := []string{"q1", "q2", "q3"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v in first-seen order, got %v", want, got)
		}
	}
}

func TestHistory_GetUnknown(t *testing.T) {
	h := newTestHistory(t)
	if _, err := h.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
