package session

import (
	"testing"

	"certmaster/internal/bank"
	"certmaster/internal/examcfg"
)

func scoringQuestions() []bank.Question {
	return []bank.Question{
		{ID: "q1", Type: bank.TypeSingle, Answer: []string{"A"}, KnowledgePoint: "storage"},
		{ID: "q2", Type: bank.TypeSingle, Answer: []string{"C"}, KnowledgePoint: "storage"},
		{ID: "q3", Type: bank.TypeMultiple, Answer: []string{"B", "D"}, KnowledgePoint: "network"},
		{ID: "q4", Type: bank.TypeMultiple, Answer: []string{"A", "C"}, KnowledgePoint: "network"},
	}
}

func TestScore_Practice(t *testing.T) {
	tests := []struct {
		name          string
		answers       map[string][]string
		wantScore     int
		wantCorrect   int
		wantAnswered  int
		wantWrong     []string
		wantCompleted bool
	}{
		{
			name: "all correct order insensitive",
			answers: map[string][]string{
				"q1": {"A"}, "q2": {"C"}, "q3": {"D", "B"}, "q4": {"A", "C"},
			},
			wantScore: 100, wantCorrect: 4, wantAnswered: 4, wantWrong: nil, wantCompleted: true,
		},
		{
			name: "unanswered excluded from denominator",
			answers: map[string][]string{
				"q1": {"A"}, "q3": {"B", "D"},
			},
			wantScore: 100, wantCorrect: 2, wantAnswered: 2, wantWrong: nil, wantCompleted: false,
		},
		{
			name: "partial subset of multiple is wrong",
			answers: map[string][]string{
				"q1": {"A"}, "q3": {"B"},
			},
			wantScore: 50, wantCorrect: 1, wantAnswered: 2, wantWrong: []string{"q3"}, wantCompleted: false,
		},
		{
			name: "one of three rounds to 33",
			answers: map[string][]string{
				"q1": {"A"}, "q2": {"B"}, "q3": {"C"},
			},
			wantScore: 33, wantCorrect: 1, wantAnswered: 3, wantWrong: []string{"q2", "q3"}, wantCompleted: false,
		},
		{
			name:      "zero answered scores zero without dividing by zero",
			answers:   map[string][]string{},
			wantScore: 0, wantCorrect: 0, wantAnswered: 0, wantWrong: nil, wantCompleted: false,
		},
		{
			name: "empty answer set counts as unanswered",
			answers: map[string][]string{
				"q1": {}, "q2": {"C"},
			},
			wantScore: 100, wantCorrect: 1, wantAnswered: 1, wantWrong: nil, wantCompleted: false,
		},
		{
			name: "stale answer ids ignored",
			answers: map[string][]string{
				"q1": {"A"}, "gone": {"A"},
			},
			wantScore: 100, wantCorrect: 1, wantAnswered: 1, wantWrong: nil, wantCompleted: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(scoringQuestions(), tc.answers, ModePractice, examcfg.Default("cka"))
			if got.FinalScore != tc.wantScore {
				t.Fatalf("expected score=%d, got=%d", tc.wantScore, got.FinalScore)
			}
			if got.CorrectCount != tc.wantCorrect {
				t.Fatalf("expected correct=%d, got=%d", tc.wantCorrect, got.CorrectCount)
			}
			if got.AnsweredCount != tc.wantAnswered {
				t.Fatalf("expected answered=%d, got=%d", tc.wantAnswered, got.AnsweredCount)
			}
			if got.IsCompleted != tc.wantCompleted {
				t.Fatalf("expected completed=%v, got=%v", tc.wantCompleted, got.IsCompleted)
			}
			assertSameIDs(t, got.WrongIDs, tc.wantWrong)
		})
	}
}

func TestScore_ExamPoints(t *testing.T) {
	cfg := examcfg.Default("cka")

	// Two singles right at 1 point each, one multiple right at 2 points.
	answers := map[string][]string{
		"q1": {"A"},
		"q2": {"C"},
		"q3": {"B", "D"},
		"q4": {"A"},
	}
	got := Score(scoringQuestions(), answers, ModeExam, cfg)

	if got.ExamScore != 4 {
		t.Fatalf("expected exam score=4, got=%d", got.ExamScore)
	}
	if got.FinalScore != 4 {
		t.Fatalf("expected final score=4, got=%d", got.FinalScore)
	}
	if got.IsPass {
		t.Fatalf("expected fail against passing score %d", cfg.PassingScore)
	}
	if !got.IsCompleted {
		t.Fatalf("exam outcome must always be completed")
	}
	assertSameIDs(t, got.WrongIDs, []string{"q4"})
}

func TestScore_ExamPassBoundary(t *testing.T) {
	cfg := examcfg.Default("cka")
	cfg.PassingScore = 3
	answers := map[string][]string{
		"q1": {"A"},
		"q3": {"B", "D"},
	}
	got := Score(scoringQuestions(), answers, ModeExam, cfg)
	if got.ExamScore != 3 {
		t.Fatalf("expected exam score=3, got=%d", got.ExamScore)
	}
	if !got.IsPass {
		t.Fatalf("score equal to passing score must pass")
	}
}

func TestScore_KnowledgeDeltaOnlyAttempted(t *testing.T) {
	answers := map[string][]string{
		"q1": {"A"},
		"q3": {"B"},
	}
	got := Score(scoringQuestions(), answers, ModePractice, examcfg.Default("cka"))

	storage := got.KnowledgeDelta["storage"]
	if storage.Total != 1 || storage.Correct != 1 {
		t.Fatalf("expected storage delta 1/1, got %d/%d", storage.Correct, storage.Total)
	}
	network := got.KnowledgeDelta["network"]
	if network.Total != 1 || network.Correct != 0 {
		t.Fatalf("expected network delta 0/1, got %d/%d", network.Correct, network.Total)
	}
}

func TestNormalizeLabels(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		same bool
	}{
		{name: "order insensitive", a: []string{"B", "D"}, b: []string{"D", "B"}, same: true},
		{name: "whitespace trimmed", a: []string{" A "}, b: []string{"A"}, same: true},
		{name: "blank entries dropped", a: []string{"A", ""}, b: []string{"A"}, same: true},
		{name: "subset differs", a: []string{"A"}, b: []string{"A", "B"}, same: false},
		{name: "no concatenation ambiguity", a: []string{"AB"}, b: []string{"A", "B"}, same: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeLabels(tc.a) == normalizeLabels(tc.b); got != tc.same {
				t.Fatalf("expected same=%v for %v vs %v", tc.same, tc.a, tc.b)
			}
		})
	}
}

func assertSameIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	wantSet := make(map[string]bool, len(want))
	for _, id := range want {
		wantSet[id] = true
	}
	for _, id := range got {
		if !wantSet[id] {
			t.Fatalf("unexpected id %s in %v", id, got)
		}
	}
}
