package session

import (
	"math"
	"sort"
	"strings"

	"certmaster/internal/bank"
	"certmaster/internal/examcfg"
)

// KnowledgeDelta is one session's contribution to a knowledge point's
// cumulative counters.
type KnowledgeDelta struct {
	Total   int
	Correct int
}

// Outcome is the result of scoring one session against its question set.
// Only attempted questions count: an unanswered question is never correct,
// never wrong-listed, and never touches knowledge-point denominators.
type Outcome struct {
	FinalScore     int
	ExamScore      int
	CorrectCount   int
	AnsweredCount  int
	WrongIDs       []string
	PerQuestion    map[string]bool
	KnowledgeDelta map[string]KnowledgeDelta
	IsCompleted    bool
	IsPass         bool
}

// Score evaluates saved answers against the session's questions. Answer ids
// that do not belong to the question set are ignored. Exam scoring sums the
// configured per-type points over correct questions and passes at
// passingScore. Practice scoring is a percentage over attempted questions,
// with a zero-attempt session scoring 0%.
func Score(questions []bank.Question, answers map[string][]string, mode Mode, cfg examcfg.Config) Outcome {
	out := Outcome{
		PerQuestion:    make(map[string]bool),
		KnowledgeDelta: make(map[string]KnowledgeDelta),
	}

	for _, q := range questions {
		userAns := answers[q.ID]
		if len(userAns) == 0 {
			continue
		}
		out.AnsweredCount++

		correct := normalizeLabels(userAns) == normalizeLabels(q.Answer)
		out.PerQuestion[q.ID] = correct
		if correct {
			out.CorrectCount++
			if mode == ModeExam {
				if q.Type == bank.TypeSingle {
					out.ExamScore += cfg.SinglePoints
				} else {
					out.ExamScore += cfg.MultiplePoints
				}
			}
		} else {
			out.WrongIDs = append(out.WrongIDs, q.ID)
		}

		kd := out.KnowledgeDelta[q.KnowledgePoint]
		kd.Total++
		if correct {
			kd.Correct++
		}
		out.KnowledgeDelta[q.KnowledgePoint] = kd
	}

	if mode == ModeExam {
		out.FinalScore = out.ExamScore
		out.IsPass = out.ExamScore >= cfg.PassingScore
		out.IsCompleted = true
	} else {
		denom := out.AnsweredCount
		if denom == 0 {
			denom = 1
		}
		out.FinalScore = int(math.Round(float64(out.CorrectCount) / float64(denom) * 100))
		out.IsCompleted = out.AnsweredCount == len(questions)
	}
	return out
}

// normalizeLabels produces an order-insensitive fingerprint of a label set,
// so {"B","D"} and {"D","B"} compare equal.
func normalizeLabels(labels []string) string {
	cleaned := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" {
			cleaned = append(cleaned, l)
		}
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, "\x00")
}
