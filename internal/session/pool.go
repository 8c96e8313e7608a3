package session

import (
	"errors"
	"math/rand"

	"certmaster/internal/bank"
	"certmaster/internal/examcfg"
)

var ErrEmptyPool = errors.New("no questions available for this scope")

// Mode is the session flavor: free practice or a timed mock exam.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeExam     Mode = "exam"
)

// BuildPool filters the bank down to the questions eligible for a session:
// scoped to the certificate, owned by an active file when activeOnly is set,
// and passing the optional predicate. An empty result is an error; callers
// must not start a session from it.
func BuildPool(questions []bank.Question, files []bank.QuestionFile, certID string, activeOnly bool, pred func(bank.Question) bool) ([]bank.Question, error) {
	active := make(map[string]bool, len(files))
	for _, f := range files {
		active[f.ID] = f.IsActive
	}

	pool := make([]bank.Question, 0, len(questions))
	for _, q := range questions {
		if q.CertID != certID {
			continue
		}
		if activeOnly && !active[q.FileID] {
			continue
		}
		if pred != nil && !pred(q) {
			continue
		}
		pool = append(pool, q)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	return pool, nil
}

// DrawSession selects and orders the session's question set. Practice draws
// a uniform permutation of the whole pool. Exam mode partitions by type,
// takes up to the configured count of each (clamped to availability), and
// reshuffles the combined paper. Shuffling is Fisher-Yates, so every
// ordering is equally likely.
func DrawSession(pool []bank.Question, mode Mode, cfg examcfg.Config, rng *rand.Rand) []bank.Question {
	if mode != ModeExam {
		out := make([]bank.Question, len(pool))
		copy(out, pool)
		shuffle(out, rng)
		return out
	}

	var singles, multiples []bank.Question
	for _, q := range pool {
		if q.Type == bank.TypeSingle {
			singles = append(singles, q)
		} else {
			multiples = append(multiples, q)
		}
	}
	shuffle(singles, rng)
	shuffle(multiples, rng)

	nSingle := cfg.SingleCount
	if nSingle > len(singles) {
		nSingle = len(singles)
	}
	nMultiple := cfg.MultipleCount
	if nMultiple > len(multiples) {
		nMultiple = len(multiples)
	}

	out := make([]bank.Question, 0, nSingle+nMultiple)
	out = append(out, singles[:nSingle]...)
	out = append(out, multiples[:nMultiple]...)
	shuffle(out, rng)
	return out
}

func shuffle(qs []bank.Question, rng *rand.Rand) {
	rng.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})
}
