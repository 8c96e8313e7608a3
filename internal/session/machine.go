package session

import (
	"errors"
	"time"

	"certmaster/internal/bank"
	"certmaster/internal/examcfg"

	"github.com/google/uuid"
)

var (
	ErrDataLost             = errors.New("session questions no longer exist")
	ErrNotResumable         = errors.New("session is not resumable")
	ErrRecitationReadOnly   = errors.New("recitation mode does not accept answers")
	ErrQuestionNotInSession = errors.New("question not in session")
	ErrInvalidSubmode       = errors.New("invalid submode")
)

// Submode is the practice sub-state: answering normally, or recitation
// (read-only reveal, never scored).
type Submode string

const (
	SubmodeAnswer     Submode = "answer"
	SubmodeRecitation Submode = "recitation"
)

// Machine holds the working state of the one active session: cursor,
// captured answers and the exam countdown. It owns that state exclusively
// until Complete or Abandon hands the durable record to history.
type Machine struct {
	id        string
	certID    string
	mode      Mode
	submode   Submode
	questions []bank.Question
	index     int
	answers   map[string][]string

	startSeconds  int
	timeRemaining int
	startedAt     time.Time

	// prior holds the already-credited outcome of the record this machine
	// was resumed from; the delta accumulation mode subtracts it on
	// completion.
	prior *Outcome
}

// State is a read-only snapshot of the machine for callers.
type State struct {
	ID             string              `json:"id"`
	CertID         string              `json:"cert_id"`
	Mode           Mode                `json:"mode"`
	Submode        Submode             `json:"submode"`
	CurrentIndex   int                 `json:"current_index"`
	TotalQuestions int                 `json:"total_questions"`
	TimeRemaining  int                 `json:"time_remaining"`
	Answers        map[string][]string `json:"answers"`
	Questions      []bank.Question     `json:"questions"`
}

// StartMachine transitions Idle -> Active with a fresh session identity.
// Exam mode arms the countdown at the configured duration.
func StartMachine(certID string, mode Mode, questions []bank.Question, cfg examcfg.Config, now time.Time) *Machine {
	m := &Machine{
		id:        uuid.NewString(),
		certID:    certID,
		mode:      mode,
		submode:   SubmodeAnswer,
		questions: questions,
		answers:   make(map[string][]string),
		startedAt: now,
	}
	if mode == ModeExam {
		m.startSeconds = cfg.Duration * 60
		m.timeRemaining = m.startSeconds
	}
	return m
}

// ResumeMachine rehydrates an Active state from a stored practice record.
// The caller supplies the record's question ids resolved against the live
// bank; ids that no longer resolve have already dropped out. If nothing
// resolves the session data is lost and the machine stays Idle. Exam
// records are refused outright: a completed exam cannot legally be partial.
func ResumeMachine(record PracticeSession, questions []bank.Question, now time.Time) (*Machine, error) {
	if record.Type == ModeExam {
		return nil, ErrNotResumable
	}
	if record.IsCompleted {
		return nil, ErrNotResumable
	}
	if len(questions) == 0 {
		return nil, ErrDataLost
	}

	answers := make(map[string][]string, len(record.SavedAnswers))
	for id, labels := range record.SavedAnswers {
		answers[id] = append([]string(nil), labels...)
	}

	index := record.CurrentIndex
	if index < 0 {
		index = 0
	}
	if index > len(questions)-1 {
		index = len(questions) - 1
	}

	return &Machine{
		id:        record.ID,
		certID:    record.CertID,
		mode:      record.Type,
		submode:   SubmodeAnswer,
		questions: questions,
		index:     index,
		answers:   answers,
		startedAt: now,
	}, nil
}

func (m *Machine) ID() string                 { return m.id }
func (m *Machine) CertID() string             { return m.certID }
func (m *Machine) Mode() Mode                 { return m.mode }
func (m *Machine) Submode() Submode           { return m.submode }
func (m *Machine) Questions() []bank.Question { return m.questions }

// Answer overwrites the captured answer set for a session question. A
// single-type question keeps only the first label if the caller violates
// the singleton contract. An empty set clears the capture.
func (m *Machine) Answer(questionID string, labels []string) error {
	if m.submode == SubmodeRecitation {
		return ErrRecitationReadOnly
	}
	var q *bank.Question
	for i := range m.questions {
		if m.questions[i].ID == questionID {
			q = &m.questions[i]
			break
		}
	}
	if q == nil {
		return ErrQuestionNotInSession
	}
	if len(labels) == 0 {
		delete(m.answers, questionID)
		return nil
	}
	if q.Type == bank.TypeSingle && len(labels) > 1 {
		labels = labels[:1]
	}
	m.answers[questionID] = append([]string(nil), labels...)
	return nil
}

// Advance moves the cursor by delta, clamped to the question range.
func (m *Machine) Advance(delta int) int {
	m.index += delta
	if m.index < 0 {
		m.index = 0
	}
	if max := len(m.questions) - 1; m.index > max {
		m.index = max
	}
	return m.index
}

// SetSubmode switches between answer and recitation without touching the
// cursor or the captured answers. Exams have no submodes.
func (m *Machine) SetSubmode(sub Submode) error {
	if m.mode != ModePractice {
		return ErrInvalidSubmode
	}
	if sub != SubmodeAnswer && sub != SubmodeRecitation {
		return ErrInvalidSubmode
	}
	m.submode = sub
	return nil
}

// Tick consumes one second of exam time and reports whether the countdown
// just hit zero (at which point the caller must complete the session within
// the same event).
func (m *Machine) Tick() (expired bool) {
	if m.mode != ModeExam || m.timeRemaining <= 0 {
		return false
	}
	m.timeRemaining--
	return m.timeRemaining == 0
}

func (m *Machine) TimeRemaining() int { return m.timeRemaining }

// ElapsedSeconds is the exam time consumed so far; practice sessions do not
// track wall time.
func (m *Machine) ElapsedSeconds() int {
	if m.mode != ModeExam {
		return 0
	}
	return m.startSeconds - m.timeRemaining
}

func (m *Machine) Snapshot() State {
	answers := make(map[string][]string, len(m.answers))
	for id, labels := range m.answers {
		answers[id] = append([]string(nil), labels...)
	}
	return State{
		ID:             m.id,
		CertID:         m.certID,
		Mode:           m.mode,
		Submode:        m.submode,
		CurrentIndex:   m.index,
		TotalQuestions: len(m.questions),
		TimeRemaining:  m.timeRemaining,
		Answers:        answers,
		Questions:      m.questions,
	}
}

// Record builds the durable session record from the working state.
func (m *Machine) Record(outcome Outcome, now time.Time) PracticeSession {
	ids := make([]string, len(m.questions))
	for i, q := range m.questions {
		ids[i] = q.ID
	}
	wrong := outcome.WrongIDs
	if wrong == nil {
		wrong = []string{}
	}
	return PracticeSession{
		ID:                 m.id,
		CertID:             m.certID,
		Date:               now.UnixMilli(),
		Type:               m.mode,
		Score:              outcome.FinalScore,
		TotalQuestions:     len(m.questions),
		Duration:           m.ElapsedSeconds(),
		WrongQuestionIDs:   wrong,
		CurrentIndex:       m.index,
		SessionQuestionIDs: ids,
		SavedAnswers:       m.answersCopy(),
		IsCompleted:        outcome.IsCompleted,
	}
}

func (m *Machine) answersCopy() map[string][]string {
	out := make(map[string][]string, len(m.answers))
	for id, labels := range m.answers {
		out[id] = append([]string(nil), labels...)
	}
	return out
}
