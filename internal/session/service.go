package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"certmaster/internal/bank"
	"certmaster/internal/examcfg"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionActive   = errors.New("a session is already active")
	ErrNotAbandonable  = errors.New("only practice sessions can be discarded")
)

// Result summarizes a completed (or partially saved) session.
type Result struct {
	Recitation    bool             `json:"recitation,omitempty"`
	Session       *PracticeSession `json:"session,omitempty"`
	Pass          bool             `json:"pass"`
	CorrectCount  int              `json:"correct_count"`
	AnsweredCount int              `json:"answered_count"`
	TotalScore    int              `json:"total_score"`
}

// Service owns the one active session at a time and wires the pool selector,
// the state machine, the scoring aggregator and the history store together.
// All operations are synchronous, atomic transitions; a rejected operation
// leaves state exactly as before the call.
type Service struct {
	bank    *bank.Service
	configs *examcfg.Store
	history *History

	clock        Clock
	rng          *rand.Rand
	log          logrus.FieldLogger
	accumulation StatsAccumulation

	mu        sync.Mutex
	machine   *Machine
	stopTimer func()
}

type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

func WithRand(r *rand.Rand) Option { return func(s *Service) { s.rng = r } }

func WithAccumulation(a StatsAccumulation) Option {
	return func(s *Service) { s.accumulation = a }
}

func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

func NewService(bankSvc *bank.Service, configs *examcfg.Store, history *History, opts ...Option) *Service {
	s := &Service{
		bank:         bankSvc,
		configs:      configs,
		history:      history,
		clock:        RealClock(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		log:          logrus.StandardLogger(),
		accumulation: AccumulateFull,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) History() *History { return s.history }

// Start begins a fresh session over the certificate's active pool.
func (s *Service) Start(ctx context.Context, certID string, mode Mode) (State, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine != nil {
		return State{}, ErrSessionActive
	}

	pool, err := BuildPool(s.bank.Questions(certID), s.bank.Files(certID), certID, true, nil)
	if err != nil {
		return State{}, err
	}

	cfg := s.configs.Get(certID)
	drawn := DrawSession(pool, mode, cfg, s.rng)
	s.machine = StartMachine(certID, mode, drawn, cfg, s.clock.Now())
	if mode == ModeExam {
		s.armTimerLocked()
	}

	s.log.WithFields(logrus.Fields{
		"session_id": s.machine.ID(),
		"cert_id":    certID,
		"mode":       mode,
		"questions":  len(drawn),
	}).Info("session started")

	return s.machine.Snapshot(), nil
}

// StartWrongRedo begins a practice session over the certificate's
// accumulated wrong-question set.
func (s *Service) StartWrongRedo(ctx context.Context, certID string) (State, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine != nil {
		return State{}, ErrSessionActive
	}

	wrong := s.bank.ResolveQuestions(s.history.WrongQuestionIDs(certID))
	if len(wrong) == 0 {
		return State{}, ErrEmptyPool
	}

	cfg := s.configs.Get(certID)
	drawn := DrawSession(wrong, ModePractice, cfg, s.rng)
	s.machine = StartMachine(certID, ModePractice, drawn, cfg, s.clock.Now())

	s.log.WithFields(logrus.Fields{
		"session_id": s.machine.ID(),
		"cert_id":    certID,
		"questions":  len(drawn),
	}).Info("wrong-question redo started")

	return s.machine.Snapshot(), nil
}

// Resume rehydrates an incomplete practice session from history. Stale
// question ids drop out; if none resolve the resume fails with ErrDataLost
// and the service stays idle.
func (s *Service) Resume(ctx context.Context, sessionID string) (State, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine != nil {
		return State{}, ErrSessionActive
	}

	record, err := s.history.Get(sessionID)
	if err != nil {
		return State{}, err
	}

	questions := s.bank.ResolveQuestions(record.SessionQuestionIDs)
	machine, err := ResumeMachine(record, questions, s.clock.Now())
	if err != nil {
		return State{}, err
	}

	if s.accumulation == AccumulateDelta {
		cfg := s.configs.Get(record.CertID)
		prior := Score(questions, record.SavedAnswers, record.Type, cfg)
		machine.prior = &prior
	}

	s.machine = machine
	s.log.WithFields(logrus.Fields{
		"session_id": record.ID,
		"cert_id":    record.CertID,
		"restored":   len(questions),
	}).Info("session resumed")

	return machine.Snapshot(), nil
}

// Answer captures the answer set for one session question.
func (s *Service) Answer(ctx context.Context, questionID string, labels []string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return ErrNoActiveSession
	}
	if len(labels) > 1 {
		for _, q := range s.machine.Questions() {
			if q.ID == questionID && q.Type == bank.TypeSingle {
				s.log.WithField("question_id", questionID).
					Warn("multiple labels for single-type question, keeping first")
				break
			}
		}
	}
	return s.machine.Answer(questionID, labels)
}

func (s *Service) Advance(delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return 0, ErrNoActiveSession
	}
	return s.machine.Advance(delta), nil
}

func (s *Service) SetSubmode(sub Submode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return ErrNoActiveSession
	}
	return s.machine.SetSubmode(sub)
}

// Tick consumes one second of exam time. When the countdown reaches zero the
// session completes synchronously within the same call.
func (s *Service) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil || s.machine.Mode() != ModeExam {
		return nil
	}
	if s.machine.Tick() {
		_, err := s.completeLocked(ctx)
		return err
	}
	return nil
}

// Complete scores the active session, upserts its history record and
// returns to Idle. A recitation-submode practice session exits without
// producing any record.
func (s *Service) Complete(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(ctx)
}

// Abandon persists the current partial state of a practice session as an
// incomplete record for later resumption. For exams it is a forced submit:
// there is no cancel-without-scoring path.
func (s *Service) Abandon(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(ctx)
}

// Discard drops an active practice session without recording anything.
func (s *Service) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return ErrNoActiveSession
	}
	if s.machine.Mode() != ModePractice {
		return ErrNotAbandonable
	}
	s.teardownLocked()
	return nil
}

func (s *Service) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return State{}, ErrNoActiveSession
	}
	return s.machine.Snapshot(), nil
}

// WrongQuestions resolves the certificate's deduplicated wrong-question ids
// against the live bank.
func (s *Service) WrongQuestions(certID string) []bank.Question {
	return s.bank.ResolveQuestions(s.history.WrongQuestionIDs(certID))
}

func (s *Service) completeLocked(ctx context.Context) (*Result, error) {
	m := s.machine
	if m == nil {
		return nil, ErrNoActiveSession
	}

	if m.Mode() == ModePractice && m.Submode() == SubmodeRecitation {
		s.teardownLocked()
		s.log.WithField("session_id", m.ID()).Info("recitation session exited")
		return &Result{Recitation: true}, nil
	}

	cfg := s.configs.Get(m.CertID())
	outcome := Score(m.questions, m.answers, m.Mode(), cfg)
	record := m.Record(outcome, s.clock.Now())

	var prior *Outcome
	if s.accumulation == AccumulateDelta {
		prior = m.prior
	}
	if err := s.history.Apply(ctx, record, outcome, prior); err != nil {
		return nil, err
	}

	s.teardownLocked()
	s.log.WithFields(logrus.Fields{
		"session_id": record.ID,
		"mode":       record.Type,
		"score":      record.Score,
		"answered":   outcome.AnsweredCount,
		"completed":  record.IsCompleted,
	}).Info("session completed")

	return &Result{
		Session:       &record,
		Pass:          outcome.IsPass,
		CorrectCount:  outcome.CorrectCount,
		AnsweredCount: outcome.AnsweredCount,
		TotalScore:    cfg.TotalScore,
	}, nil
}

func (s *Service) teardownLocked() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.machine = nil
}

func (s *Service) armTimerLocked() {
	ticker := s.clock.NewTicker(time.Second)
	done := make(chan struct{})
	var once sync.Once
	s.stopTimer = func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				if err := s.Tick(context.Background()); err != nil {
					s.log.WithError(err).Error("exam tick failed")
				}
			}
		}
	}()
}
