package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/intake"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

var (
	// ErrInFlight is returned when a submission arrives while an analysis is
	// already running. The running analysis is not affected.
	ErrInFlight = errors.New("an analysis is already in progress")
	// ErrNotIdle is returned when a submission arrives after a finished
	// analysis. Reset the session first.
	ErrNotIdle = errors.New("session holds a finished analysis")
)

// State is an immutable snapshot of a session. Result is set only in
// PhaseSuccess and Err only in PhaseError.
type State struct {
	Phase     Phase
	Kind      domain.Kind
	Artifact  domain.Artifact
	Result    domain.Result
	Err       error
	UpdatedAt time.Time
}

// Message is the text shown to the user for a failed analysis.
func (s State) Message() string {
	if s.Err == nil {
		return ""
	}
	return apperr.Message(s.Err)
}

// Analyzer runs one analysis. *service.AnalysisService satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, artifact domain.Artifact) (domain.Result, error)
}

type Option func(*Session)

// WithOnReset registers fn to run after every successful Reset.
func WithOnReset(fn func(id string)) Option {
	return func(s *Session) { s.onReset = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session drives one application instance through
// idle -> loading -> success|error -> idle.
// Every transition is a compare-and-swap on the state pointer.
type Session struct {
	id       string
	kind     domain.Kind
	state    atomic.Pointer[State]
	analyzer Analyzer
	logger   *slog.Logger
	onReset  func(id string)
	now      func() time.Time
}

func New(id string, kind domain.Kind, analyzer Analyzer, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		id:       id,
		kind:     kind,
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(&State{Phase: PhaseIdle, Kind: kind, UpdatedAt: s.now()})
	return s
}

func (s *Session) ID() string        { return s.id }
func (s *Session) Kind() domain.Kind { return s.kind }

func (s *Session) Snapshot() State {
	return *s.state.Load()
}

// Submit validates in and, when valid, runs the analysis to completion.
// The returned error is ErrInFlight or ErrNotIdle when the submission was
// rejected; the analysis outcome itself is read from Snapshot.
func (s *Session) Submit(ctx context.Context, in intake.Input) error {
	done, err := s.Launch(ctx, in)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Launch is Submit without waiting. The returned channel yields the final
// state once and is then closed. Invalid input moves the session straight
// to PhaseError and the channel is ready immediately.
func (s *Session) Launch(ctx context.Context, in intake.Input) (<-chan State, error) {
	loading, artifact, err := s.claim(in)
	if err != nil {
		return nil, err
	}

	done := make(chan State, 1)
	if loading == nil {
		done <- s.Snapshot()
		close(done)
		return done, nil
	}

	go func() {
		defer close(done)
		done <- s.run(ctx, loading, artifact)
	}()
	return done, nil
}

// claim performs the transition out of idle. It returns the loading state it
// installed, or nil when validation failed and the session went to error.
func (s *Session) claim(in intake.Input) (*State, domain.Artifact, error) {
	var artifact domain.Artifact
	var verr error
	if in.Kind != s.kind {
		verr = apperr.InvalidInput(fmt.Sprintf("this session analyses %s input", s.kind), nil)
	} else {
		artifact, verr = intake.Collect(in)
	}

	for {
		cur := s.state.Load()
		switch cur.Phase {
		case PhaseLoading:
			return nil, nil, ErrInFlight
		case PhaseSuccess, PhaseError:
			return nil, nil, ErrNotIdle
		}

		if verr != nil {
			next := &State{Phase: PhaseError, Kind: s.kind, Err: verr, UpdatedAt: s.now()}
			if s.state.CompareAndSwap(cur, next) {
				s.logger.Error("input rejected",
					"session_id", s.id,
					"kind", s.kind,
					"error_kind", apperr.KindValidation,
					"error_reason", apperr.ReasonOf(verr),
					"error", verr,
				)
				return nil, nil, nil
			}
			continue
		}

		next := &State{Phase: PhaseLoading, Kind: s.kind, Artifact: artifact, UpdatedAt: s.now()}
		if s.state.CompareAndSwap(cur, next) {
			return next, artifact, nil
		}
	}
}

func (s *Session) run(ctx context.Context, loading *State, artifact domain.Artifact) State {
	result, err := s.analyzer.Analyze(ctx, artifact)

	next := &State{Kind: s.kind, Artifact: artifact, UpdatedAt: s.now()}
	if err != nil {
		next.Phase = PhaseError
		next.Err = err
	} else {
		next.Phase = PhaseSuccess
		next.Result = result
	}

	// Nothing else may leave loading, so this swap only fails on a bug.
	if !s.state.CompareAndSwap(loading, next) {
		s.logger.Warn("session left loading unexpectedly", "session_id", s.id)
		return s.Snapshot()
	}
	return *next
}

// Reset returns a finished session to idle and reports whether it did.
// It is a no-op while idle or loading.
func (s *Session) Reset() bool {
	for {
		cur := s.state.Load()
		if cur.Phase != PhaseSuccess && cur.Phase != PhaseError {
			return false
		}
		next := &State{Phase: PhaseIdle, Kind: s.kind, UpdatedAt: s.now()}
		if s.state.CompareAndSwap(cur, next) {
			if s.onReset != nil {
				s.onReset(s.id)
			}
			return true
		}
	}
}
