package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/mediscan/internal/domain"
)

// Registry owns the sessions of the web server, keyed by uuid.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	analyzer  Analyzer
	logger    *slog.Logger
	onDiscard func(id string)
	now       func() time.Time
}

type RegistryOption func(*Registry)

// WithDiscardHook registers fn to run for every session that is reset,
// removed, or pruned.
func WithDiscardHook(fn func(id string)) RegistryOption {
	return func(r *Registry) { r.onDiscard = fn }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(analyzer Analyzer, logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Create(kind domain.Kind) *Session {
	opts := []Option{WithClock(r.now)}
	if r.onDiscard != nil {
		opts = append(opts, WithOnReset(r.onDiscard))
	}
	s := New(uuid.NewString(), kind, r.analyzer, r.logger, opts...)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.logger.Debug("session created", "session_id", s.ID(), "kind", kind)
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok && r.onDiscard != nil {
		r.onDiscard(id)
	}
}

// Prune removes sessions untouched for longer than idleFor. Sessions with an
// analysis in flight are kept. It returns the number removed.
func (r *Registry) Prune(idleFor time.Duration) int {
	cutoff := r.now().Add(-idleFor)

	r.mu.Lock()
	var stale []string
	for id, s := range r.sessions {
		st := s.Snapshot()
		if st.Phase != PhaseLoading && st.UpdatedAt.Before(cutoff) {
			stale = append(stale, id)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		if r.onDiscard != nil {
			r.onDiscard(id)
		}
	}
	if len(stale) > 0 {
		r.logger.Info("sessions pruned", "count", len(stale))
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
