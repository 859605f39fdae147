package web

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/photostore"
	"github.com/vbonduro/mediscan/internal/render"
	"github.com/vbonduro/mediscan/internal/session"
)

// analyzer is the subset of service.AnalysisService the server requires.
type analyzer interface {
	session.Analyzer
	Backend() string
}

// historyLister is the subset of store.AnalysisStore the server requires.
type historyLister interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error)
}

type Server struct {
	analyzer   analyzer
	sessions   *session.Registry
	history    historyLister
	templates  fs.FS
	photoStore photostore.PhotoStore
	// previewMu orders preview saves against discards so a reset cannot
	// slip between reading the artifact and writing it.
	previewMu  sync.Mutex
	mux        *http.ServeMux
	tmplFuncs  template.FuncMap
	logger     *slog.Logger
}

// NewServer wires the HTTP surface. history may be nil when the analysis
// journal is disabled.
func NewServer(svc analyzer, tmpl fs.FS, ps photostore.PhotoStore, history historyLister, logger *slog.Logger) *Server {
	s := &Server{
		analyzer:   svc,
		history:    history,
		templates:  tmpl,
		photoStore: ps,
		mux:        http.NewServeMux(),
		logger:     logger,
		tmplFuncs: template.FuncMap{
			"style": func(st render.Style) string { return "tone-" + string(st) },
		},
	}
	s.sessions = session.NewRegistry(svc, logger, session.WithDiscardHook(s.discardPhoto))
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/xray", http.StatusSeeOther)
	})
	s.mux.HandleFunc("GET /xray", s.handleXRayPage)
	s.mux.HandleFunc("GET /symptoms", s.handleSymptomsPage)
	s.mux.HandleFunc("POST /sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /sessions/{id}/submit", s.handleSubmit)
	s.mux.HandleFunc("POST /sessions/{id}/reset", s.handleReset)
	s.mux.HandleFunc("GET /sessions/{id}/image", s.handleGetImage)

	s.mux.HandleFunc("POST /api/xray", s.handleAPIXRay)
	s.mux.HandleFunc("POST /api/symptoms", s.handleAPISymptoms)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// Sessions exposes the session registry, mainly for tests.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// PruneSessions drops sessions idle for longer than ttl, checking every
// ttl/2, until ctx is done.
func (s *Server) PruneSessions(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.Prune(ttl)
		}
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr, "backend", s.analyzer.Backend())
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// discardPhoto removes the preview image of a reset or expired session.
func (s *Server) discardPhoto(id string) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	if err := s.photoStore.Delete(context.Background(), id); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		s.logger.Error("failed to discard photo", "session_id", id, "error", err)
	}
}
