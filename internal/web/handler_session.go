package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/photostore"
	"github.com/vbonduro/mediscan/internal/render"
	"github.com/vbonduro/mediscan/internal/session"
)

var sharedFiles = []string{
	"base.html",
	"partials/xray_form.html",
	"partials/symptoms_form.html",
	"partials/xray_result.html",
	"partials/symptoms_result.html",
}

// sessionView is the data every session-facing page renders from.
type sessionView struct {
	ActiveNav domain.Kind
	Kind      domain.Kind
	ID        string
	Action    string
	Phase     session.Phase
	Message   string
	HasImage  bool
	XRay      *render.XRayView
	Symptoms  *render.SymptomView
}

func (s *Server) pageFiles(page string) []string {
	return append([]string{page}, sharedFiles...)
}

func (s *Server) handleXRayPage(w http.ResponseWriter, r *http.Request) {
	s.renderInputPage(w, domain.KindXRay)
}

func (s *Server) handleSymptomsPage(w http.ResponseWriter, r *http.Request) {
	s.renderInputPage(w, domain.KindSymptoms)
}

func (s *Server) renderInputPage(w http.ResponseWriter, kind domain.Kind) {
	view := sessionView{ActiveNav: kind, Kind: kind, Action: "/sessions", Phase: session.PhaseIdle}
	if err := s.renderPage(w, view, s.pageFiles("pages/session.html")...); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// handleCreateSession starts a session and submits the posted form to it.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		http.Error(w, "failed to parse form", formStatus(err))
		return
	}
	kind, ok := parseKind(r.FormValue("kind"))
	if !ok {
		http.Error(w, "unknown analysis kind", http.StatusBadRequest)
		return
	}

	sess := s.sessions.Create(kind)
	s.submit(w, r, sess)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		http.Error(w, "failed to parse form", formStatus(err))
		return
	}
	s.submit(w, r, sess)
}

// submit launches the analysis in the background and redirects to the
// session page, which polls until the analysis finishes.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	in, err := s.formInput(r, sess.Kind())
	if err != nil {
		http.Error(w, "failed to read form", http.StatusBadRequest)
		s.logger.Error("read form failed", "session_id", sess.ID(), "error", err)
		return
	}

	// Use a detached context so that the analysis runs to completion even if
	// the client navigates away and the request context is cancelled.
	if _, err := sess.Launch(context.WithoutCancel(r.Context()), in); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	s.savePreview(r.Context(), sess)
	http.Redirect(w, r, "/sessions/"+sess.ID(), http.StatusSeeOther)
}

// savePreview stores the accepted X-ray under the session ID so the result
// page can show it. Rejected uploads are never stored. A reset that lands
// while the image is being written waits for the write, then discards it.
func (s *Server) savePreview(ctx context.Context, sess *session.Session) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	img, ok := sess.Snapshot().Artifact.(*domain.ImageArtifact)
	if !ok {
		return
	}
	if err := s.photoStore.Save(ctx, sess.ID(), img.MIMEType, bytes.NewReader(img.Data)); err != nil {
		s.logger.Error("failed to save preview", "session_id", sess.ID(), "error", err)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	st := sess.Snapshot()
	view := sessionView{
		ActiveNav: sess.Kind(),
		Kind:      sess.Kind(),
		ID:        sess.ID(),
		Action:    "/sessions/" + sess.ID() + "/submit",
		Phase:     st.Phase,
		Message:   st.Message(),
		HasImage:  st.Artifact != nil && sess.Kind() == domain.KindXRay,
	}
	switch res := st.Result.(type) {
	case *domain.XRayReport:
		v := render.XRay(res)
		view.XRay = &v
	case *domain.SymptomReport:
		v := render.Symptoms(res)
		view.Symptoms = &v
	}

	if st.Phase == session.PhaseLoading {
		w.Header().Set("Cache-Control", "no-store")
	}
	if err := s.renderPage(w, view, s.pageFiles("pages/session.html")...); err != nil {
		s.logger.Error("render page failed", "session_id", sess.ID(), "error", err)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !sess.Reset() && sess.Snapshot().Phase == session.PhaseLoading {
		http.Error(w, session.ErrInFlight.Error(), http.StatusConflict)
		return
	}
	http.Redirect(w, r, "/sessions/"+sess.ID(), http.StatusSeeOther)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sessions.Get(id); !ok {
		http.NotFound(w, r)
		return
	}

	rc, mimeType, err := s.photoStore.Get(r.Context(), id)
	if errors.Is(err, photostore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to load image", http.StatusInternalServerError)
		s.logger.Error("get preview failed", "session_id", id, "error", err)
		return
	}
	defer closeWithLog(rc, "preview", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("write preview failed", "session_id", id, "error", err)
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
	}
	return sess, ok
}
