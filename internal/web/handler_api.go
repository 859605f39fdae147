package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/intake"
	"github.com/vbonduro/mediscan/internal/session"
)

const defaultHistoryLimit = 20

// symptomsRequest is the body of POST /api/symptoms. Blank text passes
// validation here and is rejected by intake, so both entry points report it
// the same way.
type symptomsRequest struct {
	Symptoms string `json:"symptoms" validate:"max=10000"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

var validate = validator.New()

func (s *Server) handleAPIXRay(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeJSON(w, formStatus(err), errorResponse{Error: "failed to parse form"})
		return
	}
	in, err := s.formInput(r, domain.KindXRay)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read image"})
		return
	}
	s.analyzeOnce(w, r, domain.KindXRay, in)
}

func (s *Server) handleAPISymptoms(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req symptomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, formStatus(err), errorResponse{Error: "request body must be JSON like {\"symptoms\": \"...\"}"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeAPIError(w, apperr.InvalidInput("Symptoms must be at most 10000 characters.", err))
		return
	}
	s.analyzeOnce(w, r, domain.KindSymptoms, intake.TextInput(req.Symptoms))
}

// analyzeOnce runs a synchronous analysis on a session that lives only for
// this request.
func (s *Server) analyzeOnce(w http.ResponseWriter, r *http.Request, kind domain.Kind, in intake.Input) {
	sess := session.New(uuid.NewString(), kind, s.analyzer, s.logger)
	if err := sess.Submit(r.Context(), in); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}

	st := sess.Snapshot()
	if st.Phase == session.PhaseError {
		writeAPIError(w, st.Err)
		return
	}
	writeJSON(w, http.StatusOK, st.Result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "analysis history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list history"})
		s.logger.Error("list history failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": s.analyzer.Backend()})
}

func writeAPIError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: apperr.Message(err)}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp.Kind = string(appErr.Kind)
		resp.Reason = string(appErr.Reason)
	}
	writeJSON(w, apperr.HTTPStatus(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
