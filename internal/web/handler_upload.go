package web

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/intake"
)

// maxFormSize bounds a whole form post: one image at the intake limit plus
// room for the multipart framing. Larger bodies are cut off unread.
const maxFormSize = intake.MaxImageBytes + 1<<20

// parseForm parses a multipart or url-encoded post body under maxFormSize.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormSize)
	}
	return r.ParseForm()
}

// formInput builds the raw submission for kind from a parsed form. A missing
// image still produces an input so the session reports the validation error
// itself.
func (s *Server) formInput(r *http.Request, kind domain.Kind) (intake.Input, error) {
	if kind == domain.KindSymptoms {
		return intake.TextInput(r.FormValue("symptoms")), nil
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return intake.ImageInput(nil), nil
	}
	if err != nil {
		return intake.Input{}, err
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		return intake.Input{}, err
	}
	return intake.ImageInput(data), nil
}

// formStatus maps a form parsing failure to a response status.
func formStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func parseKind(v string) (domain.Kind, bool) {
	switch domain.Kind(v) {
	case domain.KindXRay:
		return domain.KindXRay, true
	case domain.KindSymptoms:
		return domain.KindSymptoms, true
	default:
		return "", false
	}
}

func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
