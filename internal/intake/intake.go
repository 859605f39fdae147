package intake

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
)

const MaxImageBytes = 10 * 1024 * 1024 // 10 MiB

// allowedImageTypes is the set of MIME types accepted for X-ray uploads.
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

const (
	msgInvalidImage = "Please upload a valid image file (e.g., PNG, JPG, WEBP)."
	msgImageTooBig  = "File is too large. Please upload an image under 10MB."
	msgEmptyText    = "Please enter your symptoms before submitting."
	msgUnreadable   = "The image could not be read. Please try another file."
)

// Input is a raw, unvalidated submission from any entry point.
type Input struct {
	Kind  domain.Kind
	Image []byte
	Text  string
}

func ImageInput(data []byte) Input {
	return Input{Kind: domain.KindXRay, Image: data}
}

func TextInput(text string) Input {
	return Input{Kind: domain.KindSymptoms, Text: text}
}

// Collect validates in and returns the matching artifact.
func Collect(in Input) (domain.Artifact, error) {
	switch in.Kind {
	case domain.KindXRay:
		return CollectImage(in.Image)
	case domain.KindSymptoms:
		return CollectText(in.Text)
	default:
		return nil, apperr.InvalidInput(fmt.Sprintf("unknown analysis kind %q", in.Kind), nil)
	}
}

// CollectImage sniffs the image type from its content; the declared type
// of an upload is never trusted.
func CollectImage(data []byte) (*domain.ImageArtifact, error) {
	if len(data) == 0 {
		return nil, apperr.InvalidInput(msgInvalidImage, nil)
	}
	mimeType := mimetype.Detect(data).String()
	if err := CheckImage(mimeType, len(data)); err != nil {
		return nil, err
	}
	return &domain.ImageArtifact{Data: data, MIMEType: normalise(mimeType)}, nil
}

// CheckImage is the one validation rule for images, shared by every entry
// point.
func CheckImage(mimeType string, size int) error {
	if !allowedImageTypes[normalise(mimeType)] {
		return apperr.InvalidInput(msgInvalidImage, fmt.Errorf("unsupported type %q", mimeType))
	}
	if size > MaxImageBytes {
		return apperr.InvalidInput(msgImageTooBig, fmt.Errorf("%d bytes exceeds limit of %d", size, MaxImageBytes))
	}
	return nil
}

// ReadImage reads an upload, stopping one byte past the limit so an oversize
// body is rejected without being buffered whole.
func ReadImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, apperr.InvalidInput(msgUnreadable, fmt.Errorf("failed to read image: %w", err))
	}
	if len(data) > MaxImageBytes {
		return nil, apperr.InvalidInput(msgImageTooBig, fmt.Errorf("upload exceeds limit of %d bytes", MaxImageBytes))
	}
	return data, nil
}

// CollectText accepts any text that is not blank. The text itself is passed
// on exactly as entered.
func CollectText(text string) (*domain.TextArtifact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.EmptyInput(msgEmptyText)
	}
	return &domain.TextArtifact{Symptoms: text}, nil
}

func normalise(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}
