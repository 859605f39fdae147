package photostore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("photo not found")

// PhotoStore keeps the uploaded X-ray for preview, addressed by the session
// ID that owns it. Saving under an existing key replaces the photo.
type PhotoStore interface {
	Save(ctx context.Context, key, mimeType string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
