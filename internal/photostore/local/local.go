package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/mediscan/internal/photostore"
)

// extensions maps each accepted image type to the file extension it is
// stored under. The extension is how Get recovers the type.
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type LocalPhotoStore struct {
	basePath string
}

func NewLocalPhotoStore(basePath string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &LocalPhotoStore{basePath: basePath}, nil
}

func (s *LocalPhotoStore) Save(ctx context.Context, key, mimeType string, r io.Reader) error {
	ext, ok := extensions[mimeType]
	if !ok {
		return fmt.Errorf("unsupported photo type %q", mimeType)
	}
	filePath, err := s.safeJoin(key + ext)
	if err != nil {
		return err
	}
	// A replacement may use a different extension.
	if err := s.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		return err
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func (s *LocalPhotoStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, mimeType, err := s.find(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, mimeType, nil
}

func (s *LocalPhotoStore) Delete(ctx context.Context, key string) error {
	filePath, _, err := s.find(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return photostore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// find locates the file stored for key under any accepted extension.
func (s *LocalPhotoStore) find(key string) (string, string, error) {
	for mimeType, ext := range extensions {
		filePath, err := s.safeJoin(key + ext)
		if err != nil {
			return "", "", err
		}
		if _, err := os.Stat(filePath); err == nil {
			return filePath, mimeType, nil
		}
	}
	return "", "", photostore.ErrNotFound
}

// safeJoin resolves name relative to basePath and rejects directory traversal.
func (s *LocalPhotoStore) safeJoin(name string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) || filepath.Dir(absPath) != absBase {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
