package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/mediscan/internal/domain"
)

// MaxListLimit caps how many journal rows one ListRecent call returns.
const MaxListLimit = 200

// AnalysisStore is the analysis journal. It holds outcomes only, never the
// uploaded image or the symptom text.
type AnalysisStore struct {
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

func (s *AnalysisStore) Record(ctx context.Context, rec *domain.AnalysisRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, kind, outcome, summary, error_kind, error_reason, backend, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Kind, rec.Outcome, rec.Summary, rec.ErrorKind, rec.ErrorReason, rec.Backend, rec.DurationMS, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first. limit is clamped to
// 1..MaxListLimit.
func (s *AnalysisStore) ListRecent(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	limit = min(max(limit, 1), MaxListLimit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, outcome, summary, error_kind, error_reason, backend, duration_ms, created_at
		FROM analyses
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	records := []*domain.AnalysisRecord{}
	for rows.Next() {
		rec := &domain.AnalysisRecord{}
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Outcome, &rec.Summary, &rec.ErrorKind,
			&rec.ErrorReason, &rec.Backend, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return records, nil
}
