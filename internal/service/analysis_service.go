package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/llm"
	"github.com/vbonduro/mediscan/internal/prompt"
	"github.com/vbonduro/mediscan/internal/report"
)

// journal is the subset of store.AnalysisStore that AnalysisService requires.
type journal interface {
	Record(ctx context.Context, rec *domain.AnalysisRecord) error
}

// AnalysisService runs the request pipeline for one validated artifact:
// credential check, request build, one gateway call, and response parsing.
type AnalysisService struct {
	gateway llm.Gateway
	journal journal
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewAnalysisService wires the pipeline. journal may be nil to disable the
// analysis journal. timeout bounds the gateway call; zero means no bound.
func NewAnalysisService(gateway llm.Gateway, journal journal, timeout time.Duration, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		gateway: gateway,
		journal: journal,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Backend returns the gateway name.
func (s *AnalysisService) Backend() string {
	return s.gateway.Name()
}

// Analyze runs the pipeline once. There are no retries; every failure is
// returned as an *apperr.Error.
func (s *AnalysisService) Analyze(ctx context.Context, artifact domain.Artifact) (domain.Result, error) {
	start := s.now()
	result, err := s.analyze(ctx, artifact)
	elapsed := s.now().Sub(start)

	if err != nil {
		s.logger.Error("analysis failed",
			"kind", artifact.Kind(),
			"backend", s.gateway.Name(),
			"error_kind", errorKind(err),
			"error_reason", apperr.ReasonOf(err),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
	} else {
		s.logger.Info("analysis complete",
			"kind", artifact.Kind(),
			"backend", s.gateway.Name(),
			"summary", report.Summary(result),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	s.record(ctx, artifact.Kind(), result, err, start, elapsed)
	return result, err
}

func (s *AnalysisService) analyze(ctx context.Context, artifact domain.Artifact) (domain.Result, error) {
	if err := s.gateway.Ready(); err != nil {
		return nil, err
	}

	req, err := prompt.Build(artifact)
	if err != nil {
		return nil, apperr.InvalidInput("unsupported input", err)
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info("gateway call started", "kind", req.Kind, "backend", s.gateway.Name())
	raw, err := s.gateway.Generate(callCtx, req)
	if err != nil {
		return nil, asServiceError(err, s.timeout)
	}
	s.logger.Debug("gateway call complete", "kind", req.Kind, "bytes", len(raw))

	return report.Parse(raw, req.Schema)
}

// record writes the journal entry. Journal failures are logged and never
// change the analysis outcome.
func (s *AnalysisService) record(ctx context.Context, kind domain.Kind, result domain.Result, err error, start time.Time, elapsed time.Duration) {
	if s.journal == nil {
		return
	}
	rec := &domain.AnalysisRecord{
		ID:         uuid.NewString(),
		Kind:       kind,
		Outcome:    domain.OutcomeSuccess,
		Backend:    s.gateway.Name(),
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	if err != nil {
		rec.Outcome = domain.OutcomeError
		rec.ErrorKind = errorKind(err)
		rec.ErrorReason = string(apperr.ReasonOf(err))
	} else {
		rec.Summary = report.Summary(result)
	}

	if jerr := s.journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
		s.logger.Error("failed to record analysis", "id", rec.ID, "error", jerr)
	}
}

func asServiceError(err error, timeout time.Duration) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Service(fmt.Sprintf("analysis timed out after %s", timeout), err)
	}
	return apperr.Service("failed to call analysis service", err)
}

func errorKind(err error) string {
	if appErr, ok := apperr.As(err); ok {
		return string(appErr.Kind)
	}
	return "unknown"
}
