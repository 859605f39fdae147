package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/llm"
	"github.com/vbonduro/mediscan/internal/mocks"
	"github.com/vbonduro/mediscan/internal/schema"
	"go.uber.org/mock/gomock"
)

const xrayJSON = `{"keyFindings":"Right lower lobe opacity.","diagnoses":[{"condition":"Pneumonia","probability":0.8,"description":"d"},{"condition":"Normal","probability":0.1,"description":"n"}]}`

// stubJournal records what AnalysisService writes.
type stubJournal struct {
	records []*domain.AnalysisRecord
	err     error
}

func (j *stubJournal) Record(_ context.Context, rec *domain.AnalysisRecord) error {
	j.records = append(j.records, rec)
	return j.err
}

func newGateway(t *testing.T) *mocks.MockGateway {
	t.Helper()
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().Name().Return("fake").AnyTimes()
	return gw
}

var xray = &domain.ImageArtifact{Data: []byte{0xFF, 0xD8, 0xFF}, MIMEType: "image/jpeg"}

func TestAnalyze_Success(t *testing.T) {
	gw := newGateway(t)
	gw.EXPECT().Ready().Return(nil)
	gw.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req *llm.Request) (string, error) {
		assert.Equal(t, domain.KindXRay, req.Kind)
		assert.Same(t, schema.XRay, req.Schema)
		assert.Equal(t, xray.Data, req.Attachment.Data)
		return xrayJSON, nil
	})
	j := &stubJournal{}

	svc := NewAnalysisService(gw, j, time.Minute, slog.Default())
	result, err := svc.Analyze(context.Background(), xray)
	require.NoError(t, err)

	report := result.(*domain.XRayReport)
	assert.Equal(t, "Right lower lobe opacity.", report.KeyFindings)
	require.Len(t, j.records, 1)
	assert.Equal(t, domain.OutcomeSuccess, j.records[0].Outcome)
	assert.Equal(t, "Pneumonia (0.80)", j.records[0].Summary)
	assert.Equal(t, "fake", j.records[0].Backend)
	assert.NotEmpty(t, j.records[0].ID)
}

func TestAnalyze_MissingCredentialNeverCallsGateway(t *testing.T) {
	gw := newGateway(t)
	gw.EXPECT().Ready().Return(apperr.Configuration("GEMINI_API_KEY is not set"))
	gw.EXPECT().Generate(gomock.Any(), gomock.Any()).Times(0)

	svc := NewAnalysisService(gw, nil, time.Minute, slog.Default())
	result, err := svc.Analyze(context.Background(), &domain.TextArtifact{Symptoms: "cough"})

	assert.Nil(t, result)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestAnalyze_ServiceError(t *testing.T) {
	gw := newGateway(t)
	gw.EXPECT().Ready().Return(nil)
	gw.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", errors.New("connection refused")).Times(1)
	j := &stubJournal{}

	svc := NewAnalysisService(gw, j, time.Minute, slog.Default())
	_, err := svc.Analyze(context.Background(), &domain.TextArtifact{Symptoms: "cough"})

	assert.True(t, apperr.Is(err, apperr.KindService))
	require.Len(t, j.records, 1)
	assert.Equal(t, domain.OutcomeError, j.records[0].Outcome)
	assert.Equal(t, "service", j.records[0].ErrorKind)
}

func TestAnalyze_GatewayErrorKeepsItsKind(t *testing.T) {
	gw := newGateway(t)
	gw.EXPECT().Ready().Return(nil)
	gw.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", apperr.Service("gemini returned status 429", nil))

	svc := NewAnalysisService(gw, nil, time.Minute, slog.Default())
	_, err := svc.Analyze(context.Background(), xray)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "gemini returned status 429", appErr.Message)
}

func TestAnalyze_Timeout(t *testing.T) {
	gw := newGateway(t)
	gw.EXPECT().Ready().Return(nil)
	gw.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ *llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	svc := NewAnalysisService(gw, nil, 10*time.Millisecond, slog.Default())
	_, err := svc.Analyze(context.Background(), xray)

	assert.True(t, apperr.Is(err, apperr.KindService))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyze_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason apperr.Reason
	}{
		{"empty body", "", apperr.ReasonEmpty},
		{"not json", "not json", apperr.ReasonMalformedJSON},
		{"missing diagnoses", `{"keyFindings":"x"}`, apperr.ReasonSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(t)
			gw.EXPECT().Ready().Return(nil)
			gw.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(tt.raw, nil)
			j := &stubJournal{}

			svc := NewAnalysisService(gw, j, time.Minute, slog.Default())
			_, err := svc.Analyze(context.Background(), xray)

			assert.True(t, apperr.Is(err, apperr.KindParse))
			assert.Equal(t, tt.reason, apperr.ReasonOf(err))
			require.Len(t, j.records, 1)
			assert.Equal(t, string(tt.reason), j.records[0].ErrorReason)
		})
	}
}

func TestAnalyze_JournalFailureDoesNotFailAnalysis(t *testing.T) {
	gw := newGateway(t)
	gw.EXPECT().Ready().Return(nil)
	gw.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(xrayJSON, nil)

	svc := NewAnalysisService(gw, &stubJournal{err: errors.New("disk full")}, time.Minute, slog.Default())
	result, err := svc.Analyze(context.Background(), xray)

	require.NoError(t, err)
	assert.NotNil(t, result)
}
