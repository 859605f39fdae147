package domain

import "time"

// Kind selects which of the two applications an analysis belongs to.
type Kind string

const (
	KindXRay     Kind = "xray"
	KindSymptoms Kind = "symptoms"
)

// Artifact is one validated user input, ready for the request builder.
type Artifact interface {
	Kind() Kind
}

type ImageArtifact struct {
	Data     []byte
	MIMEType string
}

func (*ImageArtifact) Kind() Kind { return KindXRay }

type TextArtifact struct {
	Symptoms string
}

func (*TextArtifact) Kind() Kind { return KindSymptoms }

// Result is a parsed model response: *XRayReport or *SymptomReport.
type Result interface {
	Kind() Kind
}

type Diagnosis struct {
	Condition   string  `json:"condition"`
	Probability float64 `json:"probability"`
	Description string  `json:"description"`
}

type XRayReport struct {
	KeyFindings string      `json:"keyFindings"`
	Diagnoses   []Diagnosis `json:"diagnoses"`
}

func (*XRayReport) Kind() Kind { return KindXRay }

type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
	SeverityCritical Severity = "Critical"
)

// Severities lists the values the model is asked to choose from.
var Severities = []Severity{SeverityMild, SeverityModerate, SeveritySevere, SeverityCritical}

type Condition struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type Recommendation struct {
	Category string `json:"category"`
	Advice   string `json:"advice"`
}

type SymptomReport struct {
	PossibleConditions []Condition      `json:"possibleConditions"`
	Recommendations    []Recommendation `json:"recommendations"`
	Disclaimer         string           `json:"disclaimer"`
}

func (*SymptomReport) Kind() Kind { return KindSymptoms }

// Recommendation categories the symptom prompt asks the model to use, in
// display priority order.
const (
	CategoryImmediateAction = "Immediate Action"
	CategoryConsultDoctor   = "Consult a Doctor"
	CategorySelfCare        = "Self-Care & Monitoring"
)

var CategoryOrder = []string{CategoryImmediateAction, CategoryConsultDoctor, CategorySelfCare}

// Outcome is how a finished analysis ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// AnalysisRecord is one row of the analysis journal. It never holds the
// image or the symptom text.
type AnalysisRecord struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Outcome     Outcome   `json:"outcome"`
	Summary     string    `json:"summary,omitempty"`
	ErrorKind   string    `json:"errorKind,omitempty"`
	ErrorReason string    `json:"errorReason,omitempty"`
	Backend     string    `json:"backend"`
	DurationMS  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
