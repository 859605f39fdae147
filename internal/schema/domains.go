package schema

import "github.com/vbonduro/mediscan/internal/domain"

// XRay is the response shape for the image application. Callers must not
// modify it.
var XRay = &Schema{
	Type: Object,
	Properties: map[string]*Schema{
		"keyFindings": {
			Type:        String,
			Description: "A summary of the AI's clinical observations from the X-ray image.",
		},
		"diagnoses": {
			Type:     Array,
			MinItems: 1,
			Items: &Schema{
				Type: Object,
				Properties: map[string]*Schema{
					"condition":   {Type: String},
					"probability": {Type: Number},
					"description": {Type: String},
				},
				Required: []string{"condition", "probability", "description"},
			},
		},
	},
	Required: []string{"keyFindings", "diagnoses"},
}

// Symptoms is the response shape for the text application. Callers must not
// modify it.
var Symptoms = &Schema{
	Type: Object,
	Properties: map[string]*Schema{
		"possibleConditions": {
			Type:        Array,
			Description: "A list of possible medical conditions based on the symptoms. Provide at least 2-3 possibilities.",
			Items: &Schema{
				Type: Object,
				Properties: map[string]*Schema{
					"name": {
						Type:        String,
						Description: "The name of the possible condition.",
					},
					"description": {
						Type:        String,
						Description: "A brief, easy-to-understand description of the condition and why it might be relevant based on the symptoms.",
					},
					"severity": {
						Type:        String,
						Description: "An estimated severity level. Options must be one of: Mild, Moderate, Severe, Critical.",
						Enum:        severityValues(),
					},
				},
				Required: []string{"name", "description", "severity"},
			},
		},
		"recommendations": {
			Type:        Array,
			Description: "A list of concrete, actionable next steps for the user. Categorize each recommendation. You must use one of the following categories: 'Immediate Action', 'Consult a Doctor', 'Self-Care & Monitoring'.",
			Items: &Schema{
				Type: Object,
				Properties: map[string]*Schema{
					"category": {
						Type:        String,
						Description: "The category of the recommendation. Choose from: 'Immediate Action', 'Consult a Doctor', 'Self-Care & Monitoring'.",
					},
					"advice": {
						Type:        String,
						Description: "The specific recommendation or advice text.",
					},
				},
				Required: []string{"category", "advice"},
			},
		},
		"disclaimer": {
			Type:        String,
			Description: "A mandatory disclaimer stating that this is not a substitute for professional medical advice and the user should consult a doctor.",
		},
	},
	Required: []string{"possibleConditions", "recommendations", "disclaimer"},
}

// For returns the response schema for kind, or nil if kind is unknown.
func For(kind domain.Kind) *Schema {
	switch kind {
	case domain.KindXRay:
		return XRay
	case domain.KindSymptoms:
		return Symptoms
	default:
		return nil
	}
}

func severityValues() []string {
	out := make([]string, len(domain.Severities))
	for i, s := range domain.Severities {
		out[i] = string(s)
	}
	return out
}
