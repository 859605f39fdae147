package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/schema"
)

// Parse turns the model's raw text into a typed result. The response comes
// from a system we do not control, so required keys and value types are
// checked against s before anything is decoded.
func Parse(raw string, s *schema.Schema) (domain.Result, error) {
	text := stripFence(strings.TrimSpace(raw))
	if text == "" {
		return nil, apperr.Parse(apperr.ReasonEmpty, "received an empty response from the model", nil)
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, apperr.Parse(apperr.ReasonMalformedJSON, "model response is not valid JSON", err)
	}

	if err := s.Validate(doc); err != nil {
		return nil, apperr.Parse(apperr.ReasonSchemaMismatch, "model response does not match the requested schema", err)
	}

	var result domain.Result
	switch s {
	case schema.XRay:
		result = &domain.XRayReport{}
	case schema.Symptoms:
		result = &domain.SymptomReport{}
	default:
		return nil, apperr.Parse(apperr.ReasonSchemaMismatch, "no result type is registered for the requested schema", nil)
	}

	if err := json.Unmarshal([]byte(text), result); err != nil {
		return nil, apperr.Parse(apperr.ReasonSchemaMismatch, "model response does not match the result type", err)
	}
	return result, nil
}

// stripFence removes a surrounding markdown code fence such as ```json ... ```.
// Some backends wrap JSON this way even when asked not to.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	body := strings.TrimSuffix(text[3:], "```")
	// Drop the info string ("json") on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if info := strings.TrimSpace(body[:nl]); info == "" || !strings.ContainsAny(info, "{[") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

// Summary returns a one-line description of a result for logs and the
// analysis journal: the most likely diagnosis or the first listed condition.
func Summary(r domain.Result) string {
	switch res := r.(type) {
	case *domain.XRayReport:
		if len(res.Diagnoses) == 0 {
			return ""
		}
		top := res.Diagnoses[0]
		for _, d := range res.Diagnoses[1:] {
			if d.Probability > top.Probability {
				top = d
			}
		}
		return fmt.Sprintf("%s (%.2f)", top.Condition, top.Probability)
	case *domain.SymptomReport:
		if len(res.PossibleConditions) == 0 {
			return ""
		}
		c := res.PossibleConditions[0]
		return fmt.Sprintf("%s (%s)", c.Name, c.Severity)
	default:
		return ""
	}
}
