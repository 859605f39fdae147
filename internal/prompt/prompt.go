package prompt

import (
	"fmt"

	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/llm"
	"github.com/vbonduro/mediscan/internal/schema"
)

// XRayPrompt is sent alongside every X-ray image.
const XRayPrompt = `You are a highly skilled radiology AI assistant. Your task is to analyze the provided chest X-ray image with meticulous detail.

First, provide a summary of your key findings in a 'keyFindings' field. In a few sentences, describe any notable observations, such as opacities, infiltrates, effusions, cardiothoracic ratio, or any other abnormalities. If the image appears normal, state that. This summary should be clinical and concise.

Second, based on your findings, provide a list of the top 3-5 most likely differential diagnoses. Each diagnosis must include:
1. 'condition': The name of the condition (e.g., 'Pneumonia', 'Normal', 'Cardiomegaly').
2. 'probability': A numerical value between 0 and 1 representing the likelihood.
3. 'description': A brief, one-sentence clinical description of the condition.

Always include 'Normal' as a possibility in your list of diagnoses.

Return ONLY a single JSON object that adheres to the provided schema. Do not include any other text, greetings, or markdown formatting.`

// SymptomsSystem is the system instruction for symptom analysis.
const SymptomsSystem = "You are an advanced AI medical assistant. Your role is to analyze user-provided symptoms and provide a list of possible medical conditions and actionable next steps. You must not provide a definitive diagnosis. Always prioritize user safety and strongly recommend consulting a healthcare professional. Your response must be in JSON format, strictly adhering to the provided schema."

const symptomsTemplate = `Analyze the following symptoms and provide potential conditions and recommendations: "%s"`

// Build turns a validated artifact into a gateway request. It is pure: equal
// artifacts produce identical prompts and the same schema.
func Build(a domain.Artifact) (*llm.Request, error) {
	switch art := a.(type) {
	case *domain.ImageArtifact:
		return &llm.Request{
			Kind:   domain.KindXRay,
			Prompt: XRayPrompt,
			Attachment: &llm.Attachment{
				Data:     art.Data,
				MIMEType: art.MIMEType,
			},
			Schema:         schema.XRay,
			ResponseFormat: llm.ResponseFormat,
			Temperature:    llm.Temperature,
		}, nil
	case *domain.TextArtifact:
		return &llm.Request{
			Kind:           domain.KindSymptoms,
			System:         SymptomsSystem,
			Prompt:         fmt.Sprintf(symptomsTemplate, art.Symptoms),
			Schema:         schema.Symptoms,
			ResponseFormat: llm.ResponseFormat,
			Temperature:    llm.Temperature,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported artifact type %T", a)
	}
}
