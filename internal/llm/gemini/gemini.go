package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/llm"
	"github.com/vbonduro/mediscan/internal/schema"
	"google.golang.org/genai"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/"

type Gateway struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func NewGateway(apiKey, model, baseURL string) *Gateway {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Gateway{
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

func (g *Gateway) Name() string { return "gemini" }

func (g *Gateway) Ready() error {
	if g.apiKey == "" {
		return apperr.Configuration("API key is not configured. Please set the GEMINI_API_KEY environment variable.")
	}
	return nil
}

// genaiClient builds the SDK client on first use. genai.NewClient rejects an
// empty key, so it cannot run in NewGateway.
func (g *Gateway) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      g.apiKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  g.httpClient,
			HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
		})
	})
	return g.client, g.clientErr
}

func buildContents(req *llm.Request) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Attachment != nil {
		// The image goes before the instruction text, as in the vision examples.
		parts = append([]*genai.Part{genai.NewPartFromBytes(req.Attachment.Data, req.Attachment.MIMEType)}, parts...)
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildConfig(req *llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: req.ResponseFormat,
		Temperature:      genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseSchema = responseSchema(req.Schema)
	}
	return cfg
}

// responseSchema renders s in the OpenAPI subset generateContent accepts:
// upper-case type names and string enums marked with format "enum".
func responseSchema(s *schema.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(string(s.Type))),
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
		out.Enum = slices.Clone(s.Enum)
	}
	switch s.Type {
	case schema.Object:
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, name := range s.PropertyNames() {
			out.Properties[name] = responseSchema(s.Properties[name])
		}
		if len(s.Required) > 0 {
			out.Required = slices.Clone(s.Required)
			out.PropertyOrdering = slices.Clone(s.Required)
		}
	case schema.Array:
		if s.Items != nil {
			out.Items = responseSchema(s.Items)
		}
		if s.MinItems > 0 {
			out.MinItems = genai.Ptr(int64(s.MinItems))
		}
	}
	return out
}

// Generate returns the text of the first candidate. A candidate with no text
// is returned as "" so the parser reports it as an empty response.
func (g *Gateway) Generate(ctx context.Context, req *llm.Request) (string, error) {
	client, err := g.genaiClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, buildContents(req), buildConfig(req))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini returned status %d: %s", apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return resp.Text(), nil
}
