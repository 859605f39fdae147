package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/llm"
)

// toolName is the single tool the model is forced to call. Its input schema
// is the response schema, so the tool input is the structured answer.
const toolName = "submit_analysis"

// maxTokens comfortably covers either response shape; the symptom report is
// the larger of the two at a few hundred tokens.
const maxTokens = 2048

type Gateway struct {
	apiKey string
	model  string
	client *anthropic.Client
}

// NewGateway builds a gateway against the Anthropic Messages API. baseURL
// may be empty for the public endpoint.
func NewGateway(apiKey, model, baseURL string) *Gateway {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Gateway{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(apiKey, opts...),
	}
}

func (g *Gateway) Name() string { return "claude" }

func (g *Gateway) Ready() error {
	if strings.TrimSpace(g.apiKey) == "" {
		return apperr.Configuration("API key is not configured. Please set the CLAUDE_API_KEY environment variable.")
	}
	return nil
}

func buildRequest(model string, req *llm.Request) anthropic.MessagesRequest {
	var content []anthropic.MessageContent
	if req.Attachment != nil {
		content = append(content, anthropic.NewImageMessageContent(anthropic.MessageContentSource{
			Type:      anthropic.MessagesContentSourceTypeBase64,
			MediaType: normaliseMIME(req.Attachment.MIMEType),
			Data:      base64.StdEncoding.EncodeToString(req.Attachment.Data),
		}))
	}
	content = append(content, anthropic.NewTextMessageContent(req.Prompt))

	temperature := req.Temperature
	out := anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: &temperature,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: content,
		}},
	}
	if req.Schema != nil {
		out.Tools = []anthropic.ToolDefinition{{
			Name:        toolName,
			Description: "Record the analysis result.",
			InputSchema: req.Schema.JSONSchema(),
		}}
		out.ToolChoice = &anthropic.ToolChoice{Type: "tool", Name: toolName}
	}
	return out
}

// Generate returns the forced tool's input as raw JSON. A plain text block is
// returned as-is when the model answers without the tool, and a reply with
// neither is returned as "" for the parser to report as empty.
func (g *Gateway) Generate(ctx context.Context, req *llm.Request) (string, error) {
	resp, err := g.client.CreateMessages(ctx, buildRequest(g.model, req))
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	var text string
	for _, blk := range resp.Content {
		switch blk.Type {
		case anthropic.MessagesContentTypeToolUse:
			if blk.MessageContentToolUse != nil && blk.MessageContentToolUse.Name == toolName {
				return string(blk.MessageContentToolUse.Input), nil
			}
		case anthropic.MessagesContentTypeText:
			if text == "" {
				text = blk.GetText()
			}
		}
	}
	return text, nil
}

// normaliseMIME maps image types to the values the Anthropic API accepts.
// Intake only admits png, jpeg and webp, so anything else is treated as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
