package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/llm"
)

type Gateway struct {
	host   string
	model  string
	client *http.Client
}

func NewGateway(host, model string) *Gateway {
	return &Gateway{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

func (g *Gateway) Name() string { return "ollama" }

// Ready needs no credential, only a host to call.
func (g *Gateway) Ready() error {
	if g.host == "" {
		return apperr.Configuration("Ollama host is not configured. Please set the OLLAMA_HOST environment variable.")
	}
	return nil
}

func buildRequest(model string, req *llm.Request) map[string]any {
	body := map[string]any{
		"model":   model,
		"prompt":  req.Prompt,
		"stream":  false,
		"options": map[string]any{"temperature": req.Temperature},
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if req.Attachment != nil {
		body["images"] = []string{base64.StdEncoding.EncodeToString(req.Attachment.Data)}
	}
	// format takes a full JSON schema; older servers only understand "json".
	if req.Schema != nil {
		body["format"] = req.Schema.JSONSchema()
	} else if req.ResponseFormat == llm.ResponseFormat {
		body["format"] = "json"
	}
	return body
}

func (g *Gateway) Generate(ctx context.Context, req *llm.Request) (string, error) {
	payload, err := json.Marshal(buildRequest(g.model, req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	// An empty response is returned as-is for the parser to report.
	return respBody.Response, nil
}
