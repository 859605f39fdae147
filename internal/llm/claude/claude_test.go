package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/llm"
	"github.com/vbonduro/mediscan/internal/prompt"
)

const toolUseResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-5",
	"content": [
		{"type": "tool_use", "id": "toolu_01", "name": "submit_analysis",
		 "input": {"keyFindings": "Clear.", "diagnoses": [{"condition": "Normal", "probability": 0.9, "description": "n"}]}}
	],
	"stop_reason": "tool_use",
	"usage": {"input_tokens": 10, "output_tokens": 20}
}`

func newServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"), r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func xrayRequest(t *testing.T) *llm.Request {
	t.Helper()
	req, err := prompt.Build(&domain.ImageArtifact{Data: []byte{0xFF, 0xD8}, MIMEType: "image/jpeg"})
	require.NoError(t, err)
	return req
}

func TestGenerate_ForcedTool(t *testing.T) {
	var got map[string]any
	server := newServer(t, http.StatusOK, toolUseResponse, &got)

	gw := NewGateway("sk-test", "claude-sonnet-4-5", server.URL)
	text, err := gw.Generate(context.Background(), xrayRequest(t))
	require.NoError(t, err)

	assert.JSONEq(t, `{"keyFindings": "Clear.", "diagnoses": [{"condition": "Normal", "probability": 0.9, "description": "n"}]}`, text)

	assert.Equal(t, "claude-sonnet-4-5", got["model"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-6)
	assert.Equal(t, map[string]any{"type": "tool", "name": "submit_analysis"}, got["tool_choice"])

	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	schema := tools[0].(map[string]any)["input_schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])

	content := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	source := content[0].(map[string]any)["source"].(map[string]any)
	assert.Equal(t, "image/jpeg", source["media_type"])
	assert.Equal(t, prompt.XRayPrompt, content[1].(map[string]any)["text"])
}

func TestGenerate_TextFallback(t *testing.T) {
	body := `{"id":"msg_02","type":"message","role":"assistant","content":[{"type":"text","text":"{\"disclaimer\":\"d\"}"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`
	server := newServer(t, http.StatusOK, body, nil)

	req, err := prompt.Build(&domain.TextArtifact{Symptoms: "cough"})
	require.NoError(t, err)

	text, err := NewGateway("sk-test", "m", server.URL).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"disclaimer":"d"}`, text)
}

func TestGenerate_APIError(t *testing.T) {
	server := newServer(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, nil)

	_, err := NewGateway("sk-test", "m", server.URL).Generate(context.Background(), xrayRequest(t))
	assert.Error(t, err)
}

func TestGenerate_NoContentIsEmptyText(t *testing.T) {
	server := newServer(t, http.StatusOK,
		`{"id":"msg_03","type":"message","role":"assistant","content":[],"stop_reason":"max_tokens","usage":{"input_tokens":1,"output_tokens":1}}`, nil)

	text, err := NewGateway("sk-test", "m", server.URL).Generate(context.Background(), xrayRequest(t))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestReady(t *testing.T) {
	assert.NoError(t, NewGateway("sk-test", "m", "").Ready())
	assert.True(t, apperr.Is(NewGateway("", "m", "").Ready(), apperr.KindConfiguration))
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/webp", normaliseMIME("image/webp"))
	assert.Equal(t, "image/jpeg", normaliseMIME("image/jpeg"))
	assert.Equal(t, "image/jpeg", normaliseMIME("application/octet-stream"))
}
