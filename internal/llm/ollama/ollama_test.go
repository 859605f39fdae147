package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/prompt"
)

func TestGenerate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := map[string]any{
			"model":    got["model"],
			"response": `{"keyFindings":"k","diagnoses":[]}`,
			"done":     true,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	req, err := prompt.Build(&domain.ImageArtifact{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, MIMEType: "image/jpeg"})
	require.NoError(t, err)

	text, err := NewGateway(server.URL+"/", "llava").Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"keyFindings":"k","diagnoses":[]}`, text)

	assert.Equal(t, "llava", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, []any{"/9j/4A=="}, got["images"])
	assert.InDelta(t, 0.2, got["options"].(map[string]any)["temperature"], 1e-6)
	format := got["format"].(map[string]any)
	assert.Equal(t, "object", format["type"])
	assert.Nil(t, got["system"])
}

func TestGenerate_SendsSystem(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "{}", "done": true})
	}))
	defer server.Close()

	req, err := prompt.Build(&domain.TextArtifact{Symptoms: "dizzy"})
	require.NoError(t, err)

	_, err = NewGateway(server.URL, "llama3").Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, prompt.SymptomsSystem, got["system"])
	assert.Nil(t, got["images"])
}

func TestGenerate_NetworkError(t *testing.T) {
	req, err := prompt.Build(&domain.TextArtifact{Symptoms: "dizzy"})
	require.NoError(t, err)

	_, err = NewGateway("http://localhost:99999", "llava").Generate(context.Background(), req)
	assert.Error(t, err)
}

func TestGenerate_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	req, err := prompt.Build(&domain.TextArtifact{Symptoms: "dizzy"})
	require.NoError(t, err)

	_, err = NewGateway(server.URL, "llava").Generate(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama returned status 500")
}

func TestGenerate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "", "done": true})
	}))
	defer server.Close()

	req, err := prompt.Build(&domain.TextArtifact{Symptoms: "dizzy"})
	require.NoError(t, err)

	text, err := NewGateway(server.URL, "llava").Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestReady(t *testing.T) {
	assert.NoError(t, NewGateway("http://localhost:11434", "llava").Ready())
	assert.True(t, apperr.Is(NewGateway("", "llava").Ready(), apperr.KindConfiguration))
}
