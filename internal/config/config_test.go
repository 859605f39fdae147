package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "gemini", cfg.LLMBackend)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 60*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "memory", cfg.PhotoBackend)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.HistoryEnabled())
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("LLM_BACKEND", "claude")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")
	t.Setenv("ANALYSIS_TIMEOUT", "15s")
	t.Setenv("PHOTO_BACKEND", "local")
	t.Setenv("PHOTO_LOCAL_PATH", "/tmp/photos")
	t.Setenv("HISTORY_DB_PATH", "/tmp/history.db")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "claude", cfg.LLMBackend)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
	assert.Equal(t, 15*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, "/tmp/photos", cfg.PhotoPath)
	assert.True(t, cfg.HistoryEnabled())
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("API_KEY", "generic")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.GeminiKey())

	t.Setenv("GEMINI_API_KEY", "specific")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "specific", cfg.GeminiKey())
}

func TestMissingKeyIsNotALoadError(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.GeminiKey())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "LLM_BACKEND", "openai"},
		{"bad duration", "ANALYSIS_TIMEOUT", "soon"},
		{"unknown photo backend", "PHOTO_BACKEND", "s3"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero session ttl", "SESSION_TTL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OLLAMA_MODEL=llama3.2-vision\n"), 0o600))
	t.Chdir(dir)
	// godotenv sets variables directly; register cleanup through t.Setenv.
	t.Setenv("OLLAMA_MODEL", "")
	require.NoError(t, os.Unsetenv("OLLAMA_MODEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "llama3.2-vision", cfg.OllamaModel)
}
