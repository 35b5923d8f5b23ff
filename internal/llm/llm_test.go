package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/rfp-backend/internal/config"
)

func TestOllamaGenerate(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"{\"ok\":true}","done":true}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL+"/", "mistral", srv.Client())
	out, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "mistral", got["model"])
	assert.Equal(t, "hello", got["prompt"])
	assert.Equal(t, false, got["stream"])

	options := got["options"].(map[string]interface{})
	assert.Equal(t, 0.7, options["temperature"])
	assert.Equal(t, float64(40), options["top_k"])
	assert.Equal(t, "ollama/mistral", gen.Name())
}

func TestOllamaGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(srv.URL, "missing", srv.Client()).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewGeneratorWithoutGeminiKey(t *testing.T) {
	gen, err := NewGenerator(context.Background(), config.AIConfig{Provider: "gemini"})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, Close(gen))
}

func TestNewGeneratorUnknownProvider(t *testing.T) {
	_, err := NewGenerator(context.Background(), config.AIConfig{Provider: "gpt"})
	assert.Error(t, err)
}
