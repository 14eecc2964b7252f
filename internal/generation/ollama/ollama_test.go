package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikirag/internal/domain"
)

func TestGenerator_Generate(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"response":"  Paris.\n","done":true}`))
	}))
	defer srv.Close()

	g := NewGenerator(Config{BaseURL: srv.URL})
	out, err := g.Generate(context.Background(), domain.GenerationRequest{Prompt: "capital of France?", MaxTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, "Paris.", out)
	assert.Equal(t, DefaultModel, raw["model"])
	assert.Equal(t, false, raw["stream"])
	opts := raw["options"].(map[string]any)
	assert.Equal(t, float64(256), opts["num_predict"])
	// zero temperature must reach the server
	assert.Contains(t, opts, "temperature")
	assert.Equal(t, float64(0), opts["temperature"])
}

func TestGenerator_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model 'llama3.2' not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewGenerator(Config{BaseURL: srv.URL}).Generate(context.Background(), domain.GenerationRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestNewGenerator_Defaults(t *testing.T) {
	g := NewGenerator(Config{Model: "mistral"})
	assert.Equal(t, "mistral", g.Name())
	assert.Equal(t, DefaultBaseURL, g.baseURL)
	assert.Equal(t, DefaultTimeout, g.client.Timeout)
}
