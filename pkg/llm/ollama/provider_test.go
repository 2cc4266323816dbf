package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"brainstorm-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendsOptionsAndReadsReply(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   got.Model,
			Message: ollamaMessage{Role: "assistant", Content: `{"done":true,"reason":"ok"}`},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	p.Format = "json"

	out, err := p.Chat(context.Background(),
		[]llm.Message{{Role: "system", Content: "s"}, {Role: "model", Content: "m"}},
		llm.WithModel("qwen2.5"), llm.WithTemperature(0.2), llm.WithMaxTokens(64))
	require.NoError(t, err)

	assert.Equal(t, `{"done":true,"reason":"ok"}`, out)
	assert.Equal(t, "qwen2.5", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
	assert.Equal(t, 64, got.Options.NumPredict)
}

func TestChatSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing").Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
