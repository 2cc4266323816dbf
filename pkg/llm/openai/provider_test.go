package openai

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

func TestOpenAIProvider_Chat(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"done\":true}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL, "gpt-4o-mini")
	p.JSONMode = true

	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "judge"},
		{Role: "model", Content: "earlier"},
		{Role: "user", Content: "answers"},
	}, llm.WithTemperature(0.2), llm.WithMaxTokens(128))
	require.NoError(t, err)
	assert.Equal(t, `{"done":true}`, out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-6)
	assert.EqualValues(t, 128, got["max_completion_tokens"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, got["response_format"])

	msgs := got["messages"].([]interface{})
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].(map[string]interface{})["role"])
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("k", srv.URL, "m").Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("k", srv.URL, "m").Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "openai chat completion failed")
}
