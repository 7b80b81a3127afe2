package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "make a blog", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"<<- FILENAME: index.html ->>\n<h1>blog</h1>"}}]}`))
	}))
	defer srv.Close()

	agent := NewChatCompletionAgent("key", srv.URL, "test-model", 100, time.Minute, discard())
	text, err := agent.Generate(context.Background(), "make a blog", 5)
	require.NoError(t, err)
	assert.Equal(t, "<<- FILENAME: index.html ->>\n<h1>blog</h1>", text)
}

func TestChatCompletionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusUnauthorized, `{"error":"bad key"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"invalid json", http.StatusOK, `{"choices":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewChatCompletionAgent("key", srv.URL, "m", 0, time.Minute, discard()).
				Generate(context.Background(), "p", 1)
			assert.Error(t, err)
		})
	}
}
