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
	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/models"
)

func testRequest() Request {
	return Request{
		Model: "meta-llama/llama-3.3-70b-instruct:free",
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: "Ты ведущий."},
			{Role: models.RoleUser, Content: "Начать игру"},
		},
		Temperature: 0.5,
		MaxTokens:   1500,
	}
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAI(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 2 * time.Second}, zap.NewNop())
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "meta-llama/llama-3.3-70b-instruct:free",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 30, "total_tokens": 42},
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Model       string           `json:"model"`
			Messages    []map[string]any `json:"messages"`
			Temperature float64          `json:"temperature"`
			MaxTokens   int              `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "meta-llama/llama-3.3-70b-instruct:free", body.Model)
		assert.Equal(t, 0.5, body.Temperature)
		assert.Equal(t, 1500, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0]["role"])
		assert.Equal(t, "Начать игру", body.Messages[1]["content"])

		writeCompletion(w, "Сцена.\nВАРИАНТЫ:\n1. Идти")
	})

	resp, err := c.Complete(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "Сцена.\nВАРИАНТЫ:\n1. Идти", resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
	assert.True(t, c.HasCredential())
}

func TestOpenAIClient_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"upstream failed","type":"server_error"}}`, true},
		{"bad gateway without json", http.StatusBadGateway, `<html>bad gateway</html>`, true},
		{"rejected key", http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`, false},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"invalid model","code":400}}`, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","code":429}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Complete(context.Background(), testRequest())

			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, !tt.transient, IsFatal(err))
		})
	}
}

func TestOpenAIClient_NoResponseIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewOpenAI(Config{APIKey: "k", BaseURL: url, Timeout: time.Second}, zap.NewNop())
	_, err := c.Complete(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestOpenAIClient_TimeoutIsTransient(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(done) })

	c := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
	_, err := c.Complete(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestOpenAIClient_MalformedResponseIsFatal(t *testing.T) {
	t.Run("no choices", func(t *testing.T) {
		c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
		})
		_, err := c.Complete(context.Background(), testRequest())
		require.Error(t, err)
		assert.True(t, IsFatal(err))
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("not json", func(t *testing.T) {
		c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`definitely not json`))
		})
		_, err := c.Complete(context.Background(), testRequest())
		require.Error(t, err)
		assert.True(t, IsFatal(err))
	})
}

func TestOpenAIClient_CanceledIsFatal(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "never read")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, testRequest())

	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	c, err := New(Config{Provider: "openrouter", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = New(Config{Provider: "Gemini"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, HasCredential(c))

	c, err = New(Config{Provider: "ollama", BaseURL: "http://localhost:11434/v1"}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, HasCredential(c), "ollama needs no key")

	_, err = New(Config{Provider: "carrier-pigeon"}, zap.NewNop())
	assert.Error(t, err)
}
