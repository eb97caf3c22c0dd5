package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const DefaultOllamaURL = "http://localhost:11434"

// OllamaClient uses the native Ollama chat API. It needs no credential.
type OllamaClient struct {
	client *api.Client
	logger *zap.Logger
}

func NewOllama(cfg Config, logger *zap.Logger) (*OllamaClient, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOllamaURL
	}
	// api.NewClient wants the server root, not the OpenAI-compatible /v1.
	base = strings.TrimSuffix(strings.TrimSuffix(base, "/"), "/v1")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url %q: %w", base, err)
	}

	logger.Info("Ollama client created", zap.String("base_url", base), zap.Duration("timeout", cfg.Timeout))
	return &OllamaClient{
		client: api.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		logger: logger,
	}, nil
}

func (c *OllamaClient) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]api.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	stream := false

	start := time.Now()
	var last api.ChatResponse
	err := c.client.Chat(ctx, &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}, func(r api.ChatResponse) error {
		last = r
		return nil
	})
	if err != nil {
		err = classifyOllama(err)
		observe(ProviderOllama, start, err)
		c.logger.Warn("ollama chat failed",
			zap.String("model", req.Model),
			zap.Bool("transient", IsTransient(err)),
			zap.Error(err))
		return nil, err
	}
	if !last.Done && last.Message.Content == "" {
		err = NewFatalError(ErrEmptyResponse)
		observe(ProviderOllama, start, err)
		return nil, err
	}

	out := &Response{
		Content: last.Message.Content,
		Model:   last.Model,
		Usage: Usage{
			PromptTokens:     last.PromptEvalCount,
			CompletionTokens: last.EvalCount,
			TotalTokens:      last.PromptEvalCount + last.EvalCount,
		},
	}
	observe(ProviderOllama, start, nil)
	observeUsage(ProviderOllama, out.Usage)
	return out, nil
}

func classifyOllama(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return byStatus(statusErr.StatusCode, err)
	}
	if classified := byTransport(err); classified != nil {
		return classified
	}
	return NewFatalError(err)
}
