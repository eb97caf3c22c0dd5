package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenAIClient speaks the OpenAI chat completion protocol: OpenRouter by
// default, or any compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	apiKey string
	name   string
	logger *zap.Logger
}

func NewOpenAI(cfg Config, logger *zap.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = DefaultOpenRouterURL
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger.Info("OpenAI-compatible client created",
		zap.String("base_url", oc.BaseURL),
		zap.Duration("timeout", cfg.Timeout))

	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		apiKey: cfg.APIKey,
		name:   ProviderOpenRouter,
		logger: logger,
	}
}

func (c *OpenAIClient) HasCredential() bool { return c.apiKey != "" }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		err = classifyOpenAI(err)
		observe(c.name, start, err)
		c.logger.Warn("chat completion failed",
			zap.String("model", req.Model),
			zap.Bool("transient", IsTransient(err)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	if len(resp.Choices) == 0 {
		err = NewFatalError(fmt.Errorf("%w: no choices in response", ErrEmptyResponse))
		observe(c.name, start, err)
		return nil, err
	}

	out := &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	observe(c.name, start, nil)
	observeUsage(c.name, out.Usage)
	c.logger.Debug("chat completion received",
		zap.String("model", out.Model),
		zap.Int("length", len(out.Content)),
		zap.Int("total_tokens", out.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return byStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return byStatus(reqErr.HTTPStatusCode, err)
	}
	if classified := byTransport(err); classified != nil {
		return classified
	}
	return NewFatalError(err)
}
