package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/tatianab/text-quest/internal/models"
)

// GeminiClient maps the chat history onto a Gemini chat session. The
// underlying client is created on first use so that a missing key is
// reported by the session rather than at startup.
type GeminiClient struct {
	apiKey string
	logger *zap.Logger

	mu     sync.Mutex
	client *genai.Client
}

func NewGemini(cfg Config, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{apiKey: cfg.APIKey, logger: logger}
}

func (c *GeminiClient) HasCredential() bool { return c.apiKey != "" }

func (c *GeminiClient) connect(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create gemini client: %w", err))
	}
	c.client = client
	return client, nil
}

func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	system, history, prompt := splitForGemini(req.Messages)
	if len(prompt) == 0 {
		return nil, NewFatalError(errors.New("gemini: conversation must end with a user message"))
	}

	model := client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	start := time.Now()
	resp, err := cs.SendMessage(ctx, prompt...)
	if err != nil {
		err = classifyGemini(err)
		observe(ProviderGemini, start, err)
		c.logger.Warn("gemini chat failed",
			zap.String("model", req.Model),
			zap.Bool("transient", IsTransient(err)),
			zap.Error(err))
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		err = NewFatalError(ErrEmptyResponse)
		observe(ProviderGemini, start, err)
		return nil, err
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	out := &Response{Content: sb.String(), Model: req.Model}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	observe(ProviderGemini, start, nil)
	observeUsage(ProviderGemini, out.Usage)
	return out, nil
}

// splitForGemini separates system text, prior turns and the final user
// turn. Gemini calls the assistant "model" and expects roles to
// alternate: all trailing user messages form the prompt sent with
// SendMessage, and consecutive messages of one role in the history share
// a Content.
func splitForGemini(messages []models.Message) (system string, history []*genai.Content, prompt []genai.Part) {
	var systemParts []string
	var rest []models.Message
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	system = strings.Join(systemParts, "\n\n")

	last := len(rest)
	for last > 0 && rest[last-1].Role == models.RoleUser {
		last--
	}
	for _, m := range rest[last:] {
		prompt = append(prompt, genai.Text(m.Content))
	}
	rest = rest[:last]

	for _, m := range rest {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		if n := len(history); n > 0 && history[n-1].Role == role {
			history[n-1].Parts = append(history[n-1].Parts, genai.Text(m.Content))
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return system, history, prompt
}

func classifyGemini(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return NewFatalError(err)
	}
	if ae, ok := apierror.FromError(err); ok {
		if code := ae.HTTPCode(); code > 0 {
			return byStatus(code, err)
		}
		switch ae.GRPCStatus().Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Unknown:
			return NewTransientError(err)
		}
		return NewFatalError(err)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return byStatus(gErr.Code, err)
	}
	if classified := byTransport(err); classified != nil {
		return classified
	}
	return NewFatalError(err)
}
