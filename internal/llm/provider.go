package llm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/metrics"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
)

// DefaultModel returns the model used when none is configured. Each
// provider names its models differently.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "meta-llama/llama-3.3-70b-instruct:free"
	}
}

type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the Completer selected by cfg.Provider.
func New(cfg Config, logger *zap.Logger) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenRouter, "openai":
		return NewOpenAI(cfg, logger), nil
	case ProviderGemini:
		return NewGemini(cfg, logger), nil
	case ProviderOllama:
		return NewOllama(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

func observe(provider string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case IsTransient(err):
		status = "transient"
	default:
		status = "fatal"
	}
	metrics.RecordLLMRequest(provider, status, time.Since(start))
}

func observeUsage(provider string, u Usage) {
	metrics.RecordLLMTokens(provider, u.PromptTokens, u.CompletionTokens)
}
