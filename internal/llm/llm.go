// Package llm talks to chat-completion providers. Every provider takes the
// same Request and returns the completion text, and every failure it
// returns is classified as transient or fatal.
package llm

import (
	"context"

	"github.com/tatianab/text-quest/internal/models"
)

type Request struct {
	Model       string
	Messages    []models.Message
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Completer sends one chat completion request. It does not retry.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Credentialed is implemented by providers that need an access key.
type Credentialed interface {
	HasCredential() bool
}

// HasCredential reports whether c can be called: providers that do not
// implement Credentialed need no key.
func HasCredential(c Completer) bool {
	if cc, ok := c.(Credentialed); ok {
		return cc.HasCredential()
	}
	return true
}
