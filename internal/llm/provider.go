// Package llm defines the narrow contract between the trust core's
// consumers (question generation, response interpretation) and whatever
// language model backs them. Nothing in the core calls a Provider; the
// interface exists so those consumers stay behind one seam.
package llm

import (
	"context"
	"fmt"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is an opaque completion backend.
type Provider interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// NewProvider creates a provider by name. Returns an error for unknown
// providers or a missing API key (except mock).
func NewProvider(provider, apiKey, model string) (Provider, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(apiKey, model), nil
	case ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
}
