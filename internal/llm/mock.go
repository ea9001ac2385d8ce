package llm

import "context"

// MockProvider returns canned responses for tests and offline runs.
type MockProvider struct {
	Response string
	Calls    int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Response: "mock response"}
}

func (p *MockProvider) Complete(_ context.Context, _ string, _ []Message) (string, error) {
	p.Calls++
	return p.Response, nil
}
