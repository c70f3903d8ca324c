package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/coach-api/internal/generation"
)

// Response is one scripted provider answer.
type Response struct {
	Text string
	Err  error
}

// MockProvider implements generation.Provider for testing.
//
// Answers are chosen in this order: GenerateFn when set, then the next entry
// of Responses, then the default Text and Err. Once Responses is used up the
// defaults apply to every further call.
type MockProvider struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, prompt string) (string, error)

	// Responses are returned one per call, in order
	Responses []Response

	// Default response values
	Text string
	Err  error

	// Call tracking for verification
	GenerateCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times Generate was called
		Count int

		// Prompts contains all prompts passed to Generate calls
		Prompts []string
	}
}

var _ generation.Provider = (*MockProvider)(nil)

// Generate implements the generation.Provider interface
func (m *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	m.GenerateCalls.mu.Lock()
	call := m.GenerateCalls.Count
	m.GenerateCalls.Count++
	m.GenerateCalls.Prompts = append(m.GenerateCalls.Prompts, prompt)
	m.GenerateCalls.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt)
	}
	if call < len(m.Responses) {
		r := m.Responses[call]
		return r.Text, r.Err
	}
	return m.Text, m.Err
}

// CallCount returns how many times Generate was called.
func (m *MockProvider) CallCount() int {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return m.GenerateCalls.Count
}

// Prompts returns a copy of every prompt passed to Generate.
func (m *MockProvider) Prompts() []string {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return append([]string(nil), m.GenerateCalls.Prompts...)
}

// NewMockProviderWithText creates a MockProvider that always answers text
func NewMockProviderWithText(text string) *MockProvider {
	return &MockProvider{Text: text}
}

// NewMockProviderWithError creates a MockProvider that always fails with err
func NewMockProviderWithError(err error) *MockProvider {
	return &MockProvider{Err: err}
}

// NewScriptedMockProvider creates a MockProvider that answers with texts in
// order and repeats the last one afterwards
func NewScriptedMockProvider(texts ...string) *MockProvider {
	m := &MockProvider{}
	for _, t := range texts {
		m.Responses = append(m.Responses, Response{Text: t})
	}
	if len(texts) > 0 {
		m.Text = texts[len(texts)-1]
	}
	return m
}

// MockProviderWithContentBlocked creates a MockProvider that simulates content being blocked
func MockProviderWithContentBlocked() *MockProvider {
	return &MockProvider{Err: generation.ErrContentBlocked}
}

// Reset resets the call tracking state
func (m *MockProvider) Reset() {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()

	m.GenerateCalls.Count = 0
	m.GenerateCalls.Prompts = nil
}
