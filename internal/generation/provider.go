package generation

import "context"

// Provider defines the interface for producing free-form text from a prompt.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
//
// Implementations must not retry internally; a failed or timed-out call is
// returned as-is and the retry coordinator decides what to do next.
type Provider interface {
	// Generate sends the prompt to the model and returns its raw text output.
	// The text may be empty, wrapped in markdown or otherwise malformed.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts an ordinary function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt).
func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
