package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/coach-api/internal/config"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/redact"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the provider calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider implements generation.Provider using the Gemini API.
type Provider struct {
	logger      *slog.Logger
	models      contentGenerator
	model       string
	temperature float32
	timeout     time.Duration
}

var _ generation.Provider = (*Provider)(nil)

// NewProvider validates cfg and creates a Gemini API client.
func NewProvider(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Provider, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %s",
			generation.ErrInvalidConfig, redact.Error(err))
	}

	return newProvider(logger, client.Models, cfg), nil
}

func newProvider(logger *slog.Logger, models contentGenerator, cfg config.LLMConfig) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		logger:      logger.With("component", "gemini_provider", "model", cfg.ModelName),
		models:      models,
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		timeout:     cfg.RequestTimeout(),
	}
}

func validateConfig(cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f outside [0, 2]", generation.ErrInvalidConfig, cfg.Temperature)
	}
	return nil
}

// Generate sends prompt to the model and returns the concatenated text of the
// first candidate. The call is bounded by the configured request timeout in
// addition to ctx. Only an expired ctx is reported as a context error; a
// request that hit the per-call timeout is an ordinary provider failure.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	parent := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	temperature := p.temperature
	start := time.Now()
	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	})
	elapsed := time.Since(start)
	if err != nil {
		p.logger.ErrorContext(ctx, "Gemini API call failed",
			"error", redact.Error(err),
			"duration_ms", elapsed.Milliseconds())
		if parentErr := parent.Err(); parentErr != nil {
			return "", fmt.Errorf("gemini generate: %w", parentErr)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("gemini generate: request exceeded %s", p.timeout)
		}
		return "", fmt.Errorf("gemini generate: %s", redact.Error(err))
	}

	text, err := responseText(resp)
	if err != nil {
		p.logger.WarnContext(ctx, "Gemini response blocked", "error", err)
		return "", err
	}

	p.logger.DebugContext(ctx, "Gemini API call finished",
		"prompt_length", len(prompt),
		"response_length", len(text),
		"duration_ms", elapsed.Milliseconds())
	return text, nil
}

// responseText extracts the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response stopped by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
