package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// AuthConfig contains authentication settings. Bearer-token auth on the API
// is enabled only when JWTSecret is set.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=1"`
}

// LLMConfig contains the Gemini provider settings.
type LLMConfig struct {
	GeminiAPIKey          string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName             string  `mapstructure:"model_name" validate:"required"`
	Temperature           float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" validate:"gte=0"`
	// PromptTemplateDir overrides the built-in prompt templates with
	// <operation>.tmpl files from this directory.
	PromptTemplateDir string `mapstructure:"prompt_template_dir"`
}

// GenerationConfig controls the retry loop, the result cache and the
// per-operation deadline.
type GenerationConfig struct {
	MaxAttempts              int `mapstructure:"max_attempts" validate:"required,gte=1,lte=10"`
	CacheTTLMinutes          int `mapstructure:"cache_ttl_minutes" validate:"required,gte=1"`
	OperationDeadlineSeconds int `mapstructure:"operation_deadline_seconds" validate:"required,gte=1"`
	SnippetLength            int `mapstructure:"snippet_length" validate:"gte=0"`
	// PrefetchWeeks is how many following weeks are generated in the
	// background after a bundle is served. Zero disables prefetch.
	PrefetchWeeks int `mapstructure:"prefetch_weeks" validate:"gte=0,lte=8"`
}

// WorkerConfig sizes the background task pool.
type WorkerConfig struct {
	Count     int `mapstructure:"count" validate:"required,gte=1"`
	QueueSize int `mapstructure:"queue_size" validate:"required,gte=1"`
}

// CacheTTL returns the cache TTL as a duration.
func (g GenerationConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLMinutes) * time.Minute
}

// OperationDeadline returns the per-operation deadline as a duration.
func (g GenerationConfig) OperationDeadline() time.Duration {
	return time.Duration(g.OperationDeadlineSeconds) * time.Second
}

// RequestTimeout returns the per-request provider timeout, or zero when the
// provider call is bounded only by the operation deadline.
func (l LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(l.RequestTimeoutSeconds) * time.Second
}

// TokenLifetime returns the lifetime of issued access tokens.
func (a AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(a.TokenLifetimeMinutes) * time.Minute
}

// ShutdownTimeout returns the graceful shutdown budget as a duration.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}
