package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"        validate:"required"`
	LLM           LLMConfig           `mapstructure:"llm"           validate:"required"`
	Orchestration OrchestrationConfig `mapstructure:"orchestration" validate:"required"`
	Registry      RegistryConfig      `mapstructure:"registry"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
}

// OrchestrationConfig tunes how survey deployments fan out units of
// work and how individual units are retried.
type OrchestrationConfig struct {
	// MaxConcurrency is the upper bound on simultaneously active units.
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"required,gt=0"`

	// BatchSize is the chunk size used when a deployment exceeds it.
	BatchSize int `mapstructure:"batch_size" validate:"required,gt=0"`

	// MaxRetries is the total number of attempts per unit of work.
	MaxRetries int `mapstructure:"max_retries" validate:"required,gt=0"`

	// BaseDelaySeconds is the wait before the first retry.
	BaseDelaySeconds float64 `mapstructure:"base_delay_seconds" validate:"gt=0"`

	// ExponentialBackoff doubles the retry wait after every attempt.
	ExponentialBackoff bool `mapstructure:"exponential_backoff"`

	// DeployTimeoutSeconds is the coarse overall deadline for one
	// deployment run; exceeding it fails the task as a whole.
	DeployTimeoutSeconds int `mapstructure:"deploy_timeout_seconds" validate:"required,gt=0"`
}

// BaseDelay returns the retry base delay as a duration.
func (c OrchestrationConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelaySeconds * float64(time.Second))
}

// DeployTimeout returns the overall deployment deadline as a duration.
func (c OrchestrationConfig) DeployTimeout() time.Duration {
	return time.Duration(c.DeployTimeoutSeconds) * time.Second
}

// RegistryConfig tunes retention of finished task records.
type RegistryConfig struct {
	// RetentionSeconds is how long finished tasks stay queryable.
	RetentionSeconds int `mapstructure:"retention_seconds" validate:"required,gt=0"`

	// CleanupIntervalSeconds is how often the cleanup sweep runs.
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds" validate:"required,gt=0"`
}

// RetentionWindow returns the retention window as a duration.
func (c RegistryConfig) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

// CleanupInterval returns the cleanup interval as a duration.
func (c RegistryConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}
