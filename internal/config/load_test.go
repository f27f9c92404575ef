package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets the minimum environment for a valid configuration plus
// any overrides. t.Setenv restores everything after the test, and keeps
// these tests serial since the environment is process-global.
func setupEnv(t *testing.T, overrides map[string]string) {
	t.Helper()

	t.Setenv("COHORT_LLM_GEMINI_API_KEY", "test-api-key")

	for key, value := range overrides {
		t.Setenv(key, value)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setupEnv(t, nil)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Server.LogLevel)
		assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
		assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
		assert.Equal(t, 100, cfg.Orchestration.MaxConcurrency)
		assert.Equal(t, 50, cfg.Orchestration.BatchSize)
		assert.Equal(t, 3, cfg.Orchestration.MaxRetries)
		assert.Equal(t, time.Second, cfg.Orchestration.BaseDelay())
		assert.True(t, cfg.Orchestration.ExponentialBackoff)
		assert.Equal(t, 30*time.Minute, cfg.Orchestration.DeployTimeout())
		assert.Equal(t, 5*time.Minute, cfg.Registry.RetentionWindow())
		assert.Equal(t, time.Minute, cfg.Registry.CleanupInterval())
	})

	t.Run("environment overrides", func(t *testing.T) {
		setupEnv(t, map[string]string{
			"COHORT_SERVER_PORT":                      "9090",
			"COHORT_SERVER_LOG_LEVEL":                 "debug",
			"COHORT_LLM_MODEL_NAME":                   "gemini-2.5-pro",
			"COHORT_ORCHESTRATION_MAX_CONCURRENCY":    "50",
			"COHORT_ORCHESTRATION_BATCH_SIZE":         "20",
			"COHORT_ORCHESTRATION_BASE_DELAY_SECONDS": "0.5",
			"COHORT_REGISTRY_RETENTION_SECONDS":       "600",
		})

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Server.LogLevel)
		assert.Equal(t, "gemini-2.5-pro", cfg.LLM.ModelName)
		assert.Equal(t, 50, cfg.Orchestration.MaxConcurrency)
		assert.Equal(t, 20, cfg.Orchestration.BatchSize)
		assert.Equal(t, 500*time.Millisecond, cfg.Orchestration.BaseDelay())
		assert.Equal(t, 10*time.Minute, cfg.Registry.RetentionWindow())
	})

	t.Run("missing API key fails validation", func(t *testing.T) {
		t.Setenv("COHORT_LLM_GEMINI_API_KEY", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("invalid port fails validation", func(t *testing.T) {
		setupEnv(t, map[string]string{
			"COHORT_SERVER_PORT": "70000",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("invalid log level fails validation", func(t *testing.T) {
		setupEnv(t, map[string]string{
			"COHORT_SERVER_LOG_LEVEL": "verbose",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})
}
