package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/phrazzld/cohort-api/internal/config"
	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/retry"
	"github.com/phrazzld/cohort-api/internal/simulation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestNewResponder(t *testing.T) {
	t.Parallel()

	t.Run("rejects nil logger", func(t *testing.T) {
		t.Parallel()

		_, err := NewResponder(context.Background(), nil, config.LLMConfig{
			GeminiAPIKey: "key", ModelName: "gemini-2.0-flash",
		})
		require.Error(t, err)
	})

	t.Run("rejects empty API key", func(t *testing.T) {
		t.Parallel()

		_, err := NewResponder(context.Background(), testLogger(), config.LLMConfig{
			ModelName: "gemini-2.0-flash",
		})
		assert.ErrorIs(t, err, simulation.ErrInvalidConfig)
	})

	t.Run("rejects empty model name", func(t *testing.T) {
		t.Parallel()

		_, err := NewResponder(context.Background(), testLogger(), config.LLMConfig{
			GeminiAPIKey: "key",
		})
		assert.ErrorIs(t, err, simulation.ErrInvalidConfig)
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	responder, err := NewResponder(context.Background(), testLogger(), config.LLMConfig{
		GeminiAPIKey: "test-key",
		ModelName:    "gemini-2.0-flash",
	})
	require.NoError(t, err)

	survey := domain.Survey{
		ID:    "s1",
		Title: "Coffee Preferences",
		Questions: []domain.Question{
			{ID: "q1", Text: "How many cups per day?"},
			{ID: "q2", Text: "Espresso or filter?"},
		},
	}
	respondent := domain.Respondent{
		ID:      "r1",
		Name:    "Alex",
		Persona: "a night-shift nurse who lives on coffee",
	}

	prompt, err := responder.buildPrompt(survey, respondent)

	require.NoError(t, err)
	assert.Contains(t, prompt, "Coffee Preferences")
	assert.Contains(t, prompt, "Name: Alex")
	assert.Contains(t, prompt, "night-shift nurse")
	assert.Contains(t, prompt, "[q1] How many cups per day?")
	assert.Contains(t, prompt, "[q2] Espresso or filter?")
	assert.Contains(t, prompt, `"question_id"`)
}

func TestParseAnswers(t *testing.T) {
	t.Parallel()

	t.Run("plain JSON array", func(t *testing.T) {
		t.Parallel()

		answers, err := parseAnswers(`[{"question_id":"q1","answer":"two cups"},{"question_id":"q2","answer":"espresso"}]`)

		require.NoError(t, err)
		require.Len(t, answers, 2)
		assert.Equal(t, domain.Answer{QuestionID: "q1", Text: "two cups"}, answers[0])
		assert.Equal(t, domain.Answer{QuestionID: "q2", Text: "espresso"}, answers[1])
	})

	t.Run("fenced JSON", func(t *testing.T) {
		t.Parallel()

		answers, err := parseAnswers("```json\n[{\"question_id\":\"q1\",\"answer\":\"two cups\"}]\n```")

		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.Equal(t, "two cups", answers[0].Text)
	})

	t.Run("not JSON", func(t *testing.T) {
		t.Parallel()

		_, err := parseAnswers("I would say about two cups a day.")
		assert.ErrorIs(t, err, simulation.ErrInvalidResponse)
	})

	t.Run("empty array", func(t *testing.T) {
		t.Parallel()

		_, err := parseAnswers("[]")
		assert.ErrorIs(t, err, simulation.ErrInvalidResponse)
	})
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `[1]`, `[1]`},
		{"json fence", "```json\n[1]\n```", "[1]"},
		{"bare fence", "```\n[1]\n```", "[1]"},
		{"surrounding whitespace", "  \n```json\n[1]\n```\n  ", "[1]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, stripCodeFence(tc.in))
		})
	}
}

func TestClassifyAPIError(t *testing.T) {
	t.Parallel()

	t.Run("rate limit is retryable", func(t *testing.T) {
		t.Parallel()

		err := classifyAPIError(genai.APIError{Code: 429, Message: "quota exceeded"})

		assert.ErrorIs(t, err, retry.ErrRateLimited)
		assert.True(t, retry.IsTransient(err))
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("server error is transient", func(t *testing.T) {
		t.Parallel()

		err := classifyAPIError(genai.APIError{Code: 503, Message: "overloaded"})

		assert.ErrorIs(t, err, simulation.ErrSimulationFailed)
		assert.True(t, retry.IsTransient(err))
	})

	t.Run("client error is fatal", func(t *testing.T) {
		t.Parallel()

		err := classifyAPIError(genai.APIError{Code: 400, Message: "invalid argument"})

		assert.ErrorIs(t, err, simulation.ErrSimulationFailed)
		assert.False(t, retry.IsTransient(err))
	})

	t.Run("credentials are redacted from messages", func(t *testing.T) {
		t.Parallel()

		err := classifyAPIError(genai.APIError{
			Code:    400,
			Message: "invalid request to https://generativelanguage.googleapis.com/v1beta?key=AIzaSyBsecret99",
		})

		assert.NotContains(t, err.Error(), "AIzaSyBsecret99")
		assert.Contains(t, err.Error(), "[REDACTED_KEY]")
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection reset by peer")
		err := classifyAPIError(cause)

		assert.True(t, retry.IsTransient(err))
		assert.True(t, strings.Contains(err.Error(), "connection reset"))
	})
}
