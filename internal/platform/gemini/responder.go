package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"text/template"

	"github.com/phrazzld/cohort-api/internal/config"
	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/redact"
	"github.com/phrazzld/cohort-api/internal/retry"
	"github.com/phrazzld/cohort-api/internal/simulation"
	"google.golang.org/genai"
)

// promptTemplate renders the persona and questionnaire into a single
// prompt asking for a strict JSON answer array.
const promptTemplate = `You are answering a survey in character.

Persona:
Name: {{.Respondent.Name}}
{{.Respondent.Persona}}

Survey: {{.Survey.Title}}

Answer every question below, staying in character. Respond with a JSON
array only, no prose and no markdown, where each element has the shape
{"question_id": "<id>", "answer": "<your answer>"}.

Questions:
{{range .Survey.Questions}}- [{{.ID}}] {{.Text}}
{{end}}`

// promptData carries template inputs.
type promptData struct {
	Survey     domain.Survey
	Respondent domain.Respondent
}

// answerItem mirrors one element of the model's JSON answer array.
type answerItem struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// Responder answers surveys by prompting a Gemini model with the
// respondent's persona. It implements simulation.Responder.
type Responder struct {
	logger         *slog.Logger
	client         *genai.Client
	model          string
	promptTemplate *template.Template
}

// NewResponder creates a Responder with the provided dependencies.
// Returns an error if the configuration is invalid or the client
// cannot be constructed.
func NewResponder(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Responder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", simulation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", simulation.ErrInvalidConfig)
	}

	tmpl, err := template.New("survey").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			simulation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			simulation.ErrInvalidConfig, err)
	}

	return &Responder{
		logger:         logger,
		client:         client,
		model:          cfg.ModelName,
		promptTemplate: tmpl,
	}, nil
}

// Answer implements simulation.Responder. API failures are classified
// so the caller's retry policy can distinguish transient errors from
// fatal ones.
func (g *Responder) Answer(ctx context.Context, survey domain.Survey, respondent domain.Respondent) (*domain.SurveyResponse, error) {
	prompt, err := g.buildPrompt(survey, respondent)
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "calling Gemini",
		"survey_id", survey.ID,
		"respondent_id", respondent.ID,
		"model", g.model,
		"prompt_length", len(prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion", simulation.ErrInvalidResponse)
	}

	answers, err := parseAnswers(text)
	if err != nil {
		return nil, err
	}

	return domain.NewSurveyResponse(survey.ID, respondent.ID, answers)
}

func (g *Responder) buildPrompt(survey domain.Survey, respondent domain.Respondent) (string, error) {
	var buf bytes.Buffer
	data := promptData{Survey: survey, Respondent: respondent}
	if err := g.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// parseAnswers decodes the model's JSON answer array, tolerating a
// markdown code fence around it.
func parseAnswers(text string) ([]domain.Answer, error) {
	cleaned := stripCodeFence(text)

	var items []answerItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", simulation.ErrInvalidResponse, err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no answers in completion", simulation.ErrInvalidResponse)
	}

	answers := make([]domain.Answer, 0, len(items))
	for _, item := range items {
		answers = append(answers, domain.Answer{
			QuestionID: item.QuestionID,
			Text:       item.Answer,
		})
	}
	return answers, nil
}

// stripCodeFence removes a surrounding ```json ... ``` fence, which
// some models emit despite instructions not to.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// classifyAPIError maps Gemini API failures onto the retry package's
// taxonomy: rate limits and server-side failures are retryable,
// everything else is fatal for the unit. Messages are redacted because
// provider errors can echo the request URL, API key included, and unit
// errors end up in task results served to clients.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		message := redact.String(apiErr.Message)
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", retry.ErrRateLimited, message)
		case apiErr.Code >= http.StatusInternalServerError:
			return retry.Transient(fmt.Errorf("%w: %s", simulation.ErrSimulationFailed, message))
		default:
			return fmt.Errorf("%w: %s", simulation.ErrSimulationFailed, message)
		}
	}

	// Connection-level failures have no status code; assume transient.
	return retry.Transient(fmt.Errorf("%w: %s", simulation.ErrSimulationFailed, redact.Error(err)))
}
