package simulation

import (
	"context"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// Responder answers one survey on behalf of one simulated respondent.
// Implementations make the external model call and should mark
// transient failures retryable with the retry package sentinels so the
// orchestration layer's retry policy can classify them.
type Responder interface {
	// Answer produces the respondent's full answer set for the survey.
	Answer(ctx context.Context, survey domain.Survey, respondent domain.Respondent) (*domain.SurveyResponse, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, survey domain.Survey, respondent domain.Respondent) (*domain.SurveyResponse, error)

// Answer implements Responder.
func (f ResponderFunc) Answer(ctx context.Context, survey domain.Survey, respondent domain.Respondent) (*domain.SurveyResponse, error) {
	return f(ctx, survey, respondent)
}
