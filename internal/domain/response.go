package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Answer is one respondent's reply to a single survey question.
type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// SurveyResponse is the full answer set produced by one respondent
// for one survey.
type SurveyResponse struct {
	ResponseID   string    `json:"response_id"`
	SurveyID     string    `json:"survey_id"`
	RespondentID string    `json:"respondent_id"`
	Answers      []Answer  `json:"answers"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewSurveyResponse creates a SurveyResponse with a generated response ID.
// Returns an error if validation fails.
func NewSurveyResponse(surveyID, respondentID string, answers []Answer) (*SurveyResponse, error) {
	response := &SurveyResponse{
		ResponseID:   newResponseID(surveyID, respondentID),
		SurveyID:     surveyID,
		RespondentID: respondentID,
		Answers:      answers,
		CreatedAt:    time.Now().UTC(),
	}

	if err := response.Validate(); err != nil {
		return nil, err
	}

	return response, nil
}

// Validate checks if the SurveyResponse has valid data.
func (r *SurveyResponse) Validate() error {
	if r.SurveyID == "" {
		return ErrEmptySurveyID
	}

	if r.RespondentID == "" {
		return ErrEmptyRespondentID
	}

	if len(r.Answers) == 0 {
		return ErrNoAnswers
	}

	return nil
}

// newResponseID builds a response identifier that stays traceable to the
// survey and respondent it belongs to.
func newResponseID(surveyID, respondentID string) string {
	id := uuid.New()
	return surveyID + "_" + respondentID + "_" + hex.EncodeToString(id[:])[:8]
}
