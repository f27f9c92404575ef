package domain

// Question is a single item of a survey questionnaire.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Survey represents a questionnaire to be deployed against an audience
// of simulated respondents.
type Survey struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// NewSurvey creates a new Survey with the given ID, title and questions.
// Returns an error if validation fails.
func NewSurvey(id, title string, questions []Question) (*Survey, error) {
	survey := &Survey{
		ID:        id,
		Title:     title,
		Questions: questions,
	}

	if err := survey.Validate(); err != nil {
		return nil, err
	}

	return survey, nil
}

// Validate checks if the Survey has valid data.
// Returns an error if any field fails validation.
func (s *Survey) Validate() error {
	if s.ID == "" {
		return ErrEmptySurveyID
	}

	if s.Title == "" {
		return ErrEmptySurveyTitle
	}

	if len(s.Questions) == 0 {
		return ErrNoQuestions
	}

	for _, q := range s.Questions {
		if q.Text == "" {
			return ErrEmptyQuestionText
		}
	}

	return nil
}
