package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the class every domain validation failure belongs
// to; check it with errors.Is to map any of the specific errors below.
var ErrValidation = errors.New("validation failed")

// Specific validation errors. Each wraps ErrValidation.
var (
	// ErrEmptySurveyID is returned when a survey ID is empty.
	ErrEmptySurveyID = fmt.Errorf("%w: survey ID cannot be empty", ErrValidation)

	// ErrEmptySurveyTitle is returned when a survey title is empty.
	ErrEmptySurveyTitle = fmt.Errorf("%w: survey title cannot be empty", ErrValidation)

	// ErrNoQuestions is returned when a survey has no questions.
	ErrNoQuestions = fmt.Errorf("%w: survey must have at least one question", ErrValidation)

	// ErrEmptyQuestionText is returned when a question has no text.
	ErrEmptyQuestionText = fmt.Errorf("%w: question text cannot be empty", ErrValidation)

	// ErrEmptyRespondentID is returned when a respondent ID is empty.
	ErrEmptyRespondentID = fmt.Errorf("%w: respondent ID cannot be empty", ErrValidation)

	// ErrNoAnswers is returned when a survey response contains no answers.
	ErrNoAnswers = fmt.Errorf("%w: survey response must contain at least one answer", ErrValidation)
)
