package simulation

import "errors"

// Common errors returned by Responder implementations.
var (
	// ErrSimulationFailed is returned when answering fails for any general reason.
	ErrSimulationFailed = errors.New("failed to simulate survey response")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the responder configuration is invalid.
	ErrInvalidConfig = errors.New("invalid responder configuration")
)
