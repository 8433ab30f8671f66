package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz is returned when quiz content fails validation.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrResultNotFound is returned when no stored result matches a session id.
	ErrResultNotFound = errors.New("result not found")

	// ErrInvalidTransition is returned when an operation is not valid in the current phase.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotAnswered is returned by advance when the current question has no recorded answer.
	ErrNotAnswered = errors.New("current question not answered")
	// ErrInvalidChoice indicates a submitted option index is out of range.
	ErrInvalidChoice = errors.New("invalid answer choice")
	// ErrNoQuestions is returned when a session is started without questions.
	ErrNoQuestions = errors.New("no questions to ask")

	// ErrMalformedPayload marks an inbound telemetry or alert payload with an unexpected shape.
	ErrMalformedPayload = errors.New("malformed payload")
)
