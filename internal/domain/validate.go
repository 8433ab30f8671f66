package domain

import "fmt"

// Validate checks the quiz is playable: every question needs options, a correct index in range and a positive limit.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %q has no questions", ErrInvalidQuiz, q.ID)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("%w: question %d has no id", ErrInvalidQuiz, i)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuiz, question.ID)
		}
		seen[question.ID] = struct{}{}
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least two options", ErrInvalidQuiz, question.ID)
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
			return fmt.Errorf("%w: question %q correct answer out of range", ErrInvalidQuiz, question.ID)
		}
		if question.TimeLimit <= 0 {
			return fmt.Errorf("%w: question %q has no time limit", ErrInvalidQuiz, question.ID)
		}
	}
	return nil
}

func validHorizontal(d Direction) bool {
	return d == DirectionLeft || d == DirectionRight || d == DirectionStraight
}

func validVertical(d Direction) bool {
	return d == DirectionUp || d == DirectionDown || d == DirectionStraight
}

func validDirection(d Direction) bool {
	return validHorizontal(d) || validVertical(d)
}

// Validate rejects samples whose fields fall outside the enumerated wire shape.
func (s TelemetrySample) Validate() error {
	if s.FaceCount < 0 {
		return fmt.Errorf("%w: negative face count %d", ErrMalformedPayload, s.FaceCount)
	}
	if !validHorizontal(s.HeadPose.Horizontal) {
		return fmt.Errorf("%w: horizontal %q", ErrMalformedPayload, s.HeadPose.Horizontal)
	}
	if !validVertical(s.HeadPose.Vertical) {
		return fmt.Errorf("%w: vertical %q", ErrMalformedPayload, s.HeadPose.Vertical)
	}
	if !validDirection(s.HeadPose.Direction) {
		return fmt.Errorf("%w: direction %q", ErrMalformedPayload, s.HeadPose.Direction)
	}
	for label, v := range s.Emotions {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: emotion %q intensity %v", ErrMalformedPayload, label, v)
		}
	}
	return nil
}

// Validate rejects alerts without a message or with an unknown severity.
func (a Alert) Validate() error {
	switch a.Type {
	case SeverityError, SeverityWarning, SeverityInfo:
	default:
		return fmt.Errorf("%w: alert type %q", ErrMalformedPayload, a.Type)
	}
	if a.Message == "" {
		return fmt.Errorf("%w: alert without message", ErrMalformedPayload)
	}
	return nil
}
