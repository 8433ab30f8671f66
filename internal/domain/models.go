package domain

import "time"

// Question models an MCQ question with exactly one correct option and its own time limit.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	TimeLimit     int      `json:"timeLimit"` // seconds
}

// Limit returns the time limit as a duration.
func (q Question) Limit() time.Duration {
	return time.Duration(q.TimeLimit) * time.Second
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// Answer is the chosen option index for a question, or NoAnswer.
type Answer int

// NoAnswer marks a question that timed out or was skipped. It never matches a correct index.
const NoAnswer Answer = -1

// Direction is one of the enumerated head orientations reported by the analysis service.
type Direction string

const (
	DirectionStraight Direction = "straight"
	DirectionLeft     Direction = "left"
	DirectionRight    Direction = "right"
	DirectionUp       Direction = "up"
	DirectionDown     Direction = "down"
)

// HeadPose is the head orientation of the primary face.
type HeadPose struct {
	Direction  Direction `json:"direction"`
	Horizontal Direction `json:"horizontal"`
	Vertical   Direction `json:"vertical"`
}

// TelemetrySample is one observation from the analysis service.
type TelemetrySample struct {
	Timestamp float64            `json:"timestamp"`
	FaceCount int                `json:"faceCount"`
	HeadPose  HeadPose           `json:"headPose"`
	Emotions  map[string]float64 `json:"emotions"`
}

// Severity classifies an alert.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Alert is a user-facing warning with a bounded visible lifetime.
type Alert struct {
	ID        string   `json:"id"`
	Type      Severity `json:"type"`
	Message   string   `json:"message"`
	Timestamp float64  `json:"timestamp"`
}

// Phase is the tag of SessionState.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// SessionState is the controller's state. QuestionIndex is only meaningful
// while running; DeadlineAt is nil unless a question deadline is armed.
type SessionState struct {
	Phase         Phase      `json:"phase"`
	QuestionIndex int        `json:"questionIndex"`
	DeadlineAt    *time.Time `json:"deadlineAt,omitempty"`
}

// QuizResult is computed once when a session finishes.
type QuizResult struct {
	SessionID        string                     `json:"sessionId"`
	QuizID           string                     `json:"quizId"`
	Score            int                        `json:"score"`
	TotalQuestions   int                        `json:"totalQuestions"`
	TimeSpent        int                        `json:"timeSpent"` // seconds
	StartedAt        time.Time                  `json:"startedAt"`
	FinishedAt       time.Time                  `json:"finishedAt"`
	EmotionHistory   []TelemetrySample          `json:"emotionHistory"`
	Answers          []Answer                   `json:"answers"`
	QuestionEmotions map[string]TelemetrySample `json:"questionEmotions"`
	Summary          Summary                    `json:"summary"`
}

// Summary holds the aggregates shown on the results screen.
type Summary struct {
	Percentage       int                `json:"percentage"`
	AverageEmotions  map[string]float64 `json:"averageEmotions"`
	DominantEmotion  string             `json:"dominantEmotion,omitempty"`
	AverageFaceCount float64            `json:"averageFaceCount"`
	Correct          []bool             `json:"correct"`
}
