package app

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"proctor-quiz-service/internal/domain"
	"proctor-quiz-service/internal/eventloop"
)

// TelemetryLink is the part of the telemetry channel the controller drives.
type TelemetryLink interface {
	Connect()
	StartStreaming()
	StopStreaming()
	Disconnect()
}

// CaptureSource is the part of the capture loop the controller drives.
type CaptureSource interface {
	Activate() bool
	Deactivate()
	Capable() bool
}

// Controller is the quiz session state machine: idle -> running -> finished -> idle.
// It exclusively owns SessionState, the answers, the emotion history and the
// per-question snapshots. Every method must be called on the event loop.
type Controller struct {
	sched   eventloop.Scheduler
	link    TelemetryLink
	capture CaptureSource
	logger  *zap.Logger
	newID   func() string

	quiz      domain.Quiz
	state     domain.SessionState
	sessionID string
	startedAt time.Time
	answers   []domain.Answer
	history   []domain.TelemetrySample
	snapshots map[string]domain.TelemetrySample
	latest    *domain.TelemetrySample
	answered  bool
	deadline  eventloop.Timer
	tag       uint64
	result    *domain.QuizResult

	onChange func()
	onFinish func(domain.QuizResult)
}

func NewController(sched eventloop.Scheduler, link TelemetryLink, capture CaptureSource, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		sched:     sched,
		link:      link,
		capture:   capture,
		logger:    logger,
		newID:     uuid.NewString,
		state:     domain.SessionState{Phase: domain.PhaseIdle},
		snapshots: make(map[string]domain.TelemetrySample),
	}
}

// OnChange registers a callback run after every state mutation.
func (c *Controller) OnChange(f func()) { c.onChange = f }

// OnFinish registers a callback run once per session with the computed result.
func (c *Controller) OnFinish(f func(domain.QuizResult)) { c.onFinish = f }

// Start begins a session over the quiz's questions.
func (c *Controller) Start(quiz domain.Quiz) error {
	if c.state.Phase != domain.PhaseIdle {
		return domain.ErrInvalidTransition
	}
	if len(quiz.Questions) == 0 {
		return domain.ErrNoQuestions
	}

	c.clear()
	c.quiz = quiz
	c.sessionID = c.newID()
	c.startedAt = c.sched.Now()
	c.state = domain.SessionState{Phase: domain.PhaseRunning, QuestionIndex: 0}

	c.link.Connect()
	c.link.StartStreaming()
	c.capture.Activate()
	c.arm()

	c.logger.Info("session started",
		zap.String("session_id", c.sessionID),
		zap.String("quiz_id", quiz.ID),
		zap.Int("questions", len(quiz.Questions)))
	c.changed()
	return nil
}

// SubmitAnswer records the answer for the current question and disarms its deadline.
// A repeated submit before Advance replaces the answer and re-takes the snapshot.
func (c *Controller) SubmitAnswer(choice domain.Answer) error {
	if c.state.Phase != domain.PhaseRunning {
		return domain.ErrInvalidTransition
	}
	question := c.quiz.Questions[c.state.QuestionIndex]
	if choice != domain.NoAnswer && (choice < 0 || int(choice) >= len(question.Options)) {
		return domain.ErrInvalidChoice
	}

	if len(c.answers) == c.state.QuestionIndex {
		c.answers = append(c.answers, choice)
	} else {
		c.answers[c.state.QuestionIndex] = choice
	}
	if c.latest != nil {
		c.snapshots[question.ID] = *c.latest
	}
	c.answered = true
	c.disarm()
	c.changed()
	return nil
}

// Advance moves to the next question, or finishes the session after the last one.
func (c *Controller) Advance() error {
	if c.state.Phase != domain.PhaseRunning {
		return domain.ErrInvalidTransition
	}
	if !c.answered {
		return domain.ErrNotAnswered
	}

	if c.state.QuestionIndex+1 < len(c.quiz.Questions) {
		c.state.QuestionIndex++
		c.answered = false
		c.latest = nil
		c.arm()
		c.changed()
		return nil
	}
	c.finish()
	return nil
}

// Reset returns a finished session to idle.
func (c *Controller) Reset() error {
	if c.state.Phase != domain.PhaseFinished {
		return domain.ErrInvalidTransition
	}
	c.clear()
	c.quiz = domain.Quiz{}
	c.state = domain.SessionState{Phase: domain.PhaseIdle}
	c.changed()
	return nil
}

// Abort ends a running session without a result, releasing capture and the
// channel. It is a no-op outside the running phase.
func (c *Controller) Abort() {
	if c.state.Phase != domain.PhaseRunning {
		return
	}
	c.disarm()
	c.stopMonitoring()
	c.logger.Info("session aborted", zap.String("session_id", c.sessionID))
	c.clear()
	c.quiz = domain.Quiz{}
	c.state = domain.SessionState{Phase: domain.PhaseIdle}
	c.changed()
}

// ObserveSample appends a sample to the history while running and makes it
// the live sample for the current question.
func (c *Controller) ObserveSample(sample domain.TelemetrySample) {
	if c.state.Phase != domain.PhaseRunning {
		return
	}
	c.history = append(c.history, sample)
	c.latest = &sample
}

func (c *Controller) State() domain.SessionState { return c.state }

func (c *Controller) SessionID() string { return c.sessionID }

func (c *Controller) QuizID() string { return c.quiz.ID }

// Current returns the question being asked while running.
func (c *Controller) Current() (domain.Question, bool) {
	if c.state.Phase != domain.PhaseRunning {
		return domain.Question{}, false
	}
	return c.quiz.Questions[c.state.QuestionIndex], true
}

// TotalQuestions is the question count of the loaded quiz.
func (c *Controller) TotalQuestions() int { return len(c.quiz.Questions) }

// Answered reports whether the current question has a recorded answer.
func (c *Controller) Answered() bool { return c.answered }

// Remaining is the time left on the armed deadline, zero when none is armed.
func (c *Controller) Remaining() time.Duration {
	if c.state.Phase != domain.PhaseRunning || c.state.DeadlineAt == nil {
		return 0
	}
	left := c.state.DeadlineAt.Sub(c.sched.Now())
	if left < 0 {
		return 0
	}
	return left
}

func (c *Controller) Answers() []domain.Answer {
	out := make([]domain.Answer, len(c.answers))
	copy(out, c.answers)
	return out
}

func (c *Controller) History() []domain.TelemetrySample {
	out := make([]domain.TelemetrySample, len(c.history))
	copy(out, c.history)
	return out
}

// Result returns the result computed when the session finished.
func (c *Controller) Result() (domain.QuizResult, bool) {
	if c.result == nil {
		return domain.QuizResult{}, false
	}
	return *c.result, true
}

// arm starts the deadline for the current question, replacing any previous one.
func (c *Controller) arm() {
	c.disarm()
	tag := c.tag
	index := c.state.QuestionIndex
	limit := c.quiz.Questions[index].Limit()
	deadline := c.sched.Now().Add(limit)
	c.state.DeadlineAt = &deadline
	c.deadline = c.sched.AfterFunc(limit, func() {
		c.deadlineElapsed(tag, index)
	})
}

func (c *Controller) disarm() {
	c.tag++
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
	c.state.DeadlineAt = nil
}

func (c *Controller) deadlineElapsed(tag uint64, index int) {
	if c.state.Phase != domain.PhaseRunning || tag != c.tag || index != c.state.QuestionIndex {
		c.logger.Debug("ignoring stale deadline", zap.Int("question_index", index))
		return
	}
	c.logger.Info("question timed out",
		zap.String("session_id", c.sessionID),
		zap.String("question_id", c.quiz.Questions[index].ID))
	if err := c.SubmitAnswer(domain.NoAnswer); err != nil {
		return
	}
	_ = c.Advance()
}

func (c *Controller) finish() {
	c.disarm()
	now := c.sched.Now()
	result := buildResult(c.sessionID, c.quiz, c.answers, c.history, c.snapshots, c.startedAt, now)
	c.result = &result
	c.stopMonitoring()
	c.state = domain.SessionState{Phase: domain.PhaseFinished}

	c.logger.Info("session finished",
		zap.String("session_id", c.sessionID),
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions),
		zap.Int("time_spent", result.TimeSpent))
	c.changed()
	if c.onFinish != nil {
		c.onFinish(result)
	}
}

func (c *Controller) stopMonitoring() {
	c.capture.Deactivate()
	c.link.StopStreaming()
	c.link.Disconnect()
}

func (c *Controller) clear() {
	c.answers = nil
	c.history = nil
	c.snapshots = make(map[string]domain.TelemetrySample)
	c.latest = nil
	c.answered = false
	c.result = nil
	c.startedAt = time.Time{}
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
