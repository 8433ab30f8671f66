package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"proctor-quiz-service/internal/alert"
	"proctor-quiz-service/internal/domain"
	"proctor-quiz-service/internal/eventloop"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore keeps finished results for post-hoc review.
type ResultStore interface {
	Save(ctx context.Context, result domain.QuizResult) error
	Get(ctx context.Context, sessionID string) (domain.QuizResult, error)
}

// QuestionView is the current question as shown to the candidate; it never carries the correct index.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// View is the render snapshot pushed to the presentation layer.
type View struct {
	State            domain.SessionState `json:"state"`
	SessionID        string              `json:"sessionId,omitempty"`
	QuizID           string              `json:"quizId,omitempty"`
	Question         *QuestionView       `json:"question,omitempty"`
	QuestionNumber   int                 `json:"questionNumber,omitempty"`
	TotalQuestions   int                 `json:"totalQuestions,omitempty"`
	RemainingSeconds int                 `json:"remainingSeconds"`
	Answered         bool                `json:"answered"`
	Alerts           []domain.Alert      `json:"alerts"`
	Connected        bool                `json:"connected"`
	ConnectionLost   bool                `json:"connectionLost"`
	CaptureAvailable bool                `json:"captureAvailable"`
	Result           *domain.QuizResult  `json:"result,omitempty"`
}

// Proctor runs one monitored assessment. Intents may be called from any
// goroutine; they are executed on the event loop.
type Proctor struct {
	sched      eventloop.Scheduler
	controller *Controller
	board      *alert.Board
	capture    CaptureSource
	quizzes    QuizRepository
	results    ResultStore
	logger     *zap.Logger
	quizID     string

	// owned by the loop
	connected bool
	ticker    eventloop.Timer

	saving sync.WaitGroup

	mu          sync.RWMutex
	last        View
	subscribers map[chan View]struct{}
}

// ProctorConfig groups the collaborators of a Proctor.
type ProctorConfig struct {
	Scheduler     eventloop.Scheduler
	Link          TelemetryLink
	Capture       CaptureSource
	Quizzes       QuizRepository
	Results       ResultStore
	Logger        *zap.Logger
	DefaultQuizID string
	AlertOptions  []alert.Option
}

func NewProctor(cfg ProctorConfig) *Proctor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Proctor{
		sched:       cfg.Scheduler,
		capture:     cfg.Capture,
		quizzes:     cfg.Quizzes,
		results:     cfg.Results,
		logger:      logger,
		quizID:      cfg.DefaultQuizID,
		subscribers: make(map[chan View]struct{}),
	}
	p.controller = NewController(cfg.Scheduler, cfg.Link, cfg.Capture, logger)
	p.controller.OnChange(p.sessionChanged)
	p.controller.OnFinish(p.persist)

	opts := append([]alert.Option{alert.WithLogger(logger), alert.OnChange(p.publish)}, cfg.AlertOptions...)
	p.board = alert.NewBoard(cfg.Scheduler, opts...)
	p.last = p.view()
	return p
}

// Start loads the quiz and begins the session. An empty quizID uses the configured default.
func (p *Proctor) Start(ctx context.Context, quizID string) error {
	if quizID == "" {
		quizID = p.quizID
	}
	quiz, err := p.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if err := quiz.Validate(); err != nil {
		return err
	}
	return p.do(ctx, func() error {
		if err := p.controller.Start(quiz); err != nil {
			return err
		}
		p.board.Clear()
		return nil
	})
}

// Select records the candidate's choice for the current question.
func (p *Proctor) Select(ctx context.Context, choice int) error {
	return p.do(ctx, func() error {
		return p.controller.SubmitAnswer(domain.Answer(choice))
	})
}

// Advance moves past an answered question.
func (p *Proctor) Advance(ctx context.Context) error {
	return p.do(ctx, p.controller.Advance)
}

// Submit records the choice and advances in one step.
func (p *Proctor) Submit(ctx context.Context, choice int) error {
	return p.do(ctx, func() error {
		if err := p.controller.SubmitAnswer(domain.Answer(choice)); err != nil {
			return err
		}
		return p.controller.Advance()
	})
}

// Retake returns a finished session to idle.
func (p *Proctor) Retake(ctx context.Context) error {
	return p.do(ctx, func() error {
		if err := p.controller.Reset(); err != nil {
			return err
		}
		p.board.Clear()
		return nil
	})
}

// Dismiss hides a visible alert. Unknown ids are ignored.
func (p *Proctor) Dismiss(ctx context.Context, alertID string) error {
	return p.do(ctx, func() error {
		p.board.Dismiss(alertID)
		return nil
	})
}

// Result looks up a stored result by session id.
func (p *Proctor) Result(ctx context.Context, sessionID string) (domain.QuizResult, error) {
	return p.results.Get(ctx, sessionID)
}

// Close aborts a running session and waits for pending result writes.
func (p *Proctor) Close(ctx context.Context) error {
	err := p.do(ctx, func() error {
		p.controller.Abort()
		p.board.Clear()
		return nil
	})
	p.saving.Wait()
	return err
}

// HandleConnection records a channel state transition. Loop only.
func (p *Proctor) HandleConnection(connected bool) {
	if p.connected == connected {
		return
	}
	p.connected = connected
	p.publish()
}

// HandleSample feeds one telemetry sample to the controller and alert board. Loop only.
func (p *Proctor) HandleSample(sample domain.TelemetrySample) {
	if p.controller.State().Phase != domain.PhaseRunning {
		return
	}
	p.controller.ObserveSample(sample)
	if _, raised := p.board.Observe(sample); !raised {
		p.publish()
	}
}

// HandleAlert relays a service-originated alert. Loop only.
func (p *Proctor) HandleAlert(a domain.Alert) {
	if p.controller.State().Phase != domain.PhaseRunning {
		return
	}
	p.board.Relay(a)
}

// Subscribe returns a channel that receives a view after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (p *Proctor) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	ch <- p.last
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the last published view.
func (p *Proctor) Snapshot() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

func (p *Proctor) do(ctx context.Context, f func() error) error {
	var err error
	if doErr := p.sched.Do(ctx, func() { err = f() }); doErr != nil {
		return doErr
	}
	return err
}

func (p *Proctor) sessionChanged() {
	running := p.controller.State().Phase == domain.PhaseRunning
	switch {
	case running && p.ticker == nil:
		p.ticker = p.sched.Every(time.Second, p.publish)
	case !running && p.ticker != nil:
		p.ticker.Stop()
		p.ticker = nil
	}
	p.publish()
}

func (p *Proctor) persist(result domain.QuizResult) {
	if p.results == nil {
		return
	}
	p.saving.Add(1)
	go func() {
		defer p.saving.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.results.Save(ctx, result); err != nil {
			p.logger.Error("failed to save result", zap.String("session_id", result.SessionID), zap.Error(err))
		}
	}()
}

func (p *Proctor) view() View {
	state := p.controller.State()
	v := View{
		State:            state,
		Alerts:           p.board.Visible(),
		Connected:        p.connected,
		ConnectionLost:   state.Phase == domain.PhaseRunning && !p.connected,
		CaptureAvailable: p.capture.Capable(),
	}
	if state.Phase == domain.PhaseIdle {
		return v
	}
	v.SessionID = p.controller.SessionID()
	v.QuizID = p.controller.QuizID()
	v.TotalQuestions = p.controller.TotalQuestions()
	if q, ok := p.controller.Current(); ok {
		v.Question = &QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
		v.QuestionNumber = state.QuestionIndex + 1
		v.RemainingSeconds = int((p.controller.Remaining() + time.Second - 1) / time.Second)
		v.Answered = p.controller.Answered()
	}
	if result, ok := p.controller.Result(); ok {
		v.Result = &result
	}
	return v
}

func (p *Proctor) publish() {
	v := p.view()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = v
	for ch := range p.subscribers {
		select {
		case ch <- v:
		default:
			// drop the oldest view so a slow client never blocks the loop
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
