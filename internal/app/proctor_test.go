package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"proctor-quiz-service/internal/app"
	"proctor-quiz-service/internal/domain"
	"proctor-quiz-service/internal/eventloop"
	"proctor-quiz-service/internal/infra/memory"
)

type nopLink struct{ disconnects int }

func (l *nopLink) Connect()        {}
func (l *nopLink) StartStreaming() {}
func (l *nopLink) StopStreaming()  {}
func (l *nopLink) Disconnect()     { l.disconnects++ }

type deniedCapture struct{ deactivates int }

func (c *deniedCapture) Activate() bool { return false }
func (c *deniedCapture) Deactivate()    { c.deactivates++ }
func (c *deniedCapture) Capable() bool  { return false }

func newTestProctor() (*app.Proctor, *eventloop.Manual, *memory.ResultStore, *nopLink, *deniedCapture) {
	clock := eventloop.NewManual(time.Unix(1700000000, 0))
	results := memory.NewResultStore(time.Hour)
	link := &nopLink{}
	capture := &deniedCapture{}
	p := app.NewProctor(app.ProctorConfig{
		Scheduler:     clock,
		Link:          link,
		Capture:       capture,
		Quizzes:       memory.NewQuizRepository(memory.NewStaticQuizLoader(memory.SampleQuizzes()), time.Minute),
		Results:       results,
		DefaultQuizID: memory.SampleQuizID,
	})
	return p, clock, results, link, capture
}

func faces(n int) domain.TelemetrySample {
	return domain.TelemetrySample{
		FaceCount: n,
		HeadPose:  domain.HeadPose{Direction: "straight", Horizontal: "straight", Vertical: "straight"},
		Emotions:  map[string]float64{"neutral": 1},
	}
}

func TestProctorRunsMonitoredSession(t *testing.T) {
	ctx := context.Background()
	p, clock, results, link, _ := newTestProctor()

	updates, cancel := p.Subscribe()
	defer cancel()
	if initial := <-updates; initial.State.Phase != domain.PhaseIdle {
		t.Fatalf("expected idle initial view, got %+v", initial.State)
	}

	if err := p.Start(ctx, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	view := p.Snapshot()
	if view.Question == nil || view.QuestionNumber != 1 || view.RemainingSeconds != 30 {
		t.Fatalf("unexpected first question view %+v", view)
	}
	if !view.ConnectionLost || view.CaptureAvailable {
		t.Fatalf("expected degraded monitoring flags, got %+v", view)
	}

	p.HandleConnection(true)
	p.HandleSample(faces(0))
	view = p.Snapshot()
	if view.ConnectionLost || len(view.Alerts) != 1 || view.Alerts[0].Message != "No face detected" {
		t.Fatalf("expected one no-face alert while connected, got %+v", view)
	}

	if err := p.Dismiss(ctx, view.Alerts[0].ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if got := len(p.Snapshot().Alerts); got != 0 {
		t.Fatalf("expected alert dismissed, got %d", got)
	}

	clock.Advance(10 * time.Second)
	if got := p.Snapshot().RemainingSeconds; got != 20 {
		t.Fatalf("expected countdown at 20s, got %d", got)
	}

	correct := []int{1, 1, 2, 2, 2}
	for _, choice := range correct {
		if err := p.Submit(ctx, choice); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	view = p.Snapshot()
	if view.State.Phase != domain.PhaseFinished || view.Result == nil {
		t.Fatalf("expected finished view with result, got %+v", view.State)
	}
	if link.disconnects != 1 {
		t.Fatalf("expected channel disconnected once, got %d", link.disconnects)
	}

	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	stored, err := results.Get(ctx, view.Result.SessionID)
	if err != nil {
		t.Fatalf("expected stored result: %v", err)
	}
	if stored.Score != view.Result.Score || stored.TotalQuestions != 5 {
		t.Fatalf("unexpected stored result %+v", stored)
	}
}

func TestProctorRejectsIntentsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	p, _, _, _, _ := newTestProctor()

	if err := p.Select(ctx, 0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("select while idle: %v", err)
	}
	if err := p.Start(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("start unknown quiz: %v", err)
	}
	if err := p.Start(ctx, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Advance(ctx); !errors.Is(err, domain.ErrNotAnswered) {
		t.Fatalf("advance unanswered: %v", err)
	}
	if err := p.Retake(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("retake while running: %v", err)
	}
}

func TestProctorIgnoresTelemetryOutsideSession(t *testing.T) {
	p, _, _, _, capture := newTestProctor()

	p.HandleSample(faces(2))
	p.HandleAlert(domain.Alert{ID: "svc", Type: domain.SeverityError, Message: "Phone detected"})
	if got := len(p.Snapshot().Alerts); got != 0 {
		t.Fatalf("expected no alerts while idle, got %d", got)
	}

	ctx := context.Background()
	if err := p.Start(ctx, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	p.HandleAlert(domain.Alert{ID: "svc", Type: domain.SeverityError, Message: "Phone detected"})
	if got := len(p.Snapshot().Alerts); got != 1 {
		t.Fatalf("expected relayed alert, got %d", got)
	}

	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	view := p.Snapshot()
	if view.State.Phase != domain.PhaseIdle || len(view.Alerts) != 0 {
		t.Fatalf("expected aborted idle session, got %+v", view)
	}
	if capture.deactivates != 1 {
		t.Fatalf("expected capture released on close, got %d", capture.deactivates)
	}
}

func TestProctorRejectedStartKeepsView(t *testing.T) {
	ctx := context.Background()
	p, _, _, _, _ := newTestProctor()

	if err := p.Start(ctx, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	p.HandleConnection(true)
	p.HandleSample(faces(2))
	if err := p.Select(ctx, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	before := p.Snapshot()
	if len(before.Alerts) != 1 || before.Alerts[0].Message != "Multiple faces detected" {
		t.Fatalf("expected multiple faces alert, got %+v", before.Alerts)
	}

	if err := p.Start(ctx, ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second start: %v", err)
	}
	if err := p.Retake(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("retake while running: %v", err)
	}

	after := p.Snapshot()
	if len(after.Alerts) != 1 || after.Alerts[0].ID != before.Alerts[0].ID {
		t.Fatalf("rejected intents changed alerts: %+v -> %+v", before.Alerts, after.Alerts)
	}
	if after.State.QuestionIndex != before.State.QuestionIndex || !after.Answered || after.SessionID != before.SessionID {
		t.Fatalf("rejected intents changed session: %+v -> %+v", before, after)
	}
}

func TestProctorSubscribeDeliversLatestViewLast(t *testing.T) {
	p, _, _, _, _ := newTestProctor()

	for i := 0; i < 200; i++ {
		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			connected := false
			for {
				select {
				case <-stop:
					return
				default:
				}
				connected = !connected
				p.HandleConnection(connected)
			}
		}()

		updates, cancel := p.Subscribe()
		close(stop)
		<-done

		var last app.View
		for drained := false; !drained; {
			select {
			case v := <-updates:
				last = v
			default:
				drained = true
			}
		}
		if want := p.Snapshot().Connected; last.Connected != want {
			cancel()
			t.Fatalf("iteration %d: last delivered view is stale (connected=%v, want %v)", i, last.Connected, want)
		}
		cancel()
	}
}
