package capture

import (
	"errors"
	"strings"
	"testing"
	"time"

	"proctor-quiz-service/internal/eventloop"
)

type fakeDevice struct {
	openErr error
	frames  []Frame
	opens   int
	closes  int
	reads   int
}

func (d *fakeDevice) Open() error {
	if d.openErr != nil {
		return d.openErr
	}
	d.opens++
	return nil
}

func (d *fakeDevice) Frame() (Frame, error) {
	if d.reads >= len(d.frames) {
		return Frame{}, nil
	}
	f := d.frames[d.reads]
	d.reads++
	return f, nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	return nil
}

func TestLoopDeliversOneFramePerTick(t *testing.T) {
	clock := eventloop.NewManual(time.Unix(0, 0))
	device := &fakeDevice{frames: []Frame{
		{MIME: "image/jpeg", Data: []byte("a")},
		{},
		{MIME: "image/jpeg", Data: []byte("c")},
	}}
	loop := NewLoop(clock, device, time.Second, nil)

	var got []string
	loop.SetConsumer(func(uri string) { got = append(got, uri) })
	if !loop.Activate() {
		t.Fatalf("expected capture available")
	}

	clock.Advance(3 * time.Second)
	if len(got) != 2 {
		t.Fatalf("expected empty tick skipped and 2 frames delivered, got %v", got)
	}
	if !strings.HasPrefix(got[0], "data:image/jpeg;base64,") {
		t.Fatalf("expected data uri, got %q", got[0])
	}
}

func TestLoopActivateIsIdempotent(t *testing.T) {
	clock := eventloop.NewManual(time.Unix(0, 0))
	device := &fakeDevice{}
	loop := NewLoop(clock, device, time.Second, nil)

	loop.Activate()
	loop.Activate()
	if device.opens != 1 {
		t.Fatalf("expected single acquisition, got %d", device.opens)
	}
	if clock.Pending() != 1 {
		t.Fatalf("expected one cadence timer, got %d", clock.Pending())
	}
}

func TestLoopDeactivateReleasesDevice(t *testing.T) {
	clock := eventloop.NewManual(time.Unix(0, 0))
	device := &fakeDevice{frames: []Frame{{MIME: "image/png", Data: []byte("x")}}}
	loop := NewLoop(clock, device, time.Second, nil)
	delivered := 0
	loop.SetConsumer(func(string) { delivered++ })

	loop.Activate()
	loop.Deactivate()
	loop.Deactivate()

	if device.closes != 1 {
		t.Fatalf("expected device released once, got %d", device.closes)
	}
	clock.Advance(5 * time.Second)
	if delivered != 0 {
		t.Fatalf("expected no frames after deactivate, got %d", delivered)
	}
	if loop.Active() || loop.Capable() {
		t.Fatalf("expected inactive loop")
	}
}

func TestLoopReportsDeniedCapability(t *testing.T) {
	clock := eventloop.NewManual(time.Unix(0, 0))
	device := &fakeDevice{openErr: errors.New("permission denied")}
	loop := NewLoop(clock, device, time.Second, nil)

	if loop.Activate() {
		t.Fatalf("expected capability denied")
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected no cadence without capability")
	}
	loop.Deactivate()
	if device.closes != 0 {
		t.Fatalf("expected no release of an unacquired device")
	}

	if NewLoop(clock, nil, 0, nil).Activate() {
		t.Fatalf("expected no capability without a device")
	}
}
