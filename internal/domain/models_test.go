package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSessionStateOmitsUnarmedDeadline(t *testing.T) {
	idle, err := json.Marshal(SessionState{Phase: PhaseIdle})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(idle), "deadlineAt") {
		t.Fatalf("expected no deadline in %s", idle)
	}

	deadline := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
	running, err := json.Marshal(SessionState{Phase: PhaseRunning, DeadlineAt: &deadline})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(running), `"deadlineAt":"2024-01-01T12:00:30Z"`) {
		t.Fatalf("expected armed deadline in %s", running)
	}
}
