package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// --- mockNotifier is a test double local to watchdog tests ---

type mockNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *mockNotifier) NotifyOwner(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockNotifier) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func testSummary(snap Snapshot) string {
	return fmt.Sprintf("auto-off received=%d delivered=%d failed=%d", snap.Received, snap.Delivered, snap.Failed)
}

func testWatchdog(s *State, n Notifier) *Watchdog {
	return NewWatchdog(s, n, testSummary, 30*time.Second, 2*time.Hour)
}

func TestWatchdog_DeactivatesAfterTimeout(t *testing.T) {
	s := NewState()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	s.Touch()
	s.Activate()
	s.RecordReceived()
	s.RecordSuccess()
	s.RecordReceived()
	s.RecordFailure("x.epub: smtp refused")

	var notifier mockNotifier
	w := testWatchdog(s, &notifier)

	// Just under the threshold: nothing happens.
	current = base.Add(2*time.Hour - time.Second)
	w.tick(context.Background())
	if !s.Active() {
		t.Fatal("session deactivated before the idle threshold")
	}

	// At the threshold: exactly one deactivation and one notification.
	current = base.Add(2 * time.Hour)
	w.tick(context.Background())
	if s.Active() {
		t.Fatal("expected session to be deactivated")
	}

	msgs := notifier.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(msgs))
	}
	want := "auto-off received=2 delivered=1 failed=1"
	if msgs[0] != want {
		t.Errorf("notification = %q, want %q", msgs[0], want)
	}

	// A further tick is a no-op on the now-inactive session.
	current = base.Add(5 * time.Hour)
	w.tick(context.Background())
	if got := len(notifier.messages()); got != 1 {
		t.Errorf("expected no second notification, got %d", got)
	}
}

func TestWatchdog_FreshActivityPreventsShutoff(t *testing.T) {
	s := NewState()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	s.Activate()
	s.Touch()

	var notifier mockNotifier
	w := testWatchdog(s, &notifier)

	current = base.Add(90 * time.Minute)
	s.Touch() // owner interacts again

	current = base.Add(3 * time.Hour) // only 90m since last touch
	w.tick(context.Background())

	if !s.Active() {
		t.Error("session deactivated despite recent activity")
	}
	if len(notifier.messages()) != 0 {
		t.Errorf("unexpected notifications: %v", notifier.messages())
	}
}

func TestWatchdog_SwallowsNotifierError(t *testing.T) {
	s := NewState()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	s.Touch()
	s.Activate()

	notifier := mockNotifier{err: errors.New("telegram unreachable")}
	w := testWatchdog(s, &notifier)

	current = base.Add(3 * time.Hour)
	w.tick(context.Background()) // must not panic or propagate

	if s.Active() {
		t.Error("session should be deactivated even when the notification fails")
	}
}

func TestWatchdog_RunStopsOnCancel(t *testing.T) {
	s := NewState()
	var notifier mockNotifier
	w := NewWatchdog(s, &notifier, testSummary, time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestWatchdog_SummaryCarriesErrorLog(t *testing.T) {
	s := NewState()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	s.Touch()
	s.Activate()
	s.RecordReceived()
	s.RecordFailure("y.epub: connection reset")

	var notifier mockNotifier
	w := NewWatchdog(s, &notifier, func(snap Snapshot) string {
		return strings.Join(snap.Errors, ";")
	}, 30*time.Second, 2*time.Hour)

	current = base.Add(2 * time.Hour)
	w.tick(context.Background())

	msgs := notifier.messages()
	if len(msgs) != 1 || msgs[0] != "y.epub: connection reset" {
		t.Errorf("summary did not carry the error log: %v", msgs)
	}
}
