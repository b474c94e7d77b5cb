package session

import (
	"context"
	"log/slog"
	"time"
)

// Notifier delivers an out-of-band message to the bot owner. Implemented by
// the Telegram layer; the watchdog has no other link to handler code.
type Notifier interface {
	NotifyOwner(ctx context.Context, text string) error
}

// SummaryFunc formats the end-of-session summary sent when the watchdog
// shuts a session off.
type SummaryFunc func(snap Snapshot) string

// Watchdog polls the shared state and deactivates the session after the
// owner has been idle past the configured timeout.
type Watchdog struct {
	state    *State
	notifier Notifier
	summary  SummaryFunc
	interval time.Duration
	timeout  time.Duration
}

// NewWatchdog creates a watchdog over state that checks every interval and
// fires once idle time reaches timeout.
func NewWatchdog(state *State, notifier Notifier, summary SummaryFunc, interval, timeout time.Duration) *Watchdog {
	return &Watchdog{
		state:    state,
		notifier: notifier,
		summary:  summary,
		interval: interval,
		timeout:  timeout,
	}
}

// Run blocks until ctx is cancelled, checking the session on every tick.
// Notification failures are logged and swallowed; nothing in here may take
// the process down.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick performs one idle check. Exported behavior lives here rather than in
// Run so tests can drive ticks directly.
func (w *Watchdog) tick(ctx context.Context) {
	if !w.state.Active() {
		return
	}
	idle := w.state.IdleFor()
	if idle < w.timeout {
		return
	}

	snap, ok := w.state.Deactivate()
	if !ok {
		// Owner stopped the session between the check and now.
		return
	}

	slog.Info("session auto-deactivated",
		"idle", idle,
		"received", snap.Received,
		"delivered", snap.Delivered,
		"failed", snap.Failed,
	)

	if err := w.notifier.NotifyOwner(ctx, w.summary(snap)); err != nil {
		slog.Warn("idle summary notification failed", "error", err)
	}
}
