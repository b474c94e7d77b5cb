package session

import (
	"sync"
	"time"
)

// Snapshot is the set of counters captured atomically when a session ends,
// before they are reset.
type Snapshot struct {
	Received  int
	Delivered int
	Failed    int
	Errors    []string
}

// State is the single shared session object: whether uploads are currently
// accepted, when the owner last interacted, and the per-session delivery
// counters. It is created once at startup and shared by reference between
// the Telegram handlers and the idle watchdog, with one mutex serializing
// every mutation.
type State struct {
	mu           sync.Mutex
	active       bool
	lastActivity time.Time
	received     int
	delivered    int
	failed       int
	errors       []string

	now func() time.Time
}

// NewState returns an inactive state with zeroed counters.
func NewState() *State {
	s := &State{now: time.Now}
	s.lastActivity = s.now()
	return s
}

// Activate enables uploads and starts a fresh session: counters and the
// error log are zeroed even if a session was already active.
func (s *State) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = true
	s.reset()
}

// Deactivate ends the session and returns the counters as they stood at
// that instant. The capture and the reset happen in one critical section,
// so no caller can observe reset counters on a still-active session.
// If no session was active it mutates nothing and reports false.
func (s *State) Deactivate() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return Snapshot{}, false
	}

	s.active = false
	snap := Snapshot{
		Received:  s.received,
		Delivered: s.delivered,
		Failed:    s.failed,
		Errors:    append([]string(nil), s.errors...),
	}
	s.reset()
	return snap, true
}

// reset zeroes counters and the error log. Caller holds the lock.
func (s *State) reset() {
	s.received = 0
	s.delivered = 0
	s.failed = 0
	s.errors = nil
}

// RecordReceived counts an accepted upload. Callers check Active first.
func (s *State) RecordReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received++
}

// RecordSuccess counts a delivered upload.
func (s *State) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered++
}

// RecordFailure counts a failed upload and appends reason to the session
// error log.
func (s *State) RecordFailure(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.errors = append(s.errors, reason)
}

// Touch marks owner activity. Called on every authorized command or upload
// and never by the watchdog, so idle time measures owner interactions only.
func (s *State) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.now()
}

// Active reports whether uploads are currently accepted.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// IdleFor returns the time elapsed since the last authorized interaction.
func (s *State) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastActivity)
}
