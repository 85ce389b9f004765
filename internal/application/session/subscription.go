package session

import "time"

// Subscription is one continuously open progress channel. Events arrive in
// publish order; the channel is closed when the subscription ends, either by
// Close or by a newer subscription for the same session.
type Subscription struct {
	sessionID string
	events    chan Event
	ticker    *time.Ticker
	manager   *Manager

	// guarded by manager.mu
	closed bool
}

// SessionID returns the id the subscription was opened for.
func (s *Subscription) SessionID() string { return s.sessionID }

// Events yields published events until the subscription ends.
func (s *Subscription) Events() <-chan Event { return s.events }

// Heartbeat ticks at the configured keep-alive interval.
func (s *Subscription) Heartbeat() <-chan time.Time { return s.ticker.C }

// Close releases the subscription and stops its heartbeat. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()
	s.manager.closeLocked(s.sessionID, s)
}
