package session

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	domain "fileconv/internal/domain/conversion"
)

const (
	defaultBuffer    = 256
	defaultHeartbeat = 15 * time.Second
)

var (
	ErrInvalidSession = errors.New("invalid session id")
	ErrClosed         = errors.New("session manager closed")
)

// Event is one progress message in transit. It is never stored.
type Event struct {
	SessionID string    `json:"-"`
	Message   string    `json:"message"`
	At        time.Time `json:"-"`
}

type entry struct {
	createdAt time.Time
	sub       *Subscription
	batches   map[string][]*domain.FileJob
}

// Manager owns every session: its progress subscription and the jobs of
// batches currently running for it.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool

	buffer    int
	heartbeat time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBuffer sets the per-subscription event capacity.
func WithBuffer(size int) Option {
	return func(m *Manager) {
		if size > 0 {
			m.buffer = size
		}
	}
}

// WithHeartbeat sets the keep-alive interval of open subscriptions.
func WithHeartbeat(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.heartbeat = interval
		}
	}
}

// NewManager creates an empty session registry.
func NewManager(logger *log.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*entry),
		buffer:    defaultBuffer,
		heartbeat: defaultHeartbeat,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe opens a progress channel for sessionID. A previous subscription
// for the same session is closed and replaced; the new one only sees events
// published after this call.
func (m *Manager) Subscribe(sessionID string) (*Subscription, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		sessionID: sessionID,
		events:    make(chan Event, m.buffer),
		ticker:    time.NewTicker(m.heartbeat),
		manager:   m,
	}

	// Attach first so closing the previous subscription never empties the
	// entry.
	e := m.entryLocked(sessionID)
	previous := e.sub
	e.sub = sub
	if previous != nil {
		m.closeLocked(sessionID, previous)
	}
	return sub, nil
}

// Publish delivers message to the session's open subscription. Without a
// subscriber, or with a full buffer, the message is dropped.
func (m *Manager) Publish(sessionID, message string) {
	m.logger.Printf("[session %s] %s", sessionID, message)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok || e.sub == nil {
		return
	}

	select {
	case e.sub.events <- Event{SessionID: sessionID, Message: message, At: m.now()}:
	default:
		// Slow reader; progress delivery is at-most-once.
	}
}

// Begin registers the jobs of a starting batch under the session.
func (m *Manager) Begin(sessionID, batchID string, jobs []*domain.FileJob) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(sessionID)
	e.batches[batchID] = append([]*domain.FileJob(nil), jobs...)
}

// Release clears a finished batch. The session entry is dropped once it has
// no batches and no subscriber.
func (m *Manager) Release(sessionID, batchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	delete(e.batches, batchID)
	m.gcLocked(sessionID, e)
}

// Jobs returns the jobs of every batch currently registered for the session.
func (m *Manager) Jobs(sessionID string) []*domain.FileJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	var out []*domain.FileJob
	for _, jobs := range e.batches {
		out = append(out, jobs...)
	}
	return out
}

// Subscribed reports whether the session has an open progress channel.
func (m *Manager) Subscribed(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	return ok && e.sub != nil
}

// Active returns the number of sessions held in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close ends every open subscription and refuses new ones.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, e := range m.sessions {
		if e.sub != nil {
			m.closeLocked(id, e.sub)
		}
	}
}

func (m *Manager) entryLocked(sessionID string) *entry {
	e, ok := m.sessions[sessionID]
	if !ok {
		e = &entry{createdAt: m.now(), batches: make(map[string][]*domain.FileJob)}
		m.sessions[sessionID] = e
	}
	return e
}

func (m *Manager) closeLocked(sessionID string, sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	sub.ticker.Stop()
	close(sub.events)

	e, ok := m.sessions[sessionID]
	if !ok || e.sub != sub {
		return
	}
	e.sub = nil
	m.gcLocked(sessionID, e)
}

func (m *Manager) gcLocked(sessionID string, e *entry) {
	if e.sub == nil && len(e.batches) == 0 {
		delete(m.sessions, sessionID)
	}
}
