// Package session keeps short conversation histories for chat requests.
//
// Each session owns a fixed-size ring of the most recent messages. The
// manager only guards its index of sessions; a session's history has its own
// lock, so concurrent chats in different sessions never contend.
package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxHistory is how many messages a session remembers.
const MaxHistory = 20

// DefaultMaxSessions bounds the number of live sessions.
const DefaultMaxSessions = 1000

// Role is who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// State is one session's conversation.
type State struct {
	ID string

	mu    sync.Mutex
	ring  [MaxHistory]Message
	start int
	count int
}

func newState(id string) *State {
	return &State{ID: id}
}

// Append adds a message, evicting the oldest once MaxHistory is reached.
func (s *State) Append(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{Role: role, Content: content, At: time.Now().UTC()}
	if s.count < MaxHistory {
		s.ring[(s.start+s.count)%MaxHistory] = msg
		s.count++
		return
	}
	s.ring[s.start] = msg
	s.start = (s.start + 1) % MaxHistory
}

// History returns the remembered messages, oldest first.
func (s *State) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.ring[(s.start+i)%MaxHistory]
	}
	return out
}

// Len returns the number of remembered messages.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Manager hands out sessions by ID, evicting the least recently used once
// more than MaxSessions are live.
type Manager struct {
	mu          sync.Mutex
	maxSessions int
	sessions    map[string]*list.Element
	lru         *list.List // front = most recently used; values are *State
}

// NewManager creates a Manager. maxSessions <= 0 uses DefaultMaxSessions.
func NewManager(maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		maxSessions: maxSessions,
		sessions:    make(map[string]*list.Element),
		lru:         list.New(),
	}
}

// Get returns the session for id, creating it if needed. An empty id starts
// a new session with a fresh UUID.
func (m *Manager) Get(id string) *State {
	if id == "" {
		id = uuid.New().String()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.sessions[id]; ok {
		m.lru.MoveToFront(el)
		return el.Value.(*State)
	}

	st := newState(id)
	m.sessions[id] = m.lru.PushFront(st)
	for m.lru.Len() > m.maxSessions {
		oldest := m.lru.Back()
		m.lru.Remove(oldest)
		delete(m.sessions, oldest.Value.(*State).ID)
	}
	return st
}

// Drop forgets a session.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.sessions[id]; ok {
		m.lru.Remove(el)
		delete(m.sessions, id)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

type contextKey struct{}

// WithState attaches a session to ctx.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, contextKey{}, st)
}

// FromContext returns the session attached to ctx, if any.
func FromContext(ctx context.Context) (*State, bool) {
	st, ok := ctx.Value(contextKey{}).(*State)
	return st, ok
}
