package ticketstore

import (
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"
)

type memoryEntry struct {
	state   []byte
	expires time.Time
}

// Memory is a bounded in-memory session store with FIFO eviction.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	order    *queue.Queue
	capacity int
	lifetime time.Duration
	now      func() time.Time
	closed   bool
}

// NewMemory returns a store holding at most capacity sessions, each valid for
// lifetime. Non-positive values select DefaultCapacity and DefaultLifetime.
func NewMemory(capacity int, lifetime time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Memory{
		entries:  make(map[string]memoryEntry),
		order:    queue.New(),
		capacity: capacity,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Save stores state under id, evicting the oldest sessions if the store is
// full.
func (m *Memory) Save(_ context.Context, id, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	key := string(id)
	if _, exists := m.entries[key]; !exists {
		for len(m.entries) >= m.capacity && m.order.Length() > 0 {
			delete(m.entries, m.order.Remove().(string))
		}
		m.order.Add(key)
	}
	m.entries[key] = memoryEntry{
		state:   append([]byte(nil), state...),
		expires: m.now().Add(m.lifetime),
	}
	return nil
}

// Load returns the state stored under id.
func (m *Memory) Load(_ context.Context, id []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	entry, ok := m.entries[string(id)]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(entry.expires) {
		delete(m.entries, string(id))
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.state...), nil
}

// Len returns the number of stored sessions, including expired ones not yet
// looked up.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close drops every session.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	m.order = queue.New()
	return nil
}
