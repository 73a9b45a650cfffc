package listing

import (
	"sync"

	"github.com/google/uuid"
)

const memoCapacity = 512

type memoKey[P comparable] struct {
	scope    uuid.UUID
	snapshot uuid.UUID
	params   P
}

// memo remembers filtered slices. It is flushed wholesale when full; snapshots are
// short-lived so older entries are never hit again anyway.
type memo[T any, P comparable] struct {
	mu       sync.Mutex
	capacity int
	entries  map[memoKey[P]][]T
}

func newMemo[T any, P comparable](capacity int) *memo[T, P] {
	return &memo[T, P]{capacity: capacity, entries: make(map[memoKey[P]][]T)}
}

func (m *memo[T, P]) get(k memoKey[P]) ([]T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.entries[k]
	return rows, ok
}

func (m *memo[T, P]) put(k memoKey[P], rows []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.capacity {
		m.entries = make(map[memoKey[P]][]T)
	}
	m.entries[k] = rows
}
