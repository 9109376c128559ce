// Package logbuf keeps the bounded, ordered traffic log shown in the log
// panel. It is a fixed-capacity ring: once full, every append evicts the
// oldest entry.
package logbuf

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Capacity is the number of entries retained.
const Capacity = 100

// Kind classifies a log entry.
type Kind string

const (
	KindInfo     Kind = "info"
	KindSent     Kind = "sent"
	KindReceived Kind = "received"
	KindError    Kind = "error"
)

// Entry is a single observed event. Entries are never mutated after Append.
type Entry struct {
	ID          string
	Timestamp   string // time of day, "15:04:05"
	Kind        Kind
	Destination string // empty when the event has no destination
	Content     string
}

// Buffer is a ring buffer of entries. The zero value is not usable; call New.
type Buffer struct {
	mu    sync.RWMutex
	ring  []Entry
	head  int // index of the oldest entry
	count int

	now func() time.Time
}

// New creates an empty buffer holding at most Capacity entries.
func New() *Buffer {
	return newWithCapacity(Capacity)
}

func newWithCapacity(n int) *Buffer {
	if n < 1 {
		n = 1
	}
	return &Buffer{
		ring: make([]Entry, n),
		now:  time.Now,
	}
}

// Append records an event and returns the stored entry.
func (b *Buffer) Append(kind Kind, destination, content string) Entry {
	e := Entry{
		ID:          uuid.NewString(),
		Timestamp:   b.now().Format("15:04:05"),
		Kind:        kind,
		Destination: destination,
		Content:     content,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count < len(b.ring) {
		b.ring[(b.head+b.count)%len(b.ring)] = e
		b.count++
		return e
	}
	// Full: overwrite the oldest slot and advance the head.
	b.ring[b.head] = e
	b.head = (b.head + 1) % len(b.ring)
	return e
}

// Clear drops every entry.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.ring {
		b.ring[i] = Entry{}
	}
	b.head = 0
	b.count = 0
}

// Len returns the number of retained entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.ring)
}

// Entries returns a copy of the retained entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	return out
}
