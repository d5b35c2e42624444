// Package ringbuf provides a fixed-capacity FIFO buffer.
//
// Entries beyond capacity evict the oldest entry. Reads always return entries
// oldest first. A monotonic position counter lets readers resume from where
// they left off, skipping anything that was evicted in between.
package ringbuf

import "sync"

// Buffer is a generic fixed-capacity circular buffer. It is safe for
// concurrent use.
type Buffer[T any] struct {
	mu sync.RWMutex

	entries  []T
	capacity int

	total int64 // entries ever pushed
	head  int   // index of the next write
}

// New creates a buffer holding at most capacity entries.
// A capacity below 1 is treated as 1.
func New[T any](capacity int) *Buffer[T] {
	capacity = max(capacity, 1)

	return &Buffer[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends entry, evicting the oldest entry when full.
func (b *Buffer[T]) Push(entry T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) < b.capacity {
		b.entries = append(b.entries, entry)
	} else {
		b.entries[b.head] = entry
	}

	b.head = (b.head + 1) % b.capacity
	b.total++
}

// Items returns a copy of the buffered entries, oldest first.
func (b *Buffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.itemsLocked()
}

func (b *Buffer[T]) itemsLocked() []T {
	out := make([]T, 0, len(b.entries))

	if len(b.entries) < b.capacity {
		return append(out, b.entries...)
	}

	// Full: the oldest entry sits at head.
	out = append(out, b.entries[b.head:]...)

	return append(out, b.entries[:b.head]...)
}

// Since returns the entries pushed at or after position pos, oldest first,
// and the position to pass on the next call. Evicted positions are skipped.
func (b *Buffer[T]) Since(pos int64) ([]T, int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	oldest := b.total - int64(len(b.entries))
	pos = max(pos, oldest)

	if pos >= b.total {
		return nil, b.total
	}

	items := b.itemsLocked()

	return items[pos-oldest:], b.total
}

// Len returns the number of buffered entries.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries)
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int { return b.capacity }

// Total returns how many entries were ever pushed.
func (b *Buffer[T]) Total() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.total
}

// Reset drops every entry. Positions keep increasing across resets.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = b.entries[:0]
	b.head = 0
}
