package logger

import (
	"sync"
	"time"
)

// ErrorEntry is one captured error or warn log line.
type ErrorEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
}

// ErrorRing keeps the most recent error entries in a fixed-size buffer.
// Writers drop the oldest entry once the buffer is full.
type ErrorRing struct {
	mu      sync.RWMutex
	entries []ErrorEntry
	next    int
	full    bool
}

func NewErrorRing(size int) *ErrorRing {
	if size <= 0 {
		size = 100
	}
	return &ErrorRing{entries: make([]ErrorEntry, size)}
}

func (r *ErrorRing) Add(level, msg string, fields map[string]interface{}, caller string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = ErrorEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Caller:    caller,
	}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns up to n entries, newest first.
func (r *ErrorRing) Recent(n int) []ErrorEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.entries)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]ErrorEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out
}
