package runtime

import (
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
)

// Buffer sizes of the reference dashboard.
const (
	DefaultHistorySize = 60
	DefaultLogSize     = 20
)

// History is a fixed-size rolling window of samples, oldest first.
// It always holds exactly its capacity; it starts zero-filled.
type History struct {
	samples []float64
	head    int // index of the oldest sample
}

// NewHistory returns a zero-filled window of the given size.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{samples: make([]float64, size)}
}

// Push evicts the oldest sample and appends v as the newest.
func (h *History) Push(v float64) {
	h.samples[h.head] = v
	h.head = (h.head + 1) % len(h.samples)
}

// Len is always the capacity.
func (h *History) Len() int { return len(h.samples) }

// Values returns a copy ordered oldest to newest.
func (h *History) Values() []float64 {
	out := make([]float64, 0, len(h.samples))
	out = append(out, h.samples[h.head:]...)
	return append(out, h.samples[:h.head]...)
}

// EventLog keeps the most recent operator messages, newest first.
type EventLog struct {
	entries []domain.LogEntry
	max     int
	seq     uint64
}

// NewEventLog returns an empty log bounded to max entries.
func NewEventLog(max int) *EventLog {
	if max <= 0 {
		max = DefaultLogSize
	}
	return &EventLog{max: max}
}

// Add prepends a message unless it repeats the newest entry.
// It reports whether the entry was stored.
func (l *EventLog) Add(ts time.Time, cat domain.LogCategory, msg string) bool {
	if len(l.entries) > 0 && l.entries[0].Message == msg {
		return false
	}
	l.seq++
	entry := domain.LogEntry{Seq: l.seq, Timestamp: ts, Message: msg, Category: cat}
	l.entries = append([]domain.LogEntry{entry}, l.entries...)
	if len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
	return true
}

// Clear drops every entry.
func (l *EventLog) Clear() {
	l.entries = nil
}

// Len returns the number of stored entries.
func (l *EventLog) Len() int { return len(l.entries) }

// Entries returns a copy, newest first.
func (l *EventLog) Entries() []domain.LogEntry {
	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
