// Package results holds the most recent completed exchanges for observability.
package results

import (
	"sync"

	"ivr-voice-bridge-service/internal/models"
)

// DefaultCapacity is the number of exchanges kept when none is configured.
const DefaultCapacity = 100

// Log is a fixed-capacity FIFO of exchange records. Appending past capacity
// evicts the oldest record. Thread-safe for concurrent access.
type Log struct {
	mu      sync.RWMutex
	records []models.ExchangeRecord
	start   int
	size    int
}

// New creates a log holding at most capacity records.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{records: make([]models.ExchangeRecord, capacity)}
}

// Append adds a record, evicting the oldest if the log is full.
func (l *Log) Append(rec models.ExchangeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := len(l.records)
	if l.size < capacity {
		l.records[(l.start+l.size)%capacity] = rec
		l.size++
		return
	}
	l.records[l.start] = rec
	l.start = (l.start + 1) % capacity
}

// All returns a copy of the records, oldest first.
func (l *Log) All() []models.ExchangeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.ExchangeRecord, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.records[(l.start+i)%len(l.records)]
	}
	return out
}

// Len returns the number of records held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the fixed capacity.
func (l *Log) Cap() int {
	return len(l.records)
}
