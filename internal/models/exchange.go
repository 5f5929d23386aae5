// Package models defines the records and events produced by processing cycles.
package models

// ExchangeRecord is one completed caller exchange.
type ExchangeRecord struct {
	Identity      string `json:"phone"`
	Index         string `json:"index"`
	Transcription string `json:"transcription"`
	Answer        string `json:"answer"`
	CycleID       string `json:"cycleId"`
	CompletedAt   int64  `json:"completedAt"`
}

// ExchangeCompleted is published when a cycle uploads its answer.
type ExchangeCompleted struct {
	EventType     string  `json:"eventType"`
	Identity      string  `json:"identity"`
	Index         string  `json:"index"`
	CycleID       string  `json:"cycleId"`
	Timestamp     int64   `json:"timestamp"`
	Transcription string  `json:"transcription"`
	Answer        string  `json:"answer"`
	AnswerSeconds float64 `json:"answerSeconds,omitempty"`
}

// CycleFailed is published when a cycle is abandoned.
type CycleFailed struct {
	EventType string `json:"eventType"`
	Identity  string `json:"identity"`
	Index     string `json:"index"`
	CycleID   string `json:"cycleId"`
	Timestamp int64  `json:"timestamp"`
	Step      string `json:"step"`
	Error     string `json:"error"`
}

const (
	EventExchangeCompleted = "ivr.exchange.completed"
	EventCycleFailed       = "ivr.cycle.failed"
)
