// Package session provides the caller session state machine and the
// in-memory registry that owns every session.
package session

import (
	"errors"
	"fmt"
)

// State represents the processing state of a caller session.
type State int

const (
	// StateIdle - No work requested.
	StateIdle State = iota
	// StatePending - Work requested by a webhook, no cycle started yet.
	StatePending
	// StateProcessing - A cycle is in flight. Acts as the per-caller mutex.
	StateProcessing
	// StateAwaitingRetry - The expected recording was not found yet.
	// Scheduled exactly like PENDING.
	StateAwaitingRetry
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePending:
		return "PENDING"
	case StateProcessing:
		return "PROCESSING"
	case StateAwaitingRetry:
		return "AWAITING_RETRY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// MarshalText encodes the state by name for JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsDue returns true if a cycle may be started from this state.
func (s State) IsDue() bool {
	return s == StatePending || s == StateAwaitingRetry
}

// Errors for invalid registry operations.
var (
	ErrUnknownSession    = errors.New("unknown session")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrEmptyIdentity     = errors.New("empty caller identity")
)
