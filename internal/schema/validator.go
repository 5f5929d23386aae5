// Package schema validates caller identities and outgoing events.
package schema

import (
	"errors"
	"fmt"
	"regexp"

	"ivr-voice-bridge-service/internal/models"
)

// identityPattern matches phone numbers and IVR caller IDs. Identities are
// used as path segments on the remote file store, so separators are rejected.
var identityPattern = regexp.MustCompile(`^[0-9A-Za-z+*#_-]{1,32}$`)

var (
	ErrInvalidIdentity = errors.New("invalid caller identity")
	ErrMissingField    = errors.New("missing required field")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateIdentity reports whether id can be used as a session key.
func (v *Validator) ValidateIdentity(id string) error {
	if !identityPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
	}
	return nil
}

// Validate checks the required fields of an outgoing event.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.ExchangeCompleted:
		return requireFields(map[string]string{
			"eventType": ev.EventType,
			"identity":  ev.Identity,
			"index":     ev.Index,
			"cycleId":   ev.CycleID,
		})
	case models.CycleFailed:
		return requireFields(map[string]string{
			"eventType": ev.EventType,
			"identity":  ev.Identity,
			"index":     ev.Index,
			"cycleId":   ev.CycleID,
			"step":      ev.Step,
		})
	case models.ExchangeRecord:
		return requireFields(map[string]string{
			"phone": ev.Identity,
			"index": ev.Index,
		})
	default:
		return nil
	}
}

func requireFields(fields map[string]string) error {
	var errs []error
	for _, name := range []string{"eventType", "identity", "phone", "index", "cycleId", "step"} {
		if v, ok := fields[name]; ok && v == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingField, name))
		}
	}
	return errors.Join(errs...)
}
