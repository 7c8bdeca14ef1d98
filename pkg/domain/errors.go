package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLocked is returned when a mutation is attempted while the engine is not IDLE.
var ErrLocked = errors.New("sequence is locked while running")

// ErrValidation is the root of every malformed-step, duplicate-id or bad-order failure.
var ErrValidation = errors.New("validation failed")

// ErrConfig is returned for unusable operator input such as a negative cycle total.
var ErrConfig = errors.New("invalid configuration value")

// ErrSequenceNotFound is returned when a named sequence does not exist in a library.
var ErrSequenceNotFound = errors.New("sequence not found")

// ErrNoHost is returned by host save/load when no host is attached.
var ErrNoHost = errors.New("no host configured")

// ErrStepNotFound is returned when a step id is not part of the sequence.
var ErrStepNotFound = errors.New("step not found")

// StepError describes a single invalid step.
type StepError struct {
	Index  int // 1-based position in the submitted list, 0 if unknown
	StepID string
	Field  string
	Reason string
}

func (e *StepError) Error() string {
	var b strings.Builder
	b.WriteString("step")
	if e.Index > 0 {
		fmt.Fprintf(&b, " #%d", e.Index)
	}
	if e.StepID != "" {
		fmt.Fprintf(&b, " %q", e.StepID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *StepError) Unwrap() error { return ErrValidation }

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() error { return ErrValidation }

// ValidationErrors returns all validation errors if err is an AggregateError.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// OrderError is returned when a reorder request is not a permutation of the current ids.
type OrderError struct {
	Reason string
}

func (e *OrderError) Error() string { return "invalid order: " + e.Reason }
func (e *OrderError) Unwrap() error { return ErrValidation }

// ConfigError reports rejected operator or configuration input. Previous,
// when non-zero, is the value kept in effect.
type ConfigError struct {
	Key      string
	Input    string
	Previous uint64
}

func (e *ConfigError) Error() string {
	if e.Previous == 0 {
		return fmt.Sprintf("%s: invalid value %q", e.Key, e.Input)
	}
	return fmt.Sprintf("%s: invalid value %q, keeping %d", e.Key, e.Input, e.Previous)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }
