// Package errs defines the failure taxonomy shared by the deployment pipeline
// and the strategy test resolvers.
//
// Each typed error unwraps to a stable sentinel, so callers branch with
// errors.Is(err, errs.ErrConfig) or extract details with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindConfig             Kind = "Config"
	KindChainStateMismatch Kind = "ChainStateMismatch"
	KindEventShape         Kind = "EventShape"
)

var (
	ErrConfig             = errors.New("configuration error")
	ErrChainStateMismatch = errors.New("chain state mismatch")
	ErrEventShape         = errors.New("event shape mismatch")
)

// ConfigError reports a setting that blocks the run before any transaction is sent.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// Kind returns KindConfig.
func (e *ConfigError) Kind() Kind { return KindConfig }

// ChainStateMismatchError reports a read-back that does not match the value just written.
type ChainStateMismatchError struct {
	Check string
	Want  any
	Got   any
}

func (e *ChainStateMismatchError) Error() string {
	return fmt.Sprintf("%s: want %v, got %v", e.Check, e.Want, e.Got)
}

func (e *ChainStateMismatchError) Unwrap() error { return ErrChainStateMismatch }

// Kind returns KindChainStateMismatch.
func (e *ChainStateMismatchError) Kind() Kind { return KindChainStateMismatch }

// EventShapeError reports a missing, malformed or unexpected event in a receipt.
type EventShapeError struct {
	Event  string
	Reason string
}

func (e *EventShapeError) Error() string {
	return fmt.Sprintf("event %s: %s", e.Event, e.Reason)
}

func (e *EventShapeError) Unwrap() error { return ErrEventShape }

// Kind returns KindEventShape.
func (e *EventShapeError) Kind() Kind { return KindEventShape }

// Config builds a *ConfigError.
func Config(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Mismatch builds a *ChainStateMismatchError.
func Mismatch(check string, want, got any) error {
	return &ChainStateMismatchError{Check: check, Want: want, Got: got}
}

// EventShape builds an *EventShapeError.
func EventShape(event, format string, args ...any) error {
	return &EventShapeError{Event: event, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the category of err, or "" when err is outside the taxonomy.
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}
