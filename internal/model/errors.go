package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("event not found")
	ErrConfiguration = errors.New("unsupported configuration")
)

// ValidationError reports malformed input such as a missing title or a
// weekly rule without any weekdays.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError reports an operation addressed at an id that matches no event.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNotFound, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConfigurationError reports a setting the engine does not support, such as
// an unknown recurrence type.
type ConfigurationError struct {
	Setting string
	Value   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s=%q", ErrConfiguration, e.Setting, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
