package ink

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every configuration validation error.
var ErrInvalidConfig = errors.New("ink: invalid configuration")

// ConfigError reports a configuration field that failed validation.
// Components return it from their constructors; nothing on the rendering
// path returns errors.
type ConfigError struct {
	Component string
	Field     string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Component, e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// RequirePositive returns a ConfigError if v is not strictly positive.
func RequirePositive[T int | int64 | float64](component, field string, v T) error {
	if v <= 0 {
		return &ConfigError{Component: component, Field: field, Reason: fmt.Sprintf("must be > 0, got %v", v)}
	}
	return nil
}

// RequireNonNegative returns a ConfigError if v is negative.
func RequireNonNegative[T int | int64 | float64](component, field string, v T) error {
	if v < 0 {
		return &ConfigError{Component: component, Field: field, Reason: fmt.Sprintf("must be >= 0, got %v", v)}
	}
	return nil
}
