package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrBuiltinCategory = errors.New("built-in categories cannot be deleted")
	ErrUnauthorized    = errors.New("master password mismatch")
	ErrBlankPassword   = errors.New("master password cannot be only whitespace")
)

// ConfigError marks a misconfigured store or credential. These fail fast and are
// never retried.
type ConfigError struct {
	Setting string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration error: %s", e.Setting)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Setting, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
