package api

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration load failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError points at the offending field of a configuration document.
type ConfigError struct {
	Path string
	Msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration at %s: %s", e.Path, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }
