package taxconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a loaded tax configuration fails validation.
	ErrInvalidConfig = errors.New("invalid tax configuration")

	// ErrUnknownYear is returned when no parameters exist for the requested year.
	ErrUnknownYear = errors.New("no tax parameters for year")

	// ErrYearMismatch is returned when a configuration file is for another year than requested.
	ErrYearMismatch = errors.New("tax configuration year mismatch")
)

// ConfigError wraps tax configuration failures with the failing operation.
type ConfigError struct {
	Op      string
	Err     error
	Details string
}

func (e *ConfigError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("taxconfig: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("taxconfig: %s failed: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapConfigError wraps err as a ConfigError unless it already is one.
func WrapConfigError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}
	return &ConfigError{Op: op, Err: err, Details: details}
}
