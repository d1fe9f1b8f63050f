package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed marks a record rejected by structural validation. Tax is not
	// computed for such records.
	ErrValidationFailed = errors.New("invoice validation failed")

	// ErrCanceled is recorded for batch documents never processed because the context ended.
	ErrCanceled = errors.New("invoice processing was canceled")
)

// ProcessingError wraps pipeline failures with the document they concern.
type ProcessingError struct {
	// Op is the operation that failed (e.g., "Process").
	Op string

	// Document is the name of the document being processed.
	Document string

	// Err is the underlying error.
	Err error
}

func (e *ProcessingError) Error() string {
	if e.Document != "" {
		return fmt.Sprintf("pipeline: %s %q failed: %v", e.Op, e.Document, e.Err)
	}
	return fmt.Sprintf("pipeline: %s failed: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func (e *ProcessingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapProcessingError wraps err as a ProcessingError unless it already is one.
func WrapProcessingError(op, document string, err error) error {
	if err == nil {
		return nil
	}
	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return err
	}
	return &ProcessingError{Op: op, Document: document, Err: err}
}
