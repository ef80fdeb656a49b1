package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure for the caller.
type ErrorKind string

const (
	ErrTransientNetwork ErrorKind = "transient_network" // retryable TTS/LLM failure
	ErrPermanentRemote  ErrorKind = "permanent_remote"  // non-retryable remote HTTP failure
	ErrDecode           ErrorKind = "decode"            // unreadable music or voice buffer
	ErrAlignment        ErrorKind = "alignment"         // sample-count reconciliation failed
	ErrEncoding         ErrorKind = "encoding"          // final encode failed
	ErrConfig           ErrorKind = "config"            // missing required keys or index
	ErrSelection        ErrorKind = "selection"         // selector ran out of fallbacks
)

// PipelineError tags a failure with its kind and the stage that raised it.
// Transient errors are absorbed by the TTS retry loop; everything else
// surfaces to the caller as fatal.
type PipelineError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// E wraps err with a kind and stage tag.
func E(kind ErrorKind, stage string, err error) error {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// Ef is E with a formatted message.
func Ef(kind ErrorKind, stage, format string, args ...any) error {
	return &PipelineError{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the error kind, or empty string for untagged errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsTransient reports whether err is a retryable network failure.
func IsTransient(err error) bool {
	return KindOf(err) == ErrTransientNetwork
}
