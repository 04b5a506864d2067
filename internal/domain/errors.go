package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuth              = errors.New("authentication failed")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrNotFound          = errors.New("resource not found")
)

// StageError records which pipeline stage failed and why.
type StageError struct {
	Kind ErrorKind
	Err  error
}

// NewStageError wraps err with kind. An err that already matches ErrAuth is
// promoted to KindAuthFailure since it affects every file in the batch.
func NewStageError(kind ErrorKind, err error) *StageError {
	if errors.Is(err, ErrAuth) {
		kind = KindAuthFailure
	}
	return &StageError{Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches an ErrorKind target, so errors.Is(err, domain.KindTitlingFailure) works.
func (e *StageError) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.Kind
}

// Error lets an ErrorKind act as a sentinel for errors.Is.
func (k ErrorKind) Error() string {
	return string(k)
}

// KindOf returns the ErrorKind carried by err, or KindNone.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrAuth) {
		return KindAuthFailure
	}
	return KindNone
}
