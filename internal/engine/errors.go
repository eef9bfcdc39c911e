package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies operation-level failures.
type ErrorKind string

const (
	KindInvalidRequest ErrorKind = "invalid-request"
	KindVCS            ErrorKind = "vcs"
	KindNoChanges      ErrorKind = "no-changes"
)

// ErrNoChanges is returned when the commit does not change the requested file.
var ErrNoChanges = errors.New("no changes found")

// OperationError aborts a sync before any target is touched.
type OperationError struct {
	Kind ErrorKind
	Err  error
}

func (e *OperationError) Error() string {
	return e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func invalidRequest(format string, a ...any) error {
	return &OperationError{Kind: KindInvalidRequest, Err: fmt.Errorf(format, a...)}
}

// KindOf returns the kind of an OperationError, or "" for any other error.
func KindOf(err error) ErrorKind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}
