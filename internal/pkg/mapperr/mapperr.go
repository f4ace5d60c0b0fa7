package mapperr

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound means no mapping path exists in either direction for a
	// (source, target) ontology pair. Callers treat the identifiers as
	// unmapped; it is never fatal.
	ErrPathNotFound = errors.New("no mapping path found")
	// ErrInvalidArgument is a generic sentinel for missing or malformed
	// required parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ClientInitError means a resource client could not be constructed. It is
// fatal for the whole path execution: no identifier on the path can succeed.
type ClientInitError struct {
	Resource string
	Err      error
}

func (e *ClientInitError) Error() string {
	return fmt.Sprintf("resource client %q init failed: %v", e.Resource, e.Err)
}

func (e *ClientInitError) Unwrap() error { return e.Err }

// ClientExecutionError is a per-identifier resource call failure. It is
// recorded on the affected identifier's outcome and never aborts the batch.
type ClientExecutionError struct {
	Resource   string
	Identifier string
	Err        error
}

func (e *ClientExecutionError) Error() string {
	return fmt.Sprintf("resource %q failed for %q: %v", e.Resource, e.Identifier, e.Err)
}

func (e *ClientExecutionError) Unwrap() error { return e.Err }
