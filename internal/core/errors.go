package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange reports a date filter whose lower bound is after
	// its upper bound.
	ErrInvalidRange = errors.New("invalid date range: from is after to")

	// ErrNotFound reports a lookup by id that matched nothing.
	ErrNotFound = errors.New("not found")
)

// QueryError wraps a failed call against the external store. An empty
// result is never a QueryError; callers rely on that distinction to
// tell "no matches" apart from "the store is down".
type QueryError struct {
	Collection string
	Op         string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError wraps err with the collection and operation that failed.
func NewQueryError(collection, op string, err error) *QueryError {
	return &QueryError{Collection: collection, Op: op, Err: err}
}

// IsQueryError reports whether err is (or wraps) a store failure.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
