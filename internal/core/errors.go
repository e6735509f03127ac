package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBadFormat is the root of every chat input rejection.
	ErrBadFormat = errors.New("bad format")
	// ErrRecordNotFound means the store has no matching row. It is a normal
	// outcome for QueryLatestByCategory.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionConflict means a conditional update lost against a concurrent writer.
	ErrVersionConflict = errors.New("record version conflict")
	// ErrMalformedRecord means the store returned a row with a missing or invalid field.
	ErrMalformedRecord = errors.New("malformed record")
)

// ParseError reports a chat line that is not "category amount".
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad format %q: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrBadFormat
}

// StoreError wraps any failure of a store round-trip: transport, timeout,
// non-success response or undecodable payload.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
