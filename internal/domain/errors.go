package domain

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// ErrNotFound covers any account, entry or template that is absent or not
// owned by the calling user. Ownership failures are deliberately
// indistinguishable from absence.
var ErrNotFound = errors.New("not found")

// ErrDuplicateOccurrence is returned by stores when an entry for the same
// (template, occurrence date) pair already exists. The materializer treats
// it as a benign signal that another run got there first.
var ErrDuplicateOccurrence = errors.New("occurrence already materialized")

// ValidationError rejects a mutation before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConversionError wraps a failed historical rate lookup. It aborts only the
// delta application it occurred in.
type ConversionError struct {
	From string
	To   string
	Date civil.Date
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s at %s: %v", e.From, e.To, e.Date, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
