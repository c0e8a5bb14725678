package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed engine input (missing close, unordered dates).
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptySeries is returned when classification is asked for zero bars.
	ErrEmptySeries = errors.New("empty series")

	// ErrNoData is returned by fetchers when the source has no bars for the range.
	ErrNoData = errors.New("no data")
)

// InvalidInputError describes a data error at a specific bar.
type InvalidInputError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input at bar %d: %s: %s", e.Index, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) true.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// RetrievalError wraps a failure of the bar retrieval collaborator.
type RetrievalError struct {
	Code   string
	Source string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve %s from %s: %v", e.Code, e.Source, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
