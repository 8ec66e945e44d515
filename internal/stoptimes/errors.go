package stoptimes

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedQuote is returned when a quoted field is not closed
	// before the end of the line.
	ErrUnterminatedQuote = errors.New("stoptimes: unterminated quoted field")
	// ErrBareQuote is returned when data follows the closing quote of a
	// quoted field without an intervening delimiter.
	ErrBareQuote = errors.New("stoptimes: quote not at field boundary")
)

// MissingColumnError reports a required header column that could not be
// resolved. It aborts the whole run before any data row is read.
type MissingColumnError struct {
	Name string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("stoptimes: required column %q not found in header", e.Name)
}

// FieldTooLongError reports a field whose value exceeds its length ceiling.
type FieldTooLongError struct {
	Field  string
	Length int
	Max    int
}

func (e *FieldTooLongError) Error() string {
	return fmt.Sprintf("stoptimes: field %s is %d bytes, ceiling is %d", e.Field, e.Length, e.Max)
}

// InvalidSequenceError reports a stop_sequence value that is not a plain
// non-negative base-10 integer.
type InvalidSequenceError struct {
	Value string
}

func (e *InvalidSequenceError) Error() string {
	return fmt.Sprintf("stoptimes: invalid stop_sequence %q", e.Value)
}

// MissingFieldsError reports a row with fewer fields than the column
// mapping requires.
type MissingFieldsError struct {
	Found    int
	Expected int
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("stoptimes: row has %d fields, need %d", e.Found, e.Expected)
}
