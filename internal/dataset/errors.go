package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable matches any SourceUnavailableError.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSchemaMismatch matches any SchemaMismatchError.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// SourceUnavailableError indicates the input table could not be fetched, opened or parsed.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("source unavailable (%s): %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source unavailable: %v", e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

func (e *SourceUnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

// SchemaMismatchError indicates missing expected columns, or a cell whose value
// cannot be read as the column's type.
type SchemaMismatchError struct {
	Missing []string
	Row     int
	Column  string
	Value   string
	Err     error
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema mismatch: missing column(s) %s (expected %s)",
			strings.Join(e.Missing, ", "), strings.Join(Columns, ", "))
	}
	return fmt.Sprintf("schema mismatch: row %d column %s: invalid value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }
