// Package errs defines the error taxonomy shared by the resolver, the loader and the views.
//
// Callers match failures with errors.Is against the sentinels:
//
//	tbl, err := svc.ReadTable(catalog.KindY, catalog.OnDate("20161219"), loader.Options{})
//	if errors.Is(err, errs.ErrNoMatchingFile) {
//	    // no snapshot published on or before that date
//	}
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDatasetKind is returned when a dataset name is not one of the known kinds.
	ErrUnknownDatasetKind = errors.New("unknown dataset kind")

	// ErrNoMatchingFile is returned when a temporal selector leaves no candidate file.
	ErrNoMatchingFile = errors.New("no matching file")

	// ErrSourceUnavailable is returned when the catalog or a raw table cannot be fetched or parsed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch is returned when an expected column is absent or cannot be coerced.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidSelector is returned for malformed dates or years.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrIntegrity is returned when a derived view fails one of its sanity checks.
	ErrIntegrity = errors.New("integrity check failed")
)

// Error carries the context needed to reproduce a failed resolution or load.
type Error struct {
	Op         string // resolve, load, refresh, ...
	Kind       string
	Selector   string
	Identifier string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Kind != "" {
		fmt.Fprintf(&b, " kind=%s", e.Kind)
	}
	if e.Selector != "" {
		fmt.Fprintf(&b, " selector=%s", e.Selector)
	}
	if e.Identifier != "" {
		fmt.Fprintf(&b, " file=%s", e.Identifier)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches op/kind/selector context to err. A nil err stays nil.
func Wrap(op, kind, selector string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Selector: selector, Err: err}
}

// Source builds an ErrSourceUnavailable failure for the given file identifier.
func Source(kind, selector, identifier string, cause error) error {
	return &Error{
		Op:         "load",
		Kind:       kind,
		Selector:   selector,
		Identifier: identifier,
		Err:        fmt.Errorf("%w: %w", ErrSourceUnavailable, cause),
	}
}

// Schema builds an ErrSchemaMismatch failure with a formatted detail message.
func Schema(kind, identifier, format string, args ...any) error {
	return &Error{
		Op:         "load",
		Kind:       kind,
		Identifier: identifier,
		Err:        fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...)),
	}
}
