package typegen

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for type resolution.
var (
	// ErrFetchFailed is returned when a type document could not be retrieved.
	ErrFetchFailed = errors.New("typegen: fetch failed")

	// ErrNotClassified is returned when a fetched document is not a data type,
	// property type or entity type.
	ErrNotClassified = errors.New("typegen: document not classified")

	// ErrInvalidURL is returned when a string is not a versioned type URL.
	ErrInvalidURL = errors.New("typegen: invalid versioned url")
)

// FetchError describes a fetch that did not produce a document.
type FetchError struct {
	URL      string
	Attempts int
	Status   int // Last HTTP status code, 0 if no response was received.
	Cause    error
}

// Error returns the error string.
func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString("typegen: fetch ")
	b.WriteString(e.URL)
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " failed after %d attempt(s)", e.Attempts)
	} else {
		b.WriteString(" failed")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches FetchError.
// This allows errors.Is(fetchErr, ErrFetchFailed) to return true.
func (e *FetchError) Is(err error) bool {
	return err == ErrFetchFailed
}

// NewFetchError returns a new FetchError.
func NewFetchError(url string, attempts, status int, cause error) *FetchError {
	return &FetchError{URL: url, Attempts: attempts, Status: status, Cause: cause}
}

// IsFetchError returns true if the error is a FetchError.
func IsFetchError(err error) bool {
	if err == nil {
		return false
	}
	var e *FetchError
	return errors.As(err, &e) || errors.Is(err, ErrFetchFailed)
}

// ClassificationError reports a document that is not a known type kind.
type ClassificationError struct {
	URL  string
	Kind string // Value of the document's kind field, empty if absent.
}

// Error returns the error string.
func (e *ClassificationError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("typegen: %s is not a valid %q type", e.URL, e.Kind)
	}
	return fmt.Sprintf("typegen: %s has no recognizable kind", e.URL)
}

// Is reports whether the target error matches ClassificationError.
func (e *ClassificationError) Is(err error) bool {
	return err == ErrNotClassified
}

// NewClassificationError returns a new ClassificationError.
func NewClassificationError(url, kind string) *ClassificationError {
	return &ClassificationError{URL: url, Kind: kind}
}

// IsClassificationError returns true if the error is a ClassificationError.
func IsClassificationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ClassificationError
	return errors.As(err, &e) || errors.Is(err, ErrNotClassified)
}

// URLError reports a malformed versioned type URL.
type URLError struct {
	Value  string
	Reason string
}

// Error returns the error string.
func (e *URLError) Error() string {
	return fmt.Sprintf("typegen: invalid versioned url %q: %s", e.Value, e.Reason)
}

// Is reports whether the target error matches URLError.
func (e *URLError) Is(err error) bool {
	return err == ErrInvalidURL
}

// NewURLError returns a new URLError.
func NewURLError(value, reason string) *URLError {
	return &URLError{Value: value, Reason: reason}
}

// IsURLError returns true if the error is a URLError.
func IsURLError(err error) bool {
	if err == nil {
		return false
	}
	var e *URLError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidURL)
}
