package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrInvalidSchema indicates a type document the generator cannot handle.
	ErrInvalidSchema = errors.New("typegen: invalid type schema")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("typegen: missing configuration")
	// ErrInvalidLink indicates a link definition that references unknown types.
	ErrInvalidLink = errors.New("typegen: invalid link definition")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("typegen: code generation failed")
	// ErrValidationFailed indicates a validation failure.
	ErrValidationFailed = errors.New("typegen: validation failed")
	// ErrStageOrder indicates a pipeline stage ran before its predecessor.
	ErrStageOrder = errors.New("typegen: pipeline stage out of order")
	// ErrWriteFailed indicates a generated file could not be written.
	ErrWriteFailed = errors.New("typegen: write failed")
)

// TypeError represents an error in a single type document.
type TypeError struct {
	Type    string // Versioned URL of the type
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	var b strings.Builder
	b.WriteString("typegen: type error")
	if e.Type != "" {
		b.WriteString(" on ")
		b.WriteString(e.Type)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *TypeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewTypeError creates a new TypeError.
func NewTypeError(typeID, message string, cause error) *TypeError {
	return &TypeError{Type: typeID, Message: message, Cause: cause}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("typegen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("typegen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// LinkError represents a link from an entity type that cannot be resolved.
type LinkError struct {
	Source  string
	Link    string
	Target  string
	Message string
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	var b strings.Builder
	b.WriteString("typegen: link error")
	if e.Link != "" {
		b.WriteString(" on link ")
		b.WriteString(e.Link)
	}
	if e.Source != "" && e.Target != "" {
		fmt.Fprintf(&b, " (%s -> %s)", e.Source, e.Target)
	} else if e.Source != "" {
		b.WriteString(" from ")
		b.WriteString(e.Source)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for LinkError.
func (e *LinkError) Is(target error) bool {
	return target == ErrInvalidLink
}

// NewLinkError creates a new LinkError.
func NewLinkError(source, link, target, message string) *LinkError {
	return &LinkError{Source: source, Link: link, Target: target, Message: message}
}

// GenerationError represents a code generation error.
type GenerationError struct {
	Phase   string // "initialize", "preprocess", "compile", "postprocess"
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("typegen: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("typegen: validation error")
	if e.Field != "" {
		b.WriteString(" on ")
		b.WriteString(e.Field)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " (value: %v)", e.Value)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// WriteError reports a generated file that could not be written.
type WriteError struct {
	File  string
	Cause error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("typegen: write %s: %v", e.File, e.Cause)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for WriteError.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}

// IsTypeError reports whether the error is a TypeError.
func IsTypeError(err error) bool {
	var typeErr *TypeError
	return errors.As(err, &typeErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsLinkError reports whether the error is a LinkError.
func IsLinkError(err error) bool {
	var linkErr *LinkError
	return errors.As(err, &linkErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsValidationError reports whether the error is a ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// IsWriteError reports whether the error is a WriteError.
func IsWriteError(err error) bool {
	var writeErr *WriteError
	return errors.As(err, &writeErr)
}
