package playground

import (
	"errors"
	"strconv"
)

// RouterError represents a failure detected by the playground itself,
// as opposed to a failure raised by a mounted backend.
//
// Backend failures are wrapped with %w and keep their identity; RouterError
// only covers configuration, resolution and backend contract problems.
type RouterError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the catalog id or path related to the error (if applicable)
	Path string

	// Err is the underlying cause (if any)
	Err error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a RouterError with the same code, so that
// errors.Is(err, NotFoundError) matches every not-found failure.
func (e *RouterError) Is(target error) bool {
	var t *RouterError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode represents the category of a RouterError.
type ErrorCode int

const (
	// ErrConfiguration indicates a missing or malformed configuration key,
	// an invalid mount table or an unusable plugin folder
	ErrConfiguration ErrorCode = iota

	// ErrNotFound indicates that no mount prefix matches an identifier
	ErrNotFound

	// ErrContractViolation indicates a backend returned a catalog whose id
	// differs from the one requested
	ErrContractViolation
)

// String returns the category name.
func (c ErrorCode) String() string {
	switch c {
	case ErrConfiguration:
		return "configuration error"
	case ErrNotFound:
		return "not found"
	case ErrContractViolation:
		return "contract violation"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is.
var (
	ConfigurationError     = &RouterError{Code: ErrConfiguration, Message: ErrConfiguration.String()}
	NotFoundError          = &RouterError{Code: ErrNotFound, Message: ErrNotFound.String()}
	ContractViolationError = &RouterError{Code: ErrContractViolation, Message: ErrContractViolation.String()}
)

func configurationError(message string, err error) *RouterError {
	return &RouterError{Code: ErrConfiguration, Message: message, Err: err}
}

func notFound(id string) *RouterError {
	return &RouterError{Code: ErrNotFound, Message: "no mounted data source matches", Path: id}
}

func contractViolation(requested, returned string) *RouterError {
	return &RouterError{
		Code:    ErrContractViolation,
		Message: "data source returned catalog " + strconv.Quote(returned) + " for",
		Path:    requested,
	}
}
