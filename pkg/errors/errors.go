package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents page parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents rejected user input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeStorage represents repository read/write failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeDuplicate represents a uniqueness conflict, e.g. an already monitored url
	ErrorTypeDuplicate ErrorType = "duplicate"
	// ErrorTypeNotFound represents a missing record
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeForbidden represents an ownership check failure
	ErrorTypeForbidden ErrorType = "forbidden"
)

// WatchError is the error type shared by the price watcher components
type WatchError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *WatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *WatchError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *WatchError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// New creates a new WatchError
func New(errType ErrorType, component, message string, err error) *WatchError {
	return &WatchError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *WatchError {
	return New(ErrorTypeNetwork, component, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *WatchError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(component string, duration time.Duration) *WatchError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, component, message, nil)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *WatchError {
	return New(ErrorTypeCache, component, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(component, message string, err error) *WatchError {
	return New(ErrorTypePublisher, component, message, err)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *WatchError {
	return New(ErrorTypeValidation, component, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *WatchError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewStorage creates a new storage error
func NewStorage(component, message string, err error) *WatchError {
	return New(ErrorTypeStorage, component, message, err)
}

// NewDuplicate creates a new uniqueness conflict error
func NewDuplicate(component, message string) *WatchError {
	return New(ErrorTypeDuplicate, component, message, nil)
}

// NewNotFound creates a new not found error
func NewNotFound(component, message string) *WatchError {
	return New(ErrorTypeNotFound, component, message, nil)
}

// NewForbidden creates a new ownership error
func NewForbidden(component, message string) *WatchError {
	return New(ErrorTypeForbidden, component, message, nil)
}

// TypeOf returns the ErrorType of the first WatchError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var we *WatchError
	if stderrors.As(err, &we) {
		return we.Type
	}
	return ""
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool { return TypeOf(err) == ErrorTypeValidation }

// IsDuplicate reports whether err is a uniqueness conflict
func IsDuplicate(err error) bool { return TypeOf(err) == ErrorTypeDuplicate }

// IsNotFound reports whether err is a missing record
func IsNotFound(err error) bool { return TypeOf(err) == ErrorTypeNotFound }

// IsForbidden reports whether err is an ownership failure
func IsForbidden(err error) bool { return TypeOf(err) == ErrorTypeForbidden }
