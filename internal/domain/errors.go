package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed client request (missing query, exam, message).
	ErrValidation = errors.New("validation failed")
	// ErrProvider signals a candidate provider failure (network, store, malformed response).
	ErrProvider = errors.New("candidate provider error")
	// ErrGenerationProvider signals a text-generation backend failure.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrUnsupportedAttachment signals an attachment type the generation backend cannot accept.
	ErrUnsupportedAttachment = errors.New("unsupported attachment type")
	// ErrNotImplemented signals a feature disabled by configuration or driver.
	ErrNotImplemented = errors.New("not implemented")
	// ErrNotFound signals a missing report.
	ErrNotFound = errors.New("not found")
)

// ProviderError carries the status and message an upstream collaborator attached to a failure.
// Status is 0 when the failure never reached the upstream (dial error, timeout).
type ProviderError struct {
	Status  int
	Message string
	sentinel error
	cause    error
}

// NewProviderError creates a candidate provider error.
func NewProviderError(status int, message string, cause error) error {
	return &ProviderError{Status: status, Message: message, sentinel: ErrProvider, cause: cause}
}

// NewGenerationError creates a text-generation provider error.
func NewGenerationError(status int, message string, cause error) error {
	return &ProviderError{Status: status, Message: message, sentinel: ErrGenerationProvider, cause: cause}
}

func (e *ProviderError) Error() string {
	msg := e.sentinel.Error()
	if e.Status > 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is / errors.As.
func (e *ProviderError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.sentinel}
	}
	return []error{e.sentinel, e.cause}
}
