package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - use with errors.Is()
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrNetworkUnavailable     = errors.New("network unavailable")
	ErrServer                 = errors.New("server error")
)

// Typed errors carrying detail for user-facing reporting
type (
	// AuthenticationError indicates a missing or rejected credential.
	// Callers surface it distinctly so the UI can redirect to login.
	AuthenticationError struct {
		Message string
	}

	// ValidationError indicates rejected input
	ValidationError struct {
		Message string
	}

	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// NetworkError indicates a transport-level failure before any
	// server response was received
	NetworkError struct {
		Message string
	}
)

// Error implementations
func (e *AuthenticationError) Error() string { return e.Message }
func (e *ValidationError) Error() string     { return e.Message }
func (e *NotFoundError) Error() string       { return e.Message }
func (e *NetworkError) Error() string        { return e.Message }

// Is implementations so errors.Is() matches the sentinels
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthenticationRequired }
func (e *ValidationError) Is(target error) bool     { return target == ErrValidation }
func (e *NotFoundError) Is(target error) bool       { return target == ErrNotFound }
func (e *NetworkError) Is(target error) bool        { return target == ErrNetworkUnavailable }

// ServerError represents a generic non-2xx response from the API
type ServerError struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (status %d)", e.Status)
}

// Is allows errors.Is() to match against ErrServer
func (e *ServerError) Is(target error) bool { return target == ErrServer }
