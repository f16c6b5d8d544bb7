package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNoCredential  = errors.New("no credential held")
	ErrInvalidState  = errors.New("operation not allowed in current session state")
	ErrStaleEpoch    = errors.New("session changed while request was in flight")
	ErrFetchInFlight = errors.New("page fetch already in flight")
	ErrFederatedFlow = errors.New("federated sign-in is not supported by this provider")
)

// AuthError is a provider or credential failure recorded in the session state.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ResolutionError is a profile lookup failure other than "no profile".
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("profile resolution failed: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// RequestError is a non-2xx backend response.
type RequestError struct {
	Status int
	Body   map[string]any
}

const genericErrorMessage = "An unknown error occurred"

func (e *RequestError) Error() string {
	return fmt.Sprintf("backend responded with status %d: %s", e.Status, e.Message())
}

// Message returns the server-provided message, falling back to a generic one.
func (e *RequestError) Message() string {
	if m, ok := e.Body["message"].(string); ok && m != "" {
		return m
	}
	return genericErrorMessage
}

// Code returns the machine-readable "error" field of the body, if any.
func (e *RequestError) Code() string {
	c, _ := e.Body["error"].(string)
	return c
}

// UploadError is an object storage failure carrying the provider error code.
type UploadError struct {
	Code string
	Err  error
}

func (e *UploadError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
	return fmt.Sprintf("upload failed (%s): %v", e.Code, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// UserMessage returns a message suitable for a dismissible notification.
func UserMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message()
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Err.Error()
	}
	return genericErrorMessage
}
