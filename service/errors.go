package service

import (
	"errors"
	"net/http"
)

// Rejection categories
var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrNoActiveSeason        = errors.New("no active season")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrRateLimited           = errors.New("rate limited")
	ErrRunVerificationFailed = errors.New("run verification failed")
	ErrInvalidOrReusedToken  = errors.New("invalid or reused token")
	ErrUsernameTaken         = errors.New("username taken")
	ErrRunNotFound           = errors.New("run not found")
	ErrStorageFailure        = errors.New("storage failure")
)

// Rejection is a categorized failure with the message shown to the caller
type Rejection struct {
	Kind    error
	Message string
	Cause   error
}

func (r *Rejection) Error() string {
	if r.Cause != nil {
		return r.Message + ": " + r.Cause.Error()
	}
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

func reject(kind error, message string) *Rejection {
	return &Rejection{Kind: kind, Message: message}
}

func storageFailure(message string, cause error) *Rejection {
	return &Rejection{Kind: ErrStorageFailure, Message: message, Cause: cause}
}

// Message returns the caller-facing text for err
func Message(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Message
	}
	return "Internal server error."
}

// StatusCode maps a rejection category to its HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoActiveSeason),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrRunVerificationFailed),
		errors.Is(err, ErrInvalidOrReusedToken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
