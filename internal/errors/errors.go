// Package errors maps service failures onto HTTP statuses and the JSON
// envelope every API response uses.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[ErrorCode]int{
	CodeValidation:     http.StatusBadRequest,
	CodeBadRequest:     http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeUnauthorized:   http.StatusUnauthorized,
	CodeForbidden:      http.StatusForbidden,
	CodeRateLimit:      http.StatusTooManyRequests,
	CodeServiceUnavail: http.StatusServiceUnavailable,
}

// AppError is a failure that knows how it should be reported to API clients.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of e carrying details for the client.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Cause = err
	return e
}

func constructor(code ErrorCode) func(string) *AppError {
	return func(message string) *AppError { return New(code, message) }
}

func wrapper(code ErrorCode) func(error, string) *AppError {
	return func(err error, message string) *AppError { return Wrap(err, code, message) }
}

var (
	Internal               = constructor(CodeInternal)
	InternalWrap           = wrapper(CodeInternal)
	Validation             = constructor(CodeValidation)
	ValidationWrap         = wrapper(CodeValidation)
	NotFound               = constructor(CodeNotFound)
	BadRequest             = constructor(CodeBadRequest)
	BadRequestWrap         = wrapper(CodeBadRequest)
	Unauthorized           = constructor(CodeUnauthorized)
	Forbidden              = constructor(CodeForbidden)
	RateLimit              = constructor(CodeRateLimit)
	ServiceUnavailable     = constructor(CodeServiceUnavail)
	ServiceUnavailableWrap = wrapper(CodeServiceUnavail)
)

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Envelope is the body of every JSON API response.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *AppError `json:"error,omitempty"`
}

// reportable returns a private copy of the AppError in err's chain, so the
// request id never leaks into an error value shared between requests.
// Errors without one become a generic INTERNAL_ERROR.
func reportable(err error) *AppError {
	var found *AppError
	if stderrors.As(err, &found) {
		cp := *found
		return &cp
	}
	return InternalWrap(err, "An unexpected error occurred")
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	appErr := reportable(err)
	appErr.RequestID = requestID

	if encodeErr := writeJSON(w, appErr.StatusCode, Envelope{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelWarn
	if appErr.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
