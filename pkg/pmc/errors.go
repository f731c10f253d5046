package pmc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedMethod = errors.New("unsupported batch operation method")
	ErrOperationURLEmpty = errors.New("operation URL is empty")
	ErrNilTransport      = errors.New("transport is required")
	ErrNilStatusFunc     = errors.New("status function is required")
	ErrNilDoneFunc       = errors.New("done predicate is required")
)

// Sentinel reasons used for degraded results. These are data, not errors:
// a bad part or a dropped response never aborts the rest of the batch.
const (
	ReasonNoBoundary      = "NoBoundary"
	ReasonUnknown         = "Unknown"
	ReasonMissingResponse = "MissingResponse"
	ReasonRetryExhausted  = "RetryExhausted"
)

// APIError is the error document embedded in platform API responses.
type APIError struct {
	Code    string `json:"code"    yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return e.Message
	}

	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

// ResponseError represents a non-2xx response from the API.
type ResponseError struct {
	StatusCode int       `json:"-"`
	ErrorInfo  *APIError `json:"error"`
	Raw        string    `json:"-"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	if e.ErrorInfo != nil {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.ErrorInfo.Error())
	}

	return fmt.Sprintf("API error (status %d)", e.StatusCode)
}

// ParseResponseError parses an error response body.
func ParseResponseError(statusCode int, body []byte) *ResponseError {
	respErr := &ResponseError{StatusCode: statusCode, Raw: string(body)}

	_ = json.Unmarshal(body, respErr)

	return respErr
}

// IsNotFound checks if the error is a 404 response.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is a 401 response.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsTooManyRequests checks if the error is a 429 response.
func IsTooManyRequests(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

func hasStatus(err error, status int) bool {
	respErr := &ResponseError{}
	if errors.As(err, &respErr) {
		return respErr.StatusCode == status
	}

	return false
}

// PollTimeoutError is returned by PollUntil when the timeout elapses before
// the done predicate is satisfied. It carries the last observed status; the
// remote operation may still be running.
type PollTimeoutError struct {
	Timeout    time.Duration
	LastStatus interface{}
}

// Error implements the error interface.
func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("polling timed out after %s", e.Timeout)
}

// IsPollTimeout checks if the error is a poll timeout.
func IsPollTimeout(err error) bool {
	timeoutErr := &PollTimeoutError{}

	return errors.As(err, &timeoutErr)
}
