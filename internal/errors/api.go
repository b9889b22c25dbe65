// ABOUTME: Transport-level error types for MLflow REST failures.
// ABOUTME: Known errors carry the server's error code; unknown ones keep the raw body.

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the error_code string returned in an MLflow error envelope.
// Codes the server sends that this package does not name are kept verbatim.
type ErrorCode string

const (
	CodeResourceAlreadyExists ErrorCode = "RESOURCE_ALREADY_EXISTS"
	CodeResourceDoesNotExist  ErrorCode = "RESOURCE_DOES_NOT_EXIST"
	CodeInvalidParameterValue ErrorCode = "INVALID_PARAMETER_VALUE"
)

// Known reports whether c is one of the codes named by this package.
func (c ErrorCode) Known() bool {
	switch c {
	case CodeResourceAlreadyExists, CodeResourceDoesNotExist, CodeInvalidParameterValue:
		return true
	}
	return false
}

func (c ErrorCode) String() string {
	return string(c)
}

// APIError represents an error response from the MLflow API.
//
// When the body parsed as an error envelope, Code and Message are set.
// Otherwise Code is empty and Body holds the raw response text.
type APIError struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mlflow: %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	if e.Body != "" {
		return fmt.Sprintf("mlflow: unexpected error response (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("mlflow: %s (status %d)", e.Message, e.StatusCode)
}

// Unknown reports whether the response body could not be parsed as an error envelope.
func (e *APIError) Unknown() bool {
	return e.Code == "" && e.Message == ""
}

// DecodeError is returned when a successful response body does not match
// the expected shape. Body holds the raw payload for diagnostics.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mlflow: failed to decode response: %v (body: %s)", e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err wraps an APIError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// IsNotFound reports whether err indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == CodeResourceDoesNotExist
	}
	return false
}

// IsUnauthorized reports whether err indicates invalid or missing credentials (401).
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsPermissionDenied reports whether err indicates the caller lacks permission (403).
func IsPermissionDenied(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsInvalidArgument reports whether err indicates an invalid argument.
func IsInvalidArgument(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == CodeInvalidParameterValue ||
			(apiErr.Code == "" && apiErr.StatusCode == http.StatusBadRequest)
	}
	return false
}

// IsAlreadyExists reports whether err indicates the resource already exists.
// MLflow reports this as 400 RESOURCE_ALREADY_EXISTS; some proxies answer 409.
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == CodeResourceAlreadyExists || apiErr.StatusCode == http.StatusConflict
	}
	return false
}
