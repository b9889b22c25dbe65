package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "with code",
			err: &APIError{
				StatusCode: 404,
				Code:       CodeResourceDoesNotExist,
				Message:    "Could not find experiment with ID 7",
			},
			expected: "mlflow: RESOURCE_DOES_NOT_EXIST: Could not find experiment with ID 7 (status 404)",
		},
		{
			name: "unrecognized code",
			err: &APIError{
				StatusCode: 429,
				Code:       "REQUEST_LIMIT_EXCEEDED",
				Message:    "slow down",
			},
			expected: "mlflow: REQUEST_LIMIT_EXCEEDED: slow down (status 429)",
		},
		{
			name: "raw body",
			err: &APIError{
				StatusCode: 502,
				Body:       "<html>bad gateway</html>",
			},
			expected: "mlflow: unexpected error response (status 502): <html>bad gateway</html>",
		},
		{
			name: "message only",
			err: &APIError{
				StatusCode: 500,
				Message:    "Internal server error",
			},
			expected: "mlflow: Internal server error (status 500)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_ImplementsError(t *testing.T) {
	var _ error = &APIError{}
	var _ error = &DecodeError{}
}

func TestErrorCode_Known(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{CodeResourceAlreadyExists, true},
		{CodeResourceDoesNotExist, true},
		{CodeInvalidParameterValue, true},
		{"TEMPORARILY_UNAVAILABLE", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.Known(); got != tt.want {
				t.Errorf("Known() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unknown(t *testing.T) {
	if !(&APIError{StatusCode: 500, Body: "oops"}).Unknown() {
		t.Error("expected raw-body error to be unknown")
	}
	if (&APIError{StatusCode: 400, Code: "WHATEVER", Message: "m"}).Unknown() {
		t.Error("expected parsed error to be known")
	}
}

func TestDecodeError_Unwrap(t *testing.T) {
	err := fmt.Errorf("get run: %w", &DecodeError{Body: "{", Err: io.ErrUnexpectedEOF})

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatal("expected errors.As to find *DecodeError")
	}
	if decodeErr.Body != "{" {
		t.Errorf("Body = %q, want %q", decodeErr.Body, "{")
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "APIError with 404",
			err:      &APIError{StatusCode: http.StatusNotFound, Message: "not found"},
			expected: true,
		},
		{
			name:     "code without 404 status",
			err:      &APIError{StatusCode: http.StatusBadRequest, Code: CodeResourceDoesNotExist},
			expected: true,
		},
		{
			name:     "APIError with 500",
			err:      &APIError{StatusCode: http.StatusInternalServerError, Message: "error"},
			expected: false,
		},
		{
			name:     "wrapped APIError with 404",
			err:      fmt.Errorf("wrapped: %w", &APIError{StatusCode: http.StatusNotFound}),
			expected: true,
		},
		{
			name:     "non-API error",
			err:      errors.New("boom"),
			expected: false,
		},
		{
			name:     "nil",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.expected {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsAlreadyExists(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "400 with code",
			err:      &APIError{StatusCode: http.StatusBadRequest, Code: CodeResourceAlreadyExists},
			expected: true,
		},
		{
			name:     "409 without code",
			err:      &APIError{StatusCode: http.StatusConflict},
			expected: true,
		},
		{
			name:     "400 with other code",
			err:      &APIError{StatusCode: http.StatusBadRequest, Code: CodeInvalidParameterValue},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAlreadyExists(tt.err); got != tt.expected {
				t.Errorf("IsAlreadyExists() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsInvalidArgument(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "invalid parameter code",
			err:      &APIError{StatusCode: http.StatusBadRequest, Code: CodeInvalidParameterValue},
			expected: true,
		},
		{
			name:     "bare 400",
			err:      &APIError{StatusCode: http.StatusBadRequest, Body: "bad"},
			expected: true,
		},
		{
			name:     "already exists is not invalid argument",
			err:      &APIError{StatusCode: http.StatusBadRequest, Code: CodeResourceAlreadyExists},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidArgument(tt.err); got != tt.expected {
				t.Errorf("IsInvalidArgument() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	unauthorized := &APIError{StatusCode: http.StatusUnauthorized}
	forbidden := &APIError{StatusCode: http.StatusForbidden}

	if !IsUnauthorized(unauthorized) || IsUnauthorized(forbidden) {
		t.Error("IsUnauthorized mismatch")
	}
	if !IsPermissionDenied(forbidden) || IsPermissionDenied(unauthorized) {
		t.Error("IsPermissionDenied mismatch")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", &APIError{StatusCode: 503, Code: "TEMPORARILY_UNAVAILABLE"})

	if !HasCode(err, "TEMPORARILY_UNAVAILABLE") {
		t.Error("expected HasCode to match the verbatim code")
	}
	if HasCode(err, CodeResourceDoesNotExist) {
		t.Error("expected HasCode to reject a different code")
	}
	if HasCode(errors.New("plain"), CodeResourceDoesNotExist) {
		t.Error("expected HasCode to be false for non-API errors")
	}
}
