package mlflow

import (
	"errors"

	internalerrors "github.com/opendatahub-io/mlflow-tracking-go/internal/errors"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

// APIError represents an error response from the MLflow API.
type APIError = internalerrors.APIError

// ErrorCode is the machine-readable error_code of an API error.
type ErrorCode = internalerrors.ErrorCode

// Error codes the SDK interprets.
const (
	CodeResourceAlreadyExists = internalerrors.CodeResourceAlreadyExists
	CodeResourceDoesNotExist  = internalerrors.CodeResourceDoesNotExist
	CodeInvalidParameterValue = internalerrors.CodeInvalidParameterValue
)

// DecodeError reports a response body that could not be decoded.
type DecodeError = internalerrors.DecodeError

// Tracking error types, re-exported for callers that only import mlflow.
type (
	AlreadyExistsError = tracking.AlreadyExistsError
	DoesNotExistError  = tracking.DoesNotExistError
	BatchError         = tracking.BatchError
	StorageError       = tracking.StorageError
)

// IsNotFound reports whether err indicates a resource was not found (404).
func IsNotFound(err error) bool {
	return internalerrors.IsNotFound(err) || tracking.IsDoesNotExist(err)
}

// IsUnauthorized reports whether err indicates invalid or missing credentials (401).
func IsUnauthorized(err error) bool {
	return internalerrors.IsUnauthorized(err)
}

// IsPermissionDenied reports whether err indicates the caller lacks permission (403).
func IsPermissionDenied(err error) bool {
	return internalerrors.IsPermissionDenied(err)
}

// IsInvalidArgument reports whether err indicates an invalid argument,
// either rejected by the server or caught before sending.
func IsInvalidArgument(err error) bool {
	return internalerrors.IsInvalidArgument(err) ||
		tracking.IsBatchLimit(err) ||
		errors.Is(err, tracking.ErrInvalidArgument)
}

// IsAlreadyExists reports whether err indicates the resource already exists.
func IsAlreadyExists(err error) bool {
	return internalerrors.IsAlreadyExists(err) || tracking.IsAlreadyExists(err)
}

// IsDoesNotExist reports whether err is or wraps a *DoesNotExistError.
func IsDoesNotExist(err error) bool {
	return tracking.IsDoesNotExist(err)
}

// IsBatchLimit reports whether err is or wraps a *BatchError.
func IsBatchLimit(err error) bool {
	return tracking.IsBatchLimit(err)
}
