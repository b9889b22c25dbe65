// ABOUTME: Error kinds returned by tracking operations.
// ABOUTME: Wraps transport failures so callers can match with errors.As.

package tracking

import (
	"errors"
	"fmt"

	apierrors "github.com/opendatahub-io/mlflow-tracking-go/internal/errors"
)

// ErrInvalidArgument is wrapped by errors for arguments rejected before any
// request is sent, such as an empty experiment name.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrAlreadySubmitted is returned when a BufferedRun is submitted twice.
var ErrAlreadySubmitted = errors.New("mlflow: run already submitted")

// AlreadyExistsError reports that a resource with Name already exists.
type AlreadyExistsError struct {
	Name string
	Err  error
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("mlflow: %q already exists", e.Name)
}

func (e *AlreadyExistsError) Unwrap() error { return e.Err }

// DoesNotExistError reports that the resource identified by Name was not found.
// Name is the identifier or name the caller asked for.
type DoesNotExistError struct {
	Name string
	Err  error
}

func (e *DoesNotExistError) Error() string {
	return fmt.Sprintf("mlflow: %q does not exist", e.Name)
}

func (e *DoesNotExistError) Unwrap() error { return e.Err }

// BatchLimit names the batch limit a LogBatch call exceeded.
type BatchLimit int

const (
	TooManyMetrics BatchLimit = iota + 1
	TooManyParams
	TooManyTags
	TooManyItems
)

func (l BatchLimit) String() string {
	switch l {
	case TooManyMetrics:
		return "metrics"
	case TooManyParams:
		return "params"
	case TooManyTags:
		return "tags"
	case TooManyItems:
		return "items"
	default:
		return fmt.Sprintf("BatchLimit(%d)", int(l))
	}
}

// Max returns the limit's maximum.
func (l BatchLimit) Max() int {
	switch l {
	case TooManyMetrics:
		return MaxBatchMetrics
	case TooManyParams:
		return MaxBatchParams
	case TooManyTags:
		return MaxBatchTags
	case TooManyItems:
		return MaxBatchItems
	}
	return 0
}

// BatchError is returned when a batch exceeds a server limit.
// Count is the offending count.
type BatchError struct {
	Limit BatchLimit
	Count int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("mlflow: too many %s in batch: %d (max %d)", e.Limit, e.Count, e.Limit.Max())
}

// StorageError wraps any other failure of operation Op: transport errors,
// unexpected server errors, and undecodable responses.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("mlflow: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsAlreadyExists reports whether err is or wraps an *AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var target *AlreadyExistsError
	return errors.As(err, &target)
}

// IsDoesNotExist reports whether err is or wraps a *DoesNotExistError.
func IsDoesNotExist(err error) bool {
	var target *DoesNotExistError
	return errors.As(err, &target)
}

// IsBatchLimit reports whether err is or wraps a *BatchError.
func IsBatchLimit(err error) bool {
	var target *BatchError
	return errors.As(err, &target)
}

// errorMapping selects which server codes an operation translates into
// typed errors. Everything else becomes a *StorageError.
type errorMapping int

const (
	mapNone errorMapping = iota
	mapAlreadyExists
	mapDoesNotExist
)

func wrapError(op string, mapping errorMapping, name string, err error) error {
	switch {
	case mapping == mapAlreadyExists && apierrors.HasCode(err, apierrors.CodeResourceAlreadyExists):
		return &AlreadyExistsError{Name: name, Err: err}
	case mapping == mapDoesNotExist && apierrors.HasCode(err, apierrors.CodeResourceDoesNotExist):
		return &DoesNotExistError{Name: name, Err: err}
	}
	return &StorageError{Op: op, Err: err}
}

func invalidArgument(op, what string) error {
	return &StorageError{Op: op, Err: fmt.Errorf("%w: %s is required", ErrInvalidArgument, what)}
}
