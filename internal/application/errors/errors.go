// Package apperrors defines application-level error types.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// ErrNodeNotFound is returned when a coordination store path does not exist.
var ErrNodeNotFound = errors.New("coordination node not found")

// ErrProfileLocked is returned when editing a profile marked locked.
var ErrProfileLocked = errors.New("profile is locked")

// ErrVersionNotFound is returned when the profile store has no such version.
var ErrVersionNotFound = errors.New("profile version not found")

// ErrRunNotFound is returned when no reconciliation run has the given ID.
var ErrRunNotFound = errors.New("reconcile run not found")

// RepositoryLoadError indicates a repository URI could not be fetched or parsed.
type RepositoryLoadError struct {
	Cause error
	URI   string
}

func (e *RepositoryLoadError) Error() string {
	return fmt.Sprintf("failed to load repository %s: %v", e.URI, e.Cause)
}

func (e *RepositoryLoadError) Unwrap() error {
	return e.Cause
}

// NewRepositoryLoadError creates a new repository load error.
func NewRepositoryLoadError(uri string, cause error) *RepositoryLoadError {
	return &RepositoryLoadError{
		URI:   uri,
		Cause: cause,
	}
}

// FeatureNotFoundError indicates no resolved repository declares a feature.
type FeatureNotFoundError struct {
	Reference values.FeatureReference
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("feature not found: %s", e.Reference.String())
}

// NewFeatureNotFoundError creates a new feature not found error.
func NewFeatureNotFoundError(ref values.FeatureReference) *FeatureNotFoundError {
	return &FeatureNotFoundError{Reference: ref}
}

// CoordinationUnavailableError indicates the coordination store cannot be
// reached. It is the only error a reconciliation pass retries.
type CoordinationUnavailableError struct {
	Cause error
	Op    string
}

func (e *CoordinationUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("coordination store unavailable (%s): %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("coordination store unavailable (%s)", e.Op)
}

func (e *CoordinationUnavailableError) Unwrap() error {
	return e.Cause
}

// NewCoordinationUnavailableError creates a new coordination unavailable error.
func NewCoordinationUnavailableError(op string, cause error) *CoordinationUnavailableError {
	return &CoordinationUnavailableError{
		Op:    op,
		Cause: cause,
	}
}

// UnsupportedOperationError rejects direct feature and repository changes on
// a managed container. Hint tells the caller how to make the change instead.
type UnsupportedOperationError struct {
	Operation string
	Hint      string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported: the container is managed by its profiles, please use %s instead", e.Operation, e.Hint)
}

// NewUnsupportedOperationError creates a new unsupported operation error.
func NewUnsupportedOperationError(operation, hint string) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		Operation: operation,
		Hint:      hint,
	}
}

// IsCoordinationUnavailable reports whether err is, or wraps, a
// CoordinationUnavailableError.
func IsCoordinationUnavailable(err error) bool {
	var target *CoordinationUnavailableError
	return errors.As(err, &target)
}

// IsUnsupportedOperation reports whether err is, or wraps, an
// UnsupportedOperationError.
func IsUnsupportedOperation(err error) bool {
	var target *UnsupportedOperationError
	return errors.As(err, &target)
}

// IsRepositoryLoad reports whether err is, or wraps, a RepositoryLoadError.
func IsRepositoryLoad(err error) bool {
	var target *RepositoryLoadError
	return errors.As(err, &target)
}
