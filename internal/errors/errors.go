// Package errors provides centralized error definitions and error handling
// utilities for the hookflow codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - HookError: errors related to hook registration and lifecycle
//   - HandlerError: errors raised by agents while executing a dispatch
//   - CircuitOpenError: fast-fail errors produced when a circuit rejects work
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewHookError("failed to enable hook", errors.ErrHookNotFound)
//
//	// Semantic error
//	err := errors.NewNotFoundError("hook", "lint-gate")
//
//	// With context wrapping
//	err := errors.NewHandlerError("agent crashed", baseErr).WithAgentID("linter")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrCircuitOpen) { ... }
//
//	// Check for error types
//	var valErr *errors.ValidationError
//	if errors.As(err, &valErr) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry (timeouts,
//     handler failures). Circuit rejections are never retryable.
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Hook-related sentinel errors
var (
	// ErrHookNotFound indicates that a hook could not be found in the store.
	ErrHookNotFound = New("hook not found")
	// ErrHookExists indicates that a hook with the same ID is already registered.
	ErrHookExists = New("hook already registered")
	// ErrHookDisabled indicates that a hook is disabled and cannot be dispatched.
	ErrHookDisabled = New("hook is disabled")
	// ErrDependencyMissing indicates that a hook declares an unregistered dependency.
	ErrDependencyMissing = New("hook dependency not registered")
	// ErrDependencyCycle indicates a circular dependency between hooks.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrHasDependents indicates that other hooks still depend on this hook.
	ErrHasDependents = New("hook has registered dependents")
)

// Dispatch-related sentinel errors
var (
	// ErrCircuitOpen indicates that a circuit breaker rejected the dispatch.
	ErrCircuitOpen = New("circuit breaker is open")
	// ErrAgentNotFound indicates that a participant could not be resolved.
	ErrAgentNotFound = New("agent not found")
	// ErrNoParticipants indicates that a strategy has no participants to run.
	ErrNoParticipants = New("strategy has no participants")
	// ErrConsensusNotReached indicates that agreement fell below the threshold.
	ErrConsensusNotReached = New("consensus not reached")
	// ErrUnknownStrategy indicates an unrecognized coordination strategy kind.
	ErrUnknownStrategy = New("unknown coordination strategy")
)

// Bus-related sentinel errors
var (
	// ErrQueueFull indicates that the event queue shed an event under load.
	ErrQueueFull = New("event queue full")
	// ErrBusStopped indicates that the bus is not accepting events.
	ErrBusStopped = New("event bus stopped")
	// ErrSubscriptionNotFound indicates that a subscription ID is unknown.
	ErrSubscriptionNotFound = New("subscription not found")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// KernelError is the base interface for all hookflow errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type KernelError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// HookError represents errors related to hook registration and lifecycle.
//
// Example:
//
//	err := errors.NewHookError("failed to disable hook", errors.ErrHookNotFound)
//	err = err.WithHookID("lint-gate")
//	fmt.Println(err) // "hook error [hook=lint-gate]: failed to disable hook: hook not found"
type HookError struct {
	baseError
	HookID string
}

// NewHookError creates a new HookError.
func NewHookError(message string, cause error) *HookError {
	return &HookError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithHookID adds a hook ID to the error context.
func (e *HookError) WithHookID(id string) *HookError {
	e.HookID = id
	return e
}

// WithSeverity sets the error severity.
func (e *HookError) WithSeverity(s Severity) *HookError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *HookError) Error() string {
	prefix := "hook error"
	if e.HookID != "" {
		prefix = fmt.Sprintf("hook error [hook=%s]", e.HookID)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *HookError) Is(target error) bool {
	if _, ok := target.(*HookError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// HandlerError represents a failure raised by an agent while executing a
// dispatched event. Handler failures are captured as failed results, count
// toward the circuit breaker window, and are retryable by default.
//
// Example:
//
//	err := errors.NewHandlerError("agent returned malformed payload", cause)
//	err = err.WithHookID("lint-gate").WithAgentID("linter")
type HandlerError struct {
	baseError
	HookID      string
	AgentID     string
	ExecutionID string
}

// NewHandlerError creates a new HandlerError.
func NewHandlerError(message string, cause error) *HandlerError {
	return &HandlerError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: false,
		},
	}
}

// WithHookID adds a hook ID to the error context.
func (e *HandlerError) WithHookID(id string) *HandlerError {
	e.HookID = id
	return e
}

// WithAgentID adds the failing agent's ID to the error context.
func (e *HandlerError) WithAgentID(id string) *HandlerError {
	e.AgentID = id
	return e
}

// WithExecutionID adds the dispatch execution ID to the error context.
func (e *HandlerError) WithExecutionID(id string) *HandlerError {
	e.ExecutionID = id
	return e
}

// WithRetryable sets whether the error is retryable (default true).
func (e *HandlerError) WithRetryable(r bool) *HandlerError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *HandlerError) Error() string {
	var parts []string
	if e.HookID != "" {
		parts = append(parts, fmt.Sprintf("hook=%s", e.HookID))
	}
	if e.AgentID != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.AgentID))
	}
	if e.ExecutionID != "" {
		parts = append(parts, fmt.Sprintf("execution=%s", e.ExecutionID))
	}

	prefix := "handler error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("handler error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *HandlerError) Is(target error) bool {
	if _, ok := target.(*HandlerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CircuitOpenError represents a dispatch rejected by an open circuit breaker.
// The protected agents were never invoked. Circuit rejections are never
// retryable; callers wait for the breaker's reset timeout instead.
//
// Example:
//
//	err := errors.NewCircuitOpenError("lint-gate", nextRetry)
//	fmt.Println(err) // "circuit open [hook=lint-gate]: retry after 2026-01-02T15:04:05Z"
type CircuitOpenError struct {
	baseError
	HookID     string
	RetryAfter time.Time
}

// NewCircuitOpenError creates a new CircuitOpenError.
func NewCircuitOpenError(hookID string, retryAfter time.Time) *CircuitOpenError {
	return &CircuitOpenError{
		baseError: baseError{
			message:    "dispatch rejected",
			cause:      ErrCircuitOpen,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		HookID:     hookID,
		RetryAfter: retryAfter,
	}
}

// Error returns the formatted error message.
func (e *CircuitOpenError) Error() string {
	prefix := "circuit open"
	if e.HookID != "" {
		prefix = fmt.Sprintf("circuit open [hook=%s]", e.HookID)
	}
	if e.RetryAfter.IsZero() {
		return prefix
	}
	return fmt.Sprintf("%s: retry after %s", prefix, e.RetryAfter.Format(time.RFC3339))
}

// Is checks if this error matches the target.
func (e *CircuitOpenError) Is(target error) bool {
	if _, ok := target.(*CircuitOpenError); ok {
		return true
	}
	if errors.Is(target, ErrCircuitOpen) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("hook", "lint-gate")
//	fmt.Println(err) // "hook 'lint-gate' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("hook", "lint-gate")
//	fmt.Println(err) // "hook 'lint-gate' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state. Validation errors are
// raised at registration time only; dispatch-time failures surface as
// HandlerError or TimeoutError instead.
//
// Example:
//
//	err := errors.NewValidationError("hook ID cannot be empty")
//	err = err.WithField("id").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for agent linter", 5*time.Second)
//	fmt.Println(err) // "timeout error: waiting for agent linter (timeout: 5s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing KernelError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout
//
// Circuit rejections report false even though the underlying condition is
// transient: retrying before the breaker's reset timeout cannot succeed.
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Circuit rejections always win over wrapped retryable causes.
	var open *CircuitOpenError
	if As(err, &open) {
		return false
	}

	var kerr KernelError
	if As(err, &kerr) {
		return kerr.IsRetryable()
	}

	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing KernelError with IsUserFacing() returning true
//   - Semantic errors (NotFoundError, AlreadyExistsError, ValidationError, TimeoutError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var kerr KernelError
	if As(err, &kerr) {
		return kerr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var notFound *NotFoundError
	var alreadyExists *AlreadyExistsError
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &notFound) || As(err, &alreadyExists) ||
		As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement KernelError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    alertOnCall(err)
//	case errors.SeverityError:
//	    log.Error("error occurred", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var kerr KernelError
	if As(err, &kerr) {
		return kerr.Severity()
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// IsCircuitOpen returns true if the error is (or wraps) a circuit rejection.
func IsCircuitOpen(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrCircuitOpen)
}

// IsValidation returns true if the error is (or wraps) a validation failure.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var validation *ValidationError
	return As(err, &validation) || Is(err, ErrInvalidInput)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to process event")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to dispatch hook %s", hookID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
