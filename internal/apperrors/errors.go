package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientFunds indicates a debit or transfer would overdraw an account that enforces sufficiency.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidStateTransition indicates a transaction status change that the lifecycle does not allow.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrGateway indicates the external payment gateway rejected or failed a request.
var ErrGateway = errors.New("payment gateway error")

// ErrInternal indicates an unexpected fault.
var ErrInternal = errors.New("internal error")

// AppError carries an HTTP-ish status code alongside an infrastructure failure.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError wraps err with a status code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// GatewayError is returned by payment gateway adapters. Transient marks failures
// (timeouts, connectivity) that are worth re-dispatching.
type GatewayError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrGateway) match any GatewayError.
func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// NewGatewayError builds a GatewayError for the named gateway operation.
func NewGatewayError(op string, err error, transient bool) *GatewayError {
	return &GatewayError{Op: op, Err: err, Transient: transient}
}

// IsTerminal reports whether err is a final outcome that retrying cannot change.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return !gwErr.Transient
	}
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidStateTransition)
}

// IsRetryable reports whether err may succeed if the same work is attempted again.
func IsRetryable(err error) bool {
	return err != nil && !IsTerminal(err)
}
