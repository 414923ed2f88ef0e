// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataUnavailable        = errors.New("market data unavailable")
	ErrInsufficientHistory    = errors.New("insufficient price history")
	ErrInvalidTransaction     = errors.New("invalid transaction")
	ErrPersistenceFailure     = errors.New("persistence failure")
	ErrPositionNotFound       = errors.New("position not found")
	ErrSymbolNotFound         = errors.New("symbol not found")
	ErrRecommendationNotFound = errors.New("recommendation not found")
	ErrConfigInvalid          = errors.New("invalid configuration")
)

// DataError represents a market-data related error for one symbol.
type DataError struct {
	Symbol  string
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s]: %s: %v", e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s]: %s", e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrDataUnavailable
}

// NewDataError creates a new DataError.
func NewDataError(symbol, message string, err error) *DataError {
	return &DataError{Symbol: symbol, Message: message, Err: err}
}

// TransactionError represents a rejected ledger transaction. The ledger is
// left untouched when one of these is returned.
type TransactionError struct {
	Symbol string
	Action string
	Reason string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("invalid transaction [%s %s]: %s", e.Action, e.Symbol, e.Reason)
}

func (e *TransactionError) Unwrap() error {
	return ErrInvalidTransaction
}

// NewTransactionError creates a new TransactionError.
func NewTransactionError(symbol, action, reason string) *TransactionError {
	return &TransactionError{Symbol: symbol, Action: action, Reason: reason}
}

// PersistenceError represents an underlying store failure. Ledger state is
// guaranteed to be as it was before the attempted write.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return ErrPersistenceFailure
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(operation string, err error) *PersistenceError {
	return &PersistenceError{Operation: operation, Err: err}
}

// ValidationError represents a configuration or input validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
