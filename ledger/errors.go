package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable discriminant of a domain execution error.
// Codes and descriptions are recorded in the execution history and must never change
type ErrorCode uint8

const (
	// WalletAlreadyExists can be emitted by CreateWallet
	WalletAlreadyExists = ErrorCode(iota)
	// SenderNotFound can be emitted by Transfer
	SenderNotFound
	// ReceiverNotFound can be emitted by Transfer or Issue
	ReceiverNotFound
	// InsufficientCurrencyAmount can be emitted by Transfer
	InsufficientCurrencyAmount
	// BalanceOverflow is emitted when a balance or an amount sum does not fit into uint64,
	// or a debit would take a balance below zero
	BalanceOverflow
	// OutsideTimeWindow is emitted by Transfer only when the strict time window is enabled
	OutsideTimeWindow
)

var errorDescriptions = map[ErrorCode]string{
	WalletAlreadyExists:        "Wallet already exists",
	SenderNotFound:             "Sender doesn't exist",
	ReceiverNotFound:           "Receiver doesn't exist",
	InsufficientCurrencyAmount: "Insufficient currency amount",
	BalanceOverflow:            "Balance overflow",
	OutsideTimeWindow:          "Transfer outside of its time window",
}

func (c ErrorCode) Valid() bool {
	_, ok := errorDescriptions[c]
	return ok
}

func (c ErrorCode) String() string {
	if d, ok := errorDescriptions[c]; ok {
		return d
	}
	return fmt.Sprintf("unknown error code %d", uint8(c))
}

// ExecutionError is returned by operation execution. Its effects must be discarded by the caller
type ExecutionError struct {
	Code        ErrorCode
	Description string
}

func NewExecutionError(code ErrorCode) *ExecutionError {
	return &ExecutionError{
		Code:        code,
		Description: code.String(),
	}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error %d: %s", e.Code, e.Description)
}

func (e *ExecutionError) Is(target error) bool {
	var t *ExecutionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// ErrorCodeOf extracts domain error code from the error chain
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var e *ExecutionError
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
