package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess  Code = 0
	CodeInternal Code = 1
	CodeUsage    Code = 2

	CodeUserRejected          Code = 10
	CodeNoWallet              Code = 11
	CodeNoAccounts            Code = 12
	CodeWrongNetwork          Code = 13
	CodeChainSwitchFailed     Code = 14
	CodeContractNotDeployed   Code = 15
	CodeInterfaceMismatch     Code = 16
	CodeInsufficientBalance   Code = 17
	CodeInsufficientLiquidity Code = 18
	CodeTransactionReverted   Code = 19
	CodeUnavailable           Code = 20
	CodeBusy                  Code = 21
)

// Error is a typed CLI error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if cliErr, ok := As(err); ok {
		return cliErr.Code == code
	}
	return false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}

// String returns the wire name for a code, used in envelopes and logs.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "ok"
	case CodeUsage:
		return "usage"
	case CodeUserRejected:
		return "user_rejected"
	case CodeNoWallet:
		return "no_wallet"
	case CodeNoAccounts:
		return "no_accounts"
	case CodeWrongNetwork:
		return "wrong_network"
	case CodeChainSwitchFailed:
		return "chain_switch_failed"
	case CodeContractNotDeployed:
		return "contract_not_deployed"
	case CodeInterfaceMismatch:
		return "interface_mismatch"
	case CodeInsufficientBalance:
		return "insufficient_balance"
	case CodeInsufficientLiquidity:
		return "insufficient_liquidity"
	case CodeTransactionReverted:
		return "transaction_reverted"
	case CodeUnavailable:
		return "unavailable"
	case CodeBusy:
		return "busy"
	default:
		return "internal"
	}
}
