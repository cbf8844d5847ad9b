package common

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can map it to a user-facing message.
type Code string

const (
	// Chain read path.
	CodeRPCFailed               Code = "RPC_FAILED"
	CodeMalformedRegistryRecord Code = "MALFORMED_REGISTRY_RECORD"

	// Purchase preconditions.
	CodeGameNotRegistered    Code = "GAME_NOT_REGISTERED"
	CodeGameInactive         Code = "GAME_INACTIVE"
	CodeAlreadyOwned         Code = "ALREADY_OWNED"
	CodePaymentTokenMismatch Code = "PAYMENT_TOKEN_MISMATCH"
	CodeSimulationFailed     Code = "SIMULATION_FAILED"
	CodeTransactionFailed    Code = "TRANSACTION_FAILED"

	// Local signer environment.
	CodeWalletNotFound  Code = "WALLET_NOT_FOUND"
	CodeNetworkMismatch Code = "NETWORK_MISMATCH"

	// Session/account shape for ownership queries.
	CodeMissingSession         Code = "MISSING_SESSION"
	CodeUnsupportedAccountType Code = "UNSUPPORTED_ACCOUNT_TYPE"
	CodeInvalidAccount         Code = "INVALID_ACCOUNT"

	// Session refresh.
	CodeNoRefreshToken  Code = "NO_REFRESH_TOKEN"
	CodeTooManyAttempts Code = "TOO_MANY_ATTEMPTS"
	CodeRefreshFailed   Code = "REFRESH_FAILED"
)

// Error is a coded failure. Two Errors match under errors.Is when their codes
// are equal, so the sentinels below can be used as match targets while the
// returned value still carries the operation and the underlying cause.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError wraps err with code. op names the failing operation and may be empty.
func NewError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" when
// err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var (
	ErrRPCFailed               = &Error{Code: CodeRPCFailed}
	ErrMalformedRegistryRecord = &Error{Code: CodeMalformedRegistryRecord}

	ErrGameNotRegistered    = &Error{Code: CodeGameNotRegistered}
	ErrGameInactive         = &Error{Code: CodeGameInactive}
	ErrAlreadyOwned         = &Error{Code: CodeAlreadyOwned}
	ErrPaymentTokenMismatch = &Error{Code: CodePaymentTokenMismatch}
	ErrSimulationFailed     = &Error{Code: CodeSimulationFailed}
	ErrTransactionFailed    = &Error{Code: CodeTransactionFailed}

	ErrWalletNotFound  = &Error{Code: CodeWalletNotFound}
	ErrNetworkMismatch = &Error{Code: CodeNetworkMismatch}

	ErrMissingSession         = &Error{Code: CodeMissingSession}
	ErrUnsupportedAccountType = &Error{Code: CodeUnsupportedAccountType}
	ErrInvalidAccount         = &Error{Code: CodeInvalidAccount}

	ErrNoRefreshToken  = &Error{Code: CodeNoRefreshToken}
	ErrTooManyAttempts = &Error{Code: CodeTooManyAttempts}
	ErrRefreshFailed   = &Error{Code: CodeRefreshFailed}
)

// ErrSessionChanged is the cause of a REFRESH_FAILED whose result was
// dropped because the session was cleared or replaced meanwhile.
var ErrSessionChanged = errors.New("session was cleared or replaced during refresh")

// Message returns a short user-facing explanation for code.
func Message(code Code) string {
	switch code {
	case CodeRPCFailed:
		return "the blockchain node could not be reached, try again"
	case CodeMalformedRegistryRecord:
		return "the game registry returned data this client cannot read"
	case CodeGameNotRegistered:
		return "this game is not registered"
	case CodeGameInactive:
		return "this game is not currently for sale"
	case CodeAlreadyOwned:
		return "you already own this game"
	case CodePaymentTokenMismatch:
		return "this game cannot be paid for with the selected token"
	case CodeSimulationFailed:
		return "the purchase would fail on-chain"
	case CodeTransactionFailed:
		return "the transaction could not be submitted"
	case CodeWalletNotFound:
		return "no wallet is connected"
	case CodeNetworkMismatch:
		return "the wallet is on the wrong network"
	case CodeMissingSession:
		return "please sign in"
	case CodeUnsupportedAccountType:
		return "this account type cannot own games"
	case CodeInvalidAccount:
		return "the account address is invalid"
	case CodeNoRefreshToken, CodeTooManyAttempts, CodeRefreshFailed:
		return "your session has expired, please sign in again"
	default:
		return "unexpected error"
	}
}
