package domain

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown                    Code = "UNKNOWN"
	CodeInvalidArgument            Code = "INVALID_ARGUMENT"
	CodeNotFound                   Code = "NOT_FOUND"
	CodeDuplicateActiveNegotiation Code = "DUPLICATE_ACTIVE_NEGOTIATION"
	CodeInsufficientDepositFunds   Code = "INSUFFICIENT_DEPOSIT_FUNDS"
	CodeInvalidTransition          Code = "INVALID_TRANSITION"
	CodeExpiredSession             Code = "EXPIRED_SESSION"
	CodeNotAuthorized              Code = "NOT_AUTHORIZED"
	CodeContactLeakDetected        Code = "CONTACT_LEAK_DETECTED"
	CodeNDARequired                Code = "NDA_REQUIRED"
	CodeSettlementFailed           Code = "SETTLEMENT_FAILED"
)

// Error is the domain error type. Two errors are equal under errors.Is when
// their codes match, so callers compare against the Err* sentinels.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrInvalidArgument            = New(CodeInvalidArgument, "invalid argument")
	ErrNotFound                   = New(CodeNotFound, "not found")
	ErrDuplicateActiveNegotiation = New(CodeDuplicateActiveNegotiation, "an active negotiation already exists for this project and investor")
	ErrInsufficientDepositFunds   = New(CodeInsufficientDepositFunds, "insufficient funds for deposit")
	ErrInvalidTransition          = New(CodeInvalidTransition, "invalid session transition")
	ErrExpiredSession             = New(CodeExpiredSession, "negotiation window closed")
	ErrNotAuthorized              = New(CodeNotAuthorized, "not authorized")
	ErrContactLeakDetected        = New(CodeContactLeakDetected, "contact exchange not permitted")
	ErrNDARequired                = New(CodeNDARequired, "nda signature required")
	ErrSettlementFailed           = New(CodeSettlementFailed, "deposit settlement failed")
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates a domain error carrying context for rendering.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code of the first domain error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

var userMessages = map[Code]string{
	CodeInvalidArgument:            "the request is invalid",
	CodeNotFound:                   "not found",
	CodeDuplicateActiveNegotiation: "you already have an active negotiation on this project",
	CodeInsufficientDepositFunds:   "insufficient wallet balance for the deposit and fee",
	CodeInvalidTransition:          "this negotiation can no longer be changed",
	CodeExpiredSession:             "negotiation window closed",
	CodeNotAuthorized:              "you are not allowed to perform this action",
	CodeContactLeakDetected:        "message not sent: contact exchange not permitted",
	CodeNDARequired:                "sign the NDA to view confidential project information",
	CodeSettlementFailed:           "deposit settlement is delayed and has been escalated",
}

// UserMessage returns the user-facing text for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[CodeOf(err)]; ok {
		return msg
	}
	return "something went wrong"
}
