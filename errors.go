package upsbridge

import (
	"errors"
	"fmt"
)

// Error represents a structured bridge error with context: which
// operation failed, which job or OID catalog entry it concerned, and a
// high-level category suitable for programmatic matching via IsCode.
type Error struct {
	Op           string    // Operation that failed (e.g. "Enqueue", "Tick", "SNMPDecode")
	JobKind      string    // Descriptor/job name (empty if not applicable)
	CatalogIndex int       // OID catalog index (-1 if not applicable)
	Code         ErrorCode // High-level error category
	Msg          string    // Human-readable message
	Inner        error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.JobKind != "" {
		parts = append(parts, fmt.Sprintf("job=%s", e.JobKind))
	}
	if e.CatalogIndex >= 0 {
		parts = append(parts, fmt.Sprintf("oid_index=%d", e.CatalogIndex))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("upsbridge: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("upsbridge: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Inner }

// Is provides errors.Is support comparing by Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents high-level error categories.
type ErrorCode string

const (
	ErrCodeDisabled            ErrorCode = "engine disabled"
	ErrCodeBadParam            ErrorCode = "invalid request descriptor"
	ErrCodeQueueFull           ErrorCode = "job queue full"
	ErrCodeTxStartFail         ErrorCode = "tx start failed"
	ErrCodeTxTimeout           ErrorCode = "tx timeout"
	ErrCodeRxTimeout           ErrorCode = "rx timeout"
	ErrCodeRxCapBeforeEnding   ErrorCode = "rx capacity reached before ending found"
	ErrCodeParserReject        ErrorCode = "parser rejected response"
	ErrCodeBootstrapMismatch   ErrorCode = "bootstrap heartbeat mismatch"
	ErrCodeBootstrapSanityFail ErrorCode = "bootstrap sanity check failed"
	ErrCodeSNMPDecodeFail      ErrorCode = "snmp decode failed"
	ErrCodeSNMPUnknownOID      ErrorCode = "snmp oid not found"
	ErrCodeSNMPEncodeOverflow  ErrorCode = "snmp response exceeds buffer capacity"
	ErrCodeWifiStartFail       ErrorCode = "wifi start failed"
	ErrCodeConfigLoad          ErrorCode = "config load failed"
	ErrCodeInternal            ErrorCode = "internal error"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, CatalogIndex: -1, Code: code, Msg: msg}
}

// NewJobError creates a job-scoped structured error.
func NewJobError(op, jobKind string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, JobKind: jobKind, CatalogIndex: -1, Code: code, Msg: msg}
}

// NewOIDError creates a catalog-index-scoped structured error.
func NewOIDError(op string, catalogIndex int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, CatalogIndex: catalogIndex, Code: code, Msg: msg}
}

// WrapError wraps an existing error with bridge context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ue, ok := inner.(*Error); ok {
		return &Error{Op: op, JobKind: ue.JobKind, CatalogIndex: ue.CatalogIndex, Code: ue.Code, Msg: ue.Msg, Inner: ue.Inner}
	}
	return &Error{Op: op, CatalogIndex: -1, Code: ErrCodeInternal, Msg: inner.Error(), Inner: inner}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
