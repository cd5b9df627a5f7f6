package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Kind classifies failures returned by the binding layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindColumnNotVisible
	KindRowNotFound
	KindInvalidArgument
	KindDuplicateRegistration
	KindImmutableLedger
	KindAuthenticationFailed
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindColumnNotVisible:
		return "column not visible"
	case KindRowNotFound:
		return "row not found"
	case KindInvalidArgument:
		return "invalid argument"
	case KindDuplicateRegistration:
		return "duplicate registration"
	case KindImmutableLedger:
		return "immutable ledger"
	case KindAuthenticationFailed:
		return "authentication failed"
	case KindConnection:
		return "connection error"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by managers and bindings.
type Error struct {
	Kind    Kind   // Machine-readable classification
	Table   string // Table the failure relates to, if any
	Column  string // Offending column for KindColumnNotVisible
	ID      int64  // Primary key for KindRowNotFound
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Table != "" {
		msg = e.Table + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks. Only the Kind is compared.
var (
	ErrColumnNotVisible      = &Error{Kind: KindColumnNotVisible}
	ErrRowNotFound           = &Error{Kind: KindRowNotFound}
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrDuplicateRegistration = &Error{Kind: KindDuplicateRegistration}
	ErrImmutableLedger       = &Error{Kind: KindImmutableLedger}
	ErrAuthenticationFailed  = &Error{Kind: KindAuthenticationFailed}
	ErrConnection            = &Error{Kind: KindConnection}
)

func columnNotVisible(table, column string) *Error {
	return &Error{
		Kind:    KindColumnNotVisible,
		Table:   table,
		Column:  column,
		Message: fmt.Sprintf("column %q is not visible", column),
	}
}

func rowNotFound(table string, id int64) *Error {
	return &Error{
		Kind:    KindRowNotFound,
		Table:   table,
		ID:      id,
		Message: "no row with id " + strconv.FormatInt(id, 10),
	}
}

func invalidArgument(table, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Table:   table,
		Message: fmt.Sprintf(format, args...),
	}
}

func immutableLedger(table, op string) *Error {
	return &Error{
		Kind:    KindImmutableLedger,
		Table:   table,
		Message: op + " is not permitted on a ledger",
	}
}

func authenticationFailed(table string) *Error {
	return &Error{
		Kind:    KindAuthenticationFailed,
		Table:   table,
		Message: "invalid credentials",
	}
}

func connectionError(op string, cause error) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: "failed to " + op,
		Cause:   cause,
	}
}

// classify turns transport-level failures into connection errors and leaves
// statement errors (constraint violations, syntax) untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return err
	}
	if isConnectionFailure(err) {
		return connectionError(op, err)
	}
	return err
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return isPostgresConnectError(err)
}
