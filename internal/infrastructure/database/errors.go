package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Error kinds for database operations.
// Use errors.Is() to check for these errors in calling code; the concrete
// value is usually an *Error carrying the engine's result code.
var (
	// ErrOpen is returned when the engine could not initialise a handle.
	ErrOpen = errors.New("database: open failed")

	// ErrExec is returned when executing or stepping a statement fails.
	ErrExec = errors.New("database: execution failed")

	// ErrBind is returned when a value cannot be written into a parameter slot.
	ErrBind = errors.New("database: binding failed")

	// ErrDecode is returned when a column value cannot be converted to the
	// requested Go type, or the column does not exist.
	ErrDecode = errors.New("database: decoding failed")

	// ErrNoRows is returned when a single-row fetch produced no rows.
	ErrNoRows = errors.New("database: no rows")

	// ErrMigration is returned when a migration step fails or has drifted.
	ErrMigration = errors.New("database: migration failed")

	// ErrClosed is returned when a connection or statement is used after Close.
	ErrClosed = errors.New("database: already closed")
)

// Error describes a failed engine call.
//
// Code and ExtendedCode are the SQLite primary and extended result codes
// when the failure came from the engine, and zero otherwise.
type Error struct {
	Kind         error
	Op           string
	Code         int
	ExtendedCode int
	Message      string
	Err          error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("database: %s failed with code %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("database: %s failed: %s", e.Op, e.Message)
}

// Unwrap exposes both the error kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// engineError converts an error returned by the driver into an *Error of
// the given kind. A nil err yields nil.
func engineError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	e := &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}

	// The driver returns sqlite3.Error by value from most calls and by
	// pointer from the backup API.
	var se sqlite3.Error
	var sep *sqlite3.Error
	switch {
	case errors.As(err, &se):
		e.Code = int(se.Code)
		e.ExtendedCode = int(se.ExtendedCode)
	case errors.As(err, &sep) && sep != nil:
		e.Code = int(sep.Code)
		e.ExtendedCode = int(sep.ExtendedCode)
	}
	return e
}

// newError builds an *Error that did not originate from the engine.
func newError(kind error, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Code returns the SQLite primary result code carried by err, or 0.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
