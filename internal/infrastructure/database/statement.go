package database

import (
	"database/sql/driver"
	"io"
	"time"

	"github.com/mattn/go-sqlite3"
)

// State is the position of a statement in its execution cycle.
type State int

// Statement states.
//
//	Prepared --bind--> Bound --step--> RowAvailable --step--> ... --> Done
//	any --engine error--> Failed
//
// Reset returns a statement to Bound (or Prepared when nothing is bound)
// keeping its bindings; ClearBindings returns it to Prepared.
const (
	StatePrepared State = iota
	StateBound
	StateRowAvailable
	StateDone
	StateFailed
)

func (st State) String() string {
	switch st {
	case StatePrepared:
		return "prepared"
	case StateBound:
		return "bound"
	case StateRowAvailable:
		return "row available"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Statement is a prepared query owned by the Connection it was prepared on.
//
// Parameter indexes are 1-based, column indexes are 0-based. A Statement may
// be stepped through many rows, and reset and rebound for reuse. Unbound
// parameters are NULL. Close finalizes the statement; closing the parent
// Connection finalizes it too.
type Statement struct {
	conn  *Connection
	raw   *sqlite3.SQLiteStmt
	query string

	params []driver.Value
	bound  bool

	// rows is the cursor of the current execution pass, nil between passes.
	rows      driver.Rows
	columns   []string
	declTypes []string
	row       []driver.Value

	state  State
	closed bool
}

func newStatement(c *Connection, raw *sqlite3.SQLiteStmt, query string) *Statement {
	return &Statement{
		conn:   c,
		raw:    raw,
		query:  query,
		params: make([]driver.Value, raw.NumInput()),
		state:  StatePrepared,
	}
}

// SQL returns the text the statement was prepared from.
func (s *Statement) SQL() string { return s.query }

// State returns the current execution state.
func (s *Statement) State() State { return s.state }

// ParamCount returns the number of parameter slots declared by the query.
func (s *Statement) ParamCount() int { return len(s.params) }

// setParam stores a driver value in the 1-based slot index.
func (s *Statement) setParam(index int, v driver.Value) error {
	if s.closed {
		return ErrClosed
	}
	if index < 1 || index > len(s.params) {
		return newError(ErrBind, "bind", "parameter index %d out of range, statement has %d", index, len(s.params))
	}

	// Rebinding mid-pass starts a new pass.
	if s.rows != nil {
		s.closeCursor() //nolint:errcheck // Reset errors repeat the last step's failure
	}

	s.params[index-1] = v
	s.bound = true
	s.state = StateBound
	return nil
}

// WithBindings clears all bindings and binds v starting at slot 1.
//
//	stmt.WithBindings(database.NewTuple2("key", "value"))
func (s *Statement) WithBindings(v any) (*Statement, error) {
	if err := s.ClearBindings(); err != nil {
		return s, err
	}
	if _, err := bindValue(s, 1, v); err != nil {
		return s, err
	}
	return s, nil
}

// ClearBindings resets the statement and sets every parameter to NULL.
func (s *Statement) ClearBindings() error {
	if s.closed {
		return ErrClosed
	}
	s.closeCursor() //nolint:errcheck // Reset errors repeat the last step's failure
	for i := range s.params {
		s.params[i] = nil
	}
	s.bound = false
	s.state = StatePrepared
	return nil
}

// Reset ends the current execution pass, keeping bindings.
func (s *Statement) Reset() error {
	if s.closed {
		return ErrClosed
	}
	err := s.closeCursor()
	if s.state == StateFailed {
		// The engine reports the failure again on reset.
		err = nil
	}
	if s.bound {
		s.state = StateBound
	} else {
		s.state = StatePrepared
	}
	if err != nil {
		return engineError(ErrExec, "reset", err)
	}
	return nil
}

// closeCursor closes the active cursor, which resets the engine statement.
func (s *Statement) closeCursor() error {
	if s.rows == nil {
		return nil
	}
	err := s.rows.Close()
	s.rows = nil
	s.columns = nil
	s.declTypes = nil
	s.row = nil
	return err
}

// restart begins a fresh execution pass.
func (s *Statement) restart() error {
	if s.closed {
		return ErrClosed
	}
	if s.rows != nil || s.state == StateFailed || s.state == StateDone {
		return s.Reset()
	}
	return nil
}

// Step advances to the next row. It returns true when a row is available
// and false when the statement is done.
func (s *Statement) Step() (bool, error) {
	if s.closed {
		return false, ErrClosed
	}

	switch s.state {
	case StateFailed:
		return false, newError(ErrExec, "step", "statement failed, reset before stepping again")
	case StateDone:
		return false, nil
	}

	if s.rows == nil {
		rows, err := s.raw.Query(s.params)
		if err != nil {
			s.state = StateFailed
			return false, engineError(ErrExec, "step", err)
		}
		s.rows = rows
		s.columns = rows.Columns()
		if sr, ok := rows.(*sqlite3.SQLiteRows); ok {
			s.declTypes = sr.DeclTypes()
		}
		s.row = make([]driver.Value, len(s.columns))
	}

	if err := s.rows.Next(s.row); err != nil {
		if err == io.EOF {
			s.state = StateDone
			return false, nil
		}
		s.state = StateFailed
		return false, engineError(ErrExec, "step", err)
	}

	s.state = StateRowAvailable
	return true, nil
}

// ColumnCount returns the number of columns in the current pass's rows.
// It is zero before the first step.
func (s *Statement) ColumnCount() int {
	return len(s.columns)
}

// ColumnName returns the name of column index.
func (s *Statement) ColumnName(index int) (string, error) {
	if index < 0 || index >= len(s.columns) {
		return "", newError(ErrDecode, "column", "column index %d out of range, row has %d", index, len(s.columns))
	}
	return s.columns[index], nil
}

// ColumnValue returns column index of the current row as a Value.
//
// Columns declared BOOLEAN, DATE, DATETIME or TIMESTAMP are rewritten by the
// driver and their stored value cannot be recovered; reading one that holds
// a non-NULL value fails with ErrDecode. Select such a column as +name to
// read what is stored.
func (s *Statement) ColumnValue(index int) (Value, error) {
	dv, err := s.rawColumn(index)
	if err != nil {
		return Value{}, err
	}

	switch dv.(type) {
	case bool, time.Time:
		return Value{}, s.convertedColumn(index, dv)
	}

	v, err := valueFromDriver(dv)
	if err != nil {
		return Value{}, &Error{Kind: ErrDecode, Op: "column", Message: err.Error(), Err: err}
	}
	return v, nil
}

// rawColumn returns the driver value of column index in the current row.
func (s *Statement) rawColumn(index int) (driver.Value, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.state != StateRowAvailable {
		return nil, newError(ErrDecode, "column", "no row available, statement is %s", s.state)
	}
	if index < 0 || index >= len(s.row) {
		return nil, newError(ErrDecode, "column", "column index %d out of range, row has %d", index, len(s.row))
	}
	return s.row[index], nil
}

// convertedColumn reports a column the driver replaced with a %T of its own
// because of the column's declared type.
func (s *Statement) convertedColumn(index int, dv driver.Value) error {
	decl := "unknown"
	if index < len(s.declTypes) {
		decl = s.declTypes[index]
	}
	name := s.columns[index]
	return newError(ErrDecode, "column",
		"column %d (%s) is declared %s and the driver returned %T instead of the stored value, select it as +%s",
		index, name, decl, dv, name)
}

// ColumnKind returns the storage class of column index in the current row.
func (s *Statement) ColumnKind(index int) (Kind, error) {
	v, err := s.ColumnValue(index)
	if err != nil {
		return KindNull, err
	}
	return v.Kind(), nil
}

// Exec runs the statement to completion, discarding any rows.
// Bindings are kept, so Exec can be called again after rebinding some slots.
func (s *Statement) Exec() error {
	if err := s.restart(); err != nil {
		return err
	}
	for {
		ok, err := s.Step()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return s.Reset()
}

// Close finalizes the statement. It is safe to call more than once.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	err := s.finalize()
	s.conn.release(s)
	return err
}

// finalize releases the native statement handle.
func (s *Statement) finalize() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeCursor() //nolint:errcheck // Finalize reports the relevant error
	if err := s.raw.Close(); err != nil {
		return engineError(ErrExec, "finalize", err)
	}
	return nil
}

// Row runs s and decodes its single row as T.
// It returns ErrNoRows when the statement produced no rows and ErrExec when
// it produced more than one.
//
//	name, err := database.Row[string](stmt)
func Row[T any](s *Statement) (T, error) {
	v, ok, err := MaybeRow[T](s)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, &Error{Kind: ErrNoRows, Op: "row", Message: "statement produced no rows"}
	}
	return v, nil
}

// MaybeRow runs s and decodes its single row as T, reporting false when the
// statement produced no rows. A second row is an ErrExec error; use Rows for
// queries that can return several.
func MaybeRow[T any](s *Statement) (T, bool, error) {
	var v T
	if err := s.restart(); err != nil {
		return v, false, err
	}

	ok, err := s.Step()
	if err != nil {
		return v, false, err
	}
	if !ok {
		return v, false, s.Reset()
	}

	if _, err := decodeInto(s, 0, &v); err != nil {
		s.Reset() //nolint:errcheck // Decoding error takes precedence
		var zero T
		return zero, false, err
	}

	more, err := s.Step()
	if err != nil {
		var zero T
		return zero, false, err
	}
	if more {
		s.Reset() //nolint:errcheck // Extra row error takes precedence
		var zero T
		return zero, false, newError(ErrExec, "row", "statement produced more than one row")
	}
	return v, true, s.Reset()
}

// Rows runs s to completion and decodes every row as T, in the order the
// engine produced them.
func Rows[T any](s *Statement) ([]T, error) {
	if err := s.restart(); err != nil {
		return nil, err
	}

	var out []T
	for {
		ok, err := s.Step()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		var v T
		if _, err := decodeInto(s, 0, &v); err != nil {
			s.Reset() //nolint:errcheck // Decoding error takes precedence
			return nil, err
		}
		out = append(out, v)
	}
	return out, s.Reset()
}
