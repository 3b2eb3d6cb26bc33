package database

import (
	"bytes"
	"database/sql/driver"
	"fmt"
)

// Kind is the storage class of a bound or stored value.
type Kind int

// Storage classes, matching SQLite's fundamental datatypes.
const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBlob
)

// String returns the SQLite name of the storage class.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a dynamically typed SQLite value: null, integer, float, text or blob.
//
// The zero Value is null. Value implements both Binder and Columner, so it
// can be bound to a slot and decoded from any column regardless of kind.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the null value.
func Null() Value { return Value{} }

// Integer returns an integer value.
func Integer(v int64) Value { return Value{kind: KindInteger, i: v} }

// Float returns a floating-point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Blob returns a blob value. The slice is copied.
func Blob(v []byte) Value { return Value{kind: KindBlob, b: append([]byte{}, v...)} }

// Kind returns the storage class of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer held by v.
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInteger }

// Float64 returns the float held by v.
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat }

// Text returns the text held by v.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Blob returns the bytes held by v.
func (v Value) Blob() ([]byte, bool) { return v.b, v.kind == KindBlob }

// Equal reports whether v and o have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	case KindBlob:
		return bytes.Equal(v.b, o.b)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindText:
		return v.s
	case KindBlob:
		return fmt.Sprintf("x'%x'", v.b)
	default:
		return "NULL"
	}
}

// BindTo implements Binder.
func (v Value) BindTo(s *Statement, start int) (int, error) {
	if err := s.setParam(start, v.driverValue()); err != nil {
		return start, err
	}
	return start + 1, nil
}

// ColumnFrom implements Columner.
func (v *Value) ColumnFrom(s *Statement, start int) (int, error) {
	val, err := s.ColumnValue(start)
	if err != nil {
		return start, err
	}
	*v = val
	return start + 1, nil
}

// driverValue converts v into the representation the driver binds.
func (v Value) driverValue() driver.Value {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		if v.b == nil {
			return []byte{}
		}
		return v.b
	default:
		return nil
	}
}

// valueFromDriver converts a value produced by the driver for one column.
// Values the driver derived from a declared type (bool, time.Time) are not
// storage classes and are rejected.
func valueFromDriver(dv driver.Value) (Value, error) {
	switch x := dv.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Integer(x), nil
	case float64:
		return Float(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported driver value %T", dv)
	}
}
