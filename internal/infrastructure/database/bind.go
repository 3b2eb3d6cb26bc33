package database

import (
	"math"
	"unicode/utf8"
)

// Binder is implemented by values that can write themselves into a
// statement's parameter slots.
//
// BindTo writes the value starting at the 1-based slot start and returns the
// next unused slot. Composite values bind their elements at consecutive slots.
type Binder interface {
	BindTo(s *Statement, start int) (next int, err error)
}

// Args binds a list of values at consecutive slots.
//
//	stmt.WithBindings(database.Args{"a", 1, []byte{0x01}})
type Args []any

// BindTo implements Binder.
func (a Args) BindTo(s *Statement, start int) (int, error) {
	next := start
	for _, v := range a {
		var err error
		if next, err = bindValue(s, next, v); err != nil {
			return next, err
		}
	}
	return next, nil
}

// bindValue binds v at index and returns the next slot.
//
// Supported: nil, bool, all sized integers, float32/float64, string,
// []byte, Value and any Binder.
func bindValue(s *Statement, index int, v any) (int, error) {
	switch x := v.(type) {
	case Binder:
		return x.BindTo(s, index)
	case nil:
		return index + 1, s.BindNull(index)
	case bool:
		return index + 1, s.BindBool(index, x)
	case int:
		return index + 1, s.BindInt64(index, int64(x))
	case int8:
		return index + 1, s.BindInt64(index, int64(x))
	case int16:
		return index + 1, s.BindInt64(index, int64(x))
	case int32:
		return index + 1, s.BindInt64(index, int64(x))
	case int64:
		return index + 1, s.BindInt64(index, x)
	case uint:
		return index + 1, s.BindUint64(index, uint64(x))
	case uint8:
		return index + 1, s.BindInt64(index, int64(x))
	case uint16:
		return index + 1, s.BindInt64(index, int64(x))
	case uint32:
		return index + 1, s.BindInt64(index, int64(x))
	case uint64:
		return index + 1, s.BindUint64(index, x)
	case float32:
		return index + 1, s.BindFloat64(index, float64(x))
	case float64:
		return index + 1, s.BindFloat64(index, x)
	case string:
		return index + 1, s.BindText(index, x)
	case []byte:
		return index + 1, s.BindBlob(index, x)
	default:
		return index, newError(ErrBind, "bind", "unsupported type %T at parameter %d", v, index)
	}
}

// BindNull binds NULL at the 1-based index.
func (s *Statement) BindNull(index int) error {
	return s.setParam(index, nil)
}

// BindBool binds b as the integer 0 or 1.
func (s *Statement) BindBool(index int, b bool) error {
	if b {
		return s.setParam(index, int64(1))
	}
	return s.setParam(index, int64(0))
}

// BindInt64 binds an integer.
func (s *Statement) BindInt64(index int, v int64) error {
	return s.setParam(index, v)
}

// BindUint64 binds an unsigned integer. Values that do not fit in a signed
// 64-bit integer are rejected.
func (s *Statement) BindUint64(index int, v uint64) error {
	if v > math.MaxInt64 {
		return newError(ErrBind, "bind", "value %d at parameter %d overflows a 64-bit integer", v, index)
	}
	return s.setParam(index, int64(v))
}

// BindFloat64 binds a floating-point number.
func (s *Statement) BindFloat64(index int, v float64) error {
	return s.setParam(index, v)
}

// BindText binds UTF-8 text. Invalid UTF-8 is rejected.
func (s *Statement) BindText(index int, v string) error {
	if !utf8.ValidString(v) {
		return newError(ErrBind, "bind", "text at parameter %d is not valid UTF-8", index)
	}
	return s.setParam(index, v)
}

// BindBlob binds a copy of v as a blob. A nil slice binds an empty blob.
func (s *Statement) BindBlob(index int, v []byte) error {
	return s.setParam(index, append([]byte{}, v...))
}

// Bind binds v at index using the binding protocol and returns the next
// unused slot.
func (s *Statement) Bind(index int, v any) (int, error) {
	return bindValue(s, index, v)
}
