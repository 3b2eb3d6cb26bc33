package database

import (
	"math"
)

// Columner is implemented by pointers to values that can decode themselves
// from the current row of a statement.
//
// ColumnFrom reads starting at the 0-based column start and returns the next
// unread column. Composite values decode their elements from consecutive columns.
type Columner interface {
	ColumnFrom(s *Statement, start int) (next int, err error)
}

// decodeInto decodes the column at index into dst and returns the next column.
//
// dst must be a Columner or a pointer to bool, a sized integer, float32,
// float64, string, []byte or Value.
func decodeInto(s *Statement, index int, dst any) (int, error) {
	if c, ok := dst.(Columner); ok {
		return c.ColumnFrom(s, index)
	}

	v, err := s.ColumnValue(index)
	if err != nil {
		return index, err
	}

	switch d := dst.(type) {
	case *string:
		x, ok := v.Text()
		if !ok {
			return index, mismatch(index, v, "text")
		}
		*d = x
	case *[]byte:
		x, ok := v.Blob()
		if !ok {
			return index, mismatch(index, v, "blob")
		}
		*d = x
	case *float64:
		x, err := floatOf(index, v)
		if err != nil {
			return index, err
		}
		*d = x
	case *float32:
		x, err := floatOf(index, v)
		if err != nil {
			return index, err
		}
		if math.Abs(x) > math.MaxFloat32 && !math.IsInf(x, 0) {
			return index, outOfRange(index, v, "float32")
		}
		*d = float32(x)
	case *bool:
		x, ok := v.Int64()
		if !ok {
			return index, mismatch(index, v, "integer")
		}
		*d = x != 0
	case *int:
		x, err := intOf(index, v, math.MinInt, math.MaxInt, "int")
		if err != nil {
			return index, err
		}
		*d = int(x)
	case *int8:
		x, err := intOf(index, v, math.MinInt8, math.MaxInt8, "int8")
		if err != nil {
			return index, err
		}
		*d = int8(x)
	case *int16:
		x, err := intOf(index, v, math.MinInt16, math.MaxInt16, "int16")
		if err != nil {
			return index, err
		}
		*d = int16(x)
	case *int32:
		x, err := intOf(index, v, math.MinInt32, math.MaxInt32, "int32")
		if err != nil {
			return index, err
		}
		*d = int32(x)
	case *int64:
		x, err := intOf(index, v, math.MinInt64, math.MaxInt64, "int64")
		if err != nil {
			return index, err
		}
		*d = x
	case *uint:
		x, err := intOf(index, v, 0, math.MaxInt64, "uint")
		if err != nil {
			return index, err
		}
		*d = uint(x)
	case *uint8:
		x, err := intOf(index, v, 0, math.MaxUint8, "uint8")
		if err != nil {
			return index, err
		}
		*d = uint8(x)
	case *uint16:
		x, err := intOf(index, v, 0, math.MaxUint16, "uint16")
		if err != nil {
			return index, err
		}
		*d = uint16(x)
	case *uint32:
		x, err := intOf(index, v, 0, math.MaxUint32, "uint32")
		if err != nil {
			return index, err
		}
		*d = uint32(x)
	case *uint64:
		x, err := intOf(index, v, 0, math.MaxInt64, "uint64")
		if err != nil {
			return index, err
		}
		*d = uint64(x)
	default:
		return index, newError(ErrDecode, "column", "unsupported destination %T for column %d", dst, index)
	}
	return index + 1, nil
}

// intOf returns the integer held by v if it lies in [lo, hi].
func intOf(index int, v Value, lo, hi int64, target string) (int64, error) {
	x, ok := v.Int64()
	if !ok {
		return 0, mismatch(index, v, "integer")
	}
	if x < lo || x > hi {
		return 0, outOfRange(index, v, target)
	}
	return x, nil
}

// floatOf returns the float held by v; integers are widened.
func floatOf(index int, v Value) (float64, error) {
	if x, ok := v.Float64(); ok {
		return x, nil
	}
	if x, ok := v.Int64(); ok {
		return float64(x), nil
	}
	return 0, mismatch(index, v, "float")
}

func mismatch(index int, v Value, want string) error {
	return newError(ErrDecode, "column", "column %d holds %s, want %s", index, v.Kind(), want)
}

func outOfRange(index int, v Value, target string) error {
	return newError(ErrDecode, "column", "column %d value %s out of range for %s", index, v, target)
}

// ColumnInt64 returns the integer in column index of the current row.
func (s *Statement) ColumnInt64(index int) (int64, error) {
	var x int64
	_, err := decodeInto(s, index, &x)
	return x, err
}

// ColumnFloat64 returns the number in column index of the current row.
func (s *Statement) ColumnFloat64(index int) (float64, error) {
	var x float64
	_, err := decodeInto(s, index, &x)
	return x, err
}

// ColumnText returns the text in column index of the current row.
func (s *Statement) ColumnText(index int) (string, error) {
	var x string
	_, err := decodeInto(s, index, &x)
	return x, err
}

// ColumnBlob returns the bytes in column index of the current row.
func (s *Statement) ColumnBlob(index int) ([]byte, error) {
	var x []byte
	_, err := decodeInto(s, index, &x)
	return x, err
}

// Column decodes column index of the current row into dst and returns the
// next column.
func (s *Statement) Column(index int, dst any) (int, error) {
	return decodeInto(s, index, dst)
}
