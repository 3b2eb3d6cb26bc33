package database

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// selectOne prepares "SELECT ?" bound to v and steps onto its row.
func selectOne(t *testing.T, conn *Connection, v any) *Statement {
	t.Helper()
	stmt := mustPrepare(t, conn, "SELECT ?")
	if _, err := stmt.WithBindings(v); err != nil {
		t.Fatalf("WithBindings(%v) error = %v", v, err)
	}
	if ok, err := stmt.Step(); !ok || err != nil {
		t.Fatalf("Step() = (%v, %v), want (true, nil)", ok, err)
	}
	return stmt
}

// TestBindScalars verifies each scalar type is stored in the expected class.
func TestBindScalars(t *testing.T) {
	conn := openTestConn(t)

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"true", true, Integer(1)},
		{"false", false, Integer(0)},
		{"int", -7, Integer(-7)},
		{"int8", int8(-8), Integer(-8)},
		{"int16", int16(16), Integer(16)},
		{"int32", int32(32), Integer(32)},
		{"int64", int64(math.MinInt64), Integer(math.MinInt64)},
		{"uint8", uint8(255), Integer(255)},
		{"uint16", uint16(65535), Integer(65535)},
		{"uint32", uint32(math.MaxUint32), Integer(math.MaxUint32)},
		{"uint64", uint64(math.MaxInt64), Integer(math.MaxInt64)},
		{"float32", float32(0.5), Float(0.5)},
		{"float64", 2.25, Float(2.25)},
		{"string", "héllo", Text("héllo")},
		{"empty string", "", Text("")},
		{"blob", []byte{0, 0xff}, Blob([]byte{0, 0xff})},
		{"empty blob", []byte{}, Blob([]byte{})},
		{"value", Text("v"), Text("v")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := selectOne(t, conn, tt.in)
			got, err := stmt.ColumnValue(0)
			if err != nil {
				t.Fatalf("ColumnValue() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ColumnValue() = %v (%v), want %v (%v)", got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

// TestBindErrors verifies rejected bindings.
func TestBindErrors(t *testing.T) {
	conn := openTestConn(t)

	tests := []struct {
		name string
		bind func(s *Statement) error
	}{
		{"index zero", func(s *Statement) error { return s.BindInt64(0, 1) }},
		{"index past end", func(s *Statement) error { return s.BindInt64(2, 1) }},
		{"uint64 overflow", func(s *Statement) error { return s.BindUint64(1, math.MaxUint64) }},
		{"uint overflow", func(s *Statement) error { _, err := s.Bind(1, uint(math.MaxUint64)); return err }},
		{"invalid utf8", func(s *Statement) error { return s.BindText(1, "\xff\xfe") }},
		{"unsupported type", func(s *Statement) error { _, err := s.Bind(1, struct{}{}); return err }},
		{"too many values", func(s *Statement) error { _, err := s.WithBindings(Args{1, 2}); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := mustPrepare(t, conn, "SELECT ?")
			if err := tt.bind(stmt); !errors.Is(err, ErrBind) {
				t.Errorf("error = %v, want ErrBind", err)
			}
		})
	}
}

// TestBindBlobCopies verifies the caller's slice is not retained.
func TestBindBlobCopies(t *testing.T) {
	conn := openTestConn(t)

	data := []byte{1, 2, 3}
	stmt := mustPrepare(t, conn, "SELECT ?")
	if err := stmt.BindBlob(1, data); err != nil {
		t.Fatalf("BindBlob() error = %v", err)
	}
	data[0] = 9

	got, err := Row[[]byte](stmt)
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	if !reflect.DeepEqual(got, []byte{1, 2, 3}) {
		t.Errorf("Row() = %v, want [1 2 3]", got)
	}
}

// TestDecodeMismatch verifies strict storage class checks.
func TestDecodeMismatch(t *testing.T) {
	conn := openTestConn(t)

	tests := []struct {
		name string
		in   any
		dst  any
	}{
		{"text as blob", "text", new([]byte)},
		{"blob as text", []byte("blob"), new(string)},
		{"integer as text", 1, new(string)},
		{"text as integer", "1", new(int64)},
		{"float as integer", 1.5, new(int)},
		{"null as integer", nil, new(int)},
		{"null as text", nil, new(string)},
		{"text as float", "1.5", new(float64)},
		{"text as bool", "true", new(bool)},
		{"unsupported destination", 1, new(complex128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := selectOne(t, conn, tt.in)
			if _, err := stmt.Column(0, tt.dst); !errors.Is(err, ErrDecode) {
				t.Errorf("Column() error = %v, want ErrDecode", err)
			}
		})
	}
}

// TestDecodeDeclaredTypes verifies columns the driver rewrites because of
// their declared type are refused rather than read back altered.
func TestDecodeDeclaredTypes(t *testing.T) {
	conn := openTestConn(t)
	mustExec(t, conn, "CREATE TABLE typed (flag BOOLEAN, ts DATETIME, note DATETIME, plain INTEGER, unset BOOLEAN)")
	mustExec(t, conn, "INSERT INTO typed VALUES (5, 1700000000, 'hello', 7, NULL)")

	stmt := mustPrepare(t, conn, "SELECT flag, ts, note, plain, unset FROM typed")
	if ok, err := stmt.Step(); !ok || err != nil {
		t.Fatalf("Step() = (%v, %v), want (true, nil)", ok, err)
	}

	tests := []struct {
		name  string
		index int
		dst   any
	}{
		{"boolean as integer", 0, new(int64)},
		{"boolean as bool", 0, new(bool)},
		{"datetime integer", 1, new(int64)},
		{"datetime text", 2, new(string)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := stmt.ColumnValue(tt.index); !errors.Is(err, ErrDecode) {
				t.Errorf("ColumnValue(%d) error = %v, want ErrDecode", tt.index, err)
			}
			if _, err := stmt.Column(tt.index, tt.dst); !errors.Is(err, ErrDecode) {
				t.Errorf("Column(%d) error = %v, want ErrDecode", tt.index, err)
			}
		})
	}

	var plain int64
	if _, err := stmt.Column(3, &plain); err != nil || plain != 7 {
		t.Errorf("Column(3) = (%d, %v), want 7", plain, err)
	}
	if v, err := stmt.ColumnValue(4); err != nil || v.Kind() != KindNull {
		t.Errorf("ColumnValue(4) = (%v, %v), want NULL", v, err)
	}

	stored := mustPrepare(t, conn, "SELECT +flag, +ts, +note FROM typed")
	got, err := Row[Tuple3[int64, int64, string]](stored)
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	want := NewTuple3[int64, int64, string](5, 1700000000, "hello")
	if got != want {
		t.Errorf("Row() = %+v, want %+v", got, want)
	}
}

// TestDecodeRange verifies integer narrowing is range checked.
func TestDecodeRange(t *testing.T) {
	conn := openTestConn(t)

	tests := []struct {
		name    string
		in      int64
		dst     any
		wantErr bool
	}{
		{"uint8 max", 255, new(uint8), false},
		{"uint8 overflow", 256, new(uint8), true},
		{"int8 min", -128, new(int8), false},
		{"int8 underflow", -129, new(int8), true},
		{"int16 overflow", math.MaxInt16 + 1, new(int16), true},
		{"int32 overflow", math.MaxInt32 + 1, new(int32), true},
		{"uint32 max", math.MaxUint32, new(uint32), false},
		{"uint negative", -1, new(uint), true},
		{"uint64 negative", -1, new(uint64), true},
		{"uint16 negative", -1, new(uint16), true},
		{"int64 min", math.MinInt64, new(int64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := selectOne(t, conn, tt.in)
			_, err := stmt.Column(0, tt.dst)
			if tt.wantErr && !errors.Is(err, ErrDecode) {
				t.Errorf("Column() error = %v, want ErrDecode", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Column() error = %v", err)
			}
		})
	}
}

// TestDecodeWidening verifies lossless conversions.
func TestDecodeWidening(t *testing.T) {
	conn := openTestConn(t)

	stmt := selectOne(t, conn, 3)
	f, err := stmt.ColumnFloat64(0)
	if err != nil || f != 3 {
		t.Errorf("ColumnFloat64() = (%v, %v), want 3", f, err)
	}

	var b bool
	if _, err := stmt.Column(0, &b); err != nil || !b {
		t.Errorf("Column(bool) = (%v, %v), want true", b, err)
	}
}

// TestOption verifies absent values map to NULL in both directions.
func TestOption(t *testing.T) {
	conn := openTestConn(t)
	mustExec(t, conn, "CREATE TABLE opt (id INTEGER PRIMARY KEY, note TEXT)")

	insert := mustPrepare(t, conn, "INSERT INTO opt (id, note) VALUES (?, ?)")
	for _, row := range []Tuple2[int, Option[string]]{
		NewTuple2(1, Some("present")),
		NewTuple2(2, None[string]()),
	} {
		if _, err := insert.WithBindings(row); err != nil {
			t.Fatalf("WithBindings() error = %v", err)
		}
		if err := insert.Exec(); err != nil {
			t.Fatalf("Exec() error = %v", err)
		}
	}

	if n := countRows(t, conn, "opt WHERE note IS NULL"); n != 1 {
		t.Errorf("NULL notes = %d, want 1", n)
	}

	got, err := Rows[Tuple2[int, Option[string]]](mustPrepare(t, conn, "SELECT id, note FROM opt ORDER BY id"))
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	want := []Tuple2[int, Option[string]]{
		NewTuple2(1, Some("present")),
		NewTuple2(2, None[string]()),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rows() = %+v, want %+v", got, want)
	}

	if v, ok := got[0].Second.Get(); !ok || v != "present" {
		t.Errorf("Get() = (%q, %v), want (present, true)", v, ok)
	}
}

// TestNestedComposites verifies composites flatten across consecutive positions.
func TestNestedComposites(t *testing.T) {
	conn := openTestConn(t)

	type inner = Tuple2[string, int]
	type outer = Tuple2[inner, Option[float64]]

	in := NewTuple2(NewTuple2("x", 4), Some(1.5))

	stmt := mustPrepare(t, conn, "SELECT ?, ?, ?")
	if _, err := stmt.WithBindings(in); err != nil {
		t.Fatalf("WithBindings() error = %v", err)
	}

	got, err := Row[outer](stmt)
	if err != nil {
		t.Fatalf("Row() error = %v", err)
	}
	if got != in {
		t.Errorf("Row() = %+v, want %+v", got, in)
	}

	// A composite needing more columns than the row has is a decode error.
	short := mustPrepare(t, conn, "SELECT 'x', 4")
	if _, err := Row[outer](short); !errors.Is(err, ErrDecode) {
		t.Errorf("Row() on short row error = %v, want ErrDecode", err)
	}
}

// TestValueRoundTrip verifies the dynamic value type covers every storage class.
func TestValueRoundTrip(t *testing.T) {
	conn := openTestConn(t)

	in := NewTuple4(Integer(42), Float(0.25), Text("t"), Blob([]byte{7}))

	stmt := mustPrepare(t, conn, "SELECT ?, ?, ?, ?, NULL")
	if _, err := stmt.WithBindings(in); err != nil {
		t.Fatalf("WithBindings() error = %v", err)
	}
	if ok, err := stmt.Step(); !ok || err != nil {
		t.Fatalf("Step() = (%v, %v), want (true, nil)", ok, err)
	}

	var got Tuple4[Value, Value, Value, Value]
	next, err := stmt.Column(0, &got)
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	if next != 4 {
		t.Errorf("Column() next = %d, want 4", next)
	}
	for i, pair := range [][2]Value{
		{got.First, in.First},
		{got.Second, in.Second},
		{got.Third, in.Third},
		{got.Fourth, in.Fourth},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Errorf("column %d = %v, want %v", i, pair[0], pair[1])
		}
	}

	var last Value
	if _, err := stmt.Column(4, &last); err != nil || !last.IsNull() {
		t.Errorf("Column(4) = (%v, %v), want NULL", last, err)
	}
}
