package database

// Tuple2 is a pair of values bound to, and decoded from, consecutive positions.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// Tuple3 is a triple of values bound to, and decoded from, consecutive positions.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Tuple4 is a quadruple of values bound to, and decoded from, consecutive positions.
type Tuple4[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

// NewTuple2 builds a Tuple2.
func NewTuple2[A, B any](a A, b B) Tuple2[A, B] {
	return Tuple2[A, B]{First: a, Second: b}
}

// NewTuple3 builds a Tuple3.
func NewTuple3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{First: a, Second: b, Third: c}
}

// NewTuple4 builds a Tuple4.
func NewTuple4[A, B, C, D any](a A, b B, c C, d D) Tuple4[A, B, C, D] {
	return Tuple4[A, B, C, D]{First: a, Second: b, Third: c, Fourth: d}
}

// BindTo implements Binder.
func (t Tuple2[A, B]) BindTo(s *Statement, start int) (int, error) {
	return Args{t.First, t.Second}.BindTo(s, start)
}

// ColumnFrom implements Columner.
func (t *Tuple2[A, B]) ColumnFrom(s *Statement, start int) (int, error) {
	return decodeAll(s, start, &t.First, &t.Second)
}

// BindTo implements Binder.
func (t Tuple3[A, B, C]) BindTo(s *Statement, start int) (int, error) {
	return Args{t.First, t.Second, t.Third}.BindTo(s, start)
}

// ColumnFrom implements Columner.
func (t *Tuple3[A, B, C]) ColumnFrom(s *Statement, start int) (int, error) {
	return decodeAll(s, start, &t.First, &t.Second, &t.Third)
}

// BindTo implements Binder.
func (t Tuple4[A, B, C, D]) BindTo(s *Statement, start int) (int, error) {
	return Args{t.First, t.Second, t.Third, t.Fourth}.BindTo(s, start)
}

// ColumnFrom implements Columner.
func (t *Tuple4[A, B, C, D]) ColumnFrom(s *Statement, start int) (int, error) {
	return decodeAll(s, start, &t.First, &t.Second, &t.Third, &t.Fourth)
}

// decodeAll decodes consecutive columns into dsts.
func decodeAll(s *Statement, start int, dsts ...any) (int, error) {
	next := start
	for _, dst := range dsts {
		var err error
		if next, err = decodeInto(s, next, dst); err != nil {
			return start, err
		}
	}
	return next, nil
}
