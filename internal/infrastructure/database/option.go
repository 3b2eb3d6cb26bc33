package database

// Option is a value that may be absent. An absent Option binds NULL and
// decodes from NULL.
type Option[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Option holding v.
func Some[T any](v T) Option[T] {
	return Option[T]{Value: v, Valid: true}
}

// None returns an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the held value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// BindTo implements Binder. An absent value occupies a single NULL slot.
func (o Option[T]) BindTo(s *Statement, start int) (int, error) {
	if !o.Valid {
		return start + 1, s.BindNull(start)
	}
	return bindValue(s, start, o.Value)
}

// ColumnFrom implements Columner. A NULL column yields an absent value and
// consumes one column.
func (o *Option[T]) ColumnFrom(s *Statement, start int) (int, error) {
	kind, err := s.ColumnKind(start)
	if err != nil {
		return start, err
	}
	if kind == KindNull {
		*o = None[T]()
		return start + 1, nil
	}

	var v T
	next, err := decodeInto(s, start, &v)
	if err != nil {
		return start, err
	}
	*o = Some(v)
	return next, nil
}
