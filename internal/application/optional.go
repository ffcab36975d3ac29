package application

// Optional models one field of a sparse update: absent (leave the column
// unchanged), null (clear it), or a concrete value. The zero value is absent.
type Optional[T any] struct {
	present bool
	null    bool
	value   T
}

// Some wraps a concrete value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{present: true, value: v}
}

// Null marks the field present with an explicit null, meaning "clear".
func Null[T any]() Optional[T] {
	return Optional[T]{present: true, null: true}
}

// Present reports whether the field appeared in the change-set at all.
func (o Optional[T]) Present() bool { return o.present }

// IsNull reports whether the field was an explicit null.
func (o Optional[T]) IsNull() bool { return o.present && o.null }

// Get returns the concrete value; ok is false for absent or null fields.
func (o Optional[T]) Get() (T, bool) {
	if !o.present || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// put folds the field into a column map for repository.Update: skipped when
// absent, nil when null, the value otherwise.
func put[T any](fields map[string]any, column string, o Optional[T]) {
	if !o.present {
		return
	}
	if o.null {
		fields[column] = nil
		return
	}
	fields[column] = o.value
}
