// Package util holds small generic helpers shared by the model and the
// stores.
package util

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Optional marks a value that may be absent. The zero value is absent and
// encodes as JSON null and SQL NULL.
type Optional[T any] struct {
	Val   T
	IsSet bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Val: v, IsSet: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) UnwrapOr(fallback T) T {
	if o.IsSet {
		return o.Val
	}
	return fallback
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.IsSet {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	*o = None[T]()
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.Val); err != nil {
		return err
	}
	o.IsSet = true
	return nil
}

// Scan accepts NULL, the value's own type, and the integer and timestamp
// encodings the Postgres and SQLite drivers return.
func (o *Optional[T]) Scan(src any) error {
	*o = None[T]()
	if src == nil {
		return nil
	}

	switch dst := any(&o.Val).(type) {
	case interface{ Scan(any) error }:
		if err := dst.Scan(src); err != nil {
			return err
		}
	case *int:
		n, ok := toInt64(src)
		if !ok {
			return fmt.Errorf("util: cannot scan %T into Optional[int]", src)
		}
		*dst = int(n)
	case *time.Time:
		switch v := src.(type) {
		case time.Time:
			*dst = v
		case int64:
			*dst = time.UnixMilli(v).UTC()
		default:
			return fmt.Errorf("util: cannot scan %T into Optional[time.Time]", src)
		}
	default:
		v, ok := src.(T)
		if !ok {
			return fmt.Errorf("util: cannot scan %T into Optional[%T]", src, o.Val)
		}
		o.Val = v
	}

	o.IsSet = true
	return nil
}

func (o Optional[T]) Value() (driver.Value, error) {
	if !o.IsSet {
		return nil, nil
	}
	switch v := any(o.Val).(type) {
	case driver.Valuer:
		return v.Value()
	case int:
		return int64(v), nil
	}
	return o.Val, nil
}

func toInt64(src any) (int64, bool) {
	switch v := src.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	}
	return 0, false
}
