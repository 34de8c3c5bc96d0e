package chrecord

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// scalarEqual compares two scalar values for the purpose of deciding
// whether a property has reverted to its original value (§4.2). It
// fast-paths the common concrete types, special-cases uuid.UUID (a
// common primary/foreign key type) the way the teacher's compareIDs
// does for IDs, and falls back to reflect.DeepEqual for everything
// else.
func scalarEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case int16:
		bv, ok := b.(int16)
		return ok && av == bv
	case int8:
		bv, ok := b.(int8)
		return ok && av == bv
	case uint:
		bv, ok := b.(uint)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case uint32:
		bv, ok := b.(uint32)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case float32:
		bv, ok := b.(float32)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case uuid.UUID:
		switch bv := b.(type) {
		case uuid.UUID:
			return av == bv
		case string:
			parsed, err := uuid.Parse(bv)
			return err == nil && av == parsed
		case []byte:
			parsed, err := uuid.ParseBytes(bv)
			return err == nil && av == parsed
		}
		return false
	case *int:
		bv, ok := b.(*int)
		return ok && ptrEqual(av, bv, func(x, y int) bool { return x == y })
	case *int64:
		bv, ok := b.(*int64)
		return ok && ptrEqual(av, bv, func(x, y int64) bool { return x == y })
	case *string:
		bv, ok := b.(*string)
		return ok && ptrEqual(av, bv, func(x, y string) bool { return x == y })
	case *bool:
		bv, ok := b.(*bool)
		return ok && ptrEqual(av, bv, func(x, y bool) bool { return x == y })
	case *time.Time:
		bv, ok := b.(*time.Time)
		return ok && ptrEqual(av, bv, func(x, y time.Time) bool { return x.Equal(y) })
	}

	return reflect.DeepEqual(a, b)
}

// ptrEqual compares two possibly-nil pointers, treating both-nil as
// equal and exactly-one-nil as unequal, else delegating to eq.
func ptrEqual[T any](a, b *T, eq func(T, T) bool) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return eq(*a, *b)
}

// keyString renders a value as a stable string, used by dump
// rendering. Mirrors the teacher's anyToKeyString convention.
func keyString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
