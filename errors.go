package chrecord

import (
	"errors"
	"fmt"
)

// Sentinel errors for the five failure kinds in the tracking surface.
// Use errors.Is to test for a specific kind; wrapped TrackingError
// values carry additional context via errors.As.
var (
	// ErrAlreadyTracking is returned by AsTrackedSlice and
	// AsTrackedPtrSlice when the same non-empty slice has already been
	// wrapped.
	ErrAlreadyTracking = errors.New("chrecord: already tracking")

	// ErrUnsupportedContainer is returned when a tracked collection is
	// built from a container shape that cannot express insert/remove
	// (e.g. a fixed-size array field read through Collection or
	// CollectionOf).
	ErrUnsupportedContainer = errors.New("chrecord: unsupported container")

	// ErrInvalidCast is returned when a value cannot be treated as a
	// tracked wrapper of the expected type.
	ErrInvalidCast = errors.New("chrecord: invalid cast")

	// ErrNotDeleted is returned by Undelete when the item is not
	// currently in the collection's deleted set.
	ErrNotDeleted = errors.New("chrecord: item not deleted")

	// ErrSchemaIneligible is the failure kind for a record structure
	// that cannot be tracked. No function in this package returns it:
	// a field whose type graph is cyclic is recorded in
	// Schema.Diagnostics and classified KindIgnored instead.
	ErrSchemaIneligible = errors.New("chrecord: schema ineligible for tracking")
)

// TrackingError wraps one of the sentinel errors above with the
// operation and property/type context that produced it.
type TrackingError struct {
	Op       string // operation that failed, e.g. "AsTracked", "Undelete"
	Property string // property or field name involved, if any
	Type     string // the record/element type name involved, if any
	Err      error  // one of the sentinel errors above
}

func (e *TrackingError) Error() string {
	msg := fmt.Sprintf("chrecord: %s: %v", e.Op, e.Err)
	if e.Type != "" {
		msg += fmt.Sprintf(" (type %s)", e.Type)
	}
	if e.Property != "" {
		msg += fmt.Sprintf(" (property %q)", e.Property)
	}
	return msg
}

func (e *TrackingError) Unwrap() error {
	return e.Err
}

func newTrackingError(op string, err error, typ, property string) *TrackingError {
	return &TrackingError{Op: op, Err: err, Type: typ, Property: property}
}
