// Package chrecord tracks mutations to arbitrary Go record types so
// callers can inspect, commit, or discard them without hand-written
// dirty flags. A value is wrapped once with AsTracked or
// AsTrackedSlice; every Get/Set after that goes through the returned
// handle, which mediates property access the way the teacher's
// generic Model[T] mediates row access, since Go has no language-level
// property interception to hook into (§9).
package chrecord

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// TR wraps a single record of type T for change tracking.
type TR[T any] struct {
	r *record
}

// AsTracked wraps entity for change tracking. entity must be
// non-nil; its type is introspected once per process and cached.
func AsTracked[T any](entity *T) (*TR[T], error) {
	if entity == nil {
		return nil, newTrackingError("AsTracked", ErrInvalidCast, "", "")
	}
	schema := ParseSchema[T]()
	return &TR[T]{r: newRecord(reflect.ValueOf(entity), schema)}, nil
}

func (t *TR[T]) rec() *record { return t.r }

// Entity returns the live, tracked pointer. Mutating it directly
// bypasses tracking: no original value is captured, so the change does
// not show in Status, OriginalValue or RejectChanges, and complex or
// collection fields are not re-wrapped. Use Set for tracked writes.
func (t *TR[T]) Entity() *T { return t.r.ptr.Interface().(*T) }

// Status reports the record's current Unchanged/Added/Changed/Deleted
// status (§3).
func (t *TR[T]) Status() Status { return t.r.Status() }

// Get returns the current value of a scalar property by Go field
// name.
func (t *TR[T]) Get(prop string) (any, error) { return t.r.get(prop) }

// Set writes prop, routing to the scalar, complex, or collection
// tracker as appropriate (§4).
func (t *TR[T]) Set(prop string, v any) error { return t.r.set(prop, v) }

// OriginalValue returns prop's pre-mutation value, or its current
// value if prop hasn't changed (§4.2, §6).
func (t *TR[T]) OriginalValue(prop string) (any, error) { return t.r.originalValue(prop) }

// IsDirtyField reports whether a single scalar property currently
// differs from its original value.
func (t *TR[T]) IsDirtyField(prop string) (bool, error) { return t.r.isDirtyField(prop) }

// DirtyFields returns every scalar property that currently differs
// from its original value, mapped to its current value.
func (t *TR[T]) DirtyFields() map[string]any { return t.r.dirtyFields() }

// Complex returns the tracked wrapper for a nested single-record
// property, lazily materializing it on first access (§4.3). Returns
// (nil, nil) if the property currently holds no value.
func (t *TR[T]) Complex(prop string) (TrackedRecord, error) {
	child, err := t.r.complexChild(prop)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, nil
	}
	return recordHandle{child}, nil
}

// ComplexPropertyTrackables forces materialization of every complex
// child and returns their tracked handles in schema field order (§6).
func (t *TR[T]) ComplexPropertyTrackables() []TrackedRecord {
	children := t.r.complexPropertyTrackables()
	out := make([]TrackedRecord, len(children))
	for i, c := range children {
		out[i] = recordHandle{c}
	}
	return out
}

// Collection returns the tracked collection handle for a nested
// slice property, lazily materializing it on first access (§4.4).
func (t *TR[T]) Collection(prop string) (TrackedCollection, error) {
	c, err := t.r.collectionChild(prop)
	if err != nil {
		return nil, err
	}
	return collectionHandle{c}, nil
}

func (t *TR[T]) String() string { return t.r.String() }

// CollectionOf returns a type-parameterized tracked collection handle
// for a nested slice property, the same engine behind tr.Collection
// but typed as *TC[E] so callers can Insert/Remove/Undelete into it
// directly instead of only reading through TrackedCollection's view
// methods. E must match the property's declared element type.
func CollectionOf[E any](tr TrackedRecord, prop string) (*TC[E], error) {
	c, err := tr.rec().collectionChild(prop)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return &TC[E]{c: c}, nil
}

// acceptAll and rejectAll satisfy Tracked, letting AcceptChanges and
// RejectChanges dispatch over both TR[T] and TC[T] without a type
// switch.
func (t *TR[T]) acceptAll() { acceptRecord(t.r) }
func (t *TR[T]) rejectAll() { rejectRecord(t.r) }

// TrackedRecord is the type-erased view of a TR[T], used where the
// concrete T isn't known statically (e.g. ComplexPropertyTrackables,
// whose children may be of a different type than the parent).
type TrackedRecord interface {
	Status() Status
	Get(prop string) (any, error)
	Set(prop string, v any) error
	OriginalValue(prop string) (any, error)
	rec() *record
}

type recordHandle struct{ r *record }

func (h recordHandle) Status() Status                       { return h.r.Status() }
func (h recordHandle) Get(prop string) (any, error)          { return h.r.get(prop) }
func (h recordHandle) Set(prop string, v any) error          { return h.r.set(prop, v) }
func (h recordHandle) OriginalValue(prop string) (any, error) { return h.r.originalValue(prop) }
func (h recordHandle) rec() *record                          { return h.r }

// TrackedCollection is the type-erased view of a TC[T], used where
// the concrete element type isn't known statically.
type TrackedCollection interface {
	Len() int
	Items() []TrackedRecord
	AddedItems() []TrackedRecord
	ChangedItems() []TrackedRecord
	UnchangedItems() []TrackedRecord
	DeletedItems() []TrackedRecord
	IsChanged() bool
	coll() *collection
}

type collectionHandle struct{ c *collection }

func (h collectionHandle) Len() int                        { return len(h.c.items) }
func (h collectionHandle) Items() []TrackedRecord          { return wrapHandles(h.c.items) }
func (h collectionHandle) AddedItems() []TrackedRecord     { return wrapHandles(h.c.addedItems()) }
func (h collectionHandle) ChangedItems() []TrackedRecord   { return wrapHandles(h.c.changedItems()) }
func (h collectionHandle) UnchangedItems() []TrackedRecord { return wrapHandles(h.c.unchangedItems()) }
func (h collectionHandle) DeletedItems() []TrackedRecord   { return wrapHandles(h.c.deletedItems()) }
func (h collectionHandle) IsChanged() bool                 { return h.c.isChanged() }
func (h collectionHandle) coll() *collection                { return h.c }

func wrapHandles(recs []*record) []TrackedRecord {
	out := make([]TrackedRecord, len(recs))
	for i, r := range recs {
		out[i] = recordHandle{r}
	}
	return out
}

// TC wraps a slice of records of type T for change tracking (§4.4).
type TC[T any] struct {
	c *collection
}

// AsTrackedSlice wraps a slice of struct values for change tracking.
// items must point at the slice so structural mutations (Insert,
// Remove) can be written back into it.
func AsTrackedSlice[T any](items *[]T) (*TC[T], error) {
	if items == nil {
		return nil, newTrackingError("AsTrackedSlice", ErrInvalidCast, "", "")
	}
	sliceVal := reflect.ValueOf(items).Elem()
	c, err := newCollectionFromValue(sliceVal, true)
	if err != nil {
		return nil, err
	}
	c.setWriteback(sliceVal)
	return &TC[T]{c: c}, nil
}

// AsTrackedPtrSlice is AsTrackedSlice for a slice of pointers ([]*T)
// rather than a slice of values ([]T).
func AsTrackedPtrSlice[T any](items *[]*T) (*TC[T], error) {
	if items == nil {
		return nil, newTrackingError("AsTrackedSlice", ErrInvalidCast, "", "")
	}
	sliceVal := reflect.ValueOf(items).Elem()
	c, err := newCollectionFromValue(sliceVal, true)
	if err != nil {
		return nil, err
	}
	c.setWriteback(sliceVal)
	return &TC[T]{c: c}, nil
}

func (t *TC[T]) coll() *collection { return t.c }

// Len returns the collection's current visible membership count.
func (t *TC[T]) Len() int { return len(t.c.items) }

// Items returns every currently-visible member, in order.
func (t *TC[T]) Items() []*TR[T] { return wrapRecords[T](t.c.items) }

// Insert places v at index i (§4.4). v must already be wrapped via
// AsTracked.
func (t *TC[T]) Insert(i int, v *TR[T]) error {
	if v == nil {
		return newTrackingError("Insert", ErrInvalidCast, t.c.elemType.Name(), "")
	}
	t.c.insert(i, v.r)
	return nil
}

// Add appends v to the end of the collection.
func (t *TC[T]) Add(v *TR[T]) error { return t.Insert(len(t.c.items), v) }

// Remove removes v from the collection's visible membership (§4.4).
func (t *TC[T]) Remove(v *TR[T]) error {
	if v == nil {
		return newTrackingError("Remove", ErrInvalidCast, t.c.elemType.Name(), "")
	}
	return t.c.remove(v.r)
}

// Undelete restores a previously-removed item to its original index.
func (t *TC[T]) Undelete(v *TR[T]) error {
	if v == nil {
		return newTrackingError("Undelete", ErrNotDeleted, t.c.elemType.Name(), "")
	}
	return t.c.undelete(v.r)
}

// Set replaces the item at index i, equivalent to Remove followed by
// Insert at the same index.
func (t *TC[T]) Set(i int, v *TR[T]) error {
	if v == nil {
		return newTrackingError("Set", ErrInvalidCast, t.c.elemType.Name(), "")
	}
	return t.c.indexerSet(i, v.r)
}

func (t *TC[T]) acceptAll() { acceptCollection(t.c) }
func (t *TC[T]) rejectAll() { rejectCollection(t.c) }

func wrapRecords[T any](recs []*record) []*TR[T] {
	out := make([]*TR[T], len(recs))
	for i, r := range recs {
		out[i] = &TR[T]{r: r}
	}
	return out
}

// AddedItems returns every item added to the collection since the
// last accept.
func AddedItems[T any](tc *TC[T]) []*TR[T] { return wrapRecords[T](tc.c.addedItems()) }

// ChangedItems returns every live item whose own status is Changed.
func ChangedItems[T any](tc *TC[T]) []*TR[T] { return wrapRecords[T](tc.c.changedItems()) }

// UnchangedItems returns every live item whose own status is
// Unchanged.
func UnchangedItems[T any](tc *TC[T]) []*TR[T] { return wrapRecords[T](tc.c.unchangedItems()) }

// DeletedItems returns every item removed from the collection since
// the last accept.
func DeletedItems[T any](tc *TC[T]) []*TR[T] { return wrapRecords[T](tc.c.deletedItems()) }

// IsChanged reports whether the collection's membership or any live
// item differs from the last-accepted baseline (§3).
func IsChanged[T any](tc *TC[T]) bool { return tc.c.isChanged() }

// Tracked is implemented by TR[T] and TC[T], letting AcceptChanges and
// RejectChanges dispatch over either kind of tracked value.
type Tracked interface {
	acceptAll()
	rejectAll()
}

// AcceptChanges commits t's current state as its new baseline,
// recursing depth-first into every complex and collection child
// (§4.5).
func AcceptChanges(t Tracked) { t.acceptAll() }

// RejectChanges discards every change made to t since the last
// accept, restoring scalars, nested records, and collection
// membership to their baseline (§4.5).
func RejectChanges(t Tracked) { t.rejectAll() }

// Original reconstructs the pre-mutation value of a tracked record:
// every dirty scalar reverts to its captured original, every complex
// child reverts recursively, and every collection child reverts to
// its original_snapshot order and membership. The live record itself
// is untouched (§6).
func Original[T any](tr *TR[T]) (T, error) {
	var zero T
	out, err := originalStructValue(tr.r)
	if err != nil {
		return zero, err
	}
	return out.Interface().(T), nil
}

func originalStructValue(r *record) (reflect.Value, error) {
	out := reflect.New(r.schema.Type).Elem()
	out.Set(r.ptr.Elem())

	if len(r.original) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result: out.Addr().Interface(),
		})
		if err != nil {
			return reflect.Value{}, err
		}
		if err := dec.Decode(r.original); err != nil {
			return reflect.Value{}, err
		}
	}

	for _, name := range r.schema.Complex {
		child, ok := r.complexChildren[name]
		if !ok || child == nil {
			continue
		}
		fi := r.schema.Fields[name]
		childVal, err := originalStructValue(child)
		if err != nil {
			return reflect.Value{}, err
		}
		field := out.FieldByIndex(fi.Index)
		if field.Kind() == reflect.Pointer {
			p := reflect.New(fi.ElemType)
			p.Elem().Set(childVal)
			field.Set(p)
		} else {
			field.Set(childVal)
		}
	}

	for _, name := range r.schema.Collections {
		c, ok := r.collectionChildren[name]
		if !ok {
			continue
		}
		fi := r.schema.Fields[name]
		field := out.FieldByIndex(fi.Index)
		sliceVal := reflect.MakeSlice(field.Type(), len(c.originalSnapshot), len(c.originalSnapshot))
		for i, it := range c.originalSnapshot {
			itVal, err := originalStructValue(it)
			if err != nil {
				return reflect.Value{}, err
			}
			if c.elemIsPtr {
				p := reflect.New(fi.ElemType)
				p.Elem().Set(itVal)
				sliceVal.Index(i).Set(p)
			} else {
				sliceVal.Index(i).Set(itVal)
			}
		}
		field.Set(sliceVal)
	}

	return out, nil
}
