package chrecord

import (
	"fmt"
	"reflect"
	"sync"
)

// Status is the membership/dirty state of a tracked record, per the
// status lattice in spec §3: Unchanged ⊑ Changed; Added and Deleted
// are leaf states describing membership in a tracked collection, not
// rollup of nested state.
type Status int

const (
	Unchanged Status = iota
	Added
	Changed
	Deleted
)

func (s Status) String() string {
	switch s {
	case Unchanged:
		return "Unchanged"
	case Added:
		return "Added"
	case Changed:
		return "Changed"
	case Deleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// membership is the explicit override a collection tracker applies to
// one of its items. None means "let the record compute its own
// status from scalar/child dirtiness"; the other three are leaf
// states forced onto the record by its owning collection (§4.4).
type membership int

const (
	membershipNone membership = iota
	membershipAdded
	membershipDeleted
	membershipForcedChanged
)

// record is the internal, reflection-driven tracked-record engine
// underlying TR[T]. The source language's dynamic proxy is replaced
// here with an explicit wrapper over a pointer to the user's struct,
// per the design note in spec §9: property access is mediated through
// named Get/Set calls rather than language-level interception.
type record struct {
	ptr    reflect.Value // addressable pointer to the wrapped struct (Kind() == Ptr)
	schema *Schema

	// original holds pre-mutation scalar snapshots, present only for
	// properties that currently differ from their wrap-time (or
	// last-accept) value. First-write-wins; cleared when a property
	// decays back to its original value (§4.2).
	original map[string]any

	// mu guards only the lazy-wrap maps below, per §5: a narrow lock
	// scoped to a single map lookup/insert, never a whole-record lock.
	mu                 sync.Mutex
	complexChildren    map[string]*record     // nil value means the field is currently nil
	complexWrapped     map[string]bool        // which complex slots have been materialized
	collectionChildren map[string]*collection // lazily wrapped collection children
	collectionWrapped  map[string]bool

	complexLatched bool // ComplexPropertyTrackables latch-once semantics (§9)

	member membership // set/cleared by an owning collection; see Status()
}

func newRecord(ptr reflect.Value, schema *Schema) *record {
	return &record{
		ptr:      ptr,
		schema:   schema,
		original: make(map[string]any),
	}
}

// wrapValue builds (or reuses, for pointer element types) the *record
// for a single struct value reachable at ptrVal (must be a pointer to
// a struct of the schema's type).
func wrapValue(ptrVal reflect.Value) *record {
	typ := ptrVal.Type().Elem()
	return newRecord(ptrVal, ParseSchemaType(typ))
}

// Status reports the record's current membership/dirty status per
// the lattice in spec §3.
func (r *record) Status() Status {
	switch r.member {
	case membershipAdded:
		return Added
	case membershipDeleted:
		return Deleted
	case membershipForcedChanged:
		return Changed
	default:
		if r.isDirty() {
			return Changed
		}
		return Unchanged
	}
}

// isDirty reports whether any scalar differs from its original value,
// or any complex/collection child is itself changed — the rollup rule
// in spec §3/§4.3/§4.4.
func (r *record) isDirty() bool {
	if len(r.original) > 0 {
		return true
	}

	r.mu.Lock()
	complexSnapshot := make([]*record, 0, len(r.complexChildren))
	for _, child := range r.complexChildren {
		if child != nil {
			complexSnapshot = append(complexSnapshot, child)
		}
	}
	collSnapshot := make([]*collection, 0, len(r.collectionChildren))
	for _, c := range r.collectionChildren {
		collSnapshot = append(collSnapshot, c)
	}
	r.mu.Unlock()

	for _, child := range complexSnapshot {
		if child.Status() != Unchanged {
			return true
		}
	}
	for _, c := range collSnapshot {
		if c.isChanged() {
			return true
		}
	}
	return false
}

// get returns the current value of a property. For complex and
// collection properties this is the raw, untracked field value; their
// tracked wrappers come from Complex/Collection/CollectionOf
// (chrecord.go).
func (r *record) get(prop string) (any, error) {
	fi, err := r.fieldInfo(prop)
	if err != nil {
		return nil, err
	}
	return r.ptr.Elem().FieldByIndex(fi.Index).Interface(), nil
}

// originalValue returns the pre-mutation value of prop, or its
// current value if it has not been modified (§4.2, §6).
func (r *record) originalValue(prop string) (any, error) {
	fi, err := r.fieldInfo(prop)
	if err != nil {
		return nil, err
	}
	if v, ok := r.original[fi.Name]; ok {
		return v, nil
	}
	return r.ptr.Elem().FieldByIndex(fi.Index).Interface(), nil
}

func (r *record) fieldInfo(prop string) (*FieldInfo, error) {
	fi, ok := r.schema.Fields[prop]
	if !ok {
		return nil, newTrackingError("Get", ErrInvalidCast, r.schema.Type.Name(), prop)
	}
	return fi, nil
}

// set dispatches a property write to the scalar, complex, or
// collection tracker as appropriate (§4.2 step 1).
func (r *record) set(prop string, v any) error {
	fi, err := r.fieldInfo(prop)
	if err != nil {
		return err
	}

	switch fi.Kind {
	case KindComplex:
		return r.setComplex(fi, v)
	case KindCollection:
		return r.setCollectionField(fi, v)
	default:
		return r.setScalar(fi, v)
	}
}

// setFieldRaw writes v directly into the field without touching
// tracking state. Used internally by RejectChanges to restore scalars
// and by the scalar tracker's own bookkeeping.
func (r *record) setFieldRaw(fi *FieldInfo, v any) {
	field := r.ptr.Elem().FieldByIndex(fi.Index)
	field.Set(reflect.ValueOf(v))
}

// releaseChildren drops every lazily-wrapped complex/collection child
// reference so they become eligible for garbage collection, without
// touching r's own scalar dirty state. Used by WrapScope.Close to
// bound memory after a large batch of roots is discarded unaccepted.
func (r *record) releaseChildren() {
	r.mu.Lock()
	complexSnap := r.complexChildren
	collSnap := r.collectionChildren
	r.complexChildren = nil
	r.complexWrapped = nil
	r.collectionChildren = nil
	r.collectionWrapped = nil
	r.complexLatched = false
	r.mu.Unlock()

	for _, child := range complexSnap {
		if child != nil {
			child.releaseChildren()
		}
	}
	for _, c := range collSnap {
		c.releaseChildren()
	}
}

func (r *record) typeName() string {
	return r.schema.Type.Name()
}

func (r *record) String() string {
	return fmt.Sprintf("TR<%s>(%s)", r.typeName(), r.Status())
}
