package chrecord

import "reflect"

// complexChild implements lazy wrap-on-read for a complex property
// (§4.3): the first Get materializes a *record for the nested struct
// and caches it; subsequent Gets return the same wrapper identity
// (§5, "lazy wrapping is idempotent").
func (r *record) complexChild(prop string) (*record, error) {
	fi, ok := r.schema.Fields[prop]
	if !ok || fi.Kind != KindComplex {
		return nil, newTrackingError("Complex", ErrInvalidCast, r.typeName(), prop)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.complexChildren == nil {
		r.complexChildren = make(map[string]*record)
		r.complexWrapped = make(map[string]bool)
	}
	if r.complexWrapped[prop] {
		return r.complexChildren[prop], nil
	}

	field := r.ptr.Elem().FieldByIndex(fi.Index)
	ptrVal, isNil := complexFieldPointer(field)
	r.complexWrapped[prop] = true
	if isNil {
		r.complexChildren[prop] = nil
		return nil, nil
	}

	child := wrapValue(ptrVal)
	r.complexChildren[prop] = child
	return child, nil
}

// complexFieldPointer returns an addressable pointer to the struct
// backing a complex field, regardless of whether the field is
// declared as a pointer (*C) or an embedded value (C). Reports
// isNil=true when the field currently holds no value to wrap.
func complexFieldPointer(field reflect.Value) (ptrVal reflect.Value, isNil bool) {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return reflect.Value{}, true
		}
		return field, false
	}
	return field.Addr(), false
}

// setComplex implements wrap-on-write for a complex property (§4.3):
// the underlying assignment happens first so external readers of the
// raw struct observe the new value synchronously, then the slot is
// (re)wrapped.
func (r *record) setComplex(fi *FieldInfo, v any) error {
	field := r.ptr.Elem().FieldByIndex(fi.Index)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.complexChildren == nil {
		r.complexChildren = make(map[string]*record)
		r.complexWrapped = make(map[string]bool)
	}
	r.complexWrapped[fi.Name] = true

	if v == nil || isNilPointer(v) {
		if field.Kind() == reflect.Pointer {
			field.Set(reflect.Zero(field.Type()))
		}
		r.complexChildren[fi.Name] = nil
		return nil
	}

	if w, ok := v.(wrappedRecord); ok {
		child := w.rec()
		assignComplexField(field, child.ptr)
		r.complexChildren[fi.Name] = child
		return nil
	}

	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			if field.Kind() == reflect.Pointer {
				field.Set(reflect.Zero(field.Type()))
			}
			r.complexChildren[fi.Name] = nil
			return nil
		}
		assignComplexField(field, val)
		r.complexChildren[fi.Name] = wrapValue(val)
		return nil
	}

	// v is a plain value C, not *C.
	field.Set(val)
	ptrVal, _ := complexFieldPointer(field)
	r.complexChildren[fi.Name] = wrapValue(ptrVal)
	return nil
}

// assignComplexField writes src (a *C) into a field declared as
// either *C or C.
func assignComplexField(field reflect.Value, src reflect.Value) {
	if field.Kind() == reflect.Pointer {
		field.Set(src)
		return
	}
	field.Set(src.Elem())
}

func isNilPointer(v any) bool {
	val := reflect.ValueOf(v)
	return val.Kind() == reflect.Pointer && val.IsNil()
}

// wrappedRecord is implemented by TR[T] for any T, letting internal
// code accept an already-tracked wrapper as a set() argument without
// re-wrapping it (§4.3 step 3, §4.4 step 1).
type wrappedRecord interface {
	rec() *record
}

// materializedComplexChildren returns every currently-materialized complex child,
// without forcing lazy wrap of slots not yet read (used by accept/
// reject traversal, which only needs to recurse into what already
// exists).
func (r *record) materializedComplexChildren() []*record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*record, 0, len(r.complexChildren))
	for _, child := range r.complexChildren {
		if child != nil {
			out = append(out, child)
		}
	}
	return out
}

// materializedCollectionChildren mirrors materializedComplexChildren
// for collection children.
func (r *record) materializedCollectionChildren() []*collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*collection, 0, len(r.collectionChildren))
	for _, c := range r.collectionChildren {
		out = append(out, c)
	}
	return out
}

// complexPropertyTrackables forces materialization of every complex
// child (§6: "forces materialization of all complex children") and
// returns them in schema field order. Subsequent calls reuse the
// latch rather than re-scanning, per the latch-once decision in §9.
func (r *record) complexPropertyTrackables() []*record {
	r.mu.Lock()
	latched := r.complexLatched
	r.mu.Unlock()

	if !latched {
		for _, name := range r.schema.Complex {
			_, _ = r.complexChild(name)
		}
		r.mu.Lock()
		r.complexLatched = true
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*record, 0, len(r.schema.Complex))
	for _, name := range r.schema.Complex {
		if child := r.complexChildren[name]; child != nil {
			out = append(out, child)
		}
	}
	return out
}
