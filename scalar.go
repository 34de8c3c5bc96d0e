package chrecord

// setScalar implements the Scalar Tracker contract (§4.2):
//   - first-write-wins: the pre-mutation value is captured into
//     original only if not already present.
//   - if the new value equals the captured original, the property
//     has decayed back to its pre-mutation state and its original
//     entry is cleared, letting a Changed record fall back to
//     Unchanged without an explicit revert.
func (r *record) setScalar(fi *FieldInfo, v any) error {
	current := r.ptr.Elem().FieldByIndex(fi.Index).Interface()

	if _, captured := r.original[fi.Name]; !captured {
		r.original[fi.Name] = current
	}

	r.setFieldRaw(fi, v)

	if scalarEqual(r.original[fi.Name], v) {
		delete(r.original, fi.Name)
	}
	return nil
}

// IsDirtyField reports whether a single scalar property currently
// differs from its original value.
func (r *record) isDirtyField(prop string) (bool, error) {
	fi, err := r.fieldInfo(prop)
	if err != nil {
		return false, err
	}
	_, dirty := r.original[fi.Name]
	return dirty, nil
}

// dirtyFields returns the subset of scalar properties that currently
// differ from their original values, mapped to their current value.
func (r *record) dirtyFields() map[string]any {
	out := make(map[string]any, len(r.original))
	for name, orig := range r.original {
		fi := r.schema.Fields[name]
		current := r.ptr.Elem().FieldByIndex(fi.Index).Interface()
		if !scalarEqual(orig, current) {
			out[name] = current
		}
	}
	return out
}
