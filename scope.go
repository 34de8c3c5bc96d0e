package chrecord

// WrapScope batches a set of tracked roots so their lazily-wrapped
// complex/collection bookkeeping can be released together in one
// Close call. Mirrors the teacher's TrackingScope, which exists for
// the same reason on the persistence side: wrapping a large batch of
// entities still allocates per-entity tracking state, and a caller
// that discards the whole batch without ever accepting or rejecting
// it wants a way to free that state in bulk.
type WrapScope struct {
	roots []Tracked
}

// NewWrapScope returns an empty scope.
func NewWrapScope() *WrapScope {
	return &WrapScope{}
}

// Track registers t with the scope. t is typically the result of
// AsTracked or AsTrackedSlice.
func (s *WrapScope) Track(t Tracked) {
	s.roots = append(s.roots, t)
}

// Close releases every registered root's lazily-wrapped child
// bookkeeping so it can be garbage collected. A root keeps its own
// scalar dirty state, and a root collection keeps its own membership;
// changes recorded only in released children (nested records and
// nested collections) are dropped and no longer count toward Status.
// A root still referenced elsewhere re-wraps its children lazily from
// their current field values on next access.
func (s *WrapScope) Close() {
	for _, t := range s.roots {
		switch v := t.(type) {
		case interface{ rec() *record }:
			v.rec().releaseChildren()
		case wrappedCollection:
			v.coll().releaseChildren()
		}
	}
	s.roots = nil
}
