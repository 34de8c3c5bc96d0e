package chrecord

import (
	"reflect"
	"sync"
)

// deletedEntry pairs a removed item with the index it held in
// original_snapshot at the time it was removed (§3).
type deletedEntry struct {
	rec       *record
	origIndex int
}

// collection is the internal engine behind TC[E] (§4.4). items is the
// current visible membership; deleted holds items removed since the
// last accept, alongside their original index; originalSnapshot is
// the membership as of the last accept (or initial wrap), used for
// identity comparisons and RejectChanges.
type collection struct {
	elemType reflect.Type // the element struct type E (never a pointer)
	elemIsPtr bool         // true if the owning field is []*E rather than []E

	items            []*record
	deleted          []deletedEntry
	originalSnapshot []*record

	// writeback, when non-nil, syncs items back into the struct field
	// this collection was lazily wrapped from (§4.3's "apply the
	// underlying assignment first" rule, extended to collections so
	// raw reads of the field stay in sync with tracked structure).
	// nil for free-standing root collections with no owning field.
	writeback func()
}

// wrappedSlices records the backing-array pointer of every slice
// wrapped at the top level via AsTrackedSlice/AsTrackedPtrSlice, so a
// second attempt to wrap the same slice fails with ErrAlreadyTracking
// instead of corrupting original_snapshot identity (§4.4 "re-wrap
// rejection").
var wrappedSlices sync.Map

// newCollectionFromValue builds a collection from a reflect.Value
// (the struct field, or the slice passed to a root AsTrackedSlice
// call). checkAlready gates the already-tracked registry check, which
// only applies to root-level wraps: nested collection fields are
// re-derived from the live struct on every lazy wrap and have no
// independent "already tracked" identity of their own.
func newCollectionFromValue(sliceVal reflect.Value, checkAlready bool) (*collection, error) {
	if sliceVal.Kind() == reflect.Array {
		return nil, newTrackingError("AsTracked", ErrUnsupportedContainer, sliceVal.Type().String(), "")
	}
	if sliceVal.Kind() != reflect.Slice {
		return nil, newTrackingError("AsTracked", ErrUnsupportedContainer, sliceVal.Type().String(), "")
	}

	elemType := sliceVal.Type().Elem()
	elemIsPtr := elemType.Kind() == reflect.Pointer
	structType := elemType
	if elemIsPtr {
		structType = elemType.Elem()
	}
	ParseSchemaType(structType) // populate the schema cache eagerly

	if checkAlready && sliceVal.Len() > 0 && sliceVal.CanInterface() {
		if dataPtr := sliceVal.Pointer(); dataPtr != 0 {
			if _, loaded := wrappedSlices.LoadOrStore(dataPtr, true); loaded {
				return nil, newTrackingError("AsTracked", ErrAlreadyTracking, structType.Name(), "")
			}
		}
	}

	items := make([]*record, sliceVal.Len())
	for i := 0; i < sliceVal.Len(); i++ {
		items[i] = wrapElement(sliceVal.Index(i), elemIsPtr, structType)
	}

	snapshot := make([]*record, len(items))
	copy(snapshot, items)

	return &collection{
		elemType:         structType,
		elemIsPtr:        elemIsPtr,
		items:            items,
		originalSnapshot: snapshot,
	}, nil
}

// wrapElement wraps a single slice element. Value elements (non-
// pointer) are boxed onto the heap so their *record identity stays
// stable across slice insert/remove, which otherwise shift elements
// within the backing array (§4.4).
func wrapElement(elem reflect.Value, isPtr bool, structType reflect.Type) *record {
	if isPtr {
		return wrapValue(elem)
	}
	boxed := reflect.New(structType)
	boxed.Elem().Set(elem)
	return wrapValue(boxed)
}

// setWriteback arms the collection to keep field in sync with items
// after every structural mutation.
func (c *collection) setWriteback(field reflect.Value) {
	c.writeback = func() {
		sliceType := field.Type()
		out := reflect.MakeSlice(sliceType, len(c.items), len(c.items))
		for i, item := range c.items {
			if c.elemIsPtr {
				out.Index(i).Set(item.ptr)
			} else {
				out.Index(i).Set(item.ptr.Elem())
			}
		}
		field.Set(out)
	}
}

func (c *collection) syncWriteback() {
	if c.writeback != nil {
		c.writeback()
	}
}

// releaseChildren drops every item's lazily-wrapped bookkeeping,
// recursively. Used by WrapScope.Close.
func (c *collection) releaseChildren() {
	for _, it := range c.items {
		it.releaseChildren()
	}
	for _, d := range c.deleted {
		d.rec.releaseChildren()
	}
}

func indexOfRecord(items []*record, w *record) int {
	for i, it := range items {
		if it == w {
			return i
		}
	}
	return -1
}

func indexOfSnapshot(snapshot []*record, w *record) (int, bool) {
	for i, it := range snapshot {
		if it == w {
			return i, true
		}
	}
	return -1, false
}

func indexOfDeleted(deleted []deletedEntry, w *record) int {
	for i, d := range deleted {
		if d.rec == w {
			return i
		}
	}
	return -1
}

func clampIndex(i, length int) int {
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func insertAt(items []*record, i int, w *record) []*record {
	items = append(items, nil)
	copy(items[i+1:], items[i:])
	items[i] = w
	return items
}

// insert implements §4.4 "Insert (at index i, value v)".
func (c *collection) insert(i int, w *record) {
	if di := indexOfDeleted(c.deleted, w); di != -1 {
		entry := c.deleted[di]
		c.deleted = append(c.deleted[:di], c.deleted[di+1:]...)
		target := clampIndex(i, len(c.items))
		c.items = insertAt(c.items, target, w)
		if entry.origIndex == i && !w.isDirty() {
			w.member = membershipNone
		} else {
			w.member = membershipForcedChanged
		}
		c.syncWriteback()
		return
	}

	if _, inSnapshot := indexOfSnapshot(c.originalSnapshot, w); !inSnapshot {
		w.member = membershipAdded
		c.items = insertAt(c.items, clampIndex(i, len(c.items)), w)
		c.syncWriteback()
		return
	}

	// Rare: w is an original member, not currently in deleted. If
	// it's already live, this is a move within the same collection;
	// otherwise it's a direct re-add the caller should not perform
	// (§4.4 case 4), handled as a no-op unless the position changes.
	if ci := indexOfRecord(c.items, w); ci != -1 {
		c.items = append(c.items[:ci], c.items[ci+1:]...)
		target := clampIndex(i, len(c.items))
		c.items = insertAt(c.items, target, w)
		if ci != target {
			w.member = membershipForcedChanged
		}
		c.syncWriteback()
		return
	}

	c.items = insertAt(c.items, clampIndex(i, len(c.items)), w)
	c.syncWriteback()
}

// remove implements §4.4 "Remove (value w)".
func (c *collection) remove(w *record) error {
	i := indexOfRecord(c.items, w)
	if i == -1 {
		return newTrackingError("Remove", ErrInvalidCast, c.elemType.Name(), "")
	}
	c.items = append(c.items[:i], c.items[i+1:]...)

	if w.member == membershipAdded {
		w.member = membershipNone
		c.syncWriteback()
		return nil
	}

	origIndex := -1
	if j, ok := indexOfSnapshot(c.originalSnapshot, w); ok {
		origIndex = j
	}
	c.deleted = append(c.deleted, deletedEntry{rec: w, origIndex: origIndex})
	w.member = membershipDeleted
	c.syncWriteback()
	return nil
}

// undelete implements §4.4 "Un-delete".
func (c *collection) undelete(w *record) error {
	di := indexOfDeleted(c.deleted, w)
	if di == -1 {
		return newTrackingError("Undelete", ErrNotDeleted, c.elemType.Name(), "")
	}
	entry := c.deleted[di]
	c.deleted = append(c.deleted[:di], c.deleted[di+1:]...)
	idx := clampIndex(entry.origIndex, len(c.items))
	c.items = insertAt(c.items, idx, w)
	w.member = membershipNone
	c.syncWriteback()
	return nil
}

// indexerSet implements §4.4 "Indexer set items[i] = v": equivalent
// to removing the element at i, then inserting v there.
func (c *collection) indexerSet(i int, w *record) error {
	if i < 0 || i >= len(c.items) {
		return newTrackingError("Set", ErrInvalidCast, c.elemType.Name(), "")
	}
	old := c.items[i]
	if err := c.remove(old); err != nil {
		return err
	}
	c.insert(i, w)
	return nil
}

func (c *collection) addedItems() []*record    { return c.filterItems(Added) }
func (c *collection) changedItems() []*record  { return c.filterItems(Changed) }
func (c *collection) unchangedItems() []*record { return c.filterItems(Unchanged) }

func (c *collection) filterItems(want Status) []*record {
	out := make([]*record, 0, len(c.items))
	for _, it := range c.items {
		if it.Status() == want {
			out = append(out, it)
		}
	}
	return out
}

func (c *collection) deletedItems() []*record {
	out := make([]*record, len(c.deleted))
	for i, d := range c.deleted {
		out[i] = d.rec
	}
	return out
}

// isChanged implements the collection status derivation in §3.
func (c *collection) isChanged() bool {
	if len(c.deleted) != 0 {
		return true
	}
	if !sameSequence(c.items, c.originalSnapshot) {
		return true
	}
	for _, it := range c.items {
		if it.Status() != Unchanged {
			return true
		}
	}
	return false
}

func sameSequence(a, b []*record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// wrappedCollection is implemented by TC[T] for any T, letting
// setCollectionField accept an already-tracked collection handle
// without re-wrapping it.
type wrappedCollection interface {
	coll() *collection
}

// collectionChild implements lazy wrap-on-read for a collection
// property (§4.4), mirroring complexChild's caching behavior.
func (r *record) collectionChild(prop string) (*collection, error) {
	fi, ok := r.schema.Fields[prop]
	if !ok || fi.Kind != KindCollection {
		return nil, newTrackingError("Collection", ErrInvalidCast, r.typeName(), prop)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.collectionChildren == nil {
		r.collectionChildren = make(map[string]*collection)
		r.collectionWrapped = make(map[string]bool)
	}
	if r.collectionWrapped[prop] {
		return r.collectionChildren[prop], nil
	}

	field := r.ptr.Elem().FieldByIndex(fi.Index)
	c, err := newCollectionFromValue(field, false)
	if err != nil {
		return nil, err
	}
	c.setWriteback(field)
	r.collectionWrapped[prop] = true
	r.collectionChildren[prop] = c
	return c, nil
}

// setCollectionField implements whole-property assignment of a
// collection field (§4.2 step 1's dispatch to the collection
// tracker). Assigning a plain slice replaces the field and starts a
// fresh collection baseline from it; assigning an already-tracked
// TC[T] adopts its collection engine directly, preserving its
// original_snapshot and deleted bookkeeping.
func (r *record) setCollectionField(fi *FieldInfo, v any) error {
	field := r.ptr.Elem().FieldByIndex(fi.Index)

	r.mu.Lock()
	if r.collectionChildren == nil {
		r.collectionChildren = make(map[string]*collection)
		r.collectionWrapped = make(map[string]bool)
	}
	r.mu.Unlock()

	if w, ok := v.(wrappedCollection); ok {
		c := w.coll()
		c.setWriteback(field)
		c.syncWriteback()
		r.mu.Lock()
		r.collectionWrapped[fi.Name] = true
		r.collectionChildren[fi.Name] = c
		r.mu.Unlock()
		return nil
	}

	field.Set(reflect.ValueOf(v))
	c, err := newCollectionFromValue(field, false)
	if err != nil {
		return err
	}
	c.setWriteback(field)
	r.mu.Lock()
	r.collectionWrapped[fi.Name] = true
	r.collectionChildren[fi.Name] = c
	r.mu.Unlock()
	return nil
}
