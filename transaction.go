package chrecord

// This file implements the Transaction Coordinator (§4.5): the
// depth-first traversal behind AcceptChanges and RejectChanges. The
// generic entry points callers actually use live in chrecord.go; this
// file holds the untyped engine that walks a *record/*collection
// graph.

// acceptRecord commits r's current state as the new baseline,
// bottom-up: children are accepted before r clears its own scalar
// diffs, so a parent's isDirty() check (which rolls up child status)
// never observes a half-accepted child.
func acceptRecord(r *record) {
	for _, child := range r.materializedComplexChildren() {
		acceptRecord(child)
	}
	for _, c := range r.materializedCollectionChildren() {
		acceptCollection(c)
	}
	r.original = make(map[string]any)
	r.member = membershipNone
}

// acceptCollection commits a collection's current membership as its
// new original_snapshot: every live item is accepted in turn, deleted
// items are dropped for good, and the snapshot is replaced with the
// current item order.
func acceptCollection(c *collection) {
	for _, it := range c.items {
		acceptRecord(it)
	}
	c.originalSnapshot = append([]*record(nil), c.items...)
	c.deleted = nil
}

// rejectRecord restores r to its last-accepted baseline, top-down:
// r's own scalar fields are restored first, then each child is walked
// to undo its own changes. A complex child rejecting its own scalars
// doesn't depend on the parent's restore, so the ordering only matters
// for collections, where rejectCollection must rebuild membership
// before recursing into the restored items.
func rejectRecord(r *record) {
	for name, orig := range r.original {
		fi := r.schema.Fields[name]
		r.setFieldRaw(fi, orig)
	}
	r.original = make(map[string]any)

	for _, child := range r.materializedComplexChildren() {
		rejectRecord(child)
	}
	for _, c := range r.materializedCollectionChildren() {
		rejectCollection(c)
	}
}

// rejectCollection restores a collection's membership to
// original_snapshot exactly: added items are dropped, deleted items
// reappear at their original position, and any reordering is undone,
// all in one step since original_snapshot already records the
// pre-mutation order by identity. Each surviving item is then
// recursed into so its own scalar/nested changes are rejected too.
// Because every collection rejects from its own snapshot
// independently, an item moved between two tracked collections is
// restored to both its original memberships (§8, cross-collection
// move).
func rejectCollection(c *collection) {
	c.items = append([]*record(nil), c.originalSnapshot...)
	c.deleted = nil
	for _, it := range c.items {
		it.member = membershipNone
		rejectRecord(it)
	}
	c.syncWriteback()
}
