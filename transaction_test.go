package chrecord

import "testing"

func TestAcceptChanges_ResetsBaseline(t *testing.T) {
	o := &Order{ID: 1, C: "A"}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Set("C", "B"); err != nil {
		t.Fatal(err)
	}
	if tr.Status() != Changed {
		t.Fatalf("expected Changed before accept, got %s", tr.Status())
	}

	AcceptChanges(tr)

	if tr.Status() != Unchanged {
		t.Errorf("expected Unchanged after accept, got %s", tr.Status())
	}
	orig, err := tr.OriginalValue("C")
	if err != nil {
		t.Fatal(err)
	}
	if orig != "B" {
		t.Errorf("expected accepted value B to become the new original, got %v", orig)
	}
}

// TestAcceptChangesIdempotent is P3's accept half.
func TestAcceptChangesIdempotent(t *testing.T) {
	o := &Order{ID: 1, C: "A"}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Set("C", "B"); err != nil {
		t.Fatal(err)
	}
	AcceptChanges(tr)
	AcceptChanges(tr)
	if tr.Status() != Unchanged {
		t.Errorf("expected Unchanged after repeated accept, got %s", tr.Status())
	}
}

// TestRejectChangesIdempotent is P3's reject half.
func TestRejectChangesIdempotent(t *testing.T) {
	o := &Order{ID: 1, C: "A"}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Set("C", "B"); err != nil {
		t.Fatal(err)
	}
	RejectChanges(tr)
	RejectChanges(tr)
	if tr.Status() != Unchanged {
		t.Errorf("expected Unchanged after repeated reject, got %s", tr.Status())
	}
	if o.C != "A" {
		t.Errorf("expected underlying struct reverted to A, got %s", o.C)
	}
}

// TestRejectChanges_RestoresToLastAccept is P4: apply(M); reject
// restores the root to the last accepted (or initial) state.
func TestRejectChanges_RestoresToLastAccept(t *testing.T) {
	o := &Order{ID: 1, C: "A"}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Set("C", "B"); err != nil {
		t.Fatal(err)
	}
	AcceptChanges(tr) // baseline is now C="B"

	if err := tr.Set("C", "Z"); err != nil {
		t.Fatal(err)
	}
	RejectChanges(tr)

	if o.C != "B" {
		t.Errorf("expected reject to restore the last-accepted value B, got %s", o.C)
	}
	if tr.Status() != Unchanged {
		t.Errorf("expected Unchanged after reject, got %s", tr.Status())
	}
}

func TestRejectChanges_ComplexChild(t *testing.T) {
	c := &Customer{ID: 1, Name: "Ada", Address: &Address{City: "Paris"}}
	tr, err := AsTracked(c)
	if err != nil {
		t.Fatal(err)
	}
	child, err := tr.Complex("Address")
	if err != nil || child == nil {
		t.Fatal(err)
	}
	if err := child.Set("City", "Lyon"); err != nil {
		t.Fatal(err)
	}

	RejectChanges(tr)

	if c.Address.City != "Paris" {
		t.Errorf("expected nested complex field reverted to Paris, got %s", c.Address.City)
	}
	if tr.Status() != Unchanged {
		t.Errorf("expected parent Unchanged after reject, got %s", tr.Status())
	}
}

// TestCrossCollectionMove is spec §8 scenario 4 verbatim.
func TestCrossCollectionMove(t *testing.T) {
	parents := []Parent{
		{ID: 1, OrderDetails: []OrderDetail{{ID: 1}, {ID: 2}}},
		{ID: 2, OrderDetails: []OrderDetail{{ID: 3}, {ID: 4}}},
	}
	root, err := AsTrackedSlice(&parents)
	if err != nil {
		t.Fatal(err)
	}

	p0 := root.Items()[0]
	p1 := root.Items()[1]

	details0, err := CollectionOf[OrderDetail](p0, "OrderDetails")
	if err != nil {
		t.Fatal(err)
	}
	details1, err := CollectionOf[OrderDetail](p1, "OrderDetails")
	if err != nil {
		t.Fatal(err)
	}

	d := details0.Items()[0] // detail with ID=1
	if err := details0.Remove(d); err != nil {
		t.Fatal(err)
	}
	if err := details1.Insert(2, d); err != nil {
		t.Fatal(err)
	}

	if d.Status() != Added {
		t.Errorf("expected moved detail Added in destination collection, got %s", d.Status())
	}
	if got := len(DeletedItems(root)); got != 0 {
		t.Errorf("expected no deleted items on the root collection, got %d", got)
	}

	AcceptChanges(root)

	if details0.Len() != 1 {
		t.Errorf("expected source collection to have 1 detail after accept, got %d", details0.Len())
	}
	if details1.Len() != 3 {
		t.Errorf("expected destination collection to have 3 details after accept, got %d", details1.Len())
	}
	if IsChanged(root) {
		t.Error("expected root unchanged after accept")
	}
}

// TestCrossCollectionMove_Reject is spec §8 scenario 5 verbatim.
func TestCrossCollectionMove_Reject(t *testing.T) {
	parents := []Parent{
		{ID: 1, OrderDetails: []OrderDetail{{ID: 1}, {ID: 2}}},
		{ID: 2, OrderDetails: []OrderDetail{{ID: 3}, {ID: 4}}},
	}
	root, err := AsTrackedSlice(&parents)
	if err != nil {
		t.Fatal(err)
	}

	p0 := root.Items()[0]
	p1 := root.Items()[1]
	details0, _ := CollectionOf[OrderDetail](p0, "OrderDetails")
	details1, _ := CollectionOf[OrderDetail](p1, "OrderDetails")

	d := details0.Items()[0]
	if err := details0.Remove(d); err != nil {
		t.Fatal(err)
	}
	if err := details1.Insert(2, d); err != nil {
		t.Fatal(err)
	}

	RejectChanges(root)

	if details0.Len() != 2 {
		t.Errorf("expected source back to 2 details, got %d", details0.Len())
	}
	if details1.Len() != 2 {
		t.Errorf("expected destination back to 2 details, got %d", details1.Len())
	}
	if IsChanged(root) {
		t.Error("expected root unchanged after reject")
	}
}
