package chrecord

import (
	"errors"
	"testing"
)

func TestAsTracked_NilErrors(t *testing.T) {
	var o *Order
	if _, err := AsTracked(o); !errors.Is(err, ErrInvalidCast) {
		t.Errorf("expected ErrInvalidCast for nil entity, got %v", err)
	}
}

func TestAsTracked_FreshIsUnchanged(t *testing.T) {
	tr, err := AsTracked(&Order{ID: 1, C: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Status() != Unchanged {
		t.Errorf("expected fresh wrap to be Unchanged, got %s", tr.Status())
	}
}

func TestEntity_ReturnsLivePointer(t *testing.T) {
	o := &Order{ID: 1, C: "A"}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Entity() != o {
		t.Error("expected Entity() to return the same pointer passed to AsTracked")
	}
}

func TestAsTrackedPtrSlice(t *testing.T) {
	items := []*OrderDetail{{ID: 1, Qty: 1}, {ID: 2, Qty: 2}}
	tc, err := AsTrackedPtrSlice(&items)
	if err != nil {
		t.Fatal(err)
	}
	if tc.Len() != 2 {
		t.Errorf("expected 2 items, got %d", tc.Len())
	}
	if err := tc.Items()[0].Set("Qty", 99); err != nil {
		t.Fatal(err)
	}
	if items[0].Qty != 99 {
		t.Errorf("expected underlying *OrderDetail mutated through the wrapper, got %d", items[0].Qty)
	}
}

func TestOriginal_SnapshotsDirtyScalar(t *testing.T) {
	o := &Order{ID: 1, C: "A"}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Set("C", "Z"); err != nil {
		t.Fatal(err)
	}

	snap, err := Original(tr)
	if err != nil {
		t.Fatalf("Original: %v", err)
	}
	if snap.C != "A" {
		t.Errorf("expected snapshot to carry the pre-mutation value A, got %s", snap.C)
	}
	if o.C != "Z" {
		t.Errorf("expected live record untouched by Original(), got %s", o.C)
	}
}

func TestOriginal_RecursesComplexAndCollectionChildren(t *testing.T) {
	o := &Order{
		ID:      1,
		C:       "A",
		Details: []OrderDetail{{ID: 1, Qty: 1}, {ID: 2, Qty: 2}},
	}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	details, err := CollectionOf[OrderDetail](tr, "Details")
	if err != nil {
		t.Fatal(err)
	}
	if err := details.Items()[0].Set("Qty", 100); err != nil {
		t.Fatal(err)
	}

	snap, err := Original(tr)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Details) != 2 || snap.Details[0].Qty != 1 {
		t.Errorf("expected snapshot details to reflect original Qty=1, got %+v", snap.Details)
	}
	if o.Details[0].Qty != 100 {
		t.Errorf("expected live record untouched, got %d", o.Details[0].Qty)
	}
}

func TestComplex_InvalidPropertyErrors(t *testing.T) {
	tr, err := AsTracked(&Order{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Complex("C"); !errors.Is(err, ErrInvalidCast) {
		t.Errorf("expected ErrInvalidCast asking for Complex() on a scalar property, got %v", err)
	}
}

func TestCollection_InvalidPropertyErrors(t *testing.T) {
	tr, err := AsTracked(&Order{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Collection("C"); !errors.Is(err, ErrInvalidCast) {
		t.Errorf("expected ErrInvalidCast asking for Collection() on a scalar property, got %v", err)
	}
}

func TestStringer(t *testing.T) {
	tr, err := AsTracked(&Order{ID: 1, C: "A"})
	if err != nil {
		t.Fatal(err)
	}
	got := tr.String()
	if got == "" {
		t.Error("expected non-empty String() output")
	}
}
