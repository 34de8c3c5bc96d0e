package chrecord

import "testing"

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		Unchanged: "Unchanged",
		Added:     "Added",
		Changed:   "Changed",
		Deleted:   "Deleted",
		Status(99): "Unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q; want %q", int(status), got, want)
		}
	}
}

func TestWrapScope_ReleasesChildrenWithoutChangingStatus(t *testing.T) {
	o := &Order{ID: 1, C: "A", Details: []OrderDetail{{ID: 1, Qty: 1}}}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Set("C", "Z"); err != nil {
		t.Fatal(err)
	}
	if _, err := CollectionOf[OrderDetail](tr, "Details"); err != nil {
		t.Fatal(err)
	}

	scope := NewWrapScope()
	scope.Track(tr)
	scope.Close()

	if tr.Status() != Changed {
		t.Errorf("expected Status unaffected by scope Close, got %s", tr.Status())
	}

	// Children re-wrap lazily on next access without error.
	details, err := CollectionOf[OrderDetail](tr, "Details")
	if err != nil {
		t.Fatalf("expected lazy re-wrap to succeed after Close, got error: %v", err)
	}
	if details.Len() != 1 {
		t.Errorf("expected 1 detail after re-wrap, got %d", details.Len())
	}
}

func TestRecord_FieldInfoUnknownProperty(t *testing.T) {
	o := &Order{ID: 1}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.r.fieldInfo("DoesNotExist"); err == nil {
		t.Error("expected an error for an unknown field name")
	}
}
