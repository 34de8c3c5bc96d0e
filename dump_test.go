package chrecord

import (
	"bytes"
	"strings"
	"testing"
)

func TestDumpTo_RendersStatusAndDirtyFlag(t *testing.T) {
	o := &Order{ID: 1, C: "A"}
	tr, err := AsTracked(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Set("C", "Z"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	DumpTo(&buf, tr)

	out := buf.String()
	// The status sits in the table footer, which the default table
	// style renders in upper case.
	if !strings.Contains(out, "CHANGED") {
		t.Errorf("expected dump footer to show CHANGED status, got:\n%s", out)
	}
	if !strings.Contains(out, "Order") {
		t.Errorf("expected dump title to mention the type name, got:\n%s", out)
	}
}

func TestDumpCollectionTo_RendersSummary(t *testing.T) {
	orders := tenOrders()
	tc, err := AsTrackedSlice(&orders)
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.Items()[0].Set("C", "Z"); err != nil {
		t.Fatal(err)
	}
	if err := tc.Remove(tc.Items()[1]); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	DumpCollectionTo(&buf, tc)

	out := buf.String()
	if !strings.Contains(out, "1 changed") {
		t.Errorf("expected dump summary to report 1 changed item, got:\n%s", out)
	}
	if !strings.Contains(out, "1 deleted") {
		t.Errorf("expected dump summary to report 1 deleted item, got:\n%s", out)
	}
}
