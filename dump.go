package chrecord

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/table"
)

// Dump renders a tracked record's scalar properties and overall
// status as a table on stdout, for interactive debugging the way the
// teacher renders query results during development.
func Dump(tr TrackedRecord) {
	DumpTo(os.Stdout, tr)
}

// DumpTo is Dump with an explicit writer, for tests and logging
// sinks other than stdout.
func DumpTo(w io.Writer, tr TrackedRecord) {
	r := tr.rec()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(r.typeName())
	t.AppendHeader(table.Row{"Property", "Original", "Current", "Dirty"})

	for _, name := range r.schema.Scalars {
		fi := r.schema.Fields[name]
		current, _ := r.get(name)
		original, _ := r.originalValue(name)
		dirty, _ := r.isDirtyField(name)
		t.AppendRow(table.Row{fi.Label, keyString(original), keyString(current), dirty})
	}

	t.AppendFooter(table.Row{"Status", "", "", r.Status()})
	t.Render()
}

// DumpCollection renders a tracked collection's membership, one row
// per visible item plus a summary title, on stdout.
func DumpCollection(tc TrackedCollection) {
	DumpCollectionTo(os.Stdout, tc)
}

// DumpCollectionTo is DumpCollection with an explicit writer.
func DumpCollectionTo(w io.Writer, tc TrackedCollection) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Status"})

	items := tc.Items()
	for i, item := range items {
		t.AppendRow(table.Row{i, item.Status()})
	}

	t.SetTitle(fmt.Sprintf("%d %s (%d added, %d changed, %d deleted)",
		len(items), pluralLabel("item"),
		len(tc.AddedItems()), len(tc.ChangedItems()), len(tc.DeletedItems())))
	t.Render()
}
