package core

import "testing"

func TestSelection_Toggle(t *testing.T) {
	sel := NewSelectionSet()

	if !sel.Toggle("a") {
		t.Error("first Toggle(a) = false, want true")
	}
	if !sel.Contains("a") {
		t.Error("Contains(a) = false after select")
	}
	if sel.Toggle("a") {
		t.Error("second Toggle(a) = true, want false")
	}
	if sel.Len() != 0 {
		t.Errorf("Len() = %d, want 0", sel.Len())
	}
}

func TestSelection_SelectAllReplaces(t *testing.T) {
	sel := NewSelectionSet()
	sel.Toggle("stale")

	sel.SelectAll([]string{"a", "b"})

	if sel.Contains("stale") {
		t.Error("stale id survived SelectAll")
	}
	if !sel.Contains("a") || !sel.Contains("b") {
		t.Error("SelectAll missed visible ids")
	}
	if sel.Len() != 2 {
		t.Errorf("Len() = %d, want 2", sel.Len())
	}
}

func TestSelection_Clear(t *testing.T) {
	sel := NewSelectionSet()
	sel.SelectAll([]string{"a", "b"})
	sel.Clear()
	if sel.Len() != 0 {
		t.Errorf("Len() = %d, want 0", sel.Len())
	}
}

func TestSelection_Prune(t *testing.T) {
	sel := NewSelectionSet()
	sel.SelectAll([]string{"a", "b", "c"})

	sel.Prune([]string{"b", "c", "d"})

	if sel.Contains("a") {
		t.Error("pruned id still selected")
	}
	if !sel.Contains("b") || !sel.Contains("c") {
		t.Error("surviving ids dropped by Prune")
	}
}

func TestSelection_SnapshotIsCopy(t *testing.T) {
	sel := NewSelectionSet()
	sel.Toggle("a")

	snap := sel.Snapshot()
	sel.Clear()

	if !snap["a"] {
		t.Error("snapshot changed after Clear")
	}
}
