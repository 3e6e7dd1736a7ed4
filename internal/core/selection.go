package core

import "sync"

// SelectionSet tracks the record ids a user has marked for export. It is
// ephemeral per-session state; the web layer owns one per signed-in session.
type SelectionSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

// NewSelectionSet returns an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[string]bool)}
}

// Toggle adds id if absent and removes it if present. Returns true when the
// id is selected after the call.
func (s *SelectionSet) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[id] {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = true
	return true
}

// SelectAll replaces the selection with exactly the given ids. Callers must
// pass only the currently visible (filtered) ids; passing the full store
// would leak hidden records into the export.
func (s *SelectionSet) SelectAll(visibleIDs []string) {
	next := make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		next[id] = true
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}

// Clear empties the selection.
func (s *SelectionSet) Clear() {
	s.mu.Lock()
	s.ids = make(map[string]bool)
	s.mu.Unlock()
}

// Contains reports whether id is selected.
func (s *SelectionSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id]
}

// Len returns the number of selected ids.
func (s *SelectionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Prune drops selected ids no longer present in the given visible set. Ids
// still present stay selected across view changes.
func (s *SelectionSet) Prune(visibleIDs []string) {
	visible := make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		visible[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.ids {
		if !visible[id] {
			delete(s.ids, id)
		}
	}
}

// Snapshot returns the selected ids in unspecified order.
func (s *SelectionSet) Snapshot() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.ids))
	for id := range s.ids {
		out[id] = true
	}
	return out
}
