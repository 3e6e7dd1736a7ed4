package core

import (
	"fmt"
	"sync"
)

// ListingStore is the in-memory copy of the "servicos" collection. It is
// populated from the remote store and kept consistent by the mutation
// coordinator, so filter/group/export calls see current data without a
// forced reload.
//
// Records are held newest-first (creation order descending), the same order
// the remote query returns. Identifiers are unique at all times.
type ListingStore struct {
	mu      sync.RWMutex
	records []ServiceRecord
	byID    map[string]int // id -> index in records
}

// NewListingStore returns an empty listing cache.
func NewListingStore() *ListingStore {
	return &ListingStore{byID: make(map[string]int)}
}

// Replace swaps in a freshly loaded record sequence (newest first).
// Duplicate identifiers in the input are rejected.
func (l *ListingStore) Replace(records []ServiceRecord) error {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		if _, dup := byID[r.ID]; dup {
			return fmt.Errorf("listing: duplicate record id %q", r.ID)
		}
		byID[r.ID] = i
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]ServiceRecord(nil), records...)
	l.byID = byID
	return nil
}

// Records returns a snapshot copy of the cached sequence, newest first.
func (l *ListingStore) Records() []ServiceRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ServiceRecord(nil), l.records...)
}

// Len returns the number of cached records.
func (l *ListingStore) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Get returns the cached record with the given id.
func (l *ListingStore) Get(id string) (ServiceRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return ServiceRecord{}, false
	}
	return l.records[i], true
}

// ApplyCreate inserts a newly created record at the front (it is the newest).
// Inserting an id that already exists is rejected.
func (l *ListingStore) ApplyCreate(rec ServiceRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.byID[rec.ID]; dup {
		return fmt.Errorf("listing: record id %q already present", rec.ID)
	}
	l.records = append([]ServiceRecord{rec}, l.records...)
	for id, i := range l.byID {
		l.byID[id] = i + 1
	}
	l.byID[rec.ID] = 0
	return nil
}

// ApplyUpdate replaces the record matching rec.ID in place, preserving its
// position. Updating an absent id returns ErrNotFound.
func (l *ListingStore) ApplyUpdate(rec ServiceRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.byID[rec.ID]
	if !ok {
		return ErrNotFound
	}
	l.records[i] = rec
	return nil
}

// ApplyDelete removes the record with the given id. Deleting an absent id is
// a no-op, not an error.
func (l *ListingStore) ApplyDelete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.byID[id]
	if !ok {
		return
	}
	l.records = append(l.records[:i], l.records[i+1:]...)
	delete(l.byID, id)
	for j := i; j < len(l.records); j++ {
		l.byID[l.records[j].ID] = j
	}
}
