package output

import (
	"slices"
	"sync"
)

// Accessory maps a remote-board pin to the device that mirrors it. Index is
// the device's position in the space collection as of the last Reindex.
type Accessory struct {
	AccessoryID string `json:"accessory_id"`
	Kind        string `json:"kind"`
	Pin         int    `json:"pin"`
	Index       int    `json:"index"`
}

// AccessoryTable is the ordered pin mapping consulted by the Interpreter.
// It is safe for concurrent use.
type AccessoryTable struct {
	mu      sync.RWMutex
	entries []Accessory
}

// NewAccessoryTable creates an empty table.
func NewAccessoryTable() *AccessoryTable {
	return &AccessoryTable{}
}

// Register appends an entry. Several entries may share a pin; Lookup
// returns the earliest.
func (t *AccessoryTable) Register(a Accessory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, a)
}

// Remove deletes the entry for accessoryID and reports whether one existed.
func (t *AccessoryTable) Remove(accessoryID string) (Accessory, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := slices.IndexFunc(t.entries, func(a Accessory) bool { return a.AccessoryID == accessoryID })
	if i < 0 {
		return Accessory{}, false
	}
	removed := t.entries[i]
	t.entries = slices.Delete(t.entries, i, i+1)
	return removed, true
}

// Reindex refreshes every entry's Index from indexOf. Entries whose device
// is gone get -1.
func (t *AccessoryTable) Reindex(indexOf func(id string) int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		t.entries[i].Index = indexOf(t.entries[i].AccessoryID)
	}
}

// Lookup returns the first entry registered for pin.
func (t *AccessoryTable) Lookup(pin int) (Accessory, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, a := range t.entries {
		if a.Pin == pin {
			return a, true
		}
	}
	return Accessory{}, false
}

// Entries returns a copy of the table in registration order.
func (t *AccessoryTable) Entries() []Accessory {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.entries)
}

// Len returns the number of entries.
func (t *AccessoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
