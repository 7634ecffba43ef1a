package item

import (
	"sort"
	"time"

	"badc0de.net/pkg/go-itemedit/errs"
)

// Version is the triple stored in the items.otb root node. Minor encodes
// the targeted client version numerically (for example 860 for 8.60).
type Version struct {
	Major uint32
	Minor uint32
	Build uint32
}

// List is an ordered collection of server items with a hash index by
// server ID. Items keep their insertion order until Defragment or Compact
// reorders them.
type List struct {
	items []*ServerItem
	byID  map[uint16]int

	minID uint16
	maxID uint16

	Version     Version
	Description string

	dirty        bool
	lastModified time.Time

	// rawRoot caches the root node's exact property stream for byte-exact
	// re-emits; any list mutation drops it.
	rawRoot []byte
}

// NewList returns an empty list.
func NewList() *List {
	return &List{byID: make(map[uint16]int)}
}

// Len returns the number of items, duplicates from Append included.
func (l *List) Len() int {
	return len(l.items)
}

// Items returns the backing slice in iteration order. Callers must treat
// it as read-only.
func (l *List) Items() []*ServerItem {
	return l.items
}

// MinID returns the smallest server ID held, or 0 for an empty list.
func (l *List) MinID() uint16 { return l.minID }

// MaxID returns the largest server ID held, or 0 for an empty list.
func (l *List) MaxID() uint16 { return l.maxID }

// Dirty reports whether the list changed since it was loaded or saved.
func (l *List) Dirty() bool { return l.dirty }

// SetDirty marks or clears the changed-since-save state.
func (l *List) SetDirty(dirty bool) { l.dirty = dirty }

// LastModified returns when the list last changed.
func (l *List) LastModified() time.Time { return l.lastModified }

func (l *List) touch() {
	l.dirty = true
	l.lastModified = time.Now().UTC()
	l.rawRoot = nil
}

// RawRootProps returns the cached root property stream, or nil once the
// list has been mutated.
func (l *List) RawRootProps() []byte {
	return l.rawRoot
}

// SetRawRootProps records the root property stream the list was read from.
func (l *List) SetRawRootProps(b []byte) {
	l.rawRoot = b
}

func (l *List) trackID(id uint16) {
	if len(l.byID) == 1 || id < l.minID {
		l.minID = id
	}
	if id > l.maxID {
		l.maxID = id
	}
}

func (l *List) recomputeBounds() {
	l.minID, l.maxID = 0, 0
	first := true
	for id := range l.byID {
		if first || id < l.minID {
			l.minID = id
		}
		if id > l.maxID {
			l.maxID = id
		}
		first = false
	}
}

// Add inserts the item, rejecting a duplicate or zero server ID without
// mutating the list.
func (l *List) Add(it *ServerItem) error {
	if it.ID == 0 {
		return errs.New(errs.RangeViolation, "server id must be greater than zero")
	}
	if _, ok := l.byID[it.ID]; ok {
		return errs.New(errs.DuplicateID, "an item with server id %d already exists", it.ID)
	}
	l.byID[it.ID] = len(l.items)
	l.items = append(l.items, it)
	l.trackID(it.ID)
	l.touch()
	return nil
}

// Remove deletes the item with the given ID, failing without mutation when
// it is absent.
func (l *List) Remove(id uint16) error {
	idx, ok := l.byID[id]
	if !ok {
		return errs.New(errs.RangeViolation, "no item with server id %d", id)
	}
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	delete(l.byID, id)
	for rest := idx; rest < len(l.items); rest++ {
		l.byID[l.items[rest].ID] = rest
	}
	l.recomputeBounds()
	l.touch()
	return nil
}

// Update replaces the stored item having the same server ID.
func (l *List) Update(it *ServerItem) error {
	idx, ok := l.byID[it.ID]
	if !ok {
		return errs.New(errs.RangeViolation, "no item with server id %d", it.ID)
	}
	l.items[idx] = it
	l.touch()
	return nil
}

// Find looks the item up by server ID.
func (l *List) Find(id uint16) (*ServerItem, bool) {
	idx, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	return l.items[idx], true
}

// IDs returns the server IDs in iteration order.
func (l *List) IDs() []uint16 {
	out := make([]uint16, len(l.items))
	for idx, it := range l.items {
		out[idx] = it.ID
	}
	return out
}

// NextAvailableID returns the lowest unused server ID not below start.
// Passing 0 is the same as passing 1.
func (l *List) NextAvailableID(start uint16) uint16 {
	if start == 0 {
		start = 1
	}
	for id := start; id > 0; id++ {
		if _, ok := l.byID[id]; !ok {
			return id
		}
	}
	return 0
}

// UnusedIDsInRange returns every free server ID in [lo, hi], ascending.
func (l *List) UnusedIDsInRange(lo, hi uint16) []uint16 {
	if lo == 0 {
		lo = 1
	}
	var out []uint16
	for id := lo; id >= lo && id <= hi; id++ {
		if _, ok := l.byID[id]; !ok {
			out = append(out, id)
		}
		if id == 0xFFFF {
			break
		}
	}
	return out
}

// Compact reassigns dense sequential IDs starting at 1, preserving the
// current iteration order.
func (l *List) Compact() {
	l.byID = make(map[uint16]int, len(l.items))
	for idx, it := range l.items {
		it.ID = uint16(idx + 1)
		it.Touch()
		l.byID[it.ID] = idx
	}
	l.recomputeBounds()
	l.touch()
}

// Defragment sorts the items ascending by server ID and rebuilds the
// index, so iteration order becomes ID order.
func (l *List) Defragment() {
	sort.SliceStable(l.items, func(a, b int) bool { return l.items[a].ID < l.items[b].ID })
	l.byID = make(map[uint16]int, len(l.items))
	for idx, it := range l.items {
		l.byID[it.ID] = idx
	}
	l.recomputeBounds()
	l.touch()
}

// MergeFrom copies items from other into l. Existing IDs are replaced only
// when overwrite is set and the incoming item actually differs. It returns
// how many items were added and how many replaced.
func (l *List) MergeFrom(other *List, overwrite bool) (added, replaced int) {
	for _, it := range other.items {
		if at, ok := l.byID[it.ID]; ok {
			if !overwrite || l.items[at].EqualsAsServer(it, DiffOptions{CompareSpriteHash: true}) {
				continue
			}
			l.items[at] = it.Copy()
			replaced++
			continue
		}
		cp := it.Copy()
		l.byID[cp.ID] = len(l.items)
		l.items = append(l.items, cp)
		l.trackID(cp.ID)
		added++
	}
	if added > 0 || replaced > 0 {
		l.touch()
	}
	return added, replaced
}

// Differences returns, ascending, every server ID present in only one of
// the two lists or whose items differ property-wise.
func (l *List) Differences(other *List) []uint16 {
	seen := make(map[uint16]bool)
	var out []uint16
	note := func(id uint16) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, it := range l.items {
		theirs, ok := other.Find(it.ID)
		if !ok || !it.EqualsAsServer(theirs, DiffOptions{}) {
			note(it.ID)
		}
	}
	for _, it := range other.items {
		if _, ok := l.Find(it.ID); !ok {
			note(it.ID)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Append adds the item without enforcing ID uniqueness. Codecs use it
// while a file is still being read; DuplicateIDs reports what a later
// enforcement pass should reject. The index keeps the first occurrence.
func (l *List) Append(it *ServerItem) {
	if _, ok := l.byID[it.ID]; !ok {
		l.byID[it.ID] = len(l.items)
		l.trackID(it.ID)
	}
	l.items = append(l.items, it)
}

// DuplicateIDs returns, ascending, every server ID held by more than one
// item after a bulk Append pass.
func (l *List) DuplicateIDs() []uint16 {
	counts := make(map[uint16]int)
	for _, it := range l.items {
		counts[it.ID]++
	}
	var out []uint16
	for id, n := range counts {
		if n > 1 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
