package item

import (
	"testing"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/ttesting"
)

func listOf(t *testing.T, ids ...uint16) *List {
	t.Helper()
	l := NewList()
	for _, id := range ids {
		it := NewServerItem(id, id+100, TYPE_GROUND)
		it.Name = "item"
		if err := l.Add(it); err != nil {
			t.Fatalf("adding item %d: %v", id, err)
		}
	}
	return l
}

func TestAddRejectsDuplicate(t *testing.T) {
	l := NewList()
	first := NewServerItem(7, 100, TYPE_GROUND)
	first.Name = "first"
	if err := l.Add(first); err != nil {
		t.Fatalf("adding first item: %v", err)
	}

	second := NewServerItem(7, 200, TYPE_CONTAINER)
	second.Name = "second"
	err := l.Add(second)
	if !errs.IsKind(err, errs.DuplicateID) {
		t.Fatalf("got %v; want a duplicate id error", err)
	}

	ttesting.AssertEqualInt(t, "length unchanged", l.Len(), 1)
	got, ok := l.Find(7)
	ttesting.AssertEqualBool(t, "first item still found", ok, true)
	ttesting.AssertEqualString(t, "first item kept", got.Name, "first")
}

func TestAddRejectsZeroID(t *testing.T) {
	l := NewList()
	err := l.Add(NewServerItem(0, 100, TYPE_GROUND))
	if !errs.IsKind(err, errs.RangeViolation) {
		t.Fatalf("got %v; want a range violation", err)
	}
	ttesting.AssertEqualInt(t, "list stays empty", l.Len(), 0)
}

func TestRemove(t *testing.T) {
	l := listOf(t, 2, 5, 9)

	if err := l.Remove(5); err != nil {
		t.Fatalf("removing item 5: %v", err)
	}
	_, ok := l.Find(5)
	ttesting.AssertEqualBool(t, "item gone", ok, false)
	ttesting.AssertEqualUint16(t, "min id", l.MinID(), 2)
	ttesting.AssertEqualUint16(t, "max id", l.MaxID(), 9)

	if err := l.Remove(5); !errs.IsKind(err, errs.RangeViolation) {
		t.Errorf("removing an absent item: got %v; want a range violation", err)
	}
}

func TestNextAvailableID(t *testing.T) {
	l := listOf(t, 1, 3, 5)
	ttesting.AssertEqualUint16(t, "fills the first gap", l.NextAvailableID(1), 2)
	ttesting.AssertEqualUint16(t, "respects the start", l.NextAvailableID(4), 4)
	ttesting.AssertEqualUint16(t, "start zero means one", l.NextAvailableID(0), 2)

	empty := NewList()
	ttesting.AssertEqualUint16(t, "empty list starts at one", empty.NextAvailableID(0), 1)
}

func TestUnusedIDsInRange(t *testing.T) {
	l := listOf(t, 1, 3, 5)
	got := l.UnusedIDsInRange(1, 5)
	want := []uint16{2, 4}
	ttesting.AssertEqualInt(t, "gap count", len(got), len(want))
	for idx := range want {
		ttesting.AssertEqualUint16(t, "gap value", got[idx], want[idx])
	}
}

func TestCompactAndDefragment(t *testing.T) {
	l := NewList()
	for _, id := range []uint16{9, 2, 5} {
		it := NewServerItem(id, id, TYPE_GROUND)
		it.Name = "item"
		if err := l.Add(it); err != nil {
			t.Fatal(err)
		}
	}

	l.Defragment()
	ids := l.IDs()
	for idx, want := range []uint16{2, 5, 9} {
		ttesting.AssertEqualUint16(t, "sorted after defragment", ids[idx], want)
	}

	l.Compact()
	ids = l.IDs()
	for idx, want := range []uint16{1, 2, 3} {
		ttesting.AssertEqualUint16(t, "dense after compact", ids[idx], want)
	}
	ttesting.AssertEqualUint16(t, "max id after compact", l.MaxID(), 3)
}

func TestMergeFrom(t *testing.T) {
	dst := listOf(t, 1, 2)
	src := listOf(t, 2, 3)
	other, _ := src.Find(2)
	other.Name = "replacement"

	added, replaced := dst.MergeFrom(src, false)
	ttesting.AssertEqualInt(t, "added without overwrite", added, 1)
	ttesting.AssertEqualInt(t, "replaced without overwrite", replaced, 0)
	kept, _ := dst.Find(2)
	ttesting.AssertEqualString(t, "existing item kept", kept.Name, "item")

	// Item 3 is already an identical copy after the first merge; only the
	// differing item 2 counts as a replacement.
	added, replaced = dst.MergeFrom(src, true)
	ttesting.AssertEqualInt(t, "added with overwrite", added, 0)
	ttesting.AssertEqualInt(t, "replaced with overwrite", replaced, 1)
	got, _ := dst.Find(2)
	ttesting.AssertEqualString(t, "item replaced", got.Name, "replacement")

	// A merge that changes nothing is a no-op.
	added, replaced = dst.MergeFrom(src, true)
	ttesting.AssertEqualInt(t, "added on identical merge", added, 0)
	ttesting.AssertEqualInt(t, "replaced on identical merge", replaced, 0)
}

func TestDifferences(t *testing.T) {
	a := listOf(t, 1, 2, 3)
	b := listOf(t, 2, 3, 4)
	changed, _ := b.Find(3)
	changed.Attack = 10

	got := a.Differences(b)
	want := []uint16{1, 3, 4}
	ttesting.AssertEqualInt(t, "difference count", len(got), len(want))
	for idx := range want {
		ttesting.AssertEqualUint16(t, "difference id", got[idx], want[idx])
	}
}

func TestAppendAndDuplicateIDs(t *testing.T) {
	l := NewList()
	l.Append(NewServerItem(4, 100, TYPE_GROUND))
	l.Append(NewServerItem(4, 200, TYPE_GROUND))
	l.Append(NewServerItem(6, 300, TYPE_GROUND))

	ttesting.AssertEqualInt(t, "append keeps both", l.Len(), 3)
	first, _ := l.Find(4)
	ttesting.AssertEqualUint16(t, "index keeps the first", first.ClientID, 100)

	dups := l.DuplicateIDs()
	ttesting.AssertEqualInt(t, "one duplicated id", len(dups), 1)
	ttesting.AssertEqualUint16(t, "duplicated id value", dups[0], 4)
}
