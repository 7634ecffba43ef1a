package itemsotb

import (
	"bytes"
	"testing"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/ttesting"
)

func fixtureList() *item.List {
	list := item.NewList()
	list.Version = item.Version{Major: 3, Minor: 860, Build: 1}
	list.Description = "OTB 3.860.1-1.1"

	first := item.NewServerItem(1, 100, item.TYPE_GROUND)
	first.Name = "grass"
	first.GroundSpeed = 150

	second := item.NewServerItem(2, 101, item.TYPE_CONTAINER)
	second.Name = "backpack"
	second.Flags = item.FLAG_PICKUPABLE | item.FLAG_STACKABLE
	second.ContainerSize = 20

	// The 0xFD in the name forces the writer through the escape path.
	third := item.NewServerItem(3, 102, item.TYPE_FLUID)
	third.Name = "vial\xfd"
	third.FluidSource = 1

	for _, it := range []*item.ServerItem{first, second, third} {
		if err := list.Add(it); err != nil {
			panic(err)
		}
	}
	return list
}

func TestReadWriteRoundTrip(t *testing.T) {
	data, err := Write(fixtureList())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	list, diags, err := Read(data, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	ttesting.AssertEqualInt(t, "diagnostics", len(diags), 0)
	ttesting.AssertEqualInt(t, "item count", list.Len(), 3)
	ttesting.AssertEqualUint32(t, "minor version", list.Version.Minor, 860)
	ttesting.AssertEqualUint16(t, "min id", list.MinID(), 1)
	ttesting.AssertEqualUint16(t, "max id", list.MaxID(), 3)
	ttesting.AssertEqualUint32(t, "second item flags", uint32(list.Items()[1].Flags), 0x000000A0)
	ttesting.AssertEqualString(t, "escaped name", list.Items()[2].Name, "vial\xfd")
	ttesting.AssertEqualBool(t, "clean after read", list.Dirty(), false)

	again, err := Write(list)
	if err != nil {
		t.Fatalf("Write after Read: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Errorf("write/read/write is not byte identical: %d vs %d bytes", len(again), len(data))
	}
}

func TestReadMutatedListStillWrites(t *testing.T) {
	data, err := Write(fixtureList())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	list, _, err := Read(data, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	it, _ := list.Find(2)
	if err := it.Set("name", item.StringValue("satchel")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	again, err := Write(list)
	if err != nil {
		t.Fatalf("Write after mutation: %v", err)
	}
	list2, _, err := Read(again, ReadOptions{})
	if err != nil {
		t.Fatalf("Read after mutation: %v", err)
	}
	got, _ := list2.Find(2)
	ttesting.AssertEqualString(t, "mutated name survives", got.Name, "satchel")
	ttesting.AssertEqualUint32(t, "mutated flags survive", uint32(got.Flags), 0x000000A0)
}

func TestReadTruncated(t *testing.T) {
	data, err := Write(fixtureList())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	cut := data[:len(data)-3]

	_, _, err = Read(cut, ReadOptions{})
	if err == nil {
		t.Fatal("Read of a truncated stream succeeded")
	}
	if !errs.IsKind(err, errs.Truncated) {
		t.Errorf("got error %v; want kind %s", err, errs.Truncated)
	}
	if e, ok := err.(*errs.Error); ok && e.Offset > int64(len(cut)) {
		t.Errorf("error offset %d beyond input of %d bytes", e.Offset, len(cut))
	}
}

func TestWriteRejectsDuplicates(t *testing.T) {
	list := fixtureList()
	dup := item.NewServerItem(2, 200, item.TYPE_NONE)
	list.Append(dup)

	_, err := Write(list)
	if !errs.IsKind(err, errs.DuplicateID) {
		t.Errorf("got error %v; want kind %s", err, errs.DuplicateID)
	}
}

func TestUnknownAttribute(t *testing.T) {
	list := fixtureList()
	it, _ := list.Find(1)
	it.UnknownAttributes = append(it.UnknownAttributes, item.UnknownAttribute{Attr: 0x7F, Data: []byte{0xDE, 0xAD}})
	it.Touch()

	data, err := Write(list)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	_, _, err = Read(data, ReadOptions{Strict: true})
	if !errs.IsKind(err, errs.UnknownAttribute) {
		t.Errorf("strict: got error %v; want kind %s", err, errs.UnknownAttribute)
	}

	got, diags, err := Read(data, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	ttesting.AssertEqualBool(t, "unknown attribute diagnosed", diags.HasKind(errs.UnknownAttribute), true)

	again, err := Write(got)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	ttesting.AssertEqualBytes(t, "unknown attribute preserved", again, data)
}

func TestClientVersionString(t *testing.T) {
	ttesting.AssertEqualString(t, "8.60", CLIENT_VERSION_860.String(), "8.60")
	ttesting.AssertEqualString(t, "8.00", CLIENT_VERSION_800.String(), "8.00")
}
