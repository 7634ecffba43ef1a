package things

import (
	"testing"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/dat"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/spr"
	"badc0de.net/pkg/go-itemedit/ttesting"
)

func fixtureSprites(t *testing.T) *spr.SpriteSet {
	t.Helper()
	var w binbuf.Writer
	w.U32(0x4A44FD4E)
	w.U16(1)
	w.U32(10) // sprite 1: right after the offset table
	w.Write([]byte{0xFF, 0x00, 0xFF})
	w.U16(4)
	w.Write([]byte{0x11, 0x22, 0x33, 0x44})

	s, diags, err := spr.New(w.Bytes(), spr.Options{})
	if err != nil {
		t.Fatalf("building sprite fixture: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("sprite fixture diagnostics: %v", diags)
	}
	return s
}

func fixtureDataset(t *testing.T) *dat.Dataset {
	t.Helper()
	table, ok := dat.TableByFamily("8.0-8.55")
	if !ok {
		t.Fatal("8.0-8.55 table missing")
	}

	var w binbuf.Writer
	w.U32(0)
	w.U16(101) // items 100 and 101
	w.U16(0)
	w.U16(0)
	w.U16(0)
	// item 100: ground referencing sprite 1
	w.U8(0x00)
	w.U16(150)
	w.U8(0xFF)
	w.Write([]byte{1, 1, 1, 1, 1, 1, 1})
	w.U16(1)
	// item 101: references sprite 9, absent from the archive
	w.U8(0xFF)
	w.Write([]byte{1, 1, 1, 1, 1, 1, 1})
	w.U16(9)

	d, _, err := dat.New(w.Bytes(), table)
	if err != nil {
		t.Fatalf("building dataset fixture: %v", err)
	}
	return d
}

func TestAddClientData(t *testing.T) {
	reg := New()

	list := item.NewList()
	server := item.NewServerItem(1, 100, item.TYPE_GROUND)
	server.Name = "grass"
	if err := list.Add(server); err != nil {
		t.Fatal(err)
	}
	reg.AddItemsOTB(list)

	diags := reg.AddClientData(fixtureDataset(t), fixtureSprites(t))

	ttesting.AssertEqualInt(t, "client item count", len(reg.ClientItems()), 2)

	c, ok := reg.ClientItem(100)
	if !ok {
		t.Fatal("client item 100 missing")
	}
	ttesting.AssertEqualInt(t, "blob slots", len(c.SpriteBlobs), 1)
	ttesting.AssertEqualBytes(t, "blob attached", c.SpriteBlobs[0], []byte{0x11, 0x22, 0x33, 0x44})
	ttesting.AssertEqualUint16(t, "ground speed carried over", c.GroundSpeed, 150)

	missing, ok := reg.ClientItem(101)
	if !ok {
		t.Fatal("client item 101 missing")
	}
	if missing.SpriteBlobs[0] != nil {
		t.Error("unresolved sprite reference should leave a nil blob")
	}
	ttesting.AssertEqualBool(t, "unresolved reference diagnosed", diags.HasKind(errs.RangeViolation), true)
}

func TestClientForServerID(t *testing.T) {
	reg := New()
	list := item.NewList()
	if err := list.Add(item.NewServerItem(1, 100, item.TYPE_GROUND)); err != nil {
		t.Fatal(err)
	}
	reg.AddItemsOTB(list)
	reg.AddClientData(fixtureDataset(t), nil)

	c, ok := reg.ClientForServerID(1)
	ttesting.AssertEqualBool(t, "resolved", ok, true)
	ttesting.AssertEqualUint16(t, "client id", c.ClientID, 100)

	if _, ok := reg.ClientForServerID(42); ok {
		t.Error("unknown server id should not resolve")
	}
}
