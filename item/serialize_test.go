package item

import (
	"testing"
	"time"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/ttesting"
)

func serializeFixture() *ServerItem {
	it := NewServerItem(321, 4567, TYPE_CONTAINER)
	it.Name = "backpack"
	it.Description = "a sturdy backpack"
	it.Article = "a"
	it.Plural = "backpacks"
	it.Flags = FLAG_PICKUPABLE | FLAG_MOVEABLE
	it.ContainerSize = 20
	it.Width = 1
	it.Height = 1
	it.SpriteHash = make([]byte, SpriteHashSize)
	for idx := range it.SpriteHash {
		it.SpriteHash[idx] = byte(idx)
	}
	it.IsCustomCreated = true
	it.HasClientData = true
	it.LastModified = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	it.ModifiedBy = "editor"
	it.UnknownAttributes = []UnknownAttribute{
		{Attr: 0x7F, Data: []byte{0xDE, 0xAD}},
		{Attr: 0x42, Data: nil},
	}
	return it
}

func TestSerializeRoundTrip(t *testing.T) {
	want := serializeFixture()
	data := want.Serialize()

	var got ServerItem
	if err := got.Deserialize(data); err != nil {
		t.Fatalf("deserializing: %v", err)
	}

	ttesting.AssertEqualBool(t, "server fields round trip", got.EqualsAsServer(want, DiffOptions{CompareSpriteHash: true}), true)
	ttesting.AssertEqualBool(t, "custom created flag", got.IsCustomCreated, true)
	ttesting.AssertEqualBool(t, "client data flag", got.HasClientData, true)
	ttesting.AssertEqualString(t, "modified by", got.ModifiedBy, "editor")
	ttesting.AssertEqualBool(t, "timestamp preserved", got.LastModified.Equal(want.LastModified), true)

	ttesting.AssertEqualInt(t, "unknown attribute count", len(got.UnknownAttributes), 2)
	ttesting.AssertEqualInt(t, "unknown attribute code", int(got.UnknownAttributes[0].Attr), 0x7F)
	ttesting.AssertEqualBytes(t, "unknown attribute payload", got.UnknownAttributes[0].Data, []byte{0xDE, 0xAD})
	ttesting.AssertEqualInt(t, "empty unknown attribute payload", len(got.UnknownAttributes[1].Data), 0)
}

func TestSerializeZeroTimestamp(t *testing.T) {
	it := NewServerItem(1, 100, TYPE_GROUND)
	it.Name = "grass"

	var got ServerItem
	if err := got.Deserialize(it.Serialize()); err != nil {
		t.Fatalf("deserializing: %v", err)
	}
	ttesting.AssertEqualBool(t, "zero timestamp stays zero", got.LastModified.IsZero(), true)
}

func TestDeserializeUnknownRevision(t *testing.T) {
	data := serializeFixture().Serialize()
	data[0] = 99

	var got ServerItem
	err := got.Deserialize(data)
	if !errs.IsKind(err, errs.UnknownVersion) {
		t.Fatalf("got %v; want an unknown version error", err)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	data := serializeFixture().Serialize()

	var got ServerItem
	err := got.Deserialize(data[:len(data)/2])
	if !errs.IsKind(err, errs.Truncated) {
		t.Fatalf("got %v; want a truncated error", err)
	}
}

func TestDeserializeTrailingBytes(t *testing.T) {
	data := append(serializeFixture().Serialize(), 0xAB)

	var got ServerItem
	err := got.Deserialize(data)
	if !errs.IsKind(err, errs.SizeMismatch) {
		t.Fatalf("got %v; want a size mismatch error", err)
	}
}
