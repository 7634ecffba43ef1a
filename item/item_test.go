package item

import (
	"testing"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/ttesting"
)

func TestPropertyGetSet(t *testing.T) {
	it := NewServerItem(1, 100, TYPE_WEAPON)
	it.Name = "sword"

	if err := it.Set("attack", UintValue(50)); err != nil {
		t.Fatalf("setting attack: %v", err)
	}
	got, err := it.Get("attack")
	ttesting.AssertNoError(t, "get after set", err)
	ttesting.AssertEqualInt(t, "attack value", int(got.Uint), 50)

	name, err := it.Get("name")
	ttesting.AssertNoError(t, "get name", err)
	ttesting.AssertEqualString(t, "name value", name.Str, "sword")
}

func TestPropertySetRejectionsLeaveItemUnchanged(t *testing.T) {
	it := NewServerItem(1, 100, TYPE_GROUND)
	it.GroundSpeed = 150

	cases := []struct {
		name string
		prop string
		v    Value
		kind errs.Kind
	}{
		{"unknown name", "speed", UintValue(1), errs.UnsupportedOperation},
		{"wrong kind", "groundSpeed", StringValue("fast"), errs.ValidationFailed},
		{"exceeds 16 bits", "groundSpeed", UintValue(1 << 16), errs.ValidationFailed},
		{"dimension zero", "width", UintValue(0), errs.ValidationFailed},
		{"dimension too large", "width", UintValue(11), errs.ValidationFailed},
		{"unknown type ordinal", "type", UintValue(uint64(TYPE_LAST)), errs.ValidationFailed},
		{"unknown stack order", "stackOrder", UintValue(9), errs.ValidationFailed},
		{"unknown flag bits", "flags", UintValue(1 << 30), errs.ValidationFailed},
		{"short sprite hash", "spriteHash", BytesValue([]byte{1, 2, 3}), errs.ValidationFailed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := it.Set(c.prop, c.v)
			if !errs.IsKind(err, c.kind) {
				t.Fatalf("got %v; want kind %s", err, c.kind)
			}
		})
	}

	ttesting.AssertEqualUint16(t, "ground speed untouched", it.GroundSpeed, 150)
	ttesting.AssertEqualInt(t, "width untouched", int(it.Width), 1)
	ttesting.AssertEqualBool(t, "timestamp untouched", it.LastModified.IsZero(), true)
}

func TestPropertyNames(t *testing.T) {
	names := PropertyNames()
	ttesting.AssertEqualString(t, "first name", names[0], "serverId")
	ttesting.AssertEqualString(t, "last name", names[len(names)-1], "spriteHash")

	it := NewServerItem(1, 100, TYPE_GROUND)
	for _, name := range names {
		if _, err := it.Get(name); err != nil {
			t.Errorf("property %q not gettable: %v", name, err)
		}
	}
}

func TestSetFlagTouches(t *testing.T) {
	it := NewServerItem(1, 100, TYPE_GROUND)
	it.SetFlag(FLAG_PICKUPABLE|FLAG_STACKABLE, true)

	ttesting.AssertEqualBool(t, "both bits set", it.HasFlag(FLAG_PICKUPABLE|FLAG_STACKABLE), true)
	ttesting.AssertEqualUint32(t, "bitmask value", uint32(it.Flags), 0xA0)
	ttesting.AssertEqualBool(t, "timestamp refreshed", it.LastModified.IsZero(), false)

	it.SetFlag(FLAG_STACKABLE, false)
	ttesting.AssertEqualBool(t, "bit cleared", it.HasFlag(FLAG_STACKABLE), false)
	ttesting.AssertEqualBool(t, "other bit kept", it.HasFlag(FLAG_PICKUPABLE), true)
}

func validationFields(errors []error) []string {
	var out []string
	for _, err := range errors {
		if e, ok := err.(*errs.Error); ok {
			out = append(out, e.Field)
		}
	}
	return out
}

func hasField(fields []string, want string) bool {
	for _, f := range fields {
		if f == want {
			return true
		}
	}
	return false
}

func TestValidateContainer(t *testing.T) {
	it := NewServerItem(1, 100, TYPE_CONTAINER)
	it.Name = "backpack"
	it.SetFlag(FLAG_PICKUPABLE, true)

	fields := validationFields(it.Validate())
	if !hasField(fields, "containerSize") {
		t.Fatalf("got violations on %v; want one on containerSize", fields)
	}

	it.ContainerSize = 10
	if problems := it.Validate(); len(problems) != 0 {
		t.Errorf("after fixing the size: got %v; want no violations", problems)
	}
}

func TestValidateWeapon(t *testing.T) {
	it := NewServerItem(1, 100, TYPE_WEAPON)
	it.Name = "sword"

	fields := validationFields(it.Validate())
	ttesting.AssertEqualBool(t, "flags violation reported", hasField(fields, "flags"), true)
	ttesting.AssertEqualBool(t, "attack violation reported", hasField(fields, "attack"), true)

	it.Attack = 40
	it.SetFlag(FLAG_PICKUPABLE, true)
	ttesting.AssertEqualInt(t, "valid after fixes", len(it.Validate()), 0)
}

func TestValidateIncompatibleFlags(t *testing.T) {
	it := NewServerItem(1, 100, TYPE_GROUND)
	it.Name = "grass"
	it.Flags = FLAG_UNPASSABLE | FLAG_PICKUPABLE

	fields := validationFields(it.Validate())
	ttesting.AssertEqualBool(t, "flag pair reported", hasField(fields, "flags"), true)
}

func TestValidateClientGeometry(t *testing.T) {
	c := NewClientItem(100)
	c.Type = TYPE_GROUND
	c.Name = "grass"
	c.ID = 1
	c.Width = 2
	c.SpriteBlobs = [][]byte{{1}} // geometry calls for 2

	fields := validationFields(c.Validate())
	ttesting.AssertEqualBool(t, "blob count reported", hasField(fields, "spriteBlobs"), true)

	c.SpriteBlobs = append(c.SpriteBlobs, []byte{2})
	ttesting.AssertEqualInt(t, "valid with both blobs", len(c.Validate()), 0)
}

func TestDiffOptions(t *testing.T) {
	a := NewServerItem(1, 100, TYPE_GROUND)
	a.Name = "Grass Tile"
	a.GroundSpeed = 150
	b := a.Copy()
	b.Name = "grasstile"
	b.GroundSpeed = 153

	exact := Diff(a, b, DiffOptions{})
	ttesting.AssertEqualInt(t, "exact mismatches", len(exact), 2)

	relaxed := Diff(a, b, DiffOptions{IgnoreCase: true, IgnoreWhitespace: true, Tolerance: 5})
	ttesting.AssertEqualInt(t, "relaxed mismatches", len(relaxed), 0)

	ignored := Diff(a, b, DiffOptions{IgnoreProperties: []string{"name", "groundSpeed"}})
	ttesting.AssertEqualInt(t, "ignored mismatches", len(ignored), 0)
}

func TestDiffSpriteHash(t *testing.T) {
	a := NewServerItem(1, 100, TYPE_GROUND)
	a.Name = "grass"
	a.SpriteHash = make([]byte, SpriteHashSize)
	b := a.Copy()
	b.SpriteHash[0] = 0xFF

	ttesting.AssertEqualInt(t, "hash excluded by default", len(Diff(a, b, DiffOptions{})), 0)

	got := Diff(a, b, DiffOptions{CompareSpriteHash: true})
	ttesting.AssertEqualInt(t, "hash included on request", len(got), 1)
	ttesting.AssertEqualString(t, "diff names the hash", got[0].Name, "spriteHash")
}
