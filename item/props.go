package item

import (
	"fmt"

	"badc0de.net/pkg/go-itemedit/errs"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KIND_UINT ValueKind = iota
	KIND_STRING
	KIND_BOOL
	KIND_BYTES
)

// String implements the stringer interface.
func (k ValueKind) String() string {
	switch k {
	case KIND_UINT:
		return "uint"
	case KIND_STRING:
		return "string"
	case KIND_BOOL:
		return "bool"
	case KIND_BYTES:
		return "bytes"
	}
	return fmt.Sprintf("value kind %d unknown", int(k))
}

// Value is the closed variant flowing through the by-name property table
// and through diffs. Exactly one field matching Kind is meaningful.
type Value struct {
	Kind  ValueKind
	Uint  uint64
	Str   string
	Bool  bool
	Bytes []byte
}

// UintValue wraps an unsigned number.
func UintValue(v uint64) Value { return Value{Kind: KIND_UINT, Uint: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Kind: KIND_STRING, Str: v} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{Kind: KIND_BOOL, Bool: v} }

// BytesValue wraps a byte string.
func BytesValue(v []byte) Value { return Value{Kind: KIND_BYTES, Bytes: v} }

// String implements the stringer interface.
func (v Value) String() string {
	switch v.Kind {
	case KIND_UINT:
		return fmt.Sprintf("%d", v.Uint)
	case KIND_STRING:
		return v.Str
	case KIND_BOOL:
		return fmt.Sprintf("%t", v.Bool)
	case KIND_BYTES:
		return fmt.Sprintf("%x", v.Bytes)
	}
	return "invalid value"
}

// property binds a name to typed access into a ServerItem. The set func
// validates before mutating and never partially applies.
type property struct {
	name       string
	kind       ValueKind
	comparable bool
	get        func(*ServerItem) Value
	set        func(*ServerItem, Value) error
}

func wantKind(name string, kind ValueKind, v Value) error {
	if v.Kind != kind {
		return errs.Validation(name, "got a %s value, want %s", v.Kind, kind)
	}
	return nil
}

// u16Prop builds a property over a uint16 field.
func u16Prop(name string, comparable bool, get func(*ServerItem) uint16, set func(*ServerItem, uint16)) property {
	return property{
		name:       name,
		kind:       KIND_UINT,
		comparable: comparable,
		get:        func(i *ServerItem) Value { return UintValue(uint64(get(i))) },
		set: func(i *ServerItem, v Value) error {
			if err := wantKind(name, KIND_UINT, v); err != nil {
				return err
			}
			if v.Uint > 0xFFFF {
				return errs.Validation(name, "value %d exceeds 16 bits", v.Uint)
			}
			set(i, uint16(v.Uint))
			i.Touch()
			return nil
		},
	}
}

// dimProp builds a property over a geometry field bounded to [1, max].
func dimProp(name string, max uint64, get func(*ServerItem) uint8, set func(*ServerItem, uint8)) property {
	return property{
		name:       name,
		kind:       KIND_UINT,
		comparable: true,
		get:        func(i *ServerItem) Value { return UintValue(uint64(get(i))) },
		set: func(i *ServerItem, v Value) error {
			if err := wantKind(name, KIND_UINT, v); err != nil {
				return err
			}
			if v.Uint < 1 || v.Uint > max {
				return errs.Validation(name, "value %d outside [1, %d]", v.Uint, max)
			}
			set(i, uint8(v.Uint))
			i.Touch()
			return nil
		},
	}
}

// strProp builds a property over a string field with a length cap.
func strProp(name string, comparable bool, maxLen int, minLen int, get func(*ServerItem) string, set func(*ServerItem, string)) property {
	return property{
		name:       name,
		kind:       KIND_STRING,
		comparable: comparable,
		get:        func(i *ServerItem) Value { return StringValue(get(i)) },
		set: func(i *ServerItem, v Value) error {
			if err := wantKind(name, KIND_STRING, v); err != nil {
				return err
			}
			if len(v.Str) < minLen || len(v.Str) > maxLen {
				return errs.Validation(name, "length %d outside [%d, %d]", len(v.Str), minLen, maxLen)
			}
			set(i, v.Str)
			i.Touch()
			return nil
		},
	}
}

// properties is the closed, documented property set. Order here is the
// order PropertyNames and Diff report in.
var properties = []property{
	u16Prop("serverId", true, func(i *ServerItem) uint16 { return i.ID }, func(i *ServerItem, v uint16) { i.ID = v }),
	u16Prop("clientId", true, func(i *ServerItem) uint16 { return i.ClientID }, func(i *ServerItem, v uint16) { i.ClientID = v }),
	{
		name: "type", kind: KIND_UINT, comparable: true,
		get: func(i *ServerItem) Value { return UintValue(uint64(i.Type)) },
		set: func(i *ServerItem, v Value) error {
			if err := wantKind("type", KIND_UINT, v); err != nil {
				return err
			}
			if v.Uint >= uint64(TYPE_LAST) {
				return errs.Validation("type", "value %d is not a known item type", v.Uint)
			}
			i.Type = ServerItemType(v.Uint)
			i.Touch()
			return nil
		},
	},
	{
		name: "stackOrder", kind: KIND_UINT, comparable: true,
		get: func(i *ServerItem) Value { return UintValue(uint64(i.StackOrder)) },
		set: func(i *ServerItem, v Value) error {
			if err := wantKind("stackOrder", KIND_UINT, v); err != nil {
				return err
			}
			if v.Uint > uint64(STACK_ORDER_TOP) {
				return errs.Validation("stackOrder", "value %d is not a known stack order", v.Uint)
			}
			i.StackOrder = StackOrder(v.Uint)
			i.Touch()
			return nil
		},
	},
	{
		name: "flags", kind: KIND_UINT, comparable: true,
		get: func(i *ServerItem) Value { return UintValue(uint64(i.Flags)) },
		set: func(i *ServerItem, v Value) error {
			if err := wantKind("flags", KIND_UINT, v); err != nil {
				return err
			}
			if v.Uint&^uint64(FLAG_LAST-1) != 0 {
				return errs.Validation("flags", "value %#x has bits outside the known flag set", v.Uint)
			}
			i.Flags = ItemFlags(v.Uint)
			i.Touch()
			return nil
		},
	},
	strProp("name", true, 255, 0, func(i *ServerItem) string { return i.Name }, func(i *ServerItem, v string) { i.Name = v }),
	strProp("description", true, 65535, 0, func(i *ServerItem) string { return i.Description }, func(i *ServerItem, v string) { i.Description = v }),
	strProp("article", true, 255, 0, func(i *ServerItem) string { return i.Article }, func(i *ServerItem, v string) { i.Article = v }),
	strProp("plural", true, 255, 0, func(i *ServerItem) string { return i.Plural }, func(i *ServerItem, v string) { i.Plural = v }),
	dimProp("width", 10, func(i *ServerItem) uint8 { return i.Width }, func(i *ServerItem, v uint8) { i.Width = v }),
	dimProp("height", 10, func(i *ServerItem) uint8 { return i.Height }, func(i *ServerItem, v uint8) { i.Height = v }),
	dimProp("layers", 10, func(i *ServerItem) uint8 { return i.Layers }, func(i *ServerItem, v uint8) { i.Layers = v }),
	dimProp("patternX", 10, func(i *ServerItem) uint8 { return i.PatternX }, func(i *ServerItem, v uint8) { i.PatternX = v }),
	dimProp("patternY", 10, func(i *ServerItem) uint8 { return i.PatternY }, func(i *ServerItem, v uint8) { i.PatternY = v }),
	dimProp("patternZ", 10, func(i *ServerItem) uint8 { return i.PatternZ }, func(i *ServerItem, v uint8) { i.PatternZ = v }),
	dimProp("frames", 255, func(i *ServerItem) uint8 { return i.Frames }, func(i *ServerItem, v uint8) { i.Frames = v }),
	u16Prop("groundSpeed", true, func(i *ServerItem) uint16 { return i.GroundSpeed }, func(i *ServerItem, v uint16) { i.GroundSpeed = v }),
	u16Prop("lightLevel", true, func(i *ServerItem) uint16 { return i.LightLevel }, func(i *ServerItem, v uint16) { i.LightLevel = v }),
	u16Prop("lightColor", true, func(i *ServerItem) uint16 { return i.LightColor }, func(i *ServerItem, v uint16) { i.LightColor = v }),
	u16Prop("minimapColor", true, func(i *ServerItem) uint16 { return i.MinimapColor }, func(i *ServerItem, v uint16) { i.MinimapColor = v }),
	u16Prop("elevation", true, func(i *ServerItem) uint16 { return i.Elevation }, func(i *ServerItem, v uint16) { i.Elevation = v }),
	u16Prop("tradeAs", true, func(i *ServerItem) uint16 { return i.TradeAs }, func(i *ServerItem, v uint16) { i.TradeAs = v }),
	u16Prop("weaponType", true, func(i *ServerItem) uint16 { return i.WeaponType }, func(i *ServerItem, v uint16) { i.WeaponType = v }),
	u16Prop("ammoType", true, func(i *ServerItem) uint16 { return i.AmmoType }, func(i *ServerItem, v uint16) { i.AmmoType = v }),
	u16Prop("shootType", true, func(i *ServerItem) uint16 { return i.ShootType }, func(i *ServerItem, v uint16) { i.ShootType = v }),
	u16Prop("effect", true, func(i *ServerItem) uint16 { return i.Effect }, func(i *ServerItem, v uint16) { i.Effect = v }),
	u16Prop("distanceEffect", true, func(i *ServerItem) uint16 { return i.DistanceEffect }, func(i *ServerItem, v uint16) { i.DistanceEffect = v }),
	u16Prop("armor", true, func(i *ServerItem) uint16 { return i.Armor }, func(i *ServerItem, v uint16) { i.Armor = v }),
	u16Prop("defense", true, func(i *ServerItem) uint16 { return i.Defense }, func(i *ServerItem, v uint16) { i.Defense = v }),
	u16Prop("extraDefense", true, func(i *ServerItem) uint16 { return i.ExtraDefense }, func(i *ServerItem, v uint16) { i.ExtraDefense = v }),
	u16Prop("attack", true, func(i *ServerItem) uint16 { return i.Attack }, func(i *ServerItem, v uint16) { i.Attack = v }),
	u16Prop("rotateTo", true, func(i *ServerItem) uint16 { return i.RotateTo }, func(i *ServerItem, v uint16) { i.RotateTo = v }),
	u16Prop("containerSize", true, func(i *ServerItem) uint16 { return i.ContainerSize }, func(i *ServerItem, v uint16) { i.ContainerSize = v }),
	u16Prop("fluidSource", true, func(i *ServerItem) uint16 { return i.FluidSource }, func(i *ServerItem, v uint16) { i.FluidSource = v }),
	u16Prop("maxReadChars", true, func(i *ServerItem) uint16 { return i.MaxReadChars }, func(i *ServerItem, v uint16) { i.MaxReadChars = v }),
	u16Prop("maxReadWriteChars", true, func(i *ServerItem) uint16 { return i.MaxReadWriteChars }, func(i *ServerItem, v uint16) { i.MaxReadWriteChars = v }),
	u16Prop("maxWriteChars", true, func(i *ServerItem) uint16 { return i.MaxWriteChars }, func(i *ServerItem, v uint16) { i.MaxWriteChars = v }),
	{
		name: "spriteHash", kind: KIND_BYTES, comparable: false,
		get: func(i *ServerItem) Value { return BytesValue(i.SpriteHash) },
		set: func(i *ServerItem, v Value) error {
			if err := wantKind("spriteHash", KIND_BYTES, v); err != nil {
				return err
			}
			if v.Bytes != nil && len(v.Bytes) != SpriteHashSize {
				return errs.Validation("spriteHash", "length %d, want %d", len(v.Bytes), SpriteHashSize)
			}
			i.SpriteHash = append([]byte(nil), v.Bytes...)
			i.Touch()
			return nil
		},
	},
}

var propertyIndex = func() map[string]int {
	m := make(map[string]int, len(properties))
	for idx, p := range properties {
		m[p.name] = idx
	}
	return m
}()

// PropertyNames returns the closed property name set in declaration order.
func PropertyNames() []string {
	out := make([]string, len(properties))
	for idx, p := range properties {
		out[idx] = p.name
	}
	return out
}

// Get returns the named property's value.
func (i *ServerItem) Get(name string) (Value, error) {
	idx, ok := propertyIndex[name]
	if !ok {
		return Value{}, errs.New(errs.UnsupportedOperation, "no property named %q", name)
	}
	return properties[idx].get(i), nil
}

// Set assigns the named property after validating the value. On rejection
// the item is left unchanged.
func (i *ServerItem) Set(name string, v Value) error {
	idx, ok := propertyIndex[name]
	if !ok {
		return errs.New(errs.UnsupportedOperation, "no property named %q", name)
	}
	return properties[idx].set(i, v)
}
