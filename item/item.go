// Package item holds the in-memory model shared by the codecs: server
// items as stored in items.otb, client items as assembled from the DAT and
// SPR files, and the indexed list the OTB codec produces.
package item

import (
	"fmt"
	"strings"
	"time"
)

// ServerItemType says what kind of item a server item is. The ordinal
// values are the node types used in items.otb and must not be reordered.
type ServerItemType uint8

const (
	TYPE_NONE ServerItemType = iota
	TYPE_GROUND
	TYPE_CONTAINER
	TYPE_WEAPON     // deprecated in later formats
	TYPE_AMMUNITION // deprecated in later formats
	TYPE_ARMOR      // deprecated in later formats
	TYPE_CHARGES
	TYPE_TELEPORT   // deprecated in later formats
	TYPE_MAGICFIELD // deprecated in later formats
	TYPE_WRITABLE   // deprecated in later formats
	TYPE_KEY        // deprecated in later formats
	TYPE_SPLASH
	TYPE_FLUID
	TYPE_DOOR // deprecated in later formats
	TYPE_DEPRECATED
	TYPE_LAST
)

// String implements the stringer interface.
func (t ServerItemType) String() string {
	switch t {
	case TYPE_NONE:
		return "none"
	case TYPE_GROUND:
		return "ground"
	case TYPE_CONTAINER:
		return "container"
	case TYPE_WEAPON:
		return "weapon"
	case TYPE_AMMUNITION:
		return "ammunition"
	case TYPE_ARMOR:
		return "armor"
	case TYPE_CHARGES:
		return "charges"
	case TYPE_TELEPORT:
		return "teleport"
	case TYPE_MAGICFIELD:
		return "magic field"
	case TYPE_WRITABLE:
		return "writable"
	case TYPE_KEY:
		return "key"
	case TYPE_SPLASH:
		return "splash"
	case TYPE_FLUID:
		return "fluid"
	case TYPE_DOOR:
		return "door"
	case TYPE_DEPRECATED:
		return "deprecated"
	case TYPE_LAST:
		return "last (invalid value)"
	}
	return fmt.Sprintf("item type %d unknown", uint8(t))
}

// StackOrder says on which layer within a tile the client draws the item.
type StackOrder uint8

const (
	STACK_ORDER_NONE StackOrder = iota
	STACK_ORDER_BORDER
	STACK_ORDER_BOTTOM
	STACK_ORDER_TOP
)

// String implements the stringer interface.
func (s StackOrder) String() string {
	switch s {
	case STACK_ORDER_NONE:
		return "none"
	case STACK_ORDER_BORDER:
		return "border"
	case STACK_ORDER_BOTTOM:
		return "bottom"
	case STACK_ORDER_TOP:
		return "top"
	}
	return fmt.Sprintf("stack order %d unknown", uint8(s))
}

// ItemFlags is the 32-bit behavior bitmask stored per item in items.otb.
type ItemFlags uint32

// Enumeration containing possible bits in the `flags` bitmask of an item.
const (
	FLAG_UNPASSABLE ItemFlags = 1 << iota
	FLAG_BLOCK_MISSILES
	FLAG_BLOCK_PATHFINDER
	FLAG_HAS_ELEVATION
	FLAG_MULTI_USE
	FLAG_PICKUPABLE
	FLAG_MOVEABLE
	FLAG_STACKABLE
	FLAG_FLOOR_CHANGE_DOWN
	FLAG_FLOOR_CHANGE_NORTH
	FLAG_FLOOR_CHANGE_EAST
	FLAG_FLOOR_CHANGE_SOUTH
	FLAG_FLOOR_CHANGE_WEST
	FLAG_ALWAYS_ON_TOP
	FLAG_READABLE
	FLAG_ROTATABLE
	FLAG_HANGABLE
	FLAG_VERTICAL
	FLAG_HORIZONTAL
	FLAG_CANNOT_DECAY
	FLAG_ALLOW_DIST_READ
	FLAG_UNUSED
	FLAG_CLIENT_CHARGES // deprecated
	FLAG_IGNORE_LOOK

	FLAG_LAST
)

// String implements the stringer interface.
func (f ItemFlags) String() string {
	out := make([]string, 0, 24)
	for bit := FLAG_UNPASSABLE; bit < FLAG_LAST; bit <<= 1 {
		if f&bit == 0 {
			continue
		}
		var desc string
		switch bit {
		case FLAG_UNPASSABLE:
			desc = "unpassable"
		case FLAG_BLOCK_MISSILES:
			desc = "block missiles"
		case FLAG_BLOCK_PATHFINDER:
			desc = "block pathfinder"
		case FLAG_HAS_ELEVATION:
			desc = "has elevation"
		case FLAG_MULTI_USE:
			desc = "multi use"
		case FLAG_PICKUPABLE:
			desc = "pickupable"
		case FLAG_MOVEABLE:
			desc = "moveable"
		case FLAG_STACKABLE:
			desc = "stackable"
		case FLAG_FLOOR_CHANGE_DOWN:
			desc = "floor change down"
		case FLAG_FLOOR_CHANGE_NORTH:
			desc = "floor change north"
		case FLAG_FLOOR_CHANGE_EAST:
			desc = "floor change east"
		case FLAG_FLOOR_CHANGE_SOUTH:
			desc = "floor change south"
		case FLAG_FLOOR_CHANGE_WEST:
			desc = "floor change west"
		case FLAG_ALWAYS_ON_TOP:
			desc = "always on top"
		case FLAG_READABLE:
			desc = "readable"
		case FLAG_ROTATABLE:
			desc = "rotatable"
		case FLAG_HANGABLE:
			desc = "hangable"
		case FLAG_VERTICAL:
			desc = "vertical"
		case FLAG_HORIZONTAL:
			desc = "horizontal"
		case FLAG_CANNOT_DECAY:
			desc = "cannot decay"
		case FLAG_ALLOW_DIST_READ:
			desc = "allow dist read"
		case FLAG_UNUSED:
			desc = "unused"
		case FLAG_CLIENT_CHARGES:
			desc = "client charges"
		case FLAG_IGNORE_LOOK:
			desc = "ignore look"
		}
		if desc != "" {
			out = append(out, desc)
		}
	}
	return strings.Join(out, ", ")
}

// ServerItem is one entry of the server-side item database. The zero value
// is not a valid item; use NewServerItem.
type ServerItem struct {
	ID       uint16 // persistent server ID, unique within a List
	ClientID uint16 // reference into the client item map; 0 when unmatched

	Type       ServerItemType
	StackOrder StackOrder
	Flags      ItemFlags

	Name        string
	Description string
	Article     string
	Plural      string

	// Geometry mirror of the client appearance record.
	Width    uint8
	Height   uint8
	Layers   uint8
	PatternX uint8
	PatternY uint8
	PatternZ uint8
	Frames   uint8

	GroundSpeed       uint16
	LightLevel        uint16
	LightColor        uint16
	MinimapColor      uint16
	Elevation         uint16
	TradeAs           uint16
	WeaponType        uint16
	AmmoType          uint16
	ShootType         uint16
	Effect            uint16
	DistanceEffect    uint16
	Armor             uint16
	Defense           uint16
	ExtraDefense      uint16
	Attack            uint16
	RotateTo          uint16
	ContainerSize     uint16
	FluidSource       uint16
	MaxReadChars      uint16
	MaxReadWriteChars uint16
	MaxWriteChars     uint16

	// SpriteHash is the content digest over the client item's sprite blobs
	// and geometry, or nil when never computed.
	SpriteHash []byte

	IsCustomCreated bool
	HasClientData   bool
	LastModified    time.Time
	ModifiedBy      string

	// UnknownAttributes holds attribute records a codec read but did not
	// recognize, preserved verbatim for the next write.
	UnknownAttributes []UnknownAttribute

	// rawProps caches the exact attribute stream this item was read from.
	// Any mutation through Touch invalidates it, forcing a canonical
	// re-emit on the next write.
	rawProps []byte
}

// UnknownAttribute is one attribute record preserved verbatim across a
// read/write cycle.
type UnknownAttribute struct {
	Attr uint8
	Data []byte
}

// NewServerItem returns an item of the given identity with every
// dimensional field at its minimum legal value.
func NewServerItem(serverID, clientID uint16, typ ServerItemType) *ServerItem {
	return &ServerItem{
		ID:       serverID,
		ClientID: clientID,
		Type:     typ,
		Width:    1,
		Height:   1,
		Layers:   1,
		PatternX: 1,
		PatternY: 1,
		PatternZ: 1,
		Frames:   1,
	}
}

// HasFlag reports whether every bit of f is set on the item.
func (i *ServerItem) HasFlag(f ItemFlags) bool {
	return i.Flags&f == f
}

// SetFlag sets or clears the given bits and refreshes the modification
// timestamp.
func (i *ServerItem) SetFlag(f ItemFlags, on bool) {
	if on {
		i.Flags |= f
	} else {
		i.Flags &^= f
	}
	i.Touch()
}

// Touch refreshes the last-modified timestamp and drops any cached file
// representation. Millisecond granularity matches what the compact
// serialized form can carry.
func (i *ServerItem) Touch() {
	i.LastModified = time.Now().UTC().Truncate(time.Millisecond)
	i.rawProps = nil
}

// RawProps returns the cached attribute stream the item was read from, or
// nil once the item has been mutated.
func (i *ServerItem) RawProps() []byte {
	return i.rawProps
}

// SetRawProps records the attribute stream the item was read from. Codecs
// call this; mutations clear it.
func (i *ServerItem) SetRawProps(b []byte) {
	i.rawProps = b
}

// Copy returns a deep copy of the item.
func (i *ServerItem) Copy() *ServerItem {
	out := *i
	if i.SpriteHash != nil {
		out.SpriteHash = append([]byte(nil), i.SpriteHash...)
	}
	return &out
}

// String implements the stringer interface.
func (i *ServerItem) String() string {
	return fmt.Sprintf("item %d (%s, client %d, %q)", i.ID, i.Type, i.ClientID, i.Name)
}

// AnimationType says how the client cycles through animation phases.
type AnimationType uint8

const (
	ANIMATION_NONE AnimationType = iota
	ANIMATION_LOOP
	ANIMATION_PINGPONG
)

// String implements the stringer interface.
func (a AnimationType) String() string {
	switch a {
	case ANIMATION_NONE:
		return "none"
	case ANIMATION_LOOP:
		return "loop"
	case ANIMATION_PINGPONG:
		return "ping-pong"
	}
	return fmt.Sprintf("animation type %d unknown", uint8(a))
}

// ClientItem is a client-side appearance record: the server-visible fields
// plus the sprite blobs and animation data read from the DAT and SPR files.
type ClientItem struct {
	ServerItem

	// SpriteBlobs holds the compressed pixel streams in sprite-reference
	// order. A nil entry is a sprite missing from the archive.
	SpriteBlobs [][]byte

	AnimationPhases uint8
	XDiv            uint8
	YDiv            uint8
	ZDiv            uint8
	AnimationSpeed  uint16
	AnimationType   AnimationType

	// SpriteSignature holds one 64-element block-mean vector per sprite
	// blob, or nil when never computed.
	SpriteSignature [][]float64
}

// NewClientItem returns a client item with every dimensional field at its
// minimum legal value.
func NewClientItem(clientID uint16) *ClientItem {
	s := NewServerItem(0, clientID, TYPE_NONE)
	return &ClientItem{
		ServerItem:      *s,
		AnimationPhases: 1,
		XDiv:            1,
		YDiv:            1,
		ZDiv:            1,
	}
}

// ExpectedSpriteCount returns how many sprite blobs the geometry calls for.
func (c *ClientItem) ExpectedSpriteCount() int {
	return int(c.Width) * int(c.Height) * int(c.Layers) *
		int(c.PatternX) * int(c.PatternY) * int(c.PatternZ) *
		int(c.Frames) * int(c.AnimationPhases)
}

// HasSprites reports whether any sprite blob is attached.
func (c *ClientItem) HasSprites() bool {
	return len(c.SpriteBlobs) > 0
}
