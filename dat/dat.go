// Package dat reads Tibia.dat appearance databases. The attribute opcode
// layout differs per client-version family, so parsing is driven by a
// Table of opcode rows shipped as embedded TOML data; adding a client
// version means adding a table, not a parser branch.
package dat

import (
	"os"
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
)

// FirstItemID is the client ID of the first item record in every .dat
// file; lower IDs are reserved for creatures.
const FirstItemID = 100

// attrSentinel terminates an appearance record's opcode stream.
const attrSentinel = 0xFF

// maxSpriteRefs caps the sprite references one record may declare, to
// keep a corrupt geometry byte from ballooning the parse.
const maxSpriteRefs = 1 << 20

// Item is one parsed appearance record plus the sprite references it
// declares. The blobs themselves live in the SPR archive; see things.
type Item struct {
	item.ClientItem
	SpriteIDs []uint32
}

// Dataset is a parsed .dat file. Only the item category is decoded; the
// outfit, effect and missile counts are exposed for display.
type Dataset struct {
	signature    uint32
	itemCount    uint16
	outfitCount  uint16
	effectCount  uint16
	missileCount uint16

	items map[uint16]*Item
	table *Table
}

// NewFromFile reads and parses a .dat file from disk.
func NewFromFile(path string, table *Table) (*Dataset, errs.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(errs.New(errs.Io, "%v", err), "reading %s", path)
	}
	return New(data, table)
}

// New parses a .dat byte stream with the given parse table. A nil table
// selects one by the file's signature and fails with UnknownVersion when
// no compiled-in table declares it.
func New(data []byte, table *Table) (*Dataset, errs.Diagnostics, error) {
	var diags errs.Diagnostics
	r := binbuf.NewReader(data)

	sig, err := r.U32()
	if err != nil {
		return nil, nil, err
	}
	if table == nil {
		var ok bool
		if table, ok = TableForSignature(sig); !ok {
			return nil, nil, errs.New(errs.UnknownVersion, "no parse table declares dat signature 0x%08X; pass one explicitly", sig)
		}
	}

	d := &Dataset{signature: sig, table: table, items: make(map[uint16]*Item)}
	if d.itemCount, err = r.U16(); err != nil {
		return nil, nil, err
	}
	if d.outfitCount, err = r.U16(); err != nil {
		return nil, nil, err
	}
	if d.effectCount, err = r.U16(); err != nil {
		return nil, nil, err
	}
	if d.missileCount, err = r.U16(); err != nil {
		return nil, nil, err
	}

	for id := uint16(FirstItemID); id <= d.itemCount; id++ {
		it, err := parseItem(r, id, table, &diags)
		if err != nil {
			return nil, nil, err
		}
		d.items[id] = it
	}

	glog.V(2).Infof("dat 0x%08X (%s): %d items, %d outfits, %d effects, %d missiles",
		sig, table.Family, len(d.items), d.outfitCount, d.effectCount, d.missileCount)
	return d, diags, nil
}

// parseItem decodes one appearance record: the opcode stream up to the
// sentinel, the geometry block, and the sprite references.
func parseItem(r *binbuf.Reader, id uint16, table *Table, diags *errs.Diagnostics) (*Item, error) {
	it := &Item{ClientItem: *item.NewClientItem(id)}
	it.HasClientData = true
	// Everything is moveable unless an opcode says otherwise.
	it.Flags = item.FLAG_MOVEABLE

	for {
		code, err := r.U8()
		if err != nil {
			return nil, err
		}
		if code == attrSentinel {
			break
		}
		row, ok := table.row(code)
		if !ok {
			diags.Warnf(errs.UnknownAttribute, r.Pos()-1, "item %d: opcode 0x%02X not in the %s table; scanning for the record sentinel", id, code, table.Family)
			if err := skipToSentinel(r); err != nil {
				return nil, err
			}
			break
		}
		ops := make([]uint16, row.Params)
		for idx := range ops {
			if ops[idx], err = r.U16(); err != nil {
				return nil, err
			}
		}
		if err := applyAction(it, row.Apply, ops); err != nil {
			return nil, err
		}
	}

	if err := parseGeometry(r, it, table); err != nil {
		return nil, err
	}
	return it, nil
}

// skipToSentinel consumes bytes up to and including the next record
// sentinel. Operand bytes of unknown opcodes can alias the sentinel, so
// the rest of this record is untrustworthy either way.
func skipToSentinel(r *binbuf.Reader) error {
	for {
		b, err := r.U8()
		if err != nil {
			return err
		}
		if b == attrSentinel {
			return nil
		}
	}
}

// parseGeometry decodes the size block and sprite references that follow
// the opcode sentinel.
func parseGeometry(r *binbuf.Reader, it *Item, table *Table) error {
	var err error
	if it.Width, err = r.U8(); err != nil {
		return err
	}
	if it.Height, err = r.U8(); err != nil {
		return err
	}
	if it.Width > 1 || it.Height > 1 {
		// Exact-size byte, only present for multi-tile sprites.
		if _, err = r.U8(); err != nil {
			return err
		}
	}
	if it.Layers, err = r.U8(); err != nil {
		return err
	}
	if it.PatternX, err = r.U8(); err != nil {
		return err
	}
	if it.PatternY, err = r.U8(); err != nil {
		return err
	}
	if it.PatternZ, err = r.U8(); err != nil {
		return err
	}
	if it.Frames, err = r.U8(); err != nil {
		return err
	}
	it.XDiv, it.YDiv, it.ZDiv = it.PatternX, it.PatternY, it.PatternZ
	if it.Frames > 1 {
		it.AnimationType = item.ANIMATION_LOOP
		if table.LegacyDurations {
			// Duration header plus one min/max pair per frame.
			skip := int64(6 + 8*int(it.Frames))
			if err := r.Seek(r.Pos() + skip); err != nil {
				return errs.At(errs.Truncated, r.Pos(), "frame durations run past the file")
			}
		}
	}

	refs := int(it.Width) * int(it.Height) * int(it.Layers) *
		int(it.PatternX) * int(it.PatternY) * int(it.PatternZ) * int(it.Frames)
	if refs <= 0 || refs > maxSpriteRefs {
		return errs.At(errs.RangeViolation, r.Pos(), "item %d declares %d sprite references", it.ClientID, refs)
	}

	it.SpriteIDs = make([]uint32, refs)
	for idx := range it.SpriteIDs {
		if table.ExtendedSprites {
			if it.SpriteIDs[idx], err = r.U32(); err != nil {
				return err
			}
		} else {
			ref, err := r.U16()
			if err != nil {
				return err
			}
			it.SpriteIDs[idx] = uint32(ref)
		}
	}
	return nil
}

// applyAction maps one table action onto the item being built. The action
// vocabulary is fixed; tables pick from it per opcode.
func applyAction(it *Item, apply string, ops []uint16) error {
	switch apply {
	case "ground":
		it.Type = item.TYPE_GROUND
		it.GroundSpeed = ops[0]
	case "groundBorder":
		it.StackOrder = item.STACK_ORDER_BORDER
		it.Flags |= item.FLAG_ALWAYS_ON_TOP
	case "onBottom":
		it.StackOrder = item.STACK_ORDER_BOTTOM
		it.Flags |= item.FLAG_ALWAYS_ON_TOP
	case "onTop":
		it.StackOrder = item.STACK_ORDER_TOP
		it.Flags |= item.FLAG_ALWAYS_ON_TOP
	case "container":
		it.Type = item.TYPE_CONTAINER
	case "stackable":
		it.Flags |= item.FLAG_STACKABLE
	case "forceUse":
		// Not carried into the server model.
	case "multiUse":
		it.Flags |= item.FLAG_MULTI_USE
	case "charges":
		it.Flags |= item.FLAG_CLIENT_CHARGES
	case "writable":
		it.Type = item.TYPE_WRITABLE
		it.Flags |= item.FLAG_READABLE
		it.MaxReadWriteChars = ops[0]
	case "writableOnce":
		it.Flags |= item.FLAG_READABLE
		it.MaxReadChars = ops[0]
	case "fluidContainer":
		it.Type = item.TYPE_FLUID
	case "fluid":
		it.Type = item.TYPE_SPLASH
	case "unpassable":
		it.Flags |= item.FLAG_UNPASSABLE
	case "unmoveable":
		it.Flags &^= item.FLAG_MOVEABLE
	case "blockProjectile":
		it.Flags |= item.FLAG_BLOCK_MISSILES | item.FLAG_BLOCK_PATHFINDER
	case "pickupable":
		it.Flags |= item.FLAG_PICKUPABLE
	case "hangable":
		it.Flags |= item.FLAG_HANGABLE
	case "horizontal":
		it.Flags |= item.FLAG_HORIZONTAL
	case "vertical":
		it.Flags |= item.FLAG_VERTICAL
	case "rotatable":
		it.Flags |= item.FLAG_ROTATABLE
	case "light":
		it.LightLevel = ops[0]
		it.LightColor = ops[1]
	case "dontHide", "translucent", "offset", "lying", "lensHelp", "fullGround":
		// Display-only; not carried into the server model.
	case "elevation":
		it.Elevation = ops[0]
		it.Flags |= item.FLAG_HAS_ELEVATION
	case "animateAlways":
		it.AnimationType = item.ANIMATION_LOOP
	case "minimap":
		it.MinimapColor = ops[0]
	case "ignoreLook":
		it.Flags |= item.FLAG_IGNORE_LOOK
	default:
		return errs.New(errs.InvariantViolation, "parse table action %q is not in the vocabulary", apply)
	}
	return nil
}

// Signature returns the file's 32-bit signature.
func (d *Dataset) Signature() uint32 {
	return d.signature
}

// Counts returns the declared record counts per category.
func (d *Dataset) Counts() (items, outfits, effects, missiles uint16) {
	return d.itemCount, d.outfitCount, d.effectCount, d.missileCount
}

// Table returns the parse table the dataset was decoded with.
func (d *Dataset) Table() *Table {
	return d.table
}

// Item looks an appearance record up by client ID.
func (d *Dataset) Item(clientID uint16) (*Item, bool) {
	it, ok := d.items[clientID]
	return it, ok
}

// ItemIDs returns every decoded client ID in ascending order.
func (d *Dataset) ItemIDs() []uint16 {
	out := make([]uint16, 0, len(d.items))
	for id := range d.items {
		out = append(out, id)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
