package itemsotb

import (
	"os"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/otb"
)

// WriteFile emits the list into an items.otb file on disk.
func WriteFile(path string, list *item.List) error {
	data, err := Write(list)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(errs.New(errs.Io, "%v", err), "writing %s", path)
	}
	return nil
}

// Write emits the list as an items.otb byte stream. Items read from a file
// and never mutated re-emit their original attribute stream, so a clean
// read/write cycle is byte-identical.
func Write(list *item.List) ([]byte, error) {
	if dup := list.DuplicateIDs(); len(dup) > 0 {
		return nil, errs.New(errs.DuplicateID, "cannot write duplicate server ids: %v", dup)
	}

	root := otb.NewNode(0, rootProps(list))
	for _, it := range list.Items() {
		if it.ID == 0 {
			return nil, errs.New(errs.RangeViolation, "cannot write an item with server id 0")
		}
		root.AddChild(otb.NewNode(uint8(it.Type), itemProps(it)))
	}
	return otb.Marshal(otb.NewTree(root))
}

// rootProps builds the root node's property stream: the flags word and the
// version record.
func rootProps(list *item.List) []byte {
	if raw := list.RawRootProps(); raw != nil {
		return raw
	}
	var w binbuf.Writer
	w.U32(0)
	w.U8(ROOT_ATTR_VERSION)
	w.U16(versionRecordSize)
	w.U32(list.Version.Major)
	w.U32(list.Version.Minor)
	w.U32(list.Version.Build)
	csd := make([]byte, csdSize)
	copy(csd, list.Description)
	csd[csdSize-1] = 0x00
	w.Write(csd)
	return w.Bytes()
}

// itemProps builds one item node's property stream. A preserved raw stream
// wins; otherwise the canonical attribute order of the reference writer is
// used, with client-facing attributes suppressed for deprecated items and
// optional attributes emitted only when set.
func itemProps(it *item.ServerItem) []byte {
	if raw := it.RawProps(); raw != nil {
		return raw
	}

	var w binbuf.Writer
	w.U32(uint32(it.Flags))

	var buf [4]byte
	u16 := func(v uint16) []byte {
		buf[0], buf[1] = byte(v), byte(v>>8)
		return buf[:2]
	}

	appendTLV(&w, ITEM_ATTR_SERVERID, u16(it.ID))

	if it.Type != item.TYPE_DEPRECATED {
		appendTLV(&w, ITEM_ATTR_CLIENTID, u16(it.ClientID))
		if len(it.SpriteHash) == item.SpriteHashSize {
			appendTLV(&w, ITEM_ATTR_SPRITEHASH, it.SpriteHash)
		}
		if it.Type == item.TYPE_GROUND {
			appendTLV(&w, ITEM_ATTR_GROUNDSPEED, u16(it.GroundSpeed))
		}
		if it.MinimapColor != 0 {
			appendTLV(&w, ITEM_ATTR_MINIMAPCOLOR, u16(it.MinimapColor))
		}
		if it.MaxReadWriteChars != 0 {
			appendTLV(&w, ITEM_ATTR_MAXREADWRITECHARS, u16(it.MaxReadWriteChars))
		}
		if it.MaxReadChars != 0 {
			appendTLV(&w, ITEM_ATTR_MAXREADCHARS, u16(it.MaxReadChars))
		}
		if it.LightLevel != 0 || it.LightColor != 0 {
			light := []byte{byte(it.LightLevel), byte(it.LightLevel >> 8), byte(it.LightColor), byte(it.LightColor >> 8)}
			appendTLV(&w, ITEM_ATTR_LIGHT, light)
		}
		if it.StackOrder != item.STACK_ORDER_NONE {
			appendTLV(&w, ITEM_ATTR_TOPORDER, []byte{uint8(it.StackOrder)})
		}
		if it.TradeAs != 0 {
			appendTLV(&w, ITEM_ATTR_TRADEAS, u16(it.TradeAs))
		}
		if it.Name != "" {
			appendTLV(&w, ITEM_ATTR_NAME, []byte(it.Name))
		}
		if it.Description != "" {
			appendTLV(&w, ITEM_ATTR_DESCR, []byte(it.Description))
		}
	}

	for _, unk := range it.UnknownAttributes {
		appendTLV(&w, ItemsAttribute(unk.Attr), unk.Data)
	}

	return w.Bytes()
}
