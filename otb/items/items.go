// Package itemsotb reads and writes the items.otb server item database on
// top of the generic OTB node tree.
package itemsotb

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/otb"
)

type (
	ItemsAttribute uint8
	ItemsDataSize  uint16
)

const (
	ROOT_ATTR_VERSION = 0x01

	// csdSize is the fixed length of the free-form descriptor inside the
	// root version record.
	csdSize = 128

	// versionRecordSize is major + minor + build + the descriptor.
	versionRecordSize = 4 + 4 + 4 + csdSize
)

// Enumeration containing recognized attributes in the items.otb file.
const (
	ITEM_ATTR_SERVERID          ItemsAttribute = 0x10
	ITEM_ATTR_CLIENTID          ItemsAttribute = 0x11
	ITEM_ATTR_NAME              ItemsAttribute = 0x12
	ITEM_ATTR_DESCR             ItemsAttribute = 0x13
	ITEM_ATTR_GROUNDSPEED       ItemsAttribute = 0x14
	ITEM_ATTR_SPRITEHASH        ItemsAttribute = 0x20
	ITEM_ATTR_MINIMAPCOLOR      ItemsAttribute = 0x21
	ITEM_ATTR_MAXREADWRITECHARS ItemsAttribute = 0x22
	ITEM_ATTR_MAXREADCHARS      ItemsAttribute = 0x23
	ITEM_ATTR_LIGHT             ItemsAttribute = 0x2A
	ITEM_ATTR_TOPORDER          ItemsAttribute = 0x2C
	ITEM_ATTR_TRADEAS           ItemsAttribute = 0x2D
)

// String implements the stringer interface.
func (a ItemsAttribute) String() string {
	switch a {
	case ITEM_ATTR_SERVERID:
		return "server id"
	case ITEM_ATTR_CLIENTID:
		return "client id"
	case ITEM_ATTR_NAME:
		return "name"
	case ITEM_ATTR_DESCR:
		return "description"
	case ITEM_ATTR_GROUNDSPEED:
		return "ground speed"
	case ITEM_ATTR_SPRITEHASH:
		return "sprite hash"
	case ITEM_ATTR_MINIMAPCOLOR:
		return "minimap color"
	case ITEM_ATTR_MAXREADWRITECHARS:
		return "max read write chars"
	case ITEM_ATTR_MAXREADCHARS:
		return "max read chars"
	case ITEM_ATTR_LIGHT:
		return "light"
	case ITEM_ATTR_TOPORDER:
		return "top order"
	case ITEM_ATTR_TRADEAS:
		return "trade as"
	}
	return fmt.Sprintf("attribute 0x%02X unknown", uint8(a))
}

// ClientVersion is the numeric client version stored in the root node's
// minor version field, for example 860 for client 8.60.
type ClientVersion uint32

// Client versions with known items.otb releases.
const (
	CLIENT_VERSION_800 ClientVersion = 800
	CLIENT_VERSION_810 ClientVersion = 810
	CLIENT_VERSION_811 ClientVersion = 811
	CLIENT_VERSION_820 ClientVersion = 820
	CLIENT_VERSION_830 ClientVersion = 830
	CLIENT_VERSION_840 ClientVersion = 840
	CLIENT_VERSION_841 ClientVersion = 841
	CLIENT_VERSION_842 ClientVersion = 842
	CLIENT_VERSION_850 ClientVersion = 850
	CLIENT_VERSION_854 ClientVersion = 854
	CLIENT_VERSION_855 ClientVersion = 855
	CLIENT_VERSION_860 ClientVersion = 860
	CLIENT_VERSION_861 ClientVersion = 861
	CLIENT_VERSION_862 ClientVersion = 862
	CLIENT_VERSION_870 ClientVersion = 870
)

// String implements the stringer interface.
func (v ClientVersion) String() string {
	if v >= 100 {
		return fmt.Sprintf("%d.%02d", uint32(v)/100, uint32(v)%100)
	}
	return fmt.Sprintf("client version %d unknown", uint32(v))
}

// supportedMajorVersion is the items.otb format revision this package
// understands. 0xFFFFFFFF marks a generic file with no version check.
const supportedMajorVersion = 3

// ReadOptions tunes a Read call.
type ReadOptions struct {
	// Strict makes an unknown attribute a fatal UnknownAttribute error
	// instead of a diagnostic.
	Strict bool
}

// ReadFile reads and parses an items.otb file from disk.
func ReadFile(path string, opts ReadOptions) (*item.List, errs.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(errs.New(errs.Io, "%v", err), "reading %s", path)
	}
	return Read(data, opts)
}

// Read parses an items.otb byte stream into a list. Soft findings land in
// the diagnostics; structural problems fail the whole read.
func Read(data []byte, opts ReadOptions) (*item.List, errs.Diagnostics, error) {
	var diags errs.Diagnostics

	tree, err := otb.Unmarshal(data)
	if err != nil {
		return nil, nil, err
	}
	root := tree.RootNode()
	if root == nil {
		return nil, nil, errs.New(errs.InvariantViolation, "items.otb has no root node")
	}

	list := item.NewList()
	if err := readRoot(root, list, &diags); err != nil {
		return nil, nil, err
	}

	if root.ChildNode() == nil {
		return nil, nil, errs.New(errs.InvariantViolation, "items.otb root node has no items")
	}
	for node := root.ChildNode(); node != nil; node = node.NextNode() {
		it, err := readItemNode(node, opts, &diags)
		if err != nil {
			return nil, nil, err
		}
		list.Append(it)
	}

	if dup := list.DuplicateIDs(); len(dup) > 0 {
		return nil, nil, errs.New(errs.DuplicateID, "duplicate server ids: %v", dup)
	}

	glog.V(2).Infof("items.otb %d.%d.%d (%s): %d items, server ids [%d, %d]",
		list.Version.Major, list.Version.Minor, list.Version.Build,
		ClientVersion(list.Version.Minor), list.Len(), list.MinID(), list.MaxID())

	list.SetRawRootProps(root.Props())
	list.SetDirty(false)
	return list, diags, nil
}

// readRoot decodes the root node's flags and version record.
func readRoot(root *otb.Node, list *item.List, diags *errs.Diagnostics) error {
	r := root.PropsReader()

	// The root flags word carries no meaning in any known file.
	if _, err := r.U32(); err != nil {
		return err
	}

	attr, err := r.U8()
	if err != nil {
		return err
	}
	if attr != ROOT_ATTR_VERSION {
		diags.Warnf(errs.UnknownAttribute, r.Pos()-1, "root attribute 0x%02X, want version record; version left zero", attr)
		return nil
	}
	size, err := r.U16()
	if err != nil {
		return err
	}
	if size != versionRecordSize {
		return errs.At(errs.SizeMismatch, r.Pos()-2, "root version record size %d, want %d", size, versionRecordSize)
	}
	if list.Version.Major, err = r.U32(); err != nil {
		return err
	}
	if list.Version.Minor, err = r.U32(); err != nil {
		return err
	}
	if list.Version.Build, err = r.U32(); err != nil {
		return err
	}
	csd, err := r.Bytes(csdSize)
	if err != nil {
		return err
	}
	list.Description = stringFromCStr(csd)

	if list.Version.Major == 0xFFFFFFFF {
		glog.Warning("generic items.otb found, skipping version check")
	} else if list.Version.Major != supportedMajorVersion {
		return errs.New(errs.UnknownVersion, "items.otb major version %d, want %d", list.Version.Major, supportedMajorVersion)
	}
	return nil
}

// readItemNode decodes one item node: type octet, flags word, then the
// attribute TLV stream.
func readItemNode(node *otb.Node, opts ReadOptions, diags *errs.Diagnostics) (*item.ServerItem, error) {
	typ := item.ServerItemType(node.NodeType())
	if typ >= item.TYPE_LAST {
		diags.Warnf(errs.InvariantViolation, errs.NoOffset, "item node type %d outside the known set", node.NodeType())
	}

	it := item.NewServerItem(0, 0, typ)
	r := node.PropsReader()

	flags, err := r.U32()
	if err != nil {
		return nil, err
	}
	it.Flags = item.ItemFlags(flags)

	for r.Remaining() > 0 {
		attrByte, err := r.U8()
		if err != nil {
			return nil, err
		}
		attr := ItemsAttribute(attrByte)
		size, err := r.U16()
		if err != nil {
			return nil, err
		}
		data, err := r.Bytes(int(size))
		if err != nil {
			return nil, err
		}
		if err := applyAttribute(it, attr, data, r.Pos()-int64(size), opts, diags); err != nil {
			return nil, err
		}
	}

	it.SetRawProps(node.Props())
	return it, nil
}

// applyAttribute assigns one decoded attribute onto the item.
func applyAttribute(it *item.ServerItem, attr ItemsAttribute, data []byte, offset int64, opts ReadOptions, diags *errs.Diagnostics) error {
	wantSize := func(n int) error {
		if len(data) != n {
			return errs.At(errs.SizeMismatch, offset, "attribute %s size %d, want %d", attr, len(data), n)
		}
		return nil
	}
	u16 := func() uint16 { return uint16(data[0]) | uint16(data[1])<<8 }

	switch attr {
	case ITEM_ATTR_SERVERID:
		if err := wantSize(2); err != nil {
			return err
		}
		it.ID = u16()
	case ITEM_ATTR_CLIENTID:
		if err := wantSize(2); err != nil {
			return err
		}
		it.ClientID = u16()
	case ITEM_ATTR_NAME:
		it.Name = string(data)
	case ITEM_ATTR_DESCR:
		it.Description = string(data)
	case ITEM_ATTR_GROUNDSPEED:
		if err := wantSize(2); err != nil {
			return err
		}
		it.GroundSpeed = u16()
	case ITEM_ATTR_SPRITEHASH:
		if err := wantSize(item.SpriteHashSize); err != nil {
			return err
		}
		it.SpriteHash = data
	case ITEM_ATTR_MINIMAPCOLOR:
		if err := wantSize(2); err != nil {
			return err
		}
		it.MinimapColor = u16()
	case ITEM_ATTR_MAXREADWRITECHARS:
		if err := wantSize(2); err != nil {
			return err
		}
		it.MaxReadWriteChars = u16()
	case ITEM_ATTR_MAXREADCHARS:
		if err := wantSize(2); err != nil {
			return err
		}
		it.MaxReadChars = u16()
	case ITEM_ATTR_LIGHT:
		if err := wantSize(4); err != nil {
			return err
		}
		it.LightLevel = u16()
		it.LightColor = uint16(data[2]) | uint16(data[3])<<8
	case ITEM_ATTR_TOPORDER:
		if err := wantSize(1); err != nil {
			return err
		}
		it.StackOrder = item.StackOrder(data[0])
	case ITEM_ATTR_TRADEAS:
		if err := wantSize(2); err != nil {
			return err
		}
		it.TradeAs = u16()
	default:
		if opts.Strict {
			return errs.At(errs.UnknownAttribute, offset, "attribute 0x%02X with %d bytes", uint8(attr), len(data))
		}
		diags.Warnf(errs.UnknownAttribute, offset, "attribute 0x%02X with %d bytes preserved verbatim", uint8(attr), len(data))
		it.UnknownAttributes = append(it.UnknownAttributes, item.UnknownAttribute{Attr: uint8(attr), Data: data})
	}
	return nil
}

// stringFromCStr turns a byte slice representing a null-terminated C-style
// string into a Go string.
func stringFromCStr(cstr []byte) string {
	for idx, b := range cstr {
		if b == 0x00 {
			return string(cstr[:idx])
		}
	}
	return string(cstr)
}

// appendTLV emits one attribute record into the unescaped props stream.
func appendTLV(w *binbuf.Writer, attr ItemsAttribute, data []byte) {
	w.U8(uint8(attr))
	w.U16(uint16(len(data)))
	w.Write(data)
}
