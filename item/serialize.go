package item

import (
	"time"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/errs"
)

// serializeVersion is the revision octet leading the compact form.
const serializeVersion = 1

// Serialize emits the item into the compact little-endian internal form
// used for clipboard transfer and undo snapshots, unknown OTB attributes
// included. The cached raw property stream is not carried; it is rebuilt
// from the source file on the next read. This is not the OTB
// representation; use otb/items for file interchange.
func (i *ServerItem) Serialize() []byte {
	var w binbuf.Writer
	w.U8(serializeVersion)

	w.U16(i.ID)
	w.U16(i.ClientID)
	w.U8(uint8(i.Type))
	w.U8(uint8(i.StackOrder))
	w.U32(uint32(i.Flags))

	writeString(&w, i.Name)
	writeString(&w, i.Description)
	writeString(&w, i.Article)
	writeString(&w, i.Plural)

	w.U8(i.Width)
	w.U8(i.Height)
	w.U8(i.Layers)
	w.U8(i.PatternX)
	w.U8(i.PatternY)
	w.U8(i.PatternZ)
	w.U8(i.Frames)

	for _, v := range i.scalars() {
		w.U16(v)
	}

	if len(i.SpriteHash) == SpriteHashSize {
		w.U8(1)
		w.Write(i.SpriteHash)
	} else {
		w.U8(0)
	}

	writeBool(&w, i.IsCustomCreated)
	writeBool(&w, i.HasClientData)
	if i.LastModified.IsZero() {
		w.U64(0)
	} else {
		w.U64(uint64(i.LastModified.UnixMilli()))
	}
	writeString(&w, i.ModifiedBy)

	w.U16(uint16(len(i.UnknownAttributes)))
	for _, ua := range i.UnknownAttributes {
		w.U8(ua.Attr)
		w.U16(uint16(len(ua.Data)))
		w.Write(ua.Data)
	}

	return w.Bytes()
}

// Deserialize parses the compact internal form back into the item,
// replacing every field.
func (i *ServerItem) Deserialize(data []byte) error {
	r := binbuf.NewReader(data)

	ver, err := r.U8()
	if err != nil {
		return err
	}
	if ver != serializeVersion {
		return errs.New(errs.UnknownVersion, "compact item form revision %d, want %d", ver, serializeVersion)
	}

	out := ServerItem{}
	if out.ID, err = r.U16(); err != nil {
		return err
	}
	if out.ClientID, err = r.U16(); err != nil {
		return err
	}
	typ, err := r.U8()
	if err != nil {
		return err
	}
	out.Type = ServerItemType(typ)
	so, err := r.U8()
	if err != nil {
		return err
	}
	out.StackOrder = StackOrder(so)
	fl, err := r.U32()
	if err != nil {
		return err
	}
	out.Flags = ItemFlags(fl)

	strs := []*string{&out.Name, &out.Description, &out.Article, &out.Plural}
	for _, s := range strs {
		if *s, err = readString(r); err != nil {
			return err
		}
	}

	dims := []*uint8{&out.Width, &out.Height, &out.Layers, &out.PatternX, &out.PatternY, &out.PatternZ, &out.Frames}
	for _, d := range dims {
		if *d, err = r.U8(); err != nil {
			return err
		}
	}

	for _, p := range out.scalarPtrs() {
		if *p, err = r.U16(); err != nil {
			return err
		}
	}

	hasHash, err := r.U8()
	if err != nil {
		return err
	}
	if hasHash != 0 {
		if out.SpriteHash, err = r.Bytes(SpriteHashSize); err != nil {
			return err
		}
	}

	if out.IsCustomCreated, err = readBool(r); err != nil {
		return err
	}
	if out.HasClientData, err = readBool(r); err != nil {
		return err
	}
	ms, err := r.U64()
	if err != nil {
		return err
	}
	if ms != 0 {
		out.LastModified = time.UnixMilli(int64(ms)).UTC()
	}
	if out.ModifiedBy, err = readString(r); err != nil {
		return err
	}

	uaCount, err := r.U16()
	if err != nil {
		return err
	}
	for n := 0; n < int(uaCount); n++ {
		var ua UnknownAttribute
		if ua.Attr, err = r.U8(); err != nil {
			return err
		}
		sz, err := r.U16()
		if err != nil {
			return err
		}
		if ua.Data, err = r.Bytes(int(sz)); err != nil {
			return err
		}
		out.UnknownAttributes = append(out.UnknownAttributes, ua)
	}

	if r.Remaining() != 0 {
		return errs.At(errs.SizeMismatch, r.Pos(), "%d trailing bytes after compact item form", r.Remaining())
	}

	*i = out
	return nil
}

// scalars returns the uint16 fields in their fixed serialization order.
func (i *ServerItem) scalars() []uint16 {
	return []uint16{
		i.GroundSpeed, i.LightLevel, i.LightColor, i.MinimapColor,
		i.Elevation, i.TradeAs, i.WeaponType, i.AmmoType, i.ShootType,
		i.Effect, i.DistanceEffect, i.Armor, i.Defense, i.ExtraDefense,
		i.Attack, i.RotateTo, i.ContainerSize, i.FluidSource,
		i.MaxReadChars, i.MaxReadWriteChars, i.MaxWriteChars,
	}
}

// scalarPtrs mirrors scalars for the read side.
func (i *ServerItem) scalarPtrs() []*uint16 {
	return []*uint16{
		&i.GroundSpeed, &i.LightLevel, &i.LightColor, &i.MinimapColor,
		&i.Elevation, &i.TradeAs, &i.WeaponType, &i.AmmoType, &i.ShootType,
		&i.Effect, &i.DistanceEffect, &i.Armor, &i.Defense, &i.ExtraDefense,
		&i.Attack, &i.RotateTo, &i.ContainerSize, &i.FluidSource,
		&i.MaxReadChars, &i.MaxReadWriteChars, &i.MaxWriteChars,
	}
}

func writeString(w *binbuf.Writer, s string) {
	w.U16(uint16(len(s)))
	w.Write([]byte(s))
}

func readString(r *binbuf.Reader) (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeBool(w *binbuf.Writer, v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

func readBool(r *binbuf.Reader) (bool, error) {
	b, err := r.U8()
	return b != 0, err
}
