// Package spr reads Tibia.spr sprite archives: a signature, a sprite
// count, an offset table, and per-sprite compressed pixel blobs.
//
// Sprites are keyed by a 1-based ID. The pixel stream is the client's own
// run-length alternation of transparent and opaque runs; Decode turns one
// blob into a 32x32 RGBA image, while the matcher operates on the raw
// blobs directly.
package spr

import (
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/errs"
)

// SpriteSize is the pixel width and height of every sprite.
const SpriteSize = 32

// maxBlobSize caps a single compressed sprite blob, as the reference
// decoder does.
const maxBlobSize = 3444

// family describes how archives of one client-version range are laid out.
type family struct {
	version     string
	extended    bool // sprite count is u32 instead of u16
	transparent bool // blobs use the alpha-carrying run encoding
}

// knownSignatures maps the 32-bit archive signature to its layout family.
// Unknown signatures parse with a warning using the caller's Options.
var knownSignatures = map[uint32]family{
	0x467F9E74: {version: "8.00"},
	0x475D0B01: {version: "8.10"},
	0x47EBB9B2: {version: "8.11"},
	0x4868ECC9: {version: "8.20"},
	0x48C8E712: {version: "8.30"},
	0x493D4E7C: {version: "8.40"},
	0x49B140EA: {version: "8.41 / 8.42"},
	0x4A44FD4E: {version: "8.50"},
	0x4ACB5230: {version: "8.50"},
	0x4B1E2C87: {version: "8.54"},
	0x4B0D3AFF: {version: "8.54"},
	0x4B913871: {version: "8.55"},
}

// VersionForSignature returns the display version for a known archive
// signature.
func VersionForSignature(sig uint32) (string, bool) {
	f, ok := knownSignatures[sig]
	if !ok {
		return "", false
	}
	return f.version, true
}

// Options tunes parsing for archives whose signature is not in the known
// set; for known signatures the family table wins.
type Options struct {
	// Extended reads the sprite count as u32, as clients 8.60 and later
	// write it.
	Extended bool
	// Transparent marks sprites as using the alpha-carrying encoding.
	Transparent bool
}

// Sprite is one entry of the archive. CompressedPixels is the opaque
// run-length stream exactly as stored; callers must treat it as read-only.
type Sprite struct {
	ID               uint32
	Size             uint16
	Transparent      bool
	CompressedPixels []byte
}

// SpriteSet is a parsed sprite archive. Lookups are safe for concurrent
// use once New returns.
type SpriteSet struct {
	signature uint32
	count     uint32
	version   string

	mu      sync.Mutex
	sprites map[uint32]*Sprite
}

// NewFromFile reads and parses a sprite archive from disk.
func NewFromFile(path string, opts Options) (*SpriteSet, errs.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(errs.New(errs.Io, "%v", err), "reading %s", path)
	}
	return New(data, opts)
}

// New parses a sprite archive. A sprite whose record cannot be read is
// skipped with a diagnostic; the rest of the archive still loads.
func New(data []byte, opts Options) (*SpriteSet, errs.Diagnostics, error) {
	var diags errs.Diagnostics
	r := binbuf.NewReader(data)

	sig, err := r.U32()
	if err != nil {
		return nil, nil, err
	}

	fam, known := knownSignatures[sig]
	if !known {
		fam = family{version: "unknown", extended: opts.Extended, transparent: opts.Transparent}
		diags.Warnf(errs.BadSignature, 0, "signature 0x%08X not in the known set; assuming extended=%t transparent=%t", sig, fam.extended, fam.transparent)
	}

	var count uint32
	if fam.extended {
		if count, err = r.U32(); err != nil {
			return nil, nil, err
		}
	} else {
		c16, err := r.U16()
		if err != nil {
			return nil, nil, err
		}
		count = uint32(c16)
	}

	offsets := make([]uint32, count)
	for idx := range offsets {
		if offsets[idx], err = r.U32(); err != nil {
			return nil, nil, err
		}
	}

	s := &SpriteSet{
		signature: sig,
		count:     count,
		version:   fam.version,
		sprites:   make(map[uint32]*Sprite, count),
	}

	for idx, offset := range offsets {
		id := uint32(idx) + 1
		if offset == 0 {
			continue
		}
		sp, err := readSprite(data, offset, id, fam.transparent)
		if err != nil {
			off := int64(offset)
			if e, ok := err.(*errs.Error); ok {
				diags.Warnf(e.Kind, off, "sprite %d skipped: %s", id, e.Msg)
			} else {
				diags.Warnf(errs.Truncated, off, "sprite %d skipped: %v", id, err)
			}
			continue
		}
		if sp != nil {
			s.sprites[id] = sp
		}
	}

	glog.V(2).Infof("spr 0x%08X (%s): %d sprite slots, %d present", sig, fam.version, count, len(s.sprites))
	return s, diags, nil
}

// readSprite decodes one offset-table entry. The three bytes before the
// size are the color key triple, which no known client consults. A zero
// size means the slot is empty and yields a nil sprite.
func readSprite(data []byte, offset uint32, id uint32, transparent bool) (*Sprite, error) {
	r := binbuf.NewReader(data)
	if err := r.Seek(int64(offset) + 3); err != nil {
		return nil, errs.At(errs.OffsetOutOfRange, int64(offset), "offset table points past the archive")
	}
	size, err := r.U16()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	if size > maxBlobSize {
		return nil, errs.At(errs.SizeMismatch, r.Pos()-2, "blob of %d bytes exceeds the maximum of %d", size, maxBlobSize)
	}
	blob, err := r.Bytes(int(size))
	if err != nil {
		return nil, errs.At(errs.SizeMismatch, r.Pos(), "declared %d bytes, archive holds fewer", size)
	}
	return &Sprite{ID: id, Size: size, Transparent: transparent, CompressedPixels: blob}, nil
}

// Signature returns the archive's 32-bit signature.
func (s *SpriteSet) Signature() uint32 {
	return s.signature
}

// Count returns the number of sprite slots the offset table declares,
// present or not.
func (s *SpriteSet) Count() uint32 {
	return s.count
}

// Version returns the display version for the archive's signature, or
// "unknown".
func (s *SpriteSet) Version() string {
	return s.version
}

// Sprite looks a sprite up by its 1-based ID. Absent slots and skipped
// sprites report false.
func (s *SpriteSet) Sprite(id uint32) (*Sprite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprites[id]
	return sp, ok
}

// IDs returns the IDs of every present sprite in ascending order.
func (s *SpriteSet) IDs() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, 0, len(s.sprites))
	for id := uint32(1); id <= s.count; id++ {
		if _, ok := s.sprites[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Decode expands the compressed pixel stream into a 32x32 RGBA image.
// The stream alternates u16 run lengths of transparent and opaque pixels,
// opaque runs carrying an RGB triple per pixel.
func (sp *Sprite) Decode() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, SpriteSize, SpriteSize))
	r := binbuf.NewReader(sp.CompressedPixels)

	transparent := true
	px := 0
	for r.Remaining() > 0 {
		run, err := r.U16()
		if err != nil {
			return nil, err
		}
		if !transparent {
			for i := 0; i < int(run); i++ {
				cR, err := r.U8()
				if err != nil {
					return nil, err
				}
				cG, err := r.U8()
				if err != nil {
					return nil, err
				}
				cB, err := r.U8()
				if err != nil {
					return nil, err
				}
				if px+i >= SpriteSize*SpriteSize {
					return nil, errs.At(errs.RangeViolation, r.Pos(), "pixel runs exceed the %dx%d raster", SpriteSize, SpriteSize)
				}
				img.SetRGBA((px+i)%SpriteSize, (px+i)/SpriteSize, color.RGBA{R: cR, G: cG, B: cB, A: 0xFF})
			}
		}
		px += int(run)
		transparent = !transparent
	}
	return img, nil
}
