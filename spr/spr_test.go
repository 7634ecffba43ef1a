package spr

import (
	"image/color"
	"testing"

	"badc0de.net/pkg/go-itemedit/binbuf"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/ttesting"
)

// legacyArchive builds a two-slot 8.50 archive: sprite 1 holds four
// payload bytes, sprite 2 is an empty slot.
func legacyArchive() []byte {
	var w binbuf.Writer
	w.U32(0x4A44FD4E)
	w.U16(2)
	w.U32(14) // sprite 1: right after the offset table
	w.U32(23) // sprite 2
	// sprite 1: color key, size, payload
	w.Write([]byte{0xFF, 0x00, 0xFF})
	w.U16(4)
	w.Write([]byte{0x11, 0x22, 0x33, 0x44})
	// sprite 2: color key, zero size
	w.Write([]byte{0xFF, 0x00, 0xFF})
	w.U16(0)
	return w.Bytes()
}

func TestLegacyParse(t *testing.T) {
	s, diags, err := New(legacyArchive(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ttesting.AssertEqualInt(t, "diagnostics", len(diags), 0)
	ttesting.AssertEqualUint32(t, "count", s.Count(), 2)
	ttesting.AssertEqualString(t, "version", s.Version(), "8.50")

	sp, ok := s.Sprite(1)
	if !ok {
		t.Fatal("sprite 1 missing")
	}
	ttesting.AssertEqualBytes(t, "sprite 1 payload", sp.CompressedPixels, []byte{0x11, 0x22, 0x33, 0x44})
	ttesting.AssertEqualBool(t, "sprite 1 transparency", sp.Transparent, false)

	if _, ok := s.Sprite(2); ok {
		t.Error("empty slot 2 should be absent from the cache")
	}
	if got := s.IDs(); len(got) != 1 || got[0] != 1 {
		t.Errorf("IDs: got %v, want [1]", got)
	}
}

func TestUnknownSignature(t *testing.T) {
	var w binbuf.Writer
	w.U32(0x12345678)
	w.U32(0) // extended count
	s, diags, err := New(w.Bytes(), Options{Extended: true, Transparent: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ttesting.AssertEqualBool(t, "signature warned", diags.HasKind(errs.BadSignature), true)
	ttesting.AssertEqualString(t, "version", s.Version(), "unknown")
}

func TestBadOffsetSkipsSprite(t *testing.T) {
	var w binbuf.Writer
	w.U32(0x4A44FD4E)
	w.U16(2)
	w.U32(9999) // way past the archive
	w.U32(14)   // points at itself, truncated record
	data := w.Bytes()

	s, diags, err := New(data, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ttesting.AssertEqualBool(t, "offset diagnosed", diags.HasKind(errs.OffsetOutOfRange), true)
	if _, ok := s.Sprite(1); ok {
		t.Error("sprite with an out-of-range offset should be skipped")
	}
}

func TestSpriteDecode(t *testing.T) {
	var w binbuf.Writer
	w.U16(2) // two transparent pixels
	w.U16(1) // one opaque pixel
	w.Write([]byte{10, 20, 30})
	sp := &Sprite{ID: 1, Size: uint16(w.Len()), CompressedPixels: w.Bytes()}

	img, err := sp.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := img.At(2, 0); got != (color.RGBA{R: 10, G: 20, B: 30, A: 0xFF}) {
		t.Errorf("pixel (2,0): got %v", got)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("pixel (0,0) should be transparent")
	}
	if _, _, _, a := img.At(3, 0).RGBA(); a != 0 {
		t.Errorf("pixel (3,0) should be transparent")
	}
}
