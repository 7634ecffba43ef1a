// Package binbuf provides a bounds-checked little-endian cursor over an
// in-memory byte span, plus the escape-byte codec used by the OTB node
// stream.
//
// Every read fails with a Truncated error carrying the offset of the
// premature end, which is why encoding/binary is not used directly: it
// reports a bare io.ErrUnexpectedEOF with no position information.
package binbuf

import (
	"bytes"

	"badc0de.net/pkg/go-itemedit/errs"
)

// Special octets of the OTB node stream.
const (
	EscapeChar = 0xFD // The following octet is payload, whatever its value.
	NodeStart  = 0xFE // Begins a new node.
	NodeEnd    = 0xFF // Ends the current node.
)

// Reader is a forward-only cursor over a byte span. All multi-octet reads
// are little-endian.
type Reader struct {
	b   []byte
	off int
}

// NewReader returns a Reader positioned at the start of b. The Reader
// aliases b; callers must not mutate it while reading.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Pos returns the current byte offset.
func (r *Reader) Pos() int64 {
	return int64(r.off)
}

// Remaining returns the number of unread octets.
func (r *Reader) Remaining() int {
	return len(r.b) - r.off
}

// Seek repositions the cursor at the absolute offset.
func (r *Reader) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(r.b)) {
		return errs.At(errs.OffsetOutOfRange, offset, "seek outside span of %d bytes", len(r.b))
	}
	r.off = int(offset)
	return nil
}

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return errs.At(errs.Truncated, int64(len(r.b)), "want %d more bytes at offset %d", n, r.off)
	}
	return nil
}

// U8 reads one octet.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

// U16 reads a little-endian 16-bit value.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := uint16(r.b[r.off]) | uint16(r.b[r.off+1])<<8
	r.off += 2
	return v, nil
}

// U32 reads a little-endian 32-bit value.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := uint32(r.b[r.off]) | uint32(r.b[r.off+1])<<8 | uint32(r.b[r.off+2])<<16 | uint32(r.b[r.off+3])<<24
	r.off += 4
	return v, nil
}

// U64 reads a little-endian 64-bit value.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(r.b[r.off+i])
	}
	r.off += 8
	return v, nil
}

// Bytes reads n octets and returns a copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errs.At(errs.RangeViolation, r.Pos(), "negative byte count %d", n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.b[r.off:r.off+n])
	r.off += n
	return out, nil
}

// CString reads octets up to and including a NUL terminator and returns
// the string without the terminator.
func (r *Reader) CString() (string, error) {
	idx := bytes.IndexByte(r.b[r.off:], 0x00)
	if idx == -1 {
		return "", errs.At(errs.Truncated, int64(len(r.b)), "unterminated string at offset %d", r.off)
	}
	s := string(r.b[r.off : r.off+idx])
	r.off += idx + 1
	return s, nil
}

// NodeByte reads one payload octet of an OTB node body. An EscapeChar is
// consumed and the following octet returned verbatim. This is the only
// place escape handling lives on the read side.
func (r *Reader) NodeByte() (uint8, error) {
	b, err := r.U8()
	if err != nil {
		return 0, err
	}
	if b != EscapeChar {
		return b, nil
	}
	return r.U8()
}

// Writer builds a byte span with little-endian typed writes. The zero
// value is ready for use.
type Writer struct {
	buf bytes.Buffer
}

// Len returns the number of octets written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the accumulated span.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// U8 writes one octet.
func (w *Writer) U8(v uint8) {
	w.buf.WriteByte(v)
}

// U16 writes a little-endian 16-bit value.
func (w *Writer) U16(v uint16) {
	w.buf.Write([]byte{byte(v), byte(v >> 8)})
}

// U32 writes a little-endian 32-bit value.
func (w *Writer) U32(v uint32) {
	w.buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// U64 writes a little-endian 64-bit value.
func (w *Writer) U64(v uint64) {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	w.buf.Write(b)
}

// Write appends raw octets, unescaped.
func (w *Writer) Write(b []byte) {
	w.buf.Write(b)
}

// CString writes s followed by a NUL terminator.
func (w *Writer) CString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0x00)
}

// NodeByte writes one payload octet of an OTB node body, emitting an
// escape before any octet that collides with the framing markers.
func (w *Writer) NodeByte(v uint8) {
	if v == NodeStart || v == NodeEnd || v == EscapeChar {
		w.buf.WriteByte(EscapeChar)
	}
	w.buf.WriteByte(v)
}

// NodeBytes escapes and writes a whole payload span.
func (w *Writer) NodeBytes(b []byte) {
	for _, v := range b {
		w.NodeByte(v)
	}
}
