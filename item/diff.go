package item

import (
	"bytes"
	"strings"
	"unicode"
)

// DiffOptions tunes value comparison. The zero value compares exactly.
type DiffOptions struct {
	// IgnoreCase folds string case before comparing.
	IgnoreCase bool
	// IgnoreWhitespace strips all whitespace before comparing strings.
	IgnoreWhitespace bool
	// Tolerance is the absolute difference below which two numbers are
	// considered equal.
	Tolerance uint64
	// CompareSpriteHash includes the sprite hash in equality checks.
	CompareSpriteHash bool
	// IgnoreProperties names properties excluded from the comparison.
	IgnoreProperties []string
}

func (o DiffOptions) ignored(name string) bool {
	for _, p := range o.IgnoreProperties {
		if p == name {
			return true
		}
	}
	return false
}

// PropertyDiff is one mismatching property between two items.
type PropertyDiff struct {
	Name string
	A    Value
	B    Value
}

// Equal reports whether two values match under the given options.
func (v Value) Equal(other Value, opts DiffOptions) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KIND_UINT:
		a, b := v.Uint, other.Uint
		if a > b {
			a, b = b, a
		}
		return b-a <= opts.Tolerance
	case KIND_STRING:
		a, b := v.Str, other.Str
		if opts.IgnoreWhitespace {
			a, b = stripSpace(a), stripSpace(b)
		}
		if opts.IgnoreCase {
			return strings.EqualFold(a, b)
		}
		return a == b
	case KIND_BOOL:
		return v.Bool == other.Bool
	case KIND_BYTES:
		return bytes.Equal(v.Bytes, other.Bytes)
	}
	return false
}

func stripSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Diff compares every comparable property of a against b and returns the
// mismatches in property declaration order.
func Diff(a, b *ServerItem, opts DiffOptions) []PropertyDiff {
	var out []PropertyDiff
	for _, p := range properties {
		if !p.comparable || opts.ignored(p.name) {
			continue
		}
		va, vb := p.get(a), p.get(b)
		if !va.Equal(vb, opts) {
			out = append(out, PropertyDiff{Name: p.name, A: va, B: vb})
		}
	}
	if opts.CompareSpriteHash && !opts.ignored("spriteHash") {
		va, vb := BytesValue(a.SpriteHash), BytesValue(b.SpriteHash)
		if !va.Equal(vb, opts) {
			out = append(out, PropertyDiff{Name: "spriteHash", A: va, B: vb})
		}
	}
	return out
}

// EqualsAsServer reports whether the server-visible fields of the two
// items match under the given options.
func (i *ServerItem) EqualsAsServer(other *ServerItem, opts DiffOptions) bool {
	return len(Diff(i, other, opts)) == 0
}

// EqualsAsClient reports whether two client items match: the server-visible
// fields plus animation data and sprite blob content.
func (c *ClientItem) EqualsAsClient(other *ClientItem, opts DiffOptions) bool {
	if !c.EqualsAsServer(&other.ServerItem, opts) {
		return false
	}
	if c.AnimationPhases != other.AnimationPhases ||
		c.XDiv != other.XDiv || c.YDiv != other.YDiv || c.ZDiv != other.ZDiv ||
		c.AnimationSpeed != other.AnimationSpeed ||
		c.AnimationType != other.AnimationType {
		return false
	}
	if len(c.SpriteBlobs) != len(other.SpriteBlobs) {
		return false
	}
	for idx := range c.SpriteBlobs {
		if !bytes.Equal(c.SpriteBlobs[idx], other.SpriteBlobs[idx]) {
			return false
		}
	}
	return true
}
