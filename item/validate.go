package item

import (
	"badc0de.net/pkg/go-itemedit/errs"
)

// incompatibleFlags lists flag pairs that cannot both be set on one item.
var incompatibleFlags = [][2]ItemFlags{
	{FLAG_UNPASSABLE, FLAG_PICKUPABLE},
	{FLAG_STACKABLE, FLAG_MULTI_USE},
}

// Validate checks every field constraint and returns one error per
// violation. An empty result means the item is well formed.
func (i *ServerItem) Validate() []error {
	var out []error

	if i.ID == 0 {
		out = append(out, errs.Validation("serverId", "must be greater than zero"))
	}
	if i.Type == TYPE_NONE || i.Type >= TYPE_LAST {
		out = append(out, errs.Validation("type", "got %s, want a concrete item type", i.Type))
	}
	if len(i.Name) < 1 || len(i.Name) > 255 {
		out = append(out, errs.Validation("name", "length %d outside [1, 255]", len(i.Name)))
	}

	dims := []struct {
		name string
		v    uint8
		max  uint8
	}{
		{"width", i.Width, 10},
		{"height", i.Height, 10},
		{"layers", i.Layers, 10},
		{"patternX", i.PatternX, 10},
		{"patternY", i.PatternY, 10},
		{"patternZ", i.PatternZ, 10},
		{"frames", i.Frames, 255},
	}
	for _, d := range dims {
		if d.v < 1 || d.v > d.max {
			out = append(out, errs.Validation(d.name, "got %d, want [1, %d]", d.v, d.max))
		}
	}

	for _, pair := range incompatibleFlags {
		if i.HasFlag(pair[0]) && i.HasFlag(pair[1]) {
			out = append(out, errs.Validation("flags", "%s and %s cannot both be set", pair[0], pair[1]))
		}
	}

	switch i.Type {
	case TYPE_WEAPON:
		if i.Attack == 0 {
			out = append(out, errs.Validation("attack", "a weapon must have attack greater than zero"))
		}
		if !i.HasFlag(FLAG_PICKUPABLE) {
			out = append(out, errs.Validation("flags", "a weapon must be pickupable"))
		}
	case TYPE_CONTAINER:
		if i.ContainerSize == 0 {
			out = append(out, errs.Validation("containerSize", "a container must have a size greater than zero"))
		}
		if !i.HasFlag(FLAG_PICKUPABLE) && !i.HasFlag(FLAG_UNPASSABLE) {
			out = append(out, errs.Validation("flags", "a container must be pickupable or unpassable"))
		}
	case TYPE_FLUID:
		if i.FluidSource == 0 {
			out = append(out, errs.Validation("fluidSource", "a fluid must have a fluid source greater than zero"))
		}
	}

	if i.SpriteHash != nil && len(i.SpriteHash) != SpriteHashSize {
		out = append(out, errs.Validation("spriteHash", "length %d, want %d", len(i.SpriteHash), SpriteHashSize))
	}

	return out
}

// Validate additionally checks the client-side fields: divisors and
// animation phases at least one, and the sprite blob count agreeing with
// the geometry when sprites are attached.
func (c *ClientItem) Validate() []error {
	out := c.ServerItem.Validate()

	if c.AnimationPhases < 1 {
		out = append(out, errs.Validation("animationPhases", "must be at least 1"))
	}
	if c.XDiv < 1 || c.YDiv < 1 || c.ZDiv < 1 {
		out = append(out, errs.Validation("divisors", "xDiv, yDiv and zDiv must all be at least 1"))
	}
	if c.HasSprites() {
		if want := c.ExpectedSpriteCount(); len(c.SpriteBlobs) != want {
			out = append(out, errs.Validation("spriteBlobs", "got %d blobs, geometry calls for %d", len(c.SpriteBlobs), want))
		}
	}
	return out
}
