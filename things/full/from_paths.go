// Package full populates a things.Things registry from data files on disk.
package full

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-itemedit/dat"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/spr"
	"badc0de.net/pkg/go-itemedit/things"

	itemsotb "badc0de.net/pkg/go-itemedit/otb/items"
)

// Options tunes how the individual files are read.
type Options struct {
	// Items configures the items.otb read.
	Items itemsotb.ReadOptions
	// Sprites is the fallback layout for an SPR archive with an unknown
	// signature.
	Sprites spr.Options
}

// FromPaths populates a things.Things registry from the data files found
// at the given paths. Any path passed as an empty string is omitted. Soft
// findings from all reads are merged into the returned diagnostics.
func FromPaths(itemsOTBPath, datPath, sprPath string, opts Options) (*things.Things, errs.Diagnostics, error) {
	t := things.New()
	var diags errs.Diagnostics

	if itemsOTBPath != "" {
		glog.V(1).Infof("full.FromPaths(): reading items otb: %q", itemsOTBPath)
		list, d, err := itemsotb.ReadFile(itemsOTBPath, opts.Items)
		diags = append(diags, d...)
		if err != nil {
			return nil, diags, errors.Wrap(err, "reading items otb")
		}
		t.AddItemsOTB(list)
	}

	var spriteSet *spr.SpriteSet
	if sprPath != "" {
		glog.V(1).Infof("full.FromPaths(): reading sprite archive: %q", sprPath)
		s, d, err := spr.NewFromFile(sprPath, opts.Sprites)
		diags = append(diags, d...)
		if err != nil {
			return nil, diags, errors.Wrap(err, "reading sprite archive")
		}
		spriteSet = s
	}

	if datPath != "" {
		glog.V(1).Infof("full.FromPaths(): reading appearance data: %q", datPath)
		dataset, d, err := dat.NewFromFile(datPath, nil)
		diags = append(diags, d...)
		if err != nil {
			return nil, diags, errors.Wrap(err, "reading appearance data")
		}
		diags = append(diags, t.AddClientData(dataset, spriteSet)...)
	}

	return t, diags, nil
}
