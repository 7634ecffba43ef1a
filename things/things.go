// Package things is the registry binding the three codecs together: the
// server item list from items.otb and the client items assembled from the
// DAT dataset plus the SPR archive.
package things

import (
	"github.com/golang/glog"

	"badc0de.net/pkg/go-itemedit/dat"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/spr"
)

// Things holds one loaded item database and the client data it is edited
// against.
type Things struct {
	list    *item.List
	dataset *dat.Dataset
	sprites *spr.SpriteSet

	clients map[uint16]*item.ClientItem
}

// New returns an empty registry.
func New() *Things {
	return &Things{clients: make(map[uint16]*item.ClientItem)}
}

// AddItemsOTB registers the server item list.
func (t *Things) AddItemsOTB(l *item.List) {
	t.list = l
}

// AddClientData registers the appearance dataset and sprite archive and
// assembles the client item map from them: each dataset entry gets its
// sprite blobs attached in reference order. A sprite reference the archive
// cannot satisfy leaves a nil blob and a diagnostic; the entry itself
// stays usable.
func (t *Things) AddClientData(d *dat.Dataset, s *spr.SpriteSet) errs.Diagnostics {
	t.dataset = d
	t.sprites = s
	t.clients = make(map[uint16]*item.ClientItem, len(d.ItemIDs()))

	var diags errs.Diagnostics
	missing := 0
	for _, id := range d.ItemIDs() {
		di, _ := d.Item(id)
		c := di.ClientItem
		if s != nil && len(di.SpriteIDs) > 0 {
			c.SpriteBlobs = make([][]byte, len(di.SpriteIDs))
			for idx, ref := range di.SpriteIDs {
				if ref == 0 {
					continue
				}
				sp, ok := s.Sprite(ref)
				if !ok || sp == nil {
					missing++
					diags.Warnf(errs.RangeViolation, errs.NoOffset, "client item %d references sprite %d absent from the archive", id, ref)
					continue
				}
				c.SpriteBlobs[idx] = sp.CompressedPixels
			}
		}
		t.clients[id] = &c
	}

	glog.V(2).Infof("assembled %d client items, %d sprite references unresolved", len(t.clients), missing)
	return diags
}

// ServerItems returns the registered item list, or nil.
func (t *Things) ServerItems() *item.List {
	return t.list
}

// ClientItems returns the assembled client item map keyed by client ID.
func (t *Things) ClientItems() map[uint16]*item.ClientItem {
	return t.clients
}

// ClientItem looks an assembled client item up by client ID.
func (t *Things) ClientItem(clientID uint16) (*item.ClientItem, bool) {
	c, ok := t.clients[clientID]
	return c, ok
}

// ClientForServerID resolves a server item's client counterpart through
// its client ID reference.
func (t *Things) ClientForServerID(serverID uint16) (*item.ClientItem, bool) {
	if t.list == nil {
		return nil, false
	}
	it, ok := t.list.Find(serverID)
	if !ok {
		return nil, false
	}
	return t.ClientItem(it.ClientID)
}

// DatasetSignature returns the DAT signature, or 0 when no dataset is
// registered.
func (t *Things) DatasetSignature() uint32 {
	if t.dataset == nil {
		return 0
	}
	return t.dataset.Signature()
}

// SpriteSetSignature returns the SPR signature, or 0 when no archive is
// registered.
func (t *Things) SpriteSetSignature() uint32 {
	if t.sprites == nil {
		return 0
	}
	return t.sprites.Signature()
}
