package compare

import (
	"context"
	"fmt"
	"sort"

	"github.com/golang/glog"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/match"
)

// UpdateOptions toggles the independent steps of an OTB migration.
type UpdateOptions struct {
	// ReassignUnmatchedSprites looks for a similarity-based candidate
	// when an item's sprite hash no longer matches the new client.
	ReassignUnmatchedSprites bool
	// ReloadItemAttributes re-derives item attributes from the new
	// client record.
	ReloadItemAttributes bool
	// CreateNewItems allocates server items for client entries that have
	// no server counterpart.
	CreateNewItems bool
	// GenerateSpriteHash recomputes the sprite hash from the new client.
	GenerateSpriteHash bool
	// AllowUnmatched lets the migration apply even when some items could
	// not be resolved against the new client.
	AllowUnmatched bool
	// Threshold overrides the similarity threshold; 0 means the default.
	Threshold float64
}

// MigrationState is the phase a migration run is in.
type MigrationState int

const (
	MIGRATION_PLANNING MigrationState = iota
	MIGRATION_MATCHING
	MIGRATION_APPLYING
	MIGRATION_REPORTING
)

// String implements the stringer interface.
func (s MigrationState) String() string {
	switch s {
	case MIGRATION_PLANNING:
		return "planning"
	case MIGRATION_MATCHING:
		return "matching"
	case MIGRATION_APPLYING:
		return "applying"
	case MIGRATION_REPORTING:
		return "reporting"
	}
	return fmt.Sprintf("migration state %d unknown", int(s))
}

// MigrationAction is one recorded step of a migration.
type MigrationAction struct {
	ServerID uint16 `yaml:"server_id"`
	ClientID uint16 `yaml:"client_id"`
	Action   string `yaml:"action"`
	Detail   string `yaml:"detail,omitempty"`
}

// MigrationReport lists everything a migration did.
type MigrationReport struct {
	State MigrationState `yaml:"-"`

	Matched            int `yaml:"matched"`
	Reassigned         int `yaml:"reassigned"`
	Unmatched          int `yaml:"unmatched"`
	Created            int `yaml:"created"`
	AttributesReloaded int `yaml:"attributes_reloaded"`
	HashesGenerated    int `yaml:"hashes_generated"`

	Actions     []MigrationAction `yaml:"actions,omitempty"`
	Diagnostics errs.Diagnostics  `yaml:"-"`
}

// StateName is the final phase reached, for the YAML report.
func (r *MigrationReport) StateName() string { return r.State.String() }

// plan is the per-item outcome of the matching phase. Items are mutated
// only from a complete plan.
type plan struct {
	it          *item.ServerItem
	newClientID uint16
	client      *item.ClientItem
	reassigned  bool
	unmatched   bool
}

// Update migrates the list from the old client version to the new one:
// each item's client reference is re-resolved, then the optional steps
// from opts are applied. Per-item failures are recorded, never fatal; the
// run only refuses to apply when items stay unmatched and the caller did
// not allow that.
func Update(ctx context.Context, list *item.List, oldClients, newClients map[uint16]*item.ClientItem, opts UpdateOptions) (*MigrationReport, error) {
	report := &MigrationReport{State: MIGRATION_PLANNING}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = match.DefaultThreshold
	}

	// Planning: order the work and precompute candidate signatures.
	ids := append([]uint16(nil), list.IDs()...)
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	var pool []*item.ClientItem
	if opts.ReassignUnmatchedSprites {
		pool = make([]*item.ClientItem, 0, len(newClients))
		for _, c := range newClients {
			pool = append(pool, c)
		}
		sort.Slice(pool, func(a, b int) bool { return pool[a].ClientID < pool[b].ClientID })
		if err := match.BuildSignatures(ctx, pool); err != nil {
			report.Diagnostics.Warnf(errs.Cancelled, errs.NoOffset, "signature build: %v", err)
			return report, nil
		}
	}

	// Matching: resolve every item against the new client, without
	// touching the list yet.
	report.State = MIGRATION_MATCHING
	plans := make([]plan, 0, len(ids))
	for _, id := range ids {
		select {
		case <-ctx.Done():
			report.Diagnostics.Warnf(errs.Cancelled, errs.NoOffset, "migration cancelled while matching item %d", id)
			return report, nil
		default:
		}

		it, _ := list.Find(id)
		p := plan{it: it, newClientID: it.ClientID}

		if c, ok := newClients[it.ClientID]; ok && it.VerifySpriteHash(c) {
			p.client = c
			plans = append(plans, p)
			continue
		}

		if opts.ReassignUnmatchedSprites {
			if old, ok := oldClients[it.ClientID]; ok {
				if cands := match.TopKCandidates(old, pool, 1, threshold); len(cands) > 0 {
					p.newClientID = cands[0].ClientID
					p.client = newClients[cands[0].ClientID]
					p.reassigned = true
					plans = append(plans, p)
					continue
				}
			} else {
				report.Diagnostics.Warnf(errs.RangeViolation, errs.NoOffset, "item %d references client %d absent from the old client data", id, it.ClientID)
			}
		}

		p.unmatched = true
		// A direct hit without a verifiable hash still keeps the link.
		if c, ok := newClients[it.ClientID]; ok {
			p.client = c
		}
		plans = append(plans, p)
	}

	unmatched := 0
	for _, p := range plans {
		if p.unmatched {
			unmatched++
		}
	}
	if unmatched > 0 && !opts.AllowUnmatched {
		return report, errs.New(errs.InvariantViolation, "%d items have no match in the new client data", unmatched)
	}

	// Applying: mutate the list from the completed plans.
	report.State = MIGRATION_APPLYING
	for _, p := range plans {
		select {
		case <-ctx.Done():
			report.Diagnostics.Warnf(errs.Cancelled, errs.NoOffset, "migration cancelled while applying item %d", p.it.ID)
			return report, nil
		default:
		}
		applyPlan(list, p, opts, report)
	}

	if opts.CreateNewItems {
		createMissing(ctx, list, newClients, opts, report)
	}

	report.State = MIGRATION_REPORTING
	glog.V(2).Infof("migration: %d matched, %d reassigned, %d unmatched, %d created",
		report.Matched, report.Reassigned, report.Unmatched, report.Created)
	return report, nil
}

func applyPlan(list *item.List, p plan, opts UpdateOptions, report *MigrationReport) {
	switch {
	case p.unmatched:
		report.Unmatched++
		report.Actions = append(report.Actions, MigrationAction{ServerID: p.it.ID, ClientID: p.it.ClientID, Action: "unmatched"})
	case p.reassigned:
		old := p.it.ClientID
		p.it.ClientID = p.newClientID
		p.it.Touch()
		report.Reassigned++
		report.Actions = append(report.Actions, MigrationAction{
			ServerID: p.it.ID, ClientID: p.newClientID,
			Action: "reassigned", Detail: fmt.Sprintf("was client %d", old),
		})
		list.SetDirty(true)
	default:
		report.Matched++
	}

	if p.client == nil {
		return
	}
	if opts.ReloadItemAttributes {
		reloadAttributes(p.it, p.client)
		report.AttributesReloaded++
		report.Actions = append(report.Actions, MigrationAction{ServerID: p.it.ID, ClientID: p.it.ClientID, Action: "attributes reloaded"})
		list.SetDirty(true)
	}
	if opts.GenerateSpriteHash {
		p.it.SpriteHash = p.client.CalculateSpriteHash()
		p.it.Touch()
		report.HashesGenerated++
		list.SetDirty(true)
	}
}

// createMissing allocates server items for client records nothing in the
// list points at.
func createMissing(ctx context.Context, list *item.List, newClients map[uint16]*item.ClientItem, opts UpdateOptions, report *MigrationReport) {
	used := make(map[uint16]bool, list.Len())
	for _, it := range list.Items() {
		used[it.ClientID] = true
	}

	ids := make([]uint16, 0, len(newClients))
	for id := range newClients {
		if !used[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	for _, clientID := range ids {
		select {
		case <-ctx.Done():
			report.Diagnostics.Warnf(errs.Cancelled, errs.NoOffset, "migration cancelled while creating items")
			return
		default:
		}

		c := newClients[clientID]
		it := item.NewServerItem(list.NextAvailableID(1), clientID, c.Type)
		if it.Type == item.TYPE_NONE {
			it.Type = item.TYPE_DEPRECATED
		}
		it.IsCustomCreated = true
		reloadAttributes(it, c)
		if opts.GenerateSpriteHash {
			it.SpriteHash = c.CalculateSpriteHash()
			report.HashesGenerated++
		}
		if err := list.Add(it); err != nil {
			report.Diagnostics.Warnf(errs.DuplicateID, errs.NoOffset, "creating item for client %d: %v", clientID, err)
			continue
		}
		report.Created++
		report.Actions = append(report.Actions, MigrationAction{ServerID: it.ID, ClientID: clientID, Action: "created"})
	}
}

// reloadAttributes copies the client-derived attributes onto the server
// item, the step behind the reload-attributes migration option.
func reloadAttributes(it *item.ServerItem, c *item.ClientItem) {
	it.Type = c.Type
	if it.Type == item.TYPE_NONE {
		it.Type = item.TYPE_DEPRECATED
	}
	it.StackOrder = c.StackOrder
	it.Flags = c.Flags
	it.GroundSpeed = c.GroundSpeed
	it.LightLevel = c.LightLevel
	it.LightColor = c.LightColor
	it.MinimapColor = c.MinimapColor
	it.Elevation = c.Elevation
	it.MaxReadChars = c.MaxReadChars
	it.MaxReadWriteChars = c.MaxReadWriteChars
	it.Width = c.Width
	it.Height = c.Height
	it.Layers = c.Layers
	it.PatternX = c.PatternX
	it.PatternY = c.PatternY
	it.PatternZ = c.PatternZ
	it.Frames = c.Frames
	it.HasClientData = true
	it.Touch()
}
