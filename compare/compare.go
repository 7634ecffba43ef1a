// Package compare runs property-by-property comparisons between server
// items and client appearance records, and drives OTB migration between
// client versions.
package compare

import (
	"context"
	"sort"

	"github.com/golang/glog"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
)

// Options tunes a comparison run.
type Options struct {
	// Diff configures per-property value comparison.
	Diff item.DiffOptions
}

// ItemComparison is the result of comparing one server item against its
// client counterpart.
type ItemComparison struct {
	ServerID     uint16              `yaml:"server_id"`
	HasServer    bool                `yaml:"has_server"`
	HasClient    bool                `yaml:"has_client"`
	Properties   []item.PropertyDiff `yaml:"-"`
	PropertyDiff []propertyDiffYAML  `yaml:"properties,omitempty"`
	OverallMatch bool                `yaml:"overall_match"`
}

// propertyDiffYAML is the report-friendly rendering of a PropertyDiff.
type propertyDiffYAML struct {
	Name   string `yaml:"name"`
	Server string `yaml:"server"`
	Client string `yaml:"client"`
}

// BatchComparison tallies a whole comparison run.
type BatchComparison struct {
	Items []ItemComparison `yaml:"items"`

	Matched    int `yaml:"matched"`
	Mismatched int `yaml:"mismatched"`
	ServerOnly int `yaml:"server_only"`
	ClientOnly int `yaml:"client_only"`

	// PropertyMismatches counts, per property name, how many items
	// mismatched on it.
	PropertyMismatches map[string]int `yaml:"property_mismatches,omitempty"`

	Diagnostics errs.Diagnostics `yaml:"-"`
}

// CompareItems compares one server item against one client record. Either
// side may be nil, which the result reflects in HasServer/HasClient.
func CompareItems(server *item.ServerItem, client *item.ClientItem, opts Options) ItemComparison {
	out := ItemComparison{
		HasServer: server != nil,
		HasClient: client != nil,
	}
	switch {
	case server != nil:
		out.ServerID = server.ID
	case client != nil:
		out.ServerID = client.ID
	}
	if server == nil || client == nil {
		return out
	}

	out.Properties = item.Diff(server, &client.ServerItem, opts.Diff)
	for _, d := range out.Properties {
		out.PropertyDiff = append(out.PropertyDiff, propertyDiffYAML{Name: d.Name, Server: d.A.String(), Client: d.B.String()})
	}
	out.OverallMatch = len(out.Properties) == 0
	return out
}

// CompareLists compares two maps item by item over the union of their
// keys, in ascending key order. Cancellation between items returns the
// results so far with a Cancelled diagnostic.
func CompareLists(ctx context.Context, servers map[uint16]*item.ServerItem, clients map[uint16]*item.ClientItem, opts Options) *BatchComparison {
	keys := make(map[uint16]bool, len(servers)+len(clients))
	for id := range servers {
		keys[id] = true
	}
	for id := range clients {
		keys[id] = true
	}
	order := make([]uint16, 0, len(keys))
	for id := range keys {
		order = append(order, id)
	}
	sort.Slice(order, func(a, b int) bool { return order[a] < order[b] })

	out := &BatchComparison{PropertyMismatches: make(map[string]int)}
	for _, id := range order {
		select {
		case <-ctx.Done():
			out.Diagnostics.Warnf(errs.Cancelled, errs.NoOffset, "comparison cancelled after %d of %d items", len(out.Items), len(order))
			return out
		default:
		}

		cmp := CompareItems(servers[id], clients[id], opts)
		cmp.ServerID = id
		out.Items = append(out.Items, cmp)

		switch {
		case !cmp.HasClient:
			out.ServerOnly++
		case !cmp.HasServer:
			out.ClientOnly++
		case cmp.OverallMatch:
			out.Matched++
		default:
			out.Mismatched++
			for _, d := range cmp.Properties {
				out.PropertyMismatches[d.Name]++
			}
		}
	}

	glog.V(2).Infof("compared %d items: %d matched, %d mismatched, %d server-only, %d client-only",
		len(out.Items), out.Matched, out.Mismatched, out.ServerOnly, out.ClientOnly)
	return out
}
