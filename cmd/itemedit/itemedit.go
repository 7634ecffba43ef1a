// Command itemedit inspects and migrates items.otb databases against
// client data files.
//
// Modes:
//
//	show       print one server item with its properties
//	compare    compare the item database against the client data
//	update     migrate the item database to a new client version
//	candidates list similarity candidates for one client item
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"badc0de.net/pkg/go-itemedit/compare"
	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/match"
	"badc0de.net/pkg/go-itemedit/things"
	"badc0de.net/pkg/go-itemedit/things/full"

	itemsotb "badc0de.net/pkg/go-itemedit/otb/items"
)

var (
	mode = flag.String("mode", "show", "one of: show, compare, update, candidates")

	itemsOTBPath = flag.String("items_otb_path", "", "path to items.otb")
	tibiaDatPath = flag.String("tibia_dat_path", "", "path to Tibia.dat")
	tibiaSprPath = flag.String("tibia_spr_path", "", "path to Tibia.spr")
	oldDatPath   = flag.String("old_tibia_dat_path", "", "path to the previous client version's Tibia.dat (update mode)")
	oldSprPath   = flag.String("old_tibia_spr_path", "", "path to the previous client version's Tibia.spr (update mode)")
	outPath      = flag.String("out", "", "where to write the migrated items.otb (update mode)")

	itemID  = flag.Int("item", 0, "server ID of the item to show")
	citemID = flag.Int("citem", 0, "client ID to list candidates for")
	topK    = flag.Int("top_k", 5, "how many candidates to list")

	strict    = flag.Bool("strict", false, "fail on unknown items.otb attributes instead of preserving them")
	asYAML    = flag.Bool("yaml", false, "emit comparison results as YAML instead of a text diff")
	threshold = flag.Float64("threshold", 0, "similarity threshold; 0 means the default")

	reassign    = flag.Bool("reassign_unmatched", true, "reassign items whose sprite moved to a new client ID")
	reloadAttrs = flag.Bool("reload_attributes", false, "re-derive item attributes from the new client data")
	createNew   = flag.Bool("create_new", false, "create server items for unreferenced client entries")
	genHashes   = flag.Bool("generate_hashes", true, "recompute sprite hashes from the new client data")
	allowLoose  = flag.Bool("allow_unmatched", false, "apply the migration even when items stay unmatched")
)

func main() {
	flagutil.Parse()

	var err error
	switch *mode {
	case "show":
		err = runShow()
	case "compare":
		err = runCompare()
	case "update":
		err = runUpdate()
	case "candidates":
		err = runCandidates()
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		glog.Exitf("%s: %v", *mode, err)
	}
}

func loadThings(datPath, sprPath string) (*things.Things, error) {
	t, diags, err := full.FromPaths(*itemsOTBPath, datPath, sprPath, full.Options{
		Items: itemsotb.ReadOptions{Strict: *strict},
	})
	for _, d := range diags {
		glog.Warning(d)
	}
	return t, err
}

func runShow() error {
	t, err := loadThings(*tibiaDatPath, *tibiaSprPath)
	if err != nil {
		return err
	}
	if t.ServerItems() == nil {
		return fmt.Errorf("no item database; pass --items_otb_path")
	}

	it, ok := t.ServerItems().Find(uint16(*itemID))
	if !ok {
		return fmt.Errorf("no item with server id %d", *itemID)
	}

	props := yaml.Node{Kind: yaml.MappingNode}
	for _, name := range item.PropertyNames() {
		v, err := it.Get(name)
		if err != nil {
			return err
		}
		props.Content = append(props.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: v.String()})
	}
	out, err := yaml.Marshal(&props)
	if err != nil {
		return err
	}
	os.Stdout.Write(out)

	if c, ok := t.ClientForServerID(it.ID); ok {
		fmt.Printf("clientSprites: %d\n", len(c.SpriteBlobs))
		fmt.Printf("spriteHashVerified: %t\n", it.VerifySpriteHash(c))
	}
	return nil
}

// pairedMaps keys both sides by server ID so the comparison walks the
// item database's view of the world.
func pairedMaps(t *things.Things) (map[uint16]*item.ServerItem, map[uint16]*item.ClientItem) {
	servers := make(map[uint16]*item.ServerItem)
	clients := make(map[uint16]*item.ClientItem)
	for _, it := range t.ServerItems().Items() {
		servers[it.ID] = it
		if c, ok := t.ClientItem(it.ClientID); ok {
			clients[it.ID] = c
		}
	}
	return servers, clients
}

func runCompare() error {
	t, err := loadThings(*tibiaDatPath, *tibiaSprPath)
	if err != nil {
		return err
	}
	if t.ServerItems() == nil {
		return fmt.Errorf("no item database; pass --items_otb_path")
	}

	servers, clients := pairedMaps(t)
	batch := compare.CompareLists(context.Background(), servers, clients, compare.Options{})
	for _, d := range batch.Diagnostics {
		glog.Warning(d)
	}

	if *asYAML {
		out, err := batch.ExportYAML()
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}
	text, err := batch.ExportText()
	if err != nil {
		return err
	}
	fmt.Print(text)
	fmt.Printf("%d matched, %d mismatched, %d server-only, %d client-only\n",
		batch.Matched, batch.Mismatched, batch.ServerOnly, batch.ClientOnly)
	return nil
}

func runUpdate() error {
	if *outPath == "" {
		return fmt.Errorf("update mode needs --out")
	}

	t, err := loadThings(*tibiaDatPath, *tibiaSprPath)
	if err != nil {
		return err
	}
	if t.ServerItems() == nil {
		return fmt.Errorf("no item database; pass --items_otb_path")
	}
	old, diags, err := full.FromPaths("", *oldDatPath, *oldSprPath, full.Options{})
	for _, d := range diags {
		glog.Warning(d)
	}
	if err != nil {
		return err
	}

	report, err := compare.Update(context.Background(), t.ServerItems(), old.ClientItems(), t.ClientItems(), compare.UpdateOptions{
		ReassignUnmatchedSprites: *reassign,
		ReloadItemAttributes:     *reloadAttrs,
		CreateNewItems:           *createNew,
		GenerateSpriteHash:       *genHashes,
		AllowUnmatched:           *allowLoose,
		Threshold:                *threshold,
	})
	if err != nil {
		return err
	}
	for _, d := range report.Diagnostics {
		glog.Warning(d)
	}
	if report.Diagnostics.HasKind(errs.Cancelled) {
		return fmt.Errorf("migration did not finish; state %s", report.State)
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	os.Stdout.Write(out)

	return itemsotb.WriteFile(*outPath, t.ServerItems())
}

func runCandidates() error {
	old, diags, err := full.FromPaths("", *oldDatPath, *oldSprPath, full.Options{})
	for _, d := range diags {
		glog.Warning(d)
	}
	if err != nil {
		return err
	}
	t, err := loadThings(*tibiaDatPath, *tibiaSprPath)
	if err != nil {
		return err
	}

	subject, ok := old.ClientItem(uint16(*citemID))
	if !ok {
		return fmt.Errorf("no client item %d in the old client data", *citemID)
	}

	pool := make([]*item.ClientItem, 0, len(t.ClientItems()))
	for _, c := range t.ClientItems() {
		pool = append(pool, c)
	}
	sort.Slice(pool, func(a, b int) bool { return pool[a].ClientID < pool[b].ClientID })
	if err := match.BuildSignatures(context.Background(), pool); err != nil {
		return err
	}

	th := *threshold
	if th == 0 {
		th = match.DefaultThreshold
	}
	for _, cand := range match.TopKCandidates(subject, pool, *topK, th) {
		fmt.Printf("%d\t%.4f\n", cand.ClientID, cand.Score)
	}
	return nil
}
