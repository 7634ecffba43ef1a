package dat

import (
	"embed"
	"io/fs"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed tables/*.toml
var tablesFS embed.FS

// OpcodeRow describes one attribute opcode of a client-version family:
// its code, how many u16 operands follow it, and which action the parser
// applies. Adding a client version means adding rows, not code.
type OpcodeRow struct {
	Code   uint8  `toml:"code"`
	Name   string `toml:"name"`
	Params int    `toml:"params"`
	Apply  string `toml:"apply"`
}

// Table is the parse table for one client-version family.
type Table struct {
	Family string `toml:"family"`
	// Signatures lists known .dat signatures of this family as hex
	// strings; files with other signatures can still be parsed by passing
	// the table explicitly.
	Signatures []string `toml:"signatures"`
	// ExtendedSprites reads sprite references as u32, as clients 8.60 and
	// later write them.
	ExtendedSprites bool `toml:"extended_sprites"`
	// LegacyDurations skips the per-frame duration block following
	// multi-frame geometry.
	LegacyDurations bool `toml:"legacy_durations"`
	Opcodes         []OpcodeRow `toml:"opcode"`

	byCode map[uint8]*OpcodeRow
	sigs   map[uint32]bool
}

func (t *Table) row(code uint8) (*OpcodeRow, bool) {
	r, ok := t.byCode[code]
	return r, ok
}

var (
	tablesOnce sync.Once
	tables     []*Table
)

func loadTables() []*Table {
	tablesOnce.Do(func() {
		err := fs.WalkDir(tablesFS, "tables", func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := tablesFS.ReadFile(path)
			if err != nil {
				return err
			}
			var t Table
			if err := toml.Unmarshal(data, &t); err != nil {
				return err
			}
			t.byCode = make(map[uint8]*OpcodeRow, len(t.Opcodes))
			for idx := range t.Opcodes {
				t.byCode[t.Opcodes[idx].Code] = &t.Opcodes[idx]
			}
			t.sigs = make(map[uint32]bool, len(t.Signatures))
			for _, s := range t.Signatures {
				v, err := strconv.ParseUint(s, 0, 32)
				if err != nil {
					return err
				}
				t.sigs[uint32(v)] = true
			}
			tables = append(tables, &t)
			return nil
		})
		if err != nil {
			// The tables ship inside the binary; failing to parse them is
			// a build defect, not a runtime condition.
			panic(err)
		}
	})
	return tables
}

// Tables returns every compiled-in parse table.
func Tables() []*Table {
	return loadTables()
}

// TableByFamily returns the parse table with the given family name.
func TableByFamily(name string) (*Table, bool) {
	for _, t := range loadTables() {
		if t.Family == name {
			return t, true
		}
	}
	return nil, false
}

// TableForSignature returns the parse table declaring the given .dat
// signature.
func TableForSignature(sig uint32) (*Table, bool) {
	for _, t := range loadTables() {
		if t.sigs[sig] {
			return t, true
		}
	}
	return nil, false
}
