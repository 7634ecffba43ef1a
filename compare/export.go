package compare

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// ExportYAML renders the batch result as a YAML report.
func (b *BatchComparison) ExportYAML() ([]byte, error) {
	return yaml.Marshal(b)
}

// ExportText renders the mismatching items as a unified diff between the
// server-side and client-side property values.
func (b *BatchComparison) ExportText() (string, error) {
	var serverLines, clientLines []string
	for _, cmp := range b.Items {
		switch {
		case !cmp.HasClient:
			serverLines = append(serverLines, fmt.Sprintf("item %d", cmp.ServerID))
		case !cmp.HasServer:
			clientLines = append(clientLines, fmt.Sprintf("item %d", cmp.ServerID))
		default:
			for _, d := range cmp.Properties {
				serverLines = append(serverLines, fmt.Sprintf("item %d %s: %s", cmp.ServerID, d.Name, d.A))
				clientLines = append(clientLines, fmt.Sprintf("item %d %s: %s", cmp.ServerID, d.Name, d.B))
			}
		}
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(serverLines, "\n") + "\n"),
		B:        difflib.SplitLines(strings.Join(clientLines, "\n") + "\n"),
		FromFile: "server",
		ToFile:   "client",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
