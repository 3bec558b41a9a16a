package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/leapstack-labs/promgen/internal/cli/output"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/spf13/cobra"
)

// readInput reads the file named by the first argument, or standard input
// when there is none or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

// importSummary is the JSON shape of an import result.
type importSummary struct {
	Created map[string]int `json:"created"`
	Skipped map[string]int `json:"skipped,omitempty"`
}

// renderImportResult prints per-kind created and skipped counts. skipped
// may be nil for imports that only report creations.
func renderImportResult(r *output.Renderer, title string, created, skipped core.CounterSet) error {
	if r.EffectiveMode() == output.ModeJSON {
		summary := importSummary{Created: created.Summary()}
		if skipped != nil {
			summary.Skipped = skipped.Summary()
		}
		return r.JSON(summary)
	}

	r.Header(1, title)
	if created.Empty() && skipped.Empty() {
		r.Muted("Nothing imported")
		return nil
	}

	kinds := mergedKinds(created, skipped)
	header := []string{"Kind", "Created"}
	if skipped != nil {
		header = append(header, "Skipped")
	}
	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		row := []string{string(k), strconv.Itoa(created.Count(k))}
		if skipped != nil {
			row = append(row, strconv.Itoa(skipped.Count(k)))
		}
		rows = append(rows, row)
	}
	r.Table(header, rows)
	return nil
}

// mergedKinds returns the kinds recorded in either set, in order.
func mergedKinds(a, b core.CounterSet) []core.Kind {
	seen := make(map[core.Kind]bool)
	var kinds []core.Kind
	for _, set := range []core.CounterSet{a, b} {
		for _, k := range set.Kinds() {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// optionalFlag returns the flag value when it was set on the command line.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}
