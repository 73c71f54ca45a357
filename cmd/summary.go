package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/popgen-sim/infsites/sim"
	"github.com/popgen-sim/infsites/sim/trace"
)

// printSummary renders one row per replicate followed by the run-wide
// event counters.
func printSummary(w io.Writer, runID string, results []sim.ReplicateResult, m sim.MetricsSnapshot, elapsed time.Duration) error {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Replicate", "Generation", "Individuals", "Segregating", "Fixed", "Mean fitness"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})
	for _, r := range results {
		table.Append([]string{
			strconv.Itoa(r.Replicate),
			humanize.Comma(int64(r.Generation)),
			humanize.Comma(int64(r.Size)),
			humanize.Comma(int64(r.Segregating)),
			humanize.Comma(int64(r.Fixed)),
			strconv.FormatFloat(r.MeanFitness, 'f', 6, 64),
		})
	}
	table.Render()

	events := tablewriter.NewWriter(&tableBuffer)
	events.SetHeader([]string{"Counter", "Total"})
	events.SetBorder(false)
	events.SetCenterSeparator("")
	events.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for code, n := range m.Mutations {
		events.Append([]string{"mutations (" + trace.EventCode(code).String() + ")", humanize.Comma(n)})
	}
	events.Append([]string{"new mutants", humanize.Comma(m.NewMutants)})
	events.Append([]string{"fixed loci", humanize.Comma(m.FixedLoci)})
	events.Append([]string{"generations", humanize.Comma(m.Generations)})
	events.Append([]string{"slot growths", humanize.Comma(m.SlotGrowths)})
	events.Append([]string{"occupancy rebuilds", humanize.Comma(m.Rebuilds)})
	events.Render()

	if _, err := fmt.Fprintf(w, "=== Run %s (%s) ===\n", runID, elapsed.Round(time.Millisecond)); err != nil {
		return err
	}
	_, err := w.Write(tableBuffer.Bytes())
	return err
}
