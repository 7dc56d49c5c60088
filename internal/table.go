package internal

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/starford/folio/internal/journal"
)

func newTable(header table.Row, rightFrom int) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		align := text.AlignLeft
		if i >= rightFrom {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// renderSummary renders the per-gallery counts of a build, followed by the
// totals and the size report.
func renderSummary(r *Report) string {
	tw := newTable(table.Row{"Gallery", "Processed", "Skipped", "Errors", "Orphans"}, 1)
	for _, g := range r.Galleries {
		if g.Empty {
			tw.AppendRow(table.Row{g.Name, "-", "-", "-", "-"})
			continue
		}
		s := g.Summary
		tw.AppendRow(table.Row{g.Name, s.Processed, s.Skipped, s.Errors, s.OrphansRemoved})
	}
	t := r.Totals
	tw.AppendFooter(table.Row{"Total", t.Processed, t.Skipped, t.Errors, t.OrphansRemoved})

	out := tw.Render()
	if len(r.RemovedGalleries) > 0 {
		out += fmt.Sprintf("\nRemoved galleries: %v", r.RemovedGalleries)
	}
	if r.SourceBytes > 0 {
		out += fmt.Sprintf("\nSource %s, output %s (%.1f%% smaller)",
			humanize.Bytes(uint64(r.SourceBytes)),
			humanize.Bytes(uint64(r.OutputBytes)),
			r.Savings())
	}
	return out
}

// renderHistory renders journal runs, newest first.
func renderHistory(runs []journal.Run) string {
	if len(runs) == 0 {
		return "No builds recorded."
	}
	tw := newTable(table.Row{"Run", "Started", "Duration", "Forced", "Processed", "Skipped", "Errors", "Orphans"}, 4)
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		tw.AppendRow(table.Row{
			id,
			humanize.Time(r.StartedAt),
			r.FinishedAt.Sub(r.StartedAt).Round(10 * time.Millisecond).String(),
			strconv.FormatBool(r.Forced),
			r.Processed, r.Skipped, r.Errors, r.Orphans,
		})
	}
	return tw.Render()
}

// renderRun renders one run: its per-gallery counts, then every failed item
// with its message.
func renderRun(r journal.Run) string {
	out := fmt.Sprintf("Run %s, started %s, took %s\n", r.ID,
		r.StartedAt.Local().Format(time.DateTime),
		r.FinishedAt.Sub(r.StartedAt).Round(10*time.Millisecond))

	gw := newTable(table.Row{"Gallery", "Processed", "Skipped", "Errors", "Orphans"}, 1)
	for _, g := range r.Galleries {
		gw.AppendRow(table.Row{g.Gallery, g.Processed, g.Skipped, g.Errors, g.Orphans})
	}
	gw.AppendFooter(table.Row{"Total", r.Processed, r.Skipped, r.Errors, r.Orphans})
	out += gw.Render()

	if len(r.Failures) == 0 {
		return out + "\nNo failures."
	}
	fw := newTable(table.Row{"Gallery", "Image", "Error"}, 3)
	for _, f := range r.Failures {
		fw.AppendRow(table.Row{f.Gallery, f.ItemID, f.Message})
	}
	return out + "\n" + fw.Render()
}
