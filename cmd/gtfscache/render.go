package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"gtfscache/internal/pipeline"
	"gtfscache/internal/progress"
)

// progressRenderer draws throttled progress snapshots. On a terminal it
// rewrites a single line; otherwise it emits one plain line per snapshot.
type progressRenderer struct {
	out   io.Writer
	tty   bool
	wrote bool
}

func newProgressRenderer(f *os.File) *progressRenderer {
	return &progressRenderer{
		out: f,
		tty: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
	}
}

func (r *progressRenderer) render(s progress.Snapshot) {
	line := formatSnapshot(s)
	if r.tty {
		fmt.Fprintf(r.out, "\r%s", line)
		r.wrote = true
		return
	}
	fmt.Fprintln(r.out, line)
}

// finish terminates the rewritten line so later output starts clean.
func (r *progressRenderer) finish() {
	if r.tty && r.wrote {
		fmt.Fprintln(r.out)
	}
}

func formatSnapshot(s progress.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Progress: %.1f%% (%s/%s) | Speed: %s rows/s | Memory: %s",
		s.Percent,
		humanize.Comma(s.Processed),
		humanize.Comma(s.Total),
		humanize.Comma(int64(s.RowsPerSecond)),
		humanize.IBytes(s.MemoryBytes))
	if s.HasETA {
		fmt.Fprintf(&b, " | ETA: %s", s.ETA.Round(time.Second))
	}
	return b.String()
}

func renderSummary(result *pipeline.Result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRow(table.Row{"Rows read", humanize.Comma(result.TotalRows)})
	tw.AppendRow(table.Row{"Records encoded", humanize.Comma(result.Accepted)})
	tw.AppendRow(table.Row{"Rows rejected", humanize.Comma(result.Rejected)})
	for _, reason := range sortedReasons(result.RejectedByReason) {
		tw.AppendRow(table.Row{"  " + reason, humanize.Comma(result.RejectedByReason[reason])})
	}
	tw.AppendRow(table.Row{"Output size", humanize.IBytes(uint64(result.OutputBytes))})
	tw.AppendRow(table.Row{"Elapsed", result.Elapsed.Round(time.Millisecond).String()})
	if seconds := result.Elapsed.Seconds(); seconds > 0 {
		tw.AppendRow(table.Row{"Rows/s", humanize.Comma(int64(float64(result.TotalRows) / seconds))})
	}
	return tw.Render()
}

func sortedReasons(counts map[string]int64) []string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
