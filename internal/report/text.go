package report

import (
	"fmt"
	"io"
	"time"

	"github.com/steveyegge/tasksync/internal/seed"
	"github.com/steveyegge/tasksync/internal/sync"
	"github.com/steveyegge/tasksync/internal/ui"
)

// Run prints a sync result.
func Run(w io.Writer, res *sync.Result) {
	if res.Found == 0 {
		fmt.Fprintf(w, "%s No records found in staging collection\n", ui.RenderWarn("⚠"))
		return
	}

	mark := ui.RenderPass("✓")
	if !res.OK() {
		mark = ui.RenderFail("✗")
	}
	fmt.Fprintf(w, "%s Synced %d of %d records for %s in %v\n",
		mark, res.Synced, res.Found, res.Date, res.Duration.Round(time.Millisecond))

	if res.Failed > 0 {
		fmt.Fprintf(w, "\n%s %d records failed:\n", ui.RenderFail("✗"), res.Failed)
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  %s  %s\n", f.Record, ui.RenderMuted(f.Error))
		}
	}

	if res.Retention != nil {
		fmt.Fprintln(w)
		Retention(w, res.Retention)
	}

	switch {
	case res.StagingError != "":
		fmt.Fprintf(w, "%s Staging collection not cleared: %s\n", ui.RenderWarn("⚠"), res.StagingError)
	case res.StagingCleared > 0:
		fmt.Fprintf(w, "%s Cleared %d staging records\n", ui.RenderPass("✓"), res.StagingCleared)
	}

	fmt.Fprintf(w, "\n%s\n", ui.RenderMuted("run "+res.RunID))
}

// Retention prints the outcome of applying the retention window.
func Retention(w io.Writer, r *sync.Retention) {
	if r.Err != nil || r.Error != "" {
		fmt.Fprintf(w, "%s Retention failed (cutoff %s): %s\n", ui.RenderFail("✗"), r.Cutoff, r.Error)
		return
	}
	fmt.Fprintf(w, "%s Deleted %d records dated before %s (%d-day window)\n",
		ui.RenderPass("✓"), r.Deleted, r.Cutoff, r.Days)
	if r.Archive != "" {
		fmt.Fprintf(w, "  archived %d records to %s\n", r.Expiring, r.Archive)
	}
}

// Check prints connectivity and collection sizes.
func Check(w io.Writer, backend, database string, counts *sync.Counts, staging, tasks string) {
	fmt.Fprintf(w, "%s Connected to %s (%s)\n\n", ui.RenderPass("✓"), backend, database)
	fmt.Fprintf(w, "  %s%d\n", ui.Label(staging), counts.Staging)
	fmt.Fprintf(w, "  %s%d\n", ui.Label(tasks), counts.Tasks)
}

// Status prints a status summary.
func Status(w io.Writer, st *sync.Status) {
	fmt.Fprintf(w, "\n%s Sync Status for %s\n\n", ui.RenderAccent("📊"), st.Date)
	fmt.Fprintf(w, "  %s%d\n", ui.Label("Staging:"), st.Staging)
	fmt.Fprintf(w, "  %s%d\n", ui.Label("Synced today:"), st.Today)
	fmt.Fprintf(w, "  %s%d\n", ui.Label("Last 7 days:"), st.LastWeek)

	if len(st.Recent) > 0 {
		fmt.Fprintf(w, "\n  Recent sync dates:\n")
		for _, g := range st.Recent {
			fmt.Fprintf(w, "    %s  %d\n", g.Key, g.Count)
		}
	}

	fmt.Fprintln(w)
	switch st.Health {
	case sync.HealthOK:
		fmt.Fprintf(w, "%s Today's records are present\n", ui.RenderPass("✓"))
	case sync.HealthStale:
		fmt.Fprintf(w, "%s %s\n", ui.RenderWarn("⚠"), st.Warning)
	default:
		fmt.Fprintf(w, "%s Staging collection is empty\n", ui.RenderMuted("•"))
	}
}

// Seed prints a seed result.
func Seed(w io.Writer, res *seed.Result) {
	if res.DryRun {
		fmt.Fprintf(w, "%s Dry run: %d records parsed, nothing written\n", ui.RenderAccent("🔍"), res.Parsed)
	} else {
		if res.Cleared > 0 {
			fmt.Fprintf(w, "%s Cleared %d staging records\n", ui.RenderPass("✓"), res.Cleared)
		}
		fmt.Fprintf(w, "%s Inserted %d of %d records\n", ui.RenderPass("✓"), res.Inserted, res.Parsed)
	}

	for _, s := range res.Skipped {
		fmt.Fprintf(w, "%s skipped %s\n", ui.RenderWarn("⚠"), s.Error())
	}
	for _, f := range res.Failed {
		fmt.Fprintf(w, "%s failed %s\n", ui.RenderFail("✗"), f.Error())
	}
}
