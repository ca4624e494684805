package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tasksync/internal/calendar"
	"github.com/steveyegge/tasksync/internal/report"
	"github.com/steveyegge/tasksync/internal/store"
	"github.com/steveyegge/tasksync/internal/sync"
	"github.com/steveyegge/tasksync/internal/ui"
)

var pruneYes bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete operational records older than the retention window",
	Long: `Apply the retention window without syncing.

Operational records dated before today minus retention.days are deleted
(archived to S3 first when retention.archive_bucket is set). When run from a
terminal you are asked to confirm; pass --yes to skip the prompt.

Runs even when retention.enabled is false.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOn(withApp(cmd, func(ctx context.Context, a *app, w io.Writer) int {
			return runPrune(ctx, a, w, pruneYes)
		}))
	},
}

func runPrune(ctx context.Context, a *app, w io.Writer, yes bool) int {
	conn, syncer, ok := a.open(ctx)
	defer a.closeConn(conn)
	if !ok {
		return 1
	}

	if !yes && ui.IsInteractive() {
		cutoff := sync.Cutoff(calendar.Today(a.now, a.cfg.Location()), a.cfg.Retention.Days)
		n, err := conn.Tasks.Count(ctx, store.Lt(sync.FieldDate, cutoff.String()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting expiring records: %v\n", err)
			return 1
		}
		if n == 0 {
			fmt.Fprintf(w, "%s No records dated before %s\n", ui.RenderPass("✓"), cutoff)
			return 0
		}

		confirmed, err := ui.Confirm(
			fmt.Sprintf("Delete %d records dated before %s?", n, cutoff),
			fmt.Sprintf("From %s in %s", conn.Tasks.Name(), conn.Database),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if !confirmed {
			fmt.Fprintf(w, "%s Prune cancelled\n", ui.RenderWarn("⚠"))
			return 0
		}
	}

	r, err := syncer.Prune(ctx, a.now)
	if r == nil {
		fmt.Fprintf(os.Stderr, "Error during prune: %v\n", err)
		return 1
	}

	if emitErr := a.emit(w, r, func(w io.Writer) { report.Retention(w, r) }); emitErr != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", emitErr)
		return 1
	}
	if err != nil {
		return 1
	}
	return 0
}

func init() {
	pruneCmd.Flags().BoolVarP(&pruneYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(pruneCmd)
}
