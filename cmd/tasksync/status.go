package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tasksync/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent sync activity (same as --status)",
	Long: `Display the current sync state:

Shows:
  - Records waiting in the staging collection
  - Records dated today and in the last 7 days
  - The 10 most recent sync dates with record counts
  - A warning when staging has records but nothing is dated today`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOn(withApp(cmd, runStatus))
	},
}

func runStatus(ctx context.Context, a *app, w io.Writer) int {
	conn, syncer, ok := a.open(ctx)
	defer a.closeConn(conn)
	if !ok {
		return 1
	}

	st, err := syncer.Status(ctx, a.now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting status: %v\n", err)
		return 1
	}

	if err := a.emit(w, st, func(w io.Writer) { report.Status(w, st) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
