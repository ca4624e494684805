package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tasksync/internal/report"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy staging records into the operational collection",
	Long: `Run one sync pass. This is what tasksync does with no arguments.

Every staging record is inserted as a new operational record dated today.
Records that fail to insert are reported and skipped. When retention is
enabled, operational records dated before today minus the retention window
are deleted afterwards (archived to S3 first when retention.archive_bucket
is set).

Exits non-zero if any record failed or retention failed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOn(withApp(cmd, runSync))
	},
}

func runSync(ctx context.Context, a *app, w io.Writer) int {
	conn, syncer, ok := a.open(ctx)
	defer a.closeConn(conn)
	if !ok {
		return 1
	}

	res, err := syncer.Run(ctx, a.now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
		if res == nil {
			return 1
		}
	}

	if err := a.emit(w, res, func(w io.Writer) { report.Run(w, res) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return 1
	}

	if err != nil || !res.OK() {
		return 1
	}
	return 0
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
