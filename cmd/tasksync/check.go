package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tasksync/internal/report"
	"github.com/steveyegge/tasksync/internal/sync"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity and collection counts (same as --test)",
	Long: `Connect to the store, ping it and count both collections.

Nothing is written. Exits non-zero if the store is unreachable or either
collection cannot be read.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOn(withApp(cmd, runCheck))
	},
}

// checkOutput is the structured form of a check.
type checkOutput struct {
	Backend  string      `json:"backend" yaml:"backend" toml:"backend"`
	Database string      `json:"database" yaml:"database" toml:"database"`
	Counts   sync.Counts `json:"counts" yaml:"counts" toml:"counts"`
}

func runCheck(ctx context.Context, a *app, w io.Writer) int {
	conn, syncer, ok := a.open(ctx)
	defer a.closeConn(conn)
	if !ok {
		return 1
	}

	if err := conn.Store.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: store is not reachable: %v\n", err)
		return 1
	}

	counts, err := syncer.Check(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out := checkOutput{Backend: conn.Backend, Database: conn.Database, Counts: *counts}
	err = a.emit(w, out, func(w io.Writer) {
		report.Check(w, conn.Backend, conn.Database, counts, conn.Staging.Name(), conn.Tasks.Name())
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
