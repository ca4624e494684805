package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tasksync/internal/report"
	"github.com/steveyegge/tasksync/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load task templates from a JSONL file into the staging collection",
	Long: `Read one JSON object per line from --from and insert each into the
staging collection. Any _id in the file is ignored.

Invalid lines are reported and skipped. Use --replace to clear the staging
collection first, or --dry-run to parse without writing.`,
	Example: `  tasksync seed --from templates.jsonl
  tasksync seed --from templates.jsonl --replace
  tasksync seed --from templates.jsonl --dry-run --format json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		from, _ := cmd.Flags().GetString("from")
		replace, _ := cmd.Flags().GetBool("replace")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		opts := seed.Options{From: from, Replace: replace, DryRun: dryRun}
		exitOn(withApp(cmd, func(ctx context.Context, a *app, w io.Writer) int {
			return runSeed(ctx, a, w, opts)
		}))
	},
}

func runSeed(ctx context.Context, a *app, w io.Writer, opts seed.Options) int {
	conn, err := a.connect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting: %v\n", err)
		return 1
	}
	defer a.closeConn(conn)

	res, err := seed.Seed(ctx, conn.Staging, opts, a.logger.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding: %v\n", err)
		return 1
	}

	if err := a.emit(w, res, func(w io.Writer) { report.Seed(w, res) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return 1
	}
	if len(res.Failed) > 0 {
		return 1
	}
	return 0
}

func init() {
	seedCmd.Flags().String("from", "", "JSONL file of task templates (required)")
	seedCmd.Flags().Bool("replace", false, "Clear the staging collection before loading")
	seedCmd.Flags().Bool("dry-run", false, "Parse and report without writing")
	_ = seedCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(seedCmd)
}
