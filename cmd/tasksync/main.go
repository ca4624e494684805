// Command tasksync copies the day's task templates from the staging
// collection into the operational collection and prunes old records.
//
// It is meant to be run once a day by a scheduler (cron, a Kubernetes
// CronJob, a Render cron service) and exits when the pass is done.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// v holds configuration merged from defaults, file, env and flags.
var v = viper.New()

var (
	configFile string
	asOf       string
	format     string
	noColor    bool
	flagTest   bool
	flagStatus bool
)

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Daily sync of task templates into the operational task collection",
	Long: `Copy every record from the staging collection (tasks_refresh) into the
operational collection (tasks) as a fresh record for today:

  1. Reads every staging record
  2. Drops its _id, sets date to today, resets comments and status_trail
  3. Inserts it into the operational collection
  4. Deletes operational records older than the retention window (5 days)

Run without arguments to sync. The connection string comes from MONGO_URI
(or TASKSYNC_URI, --uri, a config file, or an AWS Secrets Manager secret
named by uri_secret).`,
	Example: `  tasksync                      # sync now
  tasksync --test               # check connectivity and counts
  tasksync --status             # show recent sync activity
  tasksync --as-of yesterday    # backfill yesterday's records
  tasksync prune --yes          # apply retention only`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		switch {
		case flagTest:
			exitOn(withApp(cmd, runCheck))
		case flagStatus:
			exitOn(withApp(cmd, runStatus))
		default:
			exitOn(withApp(cmd, runSync))
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default: tasksync.yaml in ., $XDG_CONFIG_HOME/tasksync, ~/.config/tasksync)")
	pf.String("uri", "", "Connection string (mongodb://, mongodb+srv://, sqlite://)")
	pf.String("database", "", "Database name (default: from the URI, else task_management)")
	pf.String("timezone", "", "Zone the sync day is computed in (IANA name or offset, default UTC)")
	pf.StringVar(&asOf, "as-of", "", "Treat this date as today (YYYY-MM-DD or e.g. \"yesterday\")")
	pf.StringVar(&format, "format", "text", "Output format: text, json, yaml or toml")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("log-file", "", "Also write logs to this file (rotated)")
	pf.BoolVar(&noColor, "no-color", false, "Disable coloured output")

	for key, flag := range map[string]string{
		"uri":        "uri",
		"database":   "database",
		"timezone":   "timezone",
		"log.level":  "log-level",
		"log.format": "log-format",
		"log.file":   "log-file",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.Flags().BoolVar(&flagTest, "test", false, "Check connectivity and collection counts, then exit")
	rootCmd.Flags().BoolVar(&flagStatus, "status", false, "Show sync status, then exit")
	rootCmd.MarkFlagsMutuallyExclusive("test", "status")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
