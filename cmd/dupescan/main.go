// Command dupescan finds and retires duplicate files and directories under a
// content-addressed index, following the three-command surface of spec.md
// §6: add, dedupe, quarantine.
//
// Grounded on the teacher's cli/cmd_*.go cobra command shape
// (Use/Short/Long/Args/RunE, a package-level *Command struct with a
// Run(w, log Output) (int, error) method, and the {w, log, exitCode,
// cmdError} global handoff between a command's RunE closure and its Run
// method).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dupescan",
	Short: "Find and quarantine duplicate files and directories",
	Long: `dupescan maintains a content-addressed index of a filesystem subtree
and uses it to find duplicate files and directories, then move redundant
copies into a quarantine directory for review.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&argDBPath, "db-path", envOr("DUPESCAN_DB_PATH", "files.db"), "path to the index database")
	rootCmd.PersistentFlags().StringVar(&argConfigFile, "config", "", "optional YAML config file merged under CLI flags")
	rootCmd.PersistentFlags().BoolVar(&argJSONOutput, "json", false, "emit machine-readable JSON instead of plain text")

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dupescan: error: %+v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
