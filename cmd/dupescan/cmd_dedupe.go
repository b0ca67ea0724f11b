package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/meisterluk/dupescan/internal/cluster"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// DedupeCommand defines the CLI command parameters for `dupescan dedupe`.
type DedupeCommand struct {
	Path          string `json:"path"`
	DBPath        string `json:"db-path"`
	CandidatePath string `json:"candidate-path"`
	UseBytes      bool   `json:"use-bytes"`
	JSONOutput    bool   `json:"json"`
}

var dedupeCommand *DedupeCommand
var argCandidatePath string
var argUseBytes bool

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <path>",
	Short: "Find duplicate files and directories under an indexed path",
	Long: `dedupe runs the cluster resolver (spec.md §4.5) over an already
indexed path: it forms clusters of identical digests, classifies them,
computes the leaf cover, and writes the resulting candidate duplicate groups
to a JSON file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(argConfigFile)
		if err != nil {
			return err
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return errors.Wrapf(err, "resolving %q", args[0])
		}

		candidatePath := argCandidatePath
		if !cmd.Flags().Changed("candidate-path") && cfg.CandidatePath != nil {
			candidatePath = *cfg.CandidatePath
		}
		dbPath := argDBPath
		if !cmd.Flags().Changed("db-path") && cfg.DBPath != nil {
			dbPath = *cfg.DBPath
		}
		useBytes := argUseBytes
		if !cmd.Flags().Changed("use-bytes") && cfg.UseBytes != nil {
			useBytes = *cfg.UseBytes
		}

		dedupeCommand = &DedupeCommand{
			Path:          path,
			DBPath:        dbPath,
			CandidatePath: candidatePath,
			UseBytes:      useBytes,
			JSONOutput:    argJSONOutput,
		}
		exitCode, cmdError = dedupeCommand.Run(w, log)
		return cmdError
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
	dedupeCmd.Flags().StringVar(&argCandidatePath, "candidate-path", "candidates.json", "output file for candidate duplicate groups")
	dedupeCmd.Flags().BoolVar(&argUseBytes, "use-bytes", false, "report summary sizes as raw byte counts instead of humanized units")
}

// Run executes `dedupe`, writing the candidate groups to CandidatePath and a
// human-readable summary to w.
func (c *DedupeCommand) Run(w, log Output) (int, error) {
	s, err := store.Open(c.DBPath)
	if err != nil {
		return 2, err
	}
	defer s.Close()

	result, err := cluster.Resolve(s, c.Path)
	if err != nil {
		return 3, err
	}

	data, err := json.Marshal(result.Groups)
	if err != nil {
		return 2, errors.Wrap(err, "marshalling candidate groups")
	}
	if err := os.WriteFile(c.CandidatePath, data, 0o644); err != nil {
		return 2, errors.Wrapf(err, "writing %q", c.CandidatePath)
	}

	if c.JSONOutput {
		repr, err := json.Marshal(map[string]any{
			"groups":        len(result.Groups),
			"original-size": result.OriginalSize,
			"new-size":      result.NewSize,
			"reduction":     result.Reduction(),
		})
		if err != nil {
			return 2, err
		}
		w.Println(string(repr))
		return 0, nil
	}

	var reductionPct float64
	if result.OriginalSize > 0 {
		reductionPct = float64(result.Reduction()) / float64(result.OriginalSize) * 100
	}
	formatSize := func(n uint64) string {
		if c.UseBytes {
			return fmt.Sprintf("%d B", n)
		}
		return humanize.Bytes(n)
	}
	w.Printfln("Found %d candidate duplicate group(s).", len(result.Groups))
	w.Printfln("Original size: %s", formatSize(result.OriginalSize))
	w.Printfln("New size:      %s", formatSize(result.NewSize))
	w.Printfln("Reduction:     %s (%.2f%%)", formatSize(result.Reduction()), reductionPct)
	w.Printfln("Candidate groups written to %s", c.CandidatePath)
	return 0, nil
}
