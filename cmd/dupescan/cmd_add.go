package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/meisterluk/dupescan/internal/digest"
	"github.com/meisterluk/dupescan/internal/index"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/meisterluk/dupescan/internal/walk"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// AddCommand defines the CLI command parameters for `dupescan add`.
type AddCommand struct {
	Path            string   `json:"path"`
	DBPath          string   `json:"db-path"`
	Chunksize       int      `json:"chunksize"`
	Description     string   `json:"description"`
	IgnorePathNames []string `json:"ignore-path-names"`
	Parallelism     int      `json:"parallelism"`
	JSONOutput      bool     `json:"json"`
}

var addCommand *AddCommand
var argChunksize int
var argDescription string
var argIgnorePathNames []string
var argParallelism int

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Recursively index a path into the store",
	Long: `add walks path in post-order, hashing every file and combining
child digests into each directory's digest, and commits the results to the
index database. Already-completed subtrees are skipped (spec.md §4.3-4.4).`,
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

		ignoreNames := argIgnorePathNames
		if !cmd.Flags().Changed("ignore-path-names") && cfg.IgnorePathNames != nil {
			ignoreNames = cfg.IgnorePathNames
		}
		chunksize := mergeInt(cmd, "chunksize", argChunksize, cfg.Chunksize)
		parallelism := mergeInt(cmd, "parallelism", argParallelism, cfg.Parallelism)
		description := argDescription
		if !cmd.Flags().Changed("description") && cfg.Description != nil {
			description = *cfg.Description
		}
		dbPath := argDBPath
		if !cmd.Flags().Changed("db-path") && cfg.DBPath != nil {
			dbPath = *cfg.DBPath
		}

		addCommand = &AddCommand{
			Path:            path,
			DBPath:          dbPath,
			Chunksize:       chunksize,
			Description:     description,
			IgnorePathNames: ignoreNames,
			Parallelism:     parallelism,
			JSONOutput:      argJSONOutput,
		}
		exitCode, cmdError = addCommand.Run(w, log)
		return cmdError
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().IntVar(&argChunksize, "chunksize", digest.DefaultChunkSize, "file hashing read granularity, in bytes")
	addCmd.Flags().StringVar(&argDescription, "description", "", "label recorded on the report row for this run")
	addCmd.Flags().StringSliceVar(&argIgnorePathNames, "ignore-path-names", []string{"dupescan-quarantine", "$RECYCLE.BIN"}, "basenames excluded from traversal")
	addCmd.Flags().IntVar(&argParallelism, "parallelism", 1, "number of files hashed concurrently within a sibling batch")
}

func mergeInt(cmd *cobra.Command, flag string, flagVal int, cfgVal *int) int {
	if !cmd.Flags().Changed(flag) && cfgVal != nil {
		return *cfgVal
	}
	return flagVal
}

// Run executes `add`, writing progress/summary to w and diagnostics to log.
func (c *AddCommand) Run(w, log Output) (int, error) {
	if c.JSONOutput {
		repr, err := json.Marshal(c)
		if err != nil {
			return 2, errors.Wrap(err, "marshalling command config")
		}
		w.Println(string(repr))
	}

	s, err := store.Open(c.DBPath)
	if err != nil {
		return 2, err
	}
	defer s.Close()

	m := walk.NewMarker(s.Path(), c.IgnorePathNames, false, func(p string) (bool, error) {
		return s.Exists(p, store.StatusCompleted)
	})

	start := time.Now()
	marked, err := m.Mark(c.Path)
	if err != nil {
		return 3, err
	}

	if skipped := m.Skipped(); len(skipped) > 0 {
		log.Printfln("skipped %d item(s) due to permission errors:", len(skipped))
		tw := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
		for _, p := range skipped {
			fmt.Fprintf(tw, "  %s\n", p)
		}
		tw.Flush()
	}

	reportID, err := s.NewReport(c.Description)
	if err != nil {
		return 4, err
	}

	algo := digest.Default
	engine := &index.Engine{
		Store:       s,
		Algo:        algo,
		ChunkSize:   c.Chunksize,
		Parallelism: c.Parallelism,
		ReportID:    reportID,
	}

	processed, err := engine.Process(context.Background(), marked)
	if err != nil {
		return 5, err
	}

	log.Printfln("processed %s of %s candidate items in %s",
		humanize.Comma(int64(processed)), humanize.Comma(int64(len(marked))), time.Since(start).Round(time.Millisecond))
	return 0, nil
}
