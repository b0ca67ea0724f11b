package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/meisterluk/dupescan/internal/dupescanerr"
	"github.com/meisterluk/dupescan/internal/quarantine"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// QuarantineCommand defines the CLI command parameters for `dupescan quarantine`.
type QuarantineCommand struct {
	DBPath         string `json:"db-path"`
	CandidatePath  string `json:"candidate-path"`
	QuarantineRoot string `json:"quarantine-root"`
	ShowTop        int    `json:"show-top"`
	AutoConfirm    bool   `json:"auto-confirm"`
	JSONOutput     bool   `json:"json"`
}

var quarantineCommand *QuarantineCommand
var argQuarantineRoot string
var argShowTop int
var argAutoConfirm bool

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "Move redundant copies of a candidate duplicate group aside",
	Long: `quarantine runs the quarantine planner (spec.md §4.6) over the
candidate groups produced by dedupe: it picks a keeper per group, previews
the largest groups, then moves every other path into the quarantine
directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(argConfigFile)
		if err != nil {
			return err
		}

		candidatePath := argCandidatePath
		if !cmd.Flags().Changed("candidate-path") && cfg.CandidatePath != nil {
			candidatePath = *cfg.CandidatePath
		}
		quarantineRoot := argQuarantineRoot
		if !cmd.Flags().Changed("quarantine-root") && cfg.QuarantineRoot != nil {
			quarantineRoot = *cfg.QuarantineRoot
		}
		showTop := argShowTop
		if !cmd.Flags().Changed("show-top") && cfg.ShowTop != nil {
			showTop = *cfg.ShowTop
		}
		autoConfirm := argAutoConfirm
		if !cmd.Flags().Changed("auto-confirm") && cfg.AutoConfirm != nil {
			autoConfirm = *cfg.AutoConfirm
		}
		dbPath := argDBPath
		if !cmd.Flags().Changed("db-path") && cfg.DBPath != nil {
			dbPath = *cfg.DBPath
		}

		quarantineCommand = &QuarantineCommand{
			DBPath:         dbPath,
			CandidatePath:  candidatePath,
			QuarantineRoot: quarantineRoot,
			ShowTop:        showTop,
			AutoConfirm:    autoConfirm,
			JSONOutput:     argJSONOutput,
		}
		exitCode, cmdError = quarantineCommand.Run(w, log)
		return cmdError
	},
}

func init() {
	rootCmd.AddCommand(quarantineCmd)
	quarantineCmd.Flags().StringVar(&argCandidatePath, "candidate-path", "candidates.json", "input file of candidate duplicate groups")
	quarantineCmd.Flags().StringVar(&argQuarantineRoot, "quarantine-root", "", "directory to move targets into (default: dupescan-quarantine alongside the candidates)")
	quarantineCmd.Flags().IntVar(&argShowTop, "show-top", 10, "number of largest groups to preview before confirming")
	quarantineCmd.Flags().BoolVar(&argAutoConfirm, "auto-confirm", false, "skip the interactive confirmation prompt")
}

// Run executes `quarantine`: build the plan, preview it, confirm, and apply.
func (c *QuarantineCommand) Run(w, log Output) (int, error) {
	raw, err := os.ReadFile(c.CandidatePath)
	if err != nil {
		return 2, errors.Wrapf(err, "reading %q", c.CandidatePath)
	}
	var groups [][]string
	if err := json.Unmarshal(raw, &groups); err != nil {
		return 2, errors.Wrapf(err, "parsing %q", c.CandidatePath)
	}

	s, err := store.Open(c.DBPath)
	if err != nil {
		return 2, err
	}
	defer s.Close()

	quarantineRoot := c.QuarantineRoot
	basePath := commonAncestor(groups)
	if quarantineRoot == "" {
		quarantineRoot = filepath.Join(basePath, "dupescan-quarantine")
	}

	plan, err := quarantine.Build(s, groups, quarantineRoot, basePath, nil)
	if err != nil {
		return 3, err
	}

	w.Printfln("Found %d item(s) to quarantine across %d group(s).", plan.TotalTargets(), len(plan.Groups))
	printPreview(w, plan, c.ShowTop)

	if !c.AutoConfirm {
		confirmed, err := confirm(log, "Proceed with quarantine? [y/N] ")
		if err != nil {
			return 4, err
		}
		if !confirmed {
			return 0, errors.Wrap(dupescanerr.ErrUserAbort, "quarantine")
		}
	}

	if err := quarantine.Apply(plan); err != nil {
		return 5, err
	}

	manifest := manifestJSON(plan)
	manifestPath := filepath.Join(quarantineRoot, "manifest.json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return 2, errors.Wrap(err, "marshalling manifest")
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return 2, errors.Wrapf(err, "writing %q", manifestPath)
	}

	w.Printfln("Quarantined %d item(s). Manifest written to %s", plan.TotalTargets(), manifestPath)
	return 0, nil
}

func printPreview(w Output, plan quarantine.Plan, showTop int) {
	n := showTop
	if n > len(plan.Groups) || n < 0 {
		n = len(plan.Groups)
	}
	if n == 0 {
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Size\tOcc.\tQuarantined Name\tOriginal Path")
	for _, g := range plan.Groups[:n] {
		names := make([]string, 0, len(g.Targets))
		paths := make([]string, 0, len(g.Targets))
		for _, target := range g.Targets {
			names = append(names, plan.ReverseMap[target])
			paths = append(paths, target)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			humanize.Bytes(g.KeeperSize), len(g.Targets)+1, strings.Join(names, ", "), strings.Join(paths, ", "))
	}
	tw.Flush()
	w.Print(sb.String())
	if n < len(plan.Groups) {
		w.Printfln("--- and %d more ---", len(plan.Groups)-n)
	}
}

func confirm(log Output, prompt string) (bool, error) {
	log.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, errors.Wrap(err, "reading confirmation")
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// commonAncestor returns the deepest directory containing every path across
// every group, used as the default quarantine-root anchor.
func commonAncestor(groups [][]string) string {
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}
	if len(all) == 0 {
		return "."
	}
	sort.Strings(all)
	first, last := all[0], all[len(all)-1]
	i := 0
	for i < len(first) && i < len(last) && first[i] == last[i] {
		i++
	}
	common := first[:i]
	return filepath.Dir(common + "x")
}

type manifestDoc struct {
	BasePath  string            `json:"base-path"`
	Timestamp string            `json:"timestamp"`
	Names     map[string]string `json:"quarantine"`
	// Groups is keeper-first lists of paths, one list per candidate group,
	// matching original_source/sink/scripts.py's quarantine_targets JSON
	// shape (`[[str(path) for path in group] for group in groups]`) rather
	// than an object per group: spec.md §6 leaves the manifest's `groups`
	// field ("original group structure") unspecified, and the Python
	// prototype is the only ground truth for that ambiguity.
	Groups [][]string `json:"groups"`
}

func manifestJSON(plan quarantine.Plan) manifestDoc {
	groups := make([][]string, 0, len(plan.Groups))
	for _, g := range plan.Groups {
		groups = append(groups, append([]string{g.Keeper}, g.Targets...))
	}
	return manifestDoc{
		BasePath:  plan.BasePath,
		Timestamp: plan.Timestamp.Format(time.RFC3339),
		Names:     plan.NameMap,
		Groups:    groups,
	}
}
