package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/models"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Run a linkage spec over JSON record files",
	Long: `Run record linkage offline. Matches are written to stdout as JSON and a
summary is written to stderr.

Examples:
  # Deduplicate one file
  fern link --spec people.yaml --records people.json

  # Link two sources
  fern link --spec crm.yaml --records crm.json --right billing.json`,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().String("spec", "", "linkage spec file (YAML or JSON)")
	linkCmd.Flags().String("records", "", "JSON array of records (the left side for inter-source linkage)")
	linkCmd.Flags().String("right", "", "JSON array of right-side records")
	linkCmd.Flags().Int("workers", 0, "scoring workers (defaults to LINKAGE_WORKER_COUNT)")
	_ = linkCmd.MarkFlagRequired("spec")
	_ = linkCmd.MarkFlagRequired("records")
}

func runLink(cmd *cobra.Command, _ []string) error {
	specPath, _ := cmd.Flags().GetString("spec")
	recordsPath, _ := cmd.Flags().GetString("records")
	rightPath, _ := cmd.Flags().GetString("right")
	workers, _ := cmd.Flags().GetInt("workers")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = cfg.LinkageWorkerCount
	}
	logger, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	spec, err := models.LoadLinkageSpec(specPath)
	if err != nil {
		return err
	}
	records, err := readRecords(recordsPath)
	if err != nil {
		return err
	}
	var right []any
	if rightPath != "" {
		if right, err = readRecords(rightPath); err != nil {
			return err
		}
	}
	if spec.Mode == models.LinkageModeInter && rightPath == "" {
		return fmt.Errorf("an inter-source spec needs --right")
	}

	linker, err := linkage.Build(*spec, expressions.NewEvaluator(), workers, logger)
	if err != nil {
		return err
	}
	result, err := linker.Run(cmd.Context(), records, right)
	if err != nil {
		return err
	}

	if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	printLinkSummary(cmd.ErrOrStderr(), spec, result)
	return nil
}

func printLinkSummary(w io.Writer, spec *models.LinkageSpec, result *linkage.Result) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	name := spec.Name
	if name == "" {
		name = string(spec.Mode)
	}
	fmt.Fprintf(w, "%s %s\n", cyan("linkage"), name)
	fmt.Fprintf(w, "  bins:       %d\n", result.Bins)
	fmt.Fprintf(w, "  candidates: %d\n", result.Candidates)
	fmt.Fprintf(w, "  matches:    %s\n", green(len(result.Matches)))
	if len(result.Failures) > 0 {
		fmt.Fprintf(w, "  failures:   %s\n", red(len(result.Failures)))
	}
}

func readRecords(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array: %w", path, err)
	}
	return records, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
