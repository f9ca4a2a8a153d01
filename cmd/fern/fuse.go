package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/models"
)

var fuseCmd = &cobra.Command{
	Use:   "fuse",
	Short: "Fuse clusters of duplicate values from a JSON file",
	Long: `Fuse clusters offline. The clusters file is a JSON array of
{"id", "values", "weights"} objects. Without --spec every cluster is fused
with the most_trusted rule.

Examples:
  fern fuse --clusters clusters.json
  fern fuse --spec contacts.yaml --clusters clusters.json`,
	RunE: runFuse,
}

func init() {
	fuseCmd.Flags().String("spec", "", "fusion spec file (YAML or JSON)")
	fuseCmd.Flags().String("clusters", "", "JSON array of clusters")
	fuseCmd.Flags().Int("workers", 0, "fusion workers (defaults to FUSION_WORKER_COUNT)")
	_ = fuseCmd.MarkFlagRequired("clusters")
}

func runFuse(cmd *cobra.Command, _ []string) error {
	specPath, _ := cmd.Flags().GetString("spec")
	clustersPath, _ := cmd.Flags().GetString("clusters")
	workers, _ := cmd.Flags().GetInt("workers")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = cfg.FusionWorkerCount
	}
	logger, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	spec := &models.FusionSpec{}
	if specPath != "" {
		if spec, err = models.LoadFusionSpec(specPath); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(clustersPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", clustersPath, err)
	}
	var clusters []models.Cluster
	if err := json.Unmarshal(data, &clusters); err != nil {
		return fmt.Errorf("%s is not a JSON array of clusters: %w", clustersPath, err)
	}

	engine, err := fusion.Build(*spec, workers, logger)
	if err != nil {
		return err
	}
	results, err := engine.FuseClusters(cmd.Context(), clusters)
	if err != nil {
		return err
	}

	if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	printFuseSummary(cmd.ErrOrStderr(), results)
	return nil
}

func printFuseSummary(w io.Writer, results []fusion.FusedCluster) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Fprintf(w, "  %s %s: %s\n", red("✗"), r.ID, r.Error)
		}
	}
	fmt.Fprintf(w, "%s %s fused", cyan("fusion"), green(len(results)-failed))
	if failed > 0 {
		fmt.Fprintf(w, ", %s failed", red(failed))
	}
	fmt.Fprintln(w)
}
