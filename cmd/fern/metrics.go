package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the similarity metrics, aggregators, normalizers and fusion rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		printCatalog(cmd.OutOrStdout())
		return nil
	},
}

func printCatalog(w io.Writer) {
	sections := []struct {
		title string
		names []string
	}{
		{"similarity metrics", similarity.Names()},
		{"aggregators", similarity.AggregatorNames()},
		{"normalizers", normalizers.Names()},
		{"fusion rules", fusion.Names()},
	}

	heading := color.New(color.FgCyan, color.Bold).SprintFunc()
	for _, s := range sections {
		names := append([]string(nil), s.names...)
		sort.Strings(names)
		fmt.Fprintf(w, "%s\n  %s\n", heading(s.title), strings.Join(names, "\n  "))
	}
}
