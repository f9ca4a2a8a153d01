package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/linkage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestLinkCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	spec := writeFile(t, dir, "spec.yaml", `
name: people
mode: intra
blocking:
  left:
    - fields: [last]
metrics:
  - metric: levenshtein
    left: first
threshold: 0.5
id_projection:
  left:
    path: id
`)
	records := writeFile(t, dir, "records.json", `[
		{"id": "r1", "first": "ann", "last": "lee"},
		{"id": "r2", "first": "ann", "last": "lee"},
		{"id": "r3", "first": "bob", "last": "ray"}
	]`)

	stdout, stderr, err := execute(t, "link", "--spec", spec, "--records", records, "--workers", "1")
	require.NoError(t, err)

	var result linkage.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Len(t, result.Matches, 1)
	assert.Equal(t, []any{"r1", "r2"}, result.Matches[0].Value)
	assert.Contains(t, stderr, "matches:    1")
}

func TestFuseCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	clusters := writeFile(t, dir, "clusters.json", `[
		{"id": "c1", "values": ["Ann", "Anne"], "weights": [1, 3]},
		{"id": "c2", "values": ["x"], "weights": [1, 2]}
	]`)

	stdout, stderr, err := execute(t, "fuse", "--clusters", clusters)
	require.NoError(t, err)

	var results []fusion.FusedCluster
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "Anne", results[0].Value)
	assert.NotEmpty(t, results[1].Error)
	assert.Contains(t, stderr, "1 fused, 1 failed")
}

func TestMetricsCommand(t *testing.T) {
	stdout, _, err := execute(t, "metrics")
	require.NoError(t, err)
	assert.Contains(t, stdout, "jaro_winkler")
	assert.Contains(t, stdout, "weighted_mean")
	assert.Contains(t, stdout, "merge_distinct")
}
