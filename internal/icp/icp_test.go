package icp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "saas-founders.yaml", `
description: Early-stage SaaS founders
filters:
  titles: [Founder, CEO, CTO]
  company_sizes: ["1-50", "51-200"]
weights:
  title: 40
  seniority: 20
  industry: 10
  company_size: 20
  location: 5
  email_verified: 5
`)

	cfg, err := Load(dir, "saas-founders")
	require.NoError(t, err)
	assert.Equal(t, "saas-founders", cfg.Name) // falls back to file name
	assert.Equal(t, []string{"Founder", "CEO", "CTO"}, cfg.Filters.Titles)
	assert.Equal(t, 40, cfg.Weights.Title)
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "ops.json", `{"name":"ops-leaders","filters":{"seniorities":["vp","director"]}}`)

	cfg, err := Load(dir, "ops")
	require.NoError(t, err)
	assert.Equal(t, "ops-leaders", cfg.Name) // explicit name wins
	assert.Equal(t, []string{"vp", "director"}, cfg.Filters.Seniorities)
}

func TestLoad_DefaultWeights(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "basic.yaml", "filters:\n  titles: [CEO]\n")

	cfg, err := Load(dir, "basic")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), cfg.Weights)

	total := cfg.Weights.Title + cfg.Weights.Seniority + cfg.Weights.Industry +
		cfg.Weights.CompanySize + cfg.Weights.Location + cfg.Weights.EmailVerified
	assert.Equal(t, 100, total)
}

func TestLoad_NoFilters(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "empty.yaml", "description: nothing here\n")

	_, err := Load(dir, "empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no filters")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_RejectsPathTraversal(t *testing.T) {
	_, err := Load(t.TempDir(), "../escape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config name")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "b.yaml", "filters:\n  titles: [x]\n")
	writeConfig(t, dir, "a.json", `{"filters":{"titles":["y"]}}`)
	writeConfig(t, dir, "notes.txt", "ignored")

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestList_MissingDirIsEmpty(t *testing.T) {
	names, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSnapshot_RoundTrips(t *testing.T) {
	cfg := &Config{Name: "x", Filters: Filters{Titles: []string{"CEO"}}, Weights: DefaultWeights()}
	b, err := cfg.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name":"x"`)
}
