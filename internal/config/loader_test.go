package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.True(t, cfg.Issues.Enabled)
	assert.Equal(t, "vibeCheck", cfg.Issues.Label)
	assert.Equal(t, 25, cfg.Issues.MaxNewPerRun)
	assert.Equal(t, "low", cfg.Issues.SeverityThreshold)
	assert.Equal(t, "low", cfg.Issues.ConfidenceThreshold)
	assert.True(t, cfg.Issues.CloseResolved)
	assert.Equal(t, "vibecheck", cfg.Issues.BranchPrefix)

	assert.Equal(t, "30s", cfg.Tracker.Timeout)
	assert.Equal(t, 3, cfg.Tracker.MaxRetries)
	assert.Equal(t, 2.0, cfg.Tracker.RequestsPerSecond)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "auto", cfg.Logging.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
issues:
  label: myLabel
  maxNewPerRun: 10
  severityThreshold: medium
tracker:
  token: ghp_filetoken
  requestsPerSecond: 0.5
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "issuesync.yaml"), []byte(content), 0o644))

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "myLabel", cfg.Issues.Label)
	assert.Equal(t, 10, cfg.Issues.MaxNewPerRun)
	assert.Equal(t, "medium", cfg.Issues.SeverityThreshold)
	assert.Equal(t, "ghp_filetoken", cfg.Tracker.Token)
	assert.Equal(t, 0.5, cfg.Tracker.RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Keys absent from the file keep their defaults.
	assert.True(t, cfg.Issues.CloseResolved)
}

func TestLoad_TokenEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	content := "tracker:\n  token: ${TEST_SYNC_TOKEN}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "issuesync.yaml"), []byte(content), 0o644))
	t.Setenv("TEST_SYNC_TOKEN", "ghp_fromenv")

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "ghp_fromenv", cfg.Tracker.Token)
}

func TestLoad_UnsetEnvVarKeptVerbatim(t *testing.T) {
	dir := t.TempDir()
	content := "tracker:\n  token: ${TEST_SYNC_UNSET_TOKEN}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "issuesync.yaml"), []byte(content), 0o644))

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	// Main detects the unexpanded reference and fails with a usage error.
	assert.Equal(t, "${TEST_SYNC_UNSET_TOKEN}", cfg.Tracker.Token)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "issuesync.yaml"), []byte("issues: ["), 0o644))

	_, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	assert.Error(t, err)
}

func TestExpandEnvString(t *testing.T) {
	t.Setenv("TEST_SYNC_VALUE", "resolved")

	tests := []struct {
		in   string
		want string
	}{
		{"${TEST_SYNC_VALUE}", "resolved"},
		{"$TEST_SYNC_VALUE", "resolved"},
		{"prefix-${TEST_SYNC_VALUE}", "prefix-resolved"},
		{"${TEST_SYNC_MISSING}", "${TEST_SYNC_MISSING}"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvString(tt.in), "input %q", tt.in)
	}
}
