// Package config defines the application configuration and its file, env,
// and default layering.
package config

import (
	"fmt"

	"github.com/vibecheck/issuesync/internal/domain"
)

// Config represents the full application configuration.
type Config struct {
	Issues  IssuesConfig  `yaml:"issues"`
	Tracker TrackerConfig `yaml:"tracker"`
	Git     GitConfig     `yaml:"git"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// IssuesConfig is the reconciliation policy.
type IssuesConfig struct {
	Enabled             bool     `yaml:"enabled"`
	Label               string   `yaml:"label"`
	MaxNewPerRun        int      `yaml:"maxNewPerRun"`
	SeverityThreshold   string   `yaml:"severityThreshold"`
	ConfidenceThreshold string   `yaml:"confidenceThreshold"`
	CloseResolved       bool     `yaml:"closeResolved"`
	Assignees           []string `yaml:"assignees"`
	BranchPrefix        string   `yaml:"branchPrefix"`
}

// TrackerConfig holds tracker API client settings. Token usually references
// an environment variable, e.g. "${GITHUB_TOKEN}".
type TrackerConfig struct {
	Token             string  `yaml:"token"`
	BaseURL           string  `yaml:"baseURL"`
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// StoreConfig configures the local run-history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console, auto
}

// Validate checks cross-field constraints not expressible in the schema.
func (c Config) Validate() error {
	if c.Issues.Label == "" {
		return fmt.Errorf("issues.label must not be empty")
	}
	if c.Issues.MaxNewPerRun < 0 {
		return fmt.Errorf("issues.maxNewPerRun must not be negative")
	}
	if !domain.Severity(c.Issues.SeverityThreshold).IsValid() {
		return fmt.Errorf("issues.severityThreshold: unknown severity %q", c.Issues.SeverityThreshold)
	}
	if !domain.Confidence(c.Issues.ConfidenceThreshold).IsValid() {
		return fmt.Errorf("issues.confidenceThreshold: unknown confidence %q", c.Issues.ConfidenceThreshold)
	}
	if c.Tracker.Token == "" {
		return fmt.Errorf("tracker.token must be set (e.g. ${GITHUB_TOKEN})")
	}
	return nil
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base
	result.Issues = chooseIssues(base.Issues, overlay.Issues)
	result.Tracker = chooseTracker(base.Tracker, overlay.Tracker)
	result.Git = chooseGit(base.Git, overlay.Git)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Logging = chooseLogging(base.Logging, overlay.Logging)
	return result
}

func chooseIssues(base, overlay IssuesConfig) IssuesConfig {
	if overlay.Enabled || overlay.Label != "" || overlay.MaxNewPerRun != 0 ||
		overlay.SeverityThreshold != "" || overlay.ConfidenceThreshold != "" ||
		overlay.CloseResolved || len(overlay.Assignees) > 0 || overlay.BranchPrefix != "" {
		return overlay
	}
	return base
}

func chooseTracker(base, overlay TrackerConfig) TrackerConfig {
	if overlay.Token != "" || overlay.BaseURL != "" || overlay.Timeout != "" ||
		overlay.MaxRetries != 0 || overlay.InitialBackoff != "" || overlay.RequestsPerSecond != 0 {
		return overlay
	}
	return base
}

func chooseGit(base, overlay GitConfig) GitConfig {
	if overlay.RepositoryDir != "" {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseLogging(base, overlay LoggingConfig) LoggingConfig {
	if overlay.Level != "" || overlay.Format != "" {
		return overlay
	}
	return base
}
