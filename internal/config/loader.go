package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "issuesync"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "ISSUESYNC"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return expandEnvVars(cfg), nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Tracker.Token = expandEnvString(cfg.Tracker.Token)
	cfg.Tracker.BaseURL = expandEnvString(cfg.Tracker.BaseURL)
	cfg.Tracker.Timeout = expandEnvString(cfg.Tracker.Timeout)
	cfg.Tracker.InitialBackoff = expandEnvString(cfg.Tracker.InitialBackoff)

	cfg.Issues.Label = expandEnvString(cfg.Issues.Label)
	cfg.Issues.Assignees = expandEnvStringSlice(cfg.Issues.Assignees)

	cfg.Git.RepositoryDir = expandEnvString(cfg.Git.RepositoryDir)
	cfg.Store.Path = expandEnvString(cfg.Store.Path)

	cfg.Logging.Level = expandEnvString(cfg.Logging.Level)
	cfg.Logging.Format = expandEnvString(cfg.Logging.Format)

	return cfg
}

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	bareEnvVar   = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvString replaces ${VAR} or $VAR with environment variable values,
// keeping the original text when the variable is unset.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	s = bareEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})

	return s
}

func expandEnvStringSlice(slice []string) []string {
	if len(slice) == 0 {
		return slice
	}
	result := make([]string, len(slice))
	for i, s := range slice {
		result[i] = expandEnvString(s)
	}
	return result
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	// Issue policy defaults
	v.SetDefault("issues.enabled", true)
	v.SetDefault("issues.label", "vibeCheck")
	v.SetDefault("issues.maxNewPerRun", 25)
	v.SetDefault("issues.severityThreshold", "low")
	v.SetDefault("issues.confidenceThreshold", "low")
	v.SetDefault("issues.closeResolved", true)
	v.SetDefault("issues.branchPrefix", "vibecheck")

	// Tracker defaults
	v.SetDefault("tracker.token", "${GITHUB_TOKEN}")
	v.SetDefault("tracker.timeout", "30s")
	v.SetDefault("tracker.maxRetries", 3)
	v.SetDefault("tracker.initialBackoff", "2s")
	v.SetDefault("tracker.requestsPerSecond", 2.0)

	// Git defaults
	v.SetDefault("git.repositoryDir", ".")

	// Store defaults
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", defaultStorePath())

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./issuesync.db"
	}
	return filepath.Join(home, ".config", "issuesync", "history.db")
}
