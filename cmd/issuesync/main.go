package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/vibecheck/issuesync/internal/adapter/cli"
	githubadapter "github.com/vibecheck/issuesync/internal/adapter/github"
	"github.com/vibecheck/issuesync/internal/adapter/gitinfo"
	"github.com/vibecheck/issuesync/internal/adapter/observability"
	"github.com/vibecheck/issuesync/internal/adapter/store/sqlite"
	"github.com/vibecheck/issuesync/internal/config"
	"github.com/vibecheck/issuesync/internal/usecase/pipeline"
	"github.com/vibecheck/issuesync/internal/usecase/reconcile"
	"github.com/vibecheck/issuesync/internal/version"
)

// Exit codes: 0 success, 1 tracker failure (including partial permanent
// failures), 2 usage, config, or input error.
const (
	exitOK      = 0
	exitTracker = 1
	exitInput   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancellable context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "issuesync",
		EnvPrefix:   "ISSUESYNC",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return exitInput
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return exitInput
	}

	log := observability.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	token := cfg.Tracker.Token
	if strings.HasPrefix(token, "$") {
		// Env reference survived expansion, so the variable is unset.
		fmt.Fprintf(os.Stderr, "tracker token %s is not set\n", token)
		return exitInput
	}

	var history *sqlite.History
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			log.Warn().Err(err).Msg("failed to create history directory")
		} else if history, err = sqlite.NewHistory(cfg.Store.Path); err != nil {
			log.Warn().Err(err).Msg("failed to open history store")
			history = nil
		}
	}
	if history != nil {
		defer history.Close()
	}

	newTracker := func(owner, name string) reconcile.Tracker {
		client := githubadapter.NewClient(token, owner, name)
		if cfg.Tracker.BaseURL != "" {
			client.SetBaseURL(cfg.Tracker.BaseURL)
		}
		if d, err := time.ParseDuration(cfg.Tracker.Timeout); err == nil {
			client.SetTimeout(d)
		}
		if cfg.Tracker.MaxRetries > 0 {
			client.SetMaxRetries(cfg.Tracker.MaxRetries)
		}
		if d, err := time.ParseDuration(cfg.Tracker.InitialBackoff); err == nil {
			client.SetInitialBackoff(d)
		}
		if cfg.Tracker.RequestsPerSecond > 0 {
			client.SetRequestsPerSecond(cfg.Tracker.RequestsPerSecond)
		}
		return client
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Log:        log,
		NewTracker: newTracker,
		Detector:   gitinfo.NewDetector(cfg.Git.RepositoryDir),
		History:    history,
		Out:        os.Stdout,
		Now:        time.Now,
	})

	deps := cli.Dependencies{
		Runner:   orchestrator,
		Defaults: cfg,
		Version:  version.Version,
	}
	if history != nil {
		deps.History = history
	}

	root := cli.NewRootCommand(deps)
	err = root.ExecuteContext(ctx)
	switch {
	case err == nil, errors.Is(err, cli.ErrVersionRequested):
		return exitOK
	case errors.Is(err, pipeline.ErrInput):
		fmt.Fprintln(os.Stderr, err)
		return exitInput
	default:
		log.Error().Err(err).Msg("synchronization failed")
		return exitTracker
	}
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "issuesync"))
	}
	return paths
}
