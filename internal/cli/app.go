package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/auth"
	"github.com/yolodolo42/sitepilot/internal/config"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/store"
)

// newLogger builds the root logger from log.level and log.format.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func setupLogging(cfg config.LogConfig, w io.Writer) {
	slog.SetDefault(newLogger(cfg, w))
}

func openRepo(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	repo, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	slog.Debug("store opened", "driver", cfg.Store.Driver)
	return repo, nil
}

func getAuthManager(cfg *config.Config) (*auth.Manager, error) {
	return auth.NewManager(cfg.DataDir, viper.GetViper())
}

// newRunner resolves the configured provider and wires a goal runner. The
// returned close func releases provider clients that hold connections.
func newRunner(ctx context.Context, cfg *config.Config, repo store.Repository) (*agent.Runner, func(), error) {
	manager, err := getAuthManager(cfg)
	if err != nil {
		return nil, nil, err
	}
	provider, err := manager.ResolveProvider(ctx, llm.ProviderID(cfg.LLM.Provider), cfg.LLM.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve LLM provider: %w", err)
	}

	closeFn := func() {}
	if c, ok := provider.(io.Closer); ok {
		closeFn = func() { _ = c.Close() }
	}

	runner := agent.NewRunner(repo, provider, cfg, slog.Default())
	if cfg.LLM.Provider == "" && provider.ID() != manager.GetDefaultProvider() {
		// Fell back to another connected provider; llm.model was meant
		// for the default one.
		runner.Model = ""
	}
	slog.Debug("runner ready", "provider", provider.ID(), "model", runner.Model)
	return runner, closeFn, nil
}
