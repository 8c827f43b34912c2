package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yolodolo42/sitepilot/internal/media"
	"github.com/yolodolo42/sitepilot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the content and admin HTTP API",
	Long: `Serve page content, editor documents, media uploads and goal runs over HTTP.

Read routes are public. Editor saves, goal runs, uploads and the audit log
require 'Authorization: Bearer <token>' from 'sitepilot auth token issue'.
Goal runs are disabled when no LLM provider is connected.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	manager, err := getAuthManager(cfg)
	if err != nil {
		return err
	}
	if len(manager.ListAdminTokens()) == 0 {
		slog.Warn("no admin tokens issued; admin routes will reject every request", "hint", "sitepilot auth token issue <name>")
	}

	files, err := media.NewLocal(cfg.Media)
	if err != nil {
		return fmt.Errorf("media: %w", err)
	}

	opts := server.Options{
		Repo:        repo,
		Tokens:      manager,
		Media:       files,
		MediaFiles:  files.Handler(),
		MediaPath:   cfg.Media.BaseURL,
		MaxUpload:   cfg.Media.MaxBytes,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      slog.Default(),
	}

	runner, closeProvider, err := newRunner(ctx, cfg, repo)
	if err != nil {
		slog.Warn("goal runs disabled", "error", err)
	} else {
		defer closeProvider()
		opts.Runner = runner
	}

	return server.New(opts).ListenAndServe(ctx, cfg.Server.Addr)
}
