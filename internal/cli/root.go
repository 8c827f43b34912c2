// Package cli is the sitepilot command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yolodolo42/sitepilot/internal/config"
	"github.com/yolodolo42/sitepilot/internal/setup"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "sitepilot",
		Short: "Agent-driven editor for a clinic marketing site",
		Long: `sitepilot edits a marketing website by talking to a language model.

Describe a change ("rename the home page title to 'Spring Sale'") and the
agent reads pages, updates sections and SEO metadata through audited tools.
The same content is served to the visual editor over HTTP and to MCP
clients over stdio.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if setup.NeedsSetup(cfg.DataDir) {
				if !setup.IsInteractive() {
					setup.PrintEnvInstructions(cmd.ErrOrStderr())
					return fmt.Errorf("setup required: run sitepilot in a terminal or set a provider API key")
				}
				result, err := setup.RunWizard(cfg.DataDir)
				if err != nil {
					return fmt.Errorf("setup failed: %w", err)
				}
				if result == nil || result.Cancelled {
					return nil
				}
			}

			return runChat(cmd, cfg)
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sitepilot/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default $HOME/.sitepilot)")
	rootCmd.PersistentFlags().String("store", "", "store driver: memory, sqlite, postgres, mongo")
	rootCmd.PersistentFlags().String("dsn", "", "store DSN (file path, postgres URL or mongo URI)")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider (default from auth)")
	rootCmd.PersistentFlags().String("model", "", "model ID (default is the provider's default)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")

	bind := map[string]string{
		"data_dir":     "data-dir",
		"store.driver": "store",
		"store.dsn":    "dsn",
		"llm.provider": "provider",
		"llm.model":    "model",
		"log.level":    "log-level",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
}

func initConfig() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultDataDir())
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config: %v\n", err)
		}
	}
}

// loadConfig decodes the global viper into a Config, creates the data dir
// and installs the root logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	setupLogging(cfg.Log, os.Stderr)
	return cfg, nil
}
