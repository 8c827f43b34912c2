package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/sitepilot/internal/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the setup wizard",
	Long: `Run the interactive setup wizard.

This command guides you through:
  - Connecting an LLM provider (Anthropic, OpenAI, etc.)
  - Issuing an admin token for 'sitepilot serve'

Run it again to switch providers or issue another token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !setup.IsInteractive() {
			setup.PrintEnvInstructions(cmd.ErrOrStderr())
			return fmt.Errorf("setup requires an interactive terminal")
		}

		result, err := setup.RunWizard(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
		if result == nil || result.Cancelled {
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), "\nSetup complete! Run 'sitepilot' to start.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
