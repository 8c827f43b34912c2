package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run one goal against the site",
	Long: `Run a single natural-language goal through the agent and print the reply.

Examples:
  sitepilot run "rename page title to 'Spring Sale'" --page home
  sitepilot run "add a pricing table to the services page" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoalCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("page", "", "page ID or slug sent as context")
	runCmd.Flags().Bool("json", false, "print the result as JSON")
	runCmd.Flags().BoolP("quiet", "q", false, "do not print tool activity")
}

func runGoalCmd(cmd *cobra.Command, args []string) error {
	pageID, _ := cmd.Flags().GetString("page")
	asJSON, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	goal := strings.Join(args, " ")

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

	runner, closeProvider, err := newRunner(ctx, cfg, repo)
	if err != nil {
		return err
	}
	defer closeProvider()

	width := terminalWidth()
	errOut := cmd.ErrOrStderr()
	if !quiet {
		runner.OnEvent = func(e agent.Event) {
			if line := formatEvent(e, width); line != "" {
				fmt.Fprintln(errOut, line)
			}
		}
	}

	res, err := runner.RunGoal(ctx, goal, pageID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(out, ui.RenderMarkdown(res.Output, width))
	if !quiet {
		fmt.Fprintln(errOut, ui.DimStyle.Render(fmt.Sprintf("%d rounds • %d in / %d out tokens • run %s",
			res.Rounds, res.Usage.InputTokens, res.Usage.OutputTokens, res.RunID)))
	}
	return nil
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 100
}
