package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/auth"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage LLM provider keys and admin tokens",
	Long:  `Store, remove, and test LLM provider API keys, and issue bearer tokens for the HTTP admin routes.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [provider]",
	Short: "Store an API key for an LLM provider",
	Long: `Store an API key for an LLM provider.

Supported providers:
  anthropic   Anthropic Claude
  openai      OpenAI GPT
  gemini      Google Gemini
  openrouter  OpenRouter
  venice      Venice AI
  copilot     GitHub Copilot (access token)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthSet,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected providers",
	RunE:  runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:     "remove <provider>",
	Aliases: []string{"disconnect"},
	Short:   "Remove a stored provider key",
	Args:    cobra.ExactArgs(1),
	RunE:    runAuthRemove,
}

var authDefaultCmd = &cobra.Command{
	Use:   "default [provider]",
	Short: "Get or set the default provider",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthDefault,
}

var authTestCmd = &cobra.Command{
	Use:   "test <provider>",
	Short: "Send a tiny request to check a provider key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthTest,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage admin bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <name>",
	Short: "Issue a new admin token",
	Long: `Issue a bearer token for the admin routes of 'sitepilot serve'.
The secret is printed once and cannot be recovered.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenIssue,
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin tokens",
	RunE:  runTokenList,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <id|name>",
	Short: "Revoke an admin token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenRevoke,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authListCmd, authRemoveCmd, authDefaultCmd, authTestCmd, tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd, tokenListCmd, tokenRevokeCmd)

	authSetCmd.Flags().String("key", "", "API key (prompted if not provided)")
}

func authManager() (*auth.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return getAuthManager(cfg)
}

func parseProviderID(s string) (llm.ProviderID, error) {
	id := llm.ProviderID(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(llm.AllProviderIDs(), id) {
		return "", fmt.Errorf("unknown provider: %s", s)
	}
	return id, nil
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var providerID llm.ProviderID
	if len(args) == 0 {
		fmt.Fprintln(out, "Select a provider:")
		providers := llm.AllProviderIDs()
		for i, p := range providers {
			fmt.Fprintf(out, "  %d. %s\n", i+1, p)
		}
		fmt.Fprint(out, "\nEnter number: ")

		var choice int
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &choice)
		if choice < 1 || choice > len(providers) {
			return fmt.Errorf("invalid selection")
		}
		providerID = providers[choice-1]
	} else {
		id, err := parseProviderID(args[0])
		if err != nil {
			return err
		}
		providerID = id
	}

	manager, err := authManager()
	if err != nil {
		return err
	}

	apiKey, _ := cmd.Flags().GetString("key")
	if apiKey == "" {
		if help, ok := auth.GetProviderHelp(providerID); ok {
			fmt.Fprintf(out, "Get a key at %s", help.KeyURL)
			if help.EnvVar != "" {
				fmt.Fprintf(out, " (or set %s)", help.EnvVar)
			}
			fmt.Fprint(out, "\n\n")
		}
		fmt.Fprintf(out, "Enter API key for %s: ", providerID)
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(string(keyBytes))
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	if err := manager.SetAPIKey(providerID, apiKey); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	fmt.Fprintf(out, "%s Saved key for %s\n", ui.SymbolCheck, providerID)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	manager, err := authManager()
	if err != nil {
		return err
	}

	connected := manager.ListConnected()
	if len(connected) == 0 {
		fmt.Fprintln(out, "No providers connected.")
		fmt.Fprintln(out, "\nUse 'sitepilot auth set <provider>' or set one of:")
		for _, id := range llm.AllProviderIDs() {
			if envVar := llm.EnvVarForProvider(id); envVar != "" {
				fmt.Fprintf(out, "  %s\n", envVar)
			}
		}
		return nil
	}

	defaultProvider := manager.GetDefaultProvider()
	fmt.Fprintln(out, "Connected providers:")
	for _, id := range connected {
		marker := "  "
		if id == defaultProvider {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%s\n", marker, id)
	}
	fmt.Fprintf(out, "\n* = default provider\n")
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	providerID, err := parseProviderID(args[0])
	if err != nil {
		return err
	}
	manager, err := authManager()
	if err != nil {
		return err
	}
	if err := manager.RemoveCredential(providerID); err != nil {
		return fmt.Errorf("failed to remove key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed key for %s\n", providerID)
	return nil
}

func runAuthDefault(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	manager, err := authManager()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Fprintf(out, "Default provider: %s\n", manager.GetDefaultProvider())
		return nil
	}

	providerID, err := parseProviderID(args[0])
	if err != nil {
		return err
	}
	if !manager.HasCredential(providerID) {
		return fmt.Errorf("provider %s is not connected. Run 'sitepilot auth set %s' first", providerID, providerID)
	}
	if err := manager.SetDefaultProvider(providerID); err != nil {
		return fmt.Errorf("failed to set default provider: %w", err)
	}
	fmt.Fprintf(out, "Default provider set to: %s\n", providerID)
	return nil
}

func runAuthTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	providerID, err := parseProviderID(args[0])
	if err != nil {
		return err
	}
	manager, err := authManager()
	if err != nil {
		return err
	}

	apiKey, err := manager.GetAPIKey(providerID)
	if err != nil || apiKey == "" {
		return fmt.Errorf("no API key found for %s", providerID)
	}

	fmt.Fprintf(out, "Testing %s (key %s)...\n", providerID, maskKey(apiKey))

	ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
	defer cancel()

	provider, err := llm.NewProvider(ctx, providerID, apiKey, "")
	if err != nil {
		return err
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	start := time.Now()
	if _, err := provider.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: "You are a connection test.",
		Messages:     []llm.Message{llm.UserMessage("Reply with ok.")},
		MaxTokens:    10,
	}); err != nil {
		return fmt.Errorf("%s request failed: %w", providerID, err)
	}
	fmt.Fprintf(out, "%s %s responded in %s\n", ui.SymbolCheck, providerID, time.Since(start).Round(time.Millisecond))
	return nil
}

// maskKey keeps the first and last four characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	manager, err := authManager()
	if err != nil {
		return err
	}
	secret, tok, err := manager.IssueAdminToken(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Issued token %q (%s)\n\n", ui.SymbolCheck, tok.Name, tok.ID)
	fmt.Fprintf(out, "  %s\n\n", secret)
	fmt.Fprintln(out, ui.DimStyle.Render("Store it now; it will not be shown again. Send it as 'Authorization: Bearer <token>'."))
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	manager, err := authManager()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tokens := manager.ListAdminTokens()
	if len(tokens) == 0 {
		fmt.Fprintln(out, "No admin tokens. Issue one with 'sitepilot auth token issue <name>'.")
		return nil
	}

	rows := make([][]string, 0, len(tokens))
	for _, tok := range tokens {
		rows = append(rows, []string{tok.Name, tok.ID, tok.CreatedAt.Local().Format(time.DateTime)})
	}
	fmt.Fprintln(out, ui.RenderBlocks(terminalWidth(), []agent.UIBlock{
		agent.TableBlock("Admin tokens", []string{"Name", "ID", "Created"}, rows),
	}))
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	manager, err := authManager()
	if err != nil {
		return err
	}
	if err := manager.RevokeAdminToken(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", args[0])
	return nil
}
