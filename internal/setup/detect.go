package setup

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/yolodolo42/sitepilot/internal/auth"
	"github.com/yolodolo42/sitepilot/internal/llm"
)

// Status is what is already configured in a data dir.
type Status struct {
	HasProvider   bool
	ProviderID    llm.ProviderID
	HasAdminToken bool
	// IsComplete is true once a provider is connected; admin tokens are
	// only needed for the HTTP API.
	IsComplete bool
}

// DetectStatus inspects credentials.json and the provider env vars.
func DetectStatus(dataDir string) (*Status, error) {
	status := &Status{}

	manager, err := auth.NewManager(dataDir, nil)
	if err != nil {
		return status, err
	}

	if connected := manager.ListConnected(); len(connected) > 0 {
		status.HasProvider = true
		status.ProviderID = manager.GetDefaultProvider()
		if status.ProviderID == "" {
			status.ProviderID = connected[0]
		}
	}
	status.HasAdminToken = len(manager.ListAdminTokens()) > 0
	status.IsComplete = status.HasProvider
	return status, nil
}

// NeedsSetup reports whether the wizard should run before the REPL.
func NeedsSetup(dataDir string) bool {
	status, err := DetectStatus(dataDir)
	return err != nil || !status.IsComplete
}

// IsInteractive returns true if stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PrintEnvInstructions explains the non-interactive alternative to the
// wizard.
func PrintEnvInstructions(w io.Writer) {
	fmt.Fprintln(w, "sitepilot needs an LLM provider to run goals.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Set one of these environment variables (or put it in .env):")
	for _, id := range llm.AllProviderIDs() {
		fmt.Fprintf(w, "  %s=...\n", llm.EnvVarForProvider(id))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Or run 'sitepilot auth set <provider>' or 'sitepilot setup' in a terminal.")
}
