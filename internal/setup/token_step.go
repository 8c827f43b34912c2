package setup

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yolodolo42/sitepilot/internal/auth"
)

const defaultTokenName = "admin"

// issueToken creates the first admin token for the HTTP API. The plaintext
// is only ever shown on the summary screen.
func (m WizardModel) issueToken() tea.Cmd {
	dataDir := m.dataDir
	name := m.tokenNameInput.Value()
	if name == "" {
		name = defaultTokenName
	}

	return func() tea.Msg {
		manager, err := auth.NewManager(dataDir, nil)
		if err != nil {
			return tokenIssuedMsg{err: err}
		}
		token, _, err := manager.IssueAdminToken(name)
		if err != nil {
			return tokenIssuedMsg{err: err}
		}
		return tokenIssuedMsg{name: name, token: token}
	}
}
