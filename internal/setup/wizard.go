// Package setup is the first-run wizard: connect an LLM provider and
// optionally issue an admin token for the HTTP API.
package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yolodolo42/sitepilot/internal/auth"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/ui"
)

// Step is the wizard screen being shown.
type Step int

const (
	StepWelcome Step = iota
	StepProviderSelect
	StepProviderKey
	StepTokenChoice
	StepTokenName
	StepComplete
)

const totalSteps = 3 // Provider, API token, Ready

// Result is what the wizard configured.
type Result struct {
	ProviderID llm.ProviderID
	TokenName  string
	AdminToken string
	Cancelled  bool
}

// WizardModel is the bubbletea model for the wizard.
type WizardModel struct {
	step     Step
	status   *Status
	dataDir  string
	factory  ProviderFactory
	quitting bool

	providers        []llm.ProviderID
	providerSelector ui.Selector
	selectedProvider llm.ProviderID
	apiKeyInput      textinput.Model
	validatingKey    bool
	keyError         string
	envKeyProvider   llm.ProviderID

	tokenSelector  ui.Selector
	tokenNameInput textinput.Model
	issuingToken   bool
	tokenError     string
	tokenName      string
	adminToken     string

	spinner  spinner.Model
	progress progress.Model

	result *Result
}

type keyValidatedMsg struct {
	success bool
	err     error
}

type tokenIssuedMsg struct {
	name  string
	token string
	err   error
}

var tokenChoices = []ui.SelectorItem{
	{ID: "issue", Label: "Issue an admin token", Description: "needed for the HTTP API and the visual editor"},
	{ID: "skip", Label: "Skip for now", Description: "sitepilot auth token issue <name> later"},
}

func providerItems(ids []llm.ProviderID, current llm.ProviderID) []ui.SelectorItem {
	items := make([]ui.SelectorItem, 0, len(ids))
	for _, id := range ids {
		help, _ := auth.GetProviderHelp(id)
		desc := help.EnvVar
		if id == llm.ProviderAnthropic {
			desc = "recommended - " + desc
		}
		items = append(items, ui.SelectorItem{
			ID:          string(id),
			Label:       help.Label,
			Description: desc,
			Current:     id == current,
		})
	}
	return items
}

// NewWizard builds the wizard for dataDir. A nil factory uses the real
// providers.
func NewWizard(dataDir string, factory ProviderFactory) *WizardModel {
	if factory == nil {
		factory = defaultFactory
	}
	status, err := DetectStatus(dataDir)
	if err != nil || status == nil {
		status = &Status{}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.SpinnerStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	apiInput := textinput.New()
	apiInput.Prompt = ""
	apiInput.Placeholder = "Paste your API key here..."
	apiInput.EchoMode = textinput.EchoPassword
	apiInput.EchoCharacter = '•'
	apiInput.CharLimit = 200
	apiInput.Width = 50

	nameInput := textinput.New()
	nameInput.Prompt = ""
	nameInput.Placeholder = defaultTokenName
	nameInput.CharLimit = 64
	nameInput.Width = 30

	providers := llm.AllProviderIDs()
	m := &WizardModel{
		step:             StepWelcome,
		status:           status,
		dataDir:          dataDir,
		factory:          factory,
		providers:        providers,
		providerSelector: ui.NewSelector("Choose an LLM provider", providerItems(providers, status.ProviderID)),
		tokenSelector:    ui.NewSelector("Admin API token", tokenChoices),
		apiKeyInput:      apiInput,
		tokenNameInput:   nameInput,
		spinner:          sp,
		progress:         prog,
	}

	for _, id := range providers {
		if os.Getenv(llm.EnvVarForProvider(id)) != "" {
			m.envKeyProvider = id
			break
		}
	}

	if status.HasProvider {
		m.selectedProvider = status.ProviderID
		m.step = StepTokenChoice
		if status.HasAdminToken {
			m.step = StepComplete
		}
	}
	return m
}

func (m WizardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.result = &Result{Cancelled: true}
			m.quitting = true
			return m, tea.Quit
		}

		switch m.step {
		case StepWelcome:
			if msg.Type == tea.KeyEnter {
				if m.envKeyProvider != "" {
					m.selectedProvider = m.envKeyProvider
					m.step = StepTokenChoice
				} else {
					m.step = StepProviderSelect
				}
			}
			return m, nil

		case StepProviderSelect:
			return m.updateProviderSelect(msg)

		case StepProviderKey:
			switch msg.Type {
			case tea.KeyEsc:
				m.apiKeyInput.Blur()
				m.apiKeyInput.Reset()
				m.keyError = ""
				m.resetProviderSelector()
				m.step = StepProviderSelect
				return m, nil
			case tea.KeyEnter:
				return m.submitKey()
			}

		case StepTokenChoice:
			return m.updateTokenChoice(msg)

		case StepTokenName:
			switch msg.Type {
			case tea.KeyEsc:
				m.tokenNameInput.Blur()
				m.tokenError = ""
				m.tokenSelector = ui.NewSelector("Admin API token", tokenChoices)
				m.step = StepTokenChoice
				return m, nil
			case tea.KeyEnter:
				if m.issuingToken {
					return m, nil
				}
				m.issuingToken = true
				m.tokenError = ""
				return m, m.issueToken()
			}

		case StepComplete:
			if msg.Type == tea.KeyEnter {
				m.result = &Result{
					ProviderID: m.selectedProvider,
					TokenName:  m.tokenName,
					AdminToken: m.adminToken,
				}
				m.quitting = true
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.progress.Width = min(40, msg.Width-20)
		m.providerSelector.SetWidth(msg.Width)
		m.tokenSelector.SetWidth(msg.Width)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case keyValidatedMsg:
		m.validatingKey = false
		if !msg.success {
			m.keyError = formatKeyError(msg.err, m.selectedProvider)
			return m, nil
		}
		if err := m.saveProviderKey(); err != nil {
			m.keyError = fmt.Sprintf("Failed to save: %v", err)
			return m, nil
		}
		m.keyError = ""
		m.apiKeyInput.Blur()
		m.step = StepTokenChoice
		if m.status.HasAdminToken {
			m.step = StepComplete
		}
		return m, nil

	case tokenIssuedMsg:
		m.issuingToken = false
		if msg.err != nil {
			m.tokenError = msg.err.Error()
			return m, nil
		}
		m.tokenName = msg.name
		m.adminToken = msg.token
		m.step = StepComplete
		return m, nil
	}

	if m.step == StepProviderKey && !m.validatingKey {
		var cmd tea.Cmd
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.step == StepTokenName && !m.issuingToken {
		var cmd tea.Cmd
		m.tokenNameInput, cmd = m.tokenNameInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// formatKeyError shortens provider errors to one actionable line.
func formatKeyError(err error, provider llm.ProviderID) string {
	if err == nil {
		return "Invalid API key. Please try again."
	}
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "no such host"),
		strings.Contains(errStr, "timeout"):
		return "Connection failed. Check your internet and try again."
	case strings.Contains(errStr, "401"), strings.Contains(strings.ToLower(errStr), "unauthorized"):
		if help, ok := auth.GetProviderHelp(provider); ok {
			return "Invalid key. Verify at " + help.KeyURL
		}
		return "Authentication failed. Check your API key."
	case strings.Contains(errStr, "429"), strings.Contains(errStr, "rate"):
		return "Rate limited. Wait a moment and try again."
	}

	if len(errStr) > 60 {
		return errStr[:57] + "..."
	}
	return errStr
}

func (m *WizardModel) resetProviderSelector() {
	m.providerSelector = ui.NewSelector("Choose an LLM provider", providerItems(m.providers, m.selectedProvider))
}

func (m WizardModel) updateProviderSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.providerSelector.Update(msg)
	if m.providerSelector.Active() {
		return m, nil
	}
	if m.providerSelector.Cancelled() {
		m.resetProviderSelector()
		m.step = StepWelcome
		return m, nil
	}

	m.selectedProvider = llm.ProviderID(m.providerSelector.Selected())
	m.apiKeyInput.Reset()
	m.step = StepProviderKey
	cmd := m.apiKeyInput.Focus()
	return m, cmd
}

func (m WizardModel) submitKey() (tea.Model, tea.Cmd) {
	if m.validatingKey {
		return m, nil
	}
	if strings.TrimSpace(m.apiKeyInput.Value()) == "" {
		m.keyError = "API key is required"
		return m, nil
	}
	m.validatingKey = true
	m.keyError = ""
	return m, m.validateKey()
}

func (m WizardModel) updateTokenChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.tokenSelector.Update(msg)
	if m.tokenSelector.Active() {
		return m, nil
	}
	if m.tokenSelector.Cancelled() {
		m.tokenSelector = ui.NewSelector("Admin API token", tokenChoices)
		if m.status.HasProvider {
			return m, nil
		}
		m.resetProviderSelector()
		m.step = StepProviderSelect
		return m, nil
	}

	if m.tokenSelector.Selected() == "issue" {
		m.step = StepTokenName
		cmd := m.tokenNameInput.Focus()
		return m, cmd
	}
	m.step = StepComplete
	return m, nil
}

func (m WizardModel) View() string {
	if m.quitting {
		if m.result != nil && m.result.Cancelled {
			return ui.DimStyle.Render("\n  Setup cancelled.\n\n")
		}
		return ""
	}

	var b strings.Builder
	if m.step > StepWelcome && m.step < StepComplete {
		b.WriteString("\n")
		b.WriteString(m.renderProgress())
		b.WriteString("\n")
	}

	switch m.step {
	case StepWelcome:
		b.WriteString(m.viewWelcome())
	case StepProviderSelect:
		b.WriteString("\n" + m.providerSelector.View())
	case StepProviderKey:
		b.WriteString(m.viewProviderKey())
	case StepTokenChoice:
		b.WriteString(m.viewTokenChoice())
	case StepTokenName:
		b.WriteString(m.viewTokenName())
	case StepComplete:
		b.WriteString(m.viewComplete())
	}
	return b.String()
}

func (m WizardModel) renderProgress() string {
	current := 1
	switch m.step {
	case StepTokenChoice, StepTokenName:
		current = 2
	case StepComplete:
		current = 3
	}
	bar := m.progress.ViewAs(float64(current) / float64(totalSteps))
	return fmt.Sprintf("  %s\n%s", bar, ui.DimStyle.Render("  Provider      API token     Ready"))
}

func (m WizardModel) viewWelcome() string {
	body := ui.TitleStyle.Render("Welcome to sitepilot") + "\n" +
		ui.DimStyle.Render("Edit your clinic site by describing what you want") + "\n\n"
	hint := "  Press Enter to continue..."

	if m.envKeyProvider != "" {
		body += ui.SuccessStyle.Render(fmt.Sprintf("%s Found %s in environment!", ui.SymbolCheck, llm.EnvVarForProvider(m.envKeyProvider))) +
			"\n" + fmt.Sprintf("  Using: %s", m.providerName(m.envKeyProvider))
		hint = "  Press Enter to continue with the detected key..."
	} else {
		body += "Let's connect a language model."
	}
	return "\n\n" + ui.BoxStyle.Render(body) + "\n\n" + ui.HelpStyle.Render(hint)
}

func (m WizardModel) viewProviderKey() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ui.TitleStyle.Render(fmt.Sprintf("  Enter %s API Key", m.providerName(m.selectedProvider))))
	b.WriteString("\n\n")
	if help, ok := auth.GetProviderHelp(m.selectedProvider); ok {
		b.WriteString(ui.DimStyle.Render(fmt.Sprintf("  Get your key at: %s\n\n", help.KeyURL)))
	}

	b.WriteString("  ")
	b.WriteString(m.apiKeyInput.View())
	b.WriteString("\n")

	if m.validatingKey {
		b.WriteString(fmt.Sprintf("\n  %s Testing connection...\n", m.spinner.View()))
	} else if m.keyError != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", ui.ErrorStyle.Render(ui.SymbolCross+" "+m.keyError)))
	}

	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("  Enter to validate • Esc back"))
	return b.String()
}

func (m WizardModel) viewTokenChoice() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ui.DimStyle.Render("  The HTTP API needs a bearer token to save pages,\n"))
	b.WriteString(ui.DimStyle.Render("  run goals, upload media and read the audit log.\n\n"))
	b.WriteString(m.tokenSelector.View())
	return b.String()
}

func (m WizardModel) viewTokenName() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ui.TitleStyle.Render("  Name this token"))
	b.WriteString("\n\n  ")
	b.WriteString(m.tokenNameInput.View())
	b.WriteString("\n")
	if m.issuingToken {
		b.WriteString(fmt.Sprintf("\n  %s Issuing token...\n", m.spinner.View()))
	} else if m.tokenError != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", ui.ErrorStyle.Render(ui.SymbolCross+" "+m.tokenError)))
	}
	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("  Enter to issue • Esc back"))
	return b.String()
}

func (m WizardModel) viewComplete() string {
	tokenInfo := ui.DimStyle.Render("Not issued")
	switch {
	case m.adminToken != "":
		tokenInfo = m.adminToken + "\n          " + ui.DimStyle.Render("copy it now, it is not shown again")
	case m.status.HasAdminToken:
		tokenInfo = "configured"
	}

	content := fmt.Sprintf(
		"%s\n\n"+
			"Provider: %s\n"+
			"Token:    %s\n\n"+
			"%s\n"+
			"  %s\n"+
			"  %s\n"+
			"  %s",
		ui.TitleStyle.Render("You're all set!"),
		m.providerName(m.selectedProvider),
		tokenInfo,
		ui.DimStyle.Render("Try these:"),
		"\"Rename the home page title to 'Spring Sale'\"",
		"\"Add a pricing table to the services page\"",
		"\"How is the SEO on the home page?\"",
	)
	return "\n\n" + ui.BoxStyle.Render(content) + "\n\n" + ui.HelpStyle.Render("  Press Enter to start sitepilot...")
}

func (m WizardModel) providerName(id llm.ProviderID) string {
	help, _ := auth.GetProviderHelp(id)
	return help.Label
}

// Result is set once the wizard has quit.
func (m WizardModel) Result() *Result {
	return m.result
}

// RunWizard runs the wizard full screen. It returns without showing anything
// when dataDir is already fully configured.
func RunWizard(dataDir string) (*Result, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	m := NewWizard(dataDir, nil)
	if m.step == StepComplete {
		return &Result{ProviderID: m.selectedProvider}, nil
	}

	final, err := tea.NewProgram(*m, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(WizardModel).Result(), nil
}
