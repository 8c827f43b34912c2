package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/config"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/store"
	"github.com/yolodolo42/sitepilot/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive goal REPL",
	Long: `Start an interactive session. Each line is a goal; the conversation is kept
between goals so follow-ups like "make it shorter" work.

Use /page <id|slug> to attach a page as context, /help for commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runChat(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

type chatRole int

const (
	roleSystem chatRole = iota
	roleUser
	roleAssistant
	roleTool
	roleError
)

type chatLine struct {
	role    chatRole
	content string
}

// chatModel is the REPL state.
type chatModel struct {
	runner *agent.Runner
	repo   store.Repository
	conv   *agent.Conversation

	prompt   ui.Prompt
	viewport viewport.Model
	spinner  spinner.Model
	lines    []chatLine
	loading  bool
	started  time.Time
	width    int
	height   int
	ready    bool
	quitting bool
}

type eventMsg agent.Event

type goalDoneMsg struct {
	res *agent.RunResult
	err error
}

func newChatModel(runner *agent.Runner, repo store.Repository) chatModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.SpinnerStyle

	return chatModel{
		runner:  runner,
		repo:    repo,
		conv:    agent.NewConversation(),
		prompt:  ui.NewPrompt("Describe a change to the site..."),
		spinner: sp,
		width:   80,
		lines: []chatLine{{
			role:    roleSystem,
			content: "Welcome to sitepilot! Describe a change to the site.\nUse /page <slug> to focus a page, /help for commands, /quit to exit.",
		}},
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.prompt.Submit())
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.add(roleUser, input)
			m.loading = true
			m.started = time.Now()
			return m, m.sendGoal(input)

		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-5)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 5
		}
		m.prompt.SetWidth(msg.Width)
		m.refresh()

	case eventMsg:
		if line := formatEvent(agent.Event(msg), m.width-2); line != "" {
			m.add(roleTool, line)
		}
		return m, nil

	case goalDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.add(roleError, describeRunError(msg.err))
			return m, nil
		}
		m.add(roleAssistant, ui.RenderMarkdown(msg.res.Output, m.width-4))
		m.add(roleSystem, fmt.Sprintf("%d rounds • %s", msg.res.Rounds, time.Since(m.started).Round(100*time.Millisecond)))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if !m.loading {
		_, cmd := m.prompt.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m chatModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder
	header := "  sitepilot"
	if page := m.conv.Page(); page != "" {
		header += " • page " + page
	}
	b.WriteString(ui.TitleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.loading {
		b.WriteString(fmt.Sprintf("  %s Working...", m.spinner.View()))
	} else {
		b.WriteString(m.prompt.View())
	}
	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("  /help • /page • /model • /clear • /quit • PgUp/PgDn scroll"))
	return b.String()
}

func (m *chatModel) add(role chatRole, content string) {
	m.lines = append(m.lines, chatLine{role: role, content: content})
	m.refresh()
}

func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, l := range m.lines {
		switch l.role {
		case roleUser:
			b.WriteString(ui.UserStyle.Render("You: "))
			b.WriteString(l.content)
		case roleAssistant:
			b.WriteString(ui.AssistantStyle.Render("sitepilot:"))
			b.WriteString("\n")
			b.WriteString(l.content)
		case roleTool:
			b.WriteString(l.content)
			b.WriteString("\n")
			continue
		case roleError:
			b.WriteString(ui.ErrorStyle.Render("Error: "))
			b.WriteString(l.content)
		default:
			b.WriteString(ui.HelpStyle.Render(l.content))
		}
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

const chatHelp = `Commands:
  /page <id|slug>  Send this page as context with every goal
  /page            Show the current page, /page - to clear it
  /model           List models for the provider
  /model <id>      Switch model (clears the conversation)
  /tools           List the agent's tools
  /clear           Start a new conversation
  /quit, /exit     Leave

Examples:
  "Rename the home page title to 'Spring Sale'"
  "Add a pricing table to the services page"
  "How is the SEO on the home page?"`

func (m chatModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(input, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		m.quitting = true
		return m, tea.Quit

	case "/clear":
		m.conv.Reset()
		m.lines = []chatLine{{role: roleSystem, content: "Conversation cleared."}}
		m.refresh()

	case "/page":
		m.setPage(arg)

	case "/model":
		m.handleModel(arg)

	case "/tools":
		m.add(roleSystem, "Tools: "+strings.Join(m.runner.Tools.Names(), ", "))

	case "/help", "/?":
		m.add(roleSystem, chatHelp)

	default:
		m.add(roleError, fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
	return m, nil
}

func (m *chatModel) setPage(ref string) {
	switch ref {
	case "":
		if page := m.conv.Page(); page != "" {
			m.add(roleSystem, "Current page: "+page)
		} else {
			m.add(roleSystem, "No page selected. Usage: /page <id|slug>")
		}
		return
	case "-":
		m.conv.SetPage("")
		m.add(roleSystem, "Page context cleared.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	page, err := m.repo.GetPage(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		page, err = m.repo.GetPageBySlug(ctx, ref)
	}
	if err != nil {
		m.add(roleError, fmt.Sprintf("Page %q not found.", ref))
		return
	}
	m.conv.SetPage(page.ID)
	m.add(roleSystem, fmt.Sprintf("Page context: %s (%s)", page.Title, page.Slug))
}

func (m *chatModel) handleModel(id string) {
	provider := m.runner.Provider
	current := m.runner.Model
	if current == "" {
		current = provider.DefaultModel()
	}

	if id == "" {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Models for %s:\n", provider.Name()))
		for _, md := range provider.Models() {
			marker := "  "
			if md.ID == current {
				marker = ui.SymbolArrow + " "
			}
			tag := ""
			if !md.SupportsTools {
				tag = " (no tool support)"
			}
			b.WriteString(fmt.Sprintf("  %s%-30s %s%s\n", marker, md.ID, md.Name, tag))
		}
		b.WriteString(fmt.Sprintf("\nActive: %s\nUsage: /model <id>", current))
		m.add(roleSystem, b.String())
		return
	}

	if err := provider.SetModel(id); err != nil {
		m.add(roleError, fmt.Sprintf("Failed to switch model: %v", err))
		return
	}
	if !modelSupportsTools(provider, id) {
		m.add(roleError, fmt.Sprintf("%s does not support tools; goals need tool calls.", id))
	}
	m.runner.Model = id
	m.conv.Reset()
	m.add(roleSystem, fmt.Sprintf("Switched to %s. Conversation cleared.", id))
}

func modelSupportsTools(p llm.Provider, id string) bool {
	for _, md := range p.Models() {
		if md.ID == id {
			return md.SupportsTools
		}
	}
	return p.SupportsTools()
}

func (m chatModel) sendGoal(goal string) tea.Cmd {
	runner, conv := m.runner, m.conv
	return func() tea.Msg {
		res, err := runner.Continue(context.Background(), conv, goal)
		return goalDoneMsg{res: res, err: err}
	}
}

// describeRunError turns run failures into a line the user can act on.
func describeRunError(err error) string {
	switch {
	case errors.Is(err, agent.ErrPageNotFound):
		return err.Error() + ". Use /page with an existing id or slug."
	case errors.Is(err, agent.ErrMaxRoundsExceeded):
		return "The agent kept calling tools without finishing. Try a narrower goal."
	case errors.Is(err, context.DeadlineExceeded):
		return "The run timed out (agent.run_timeout)."
	}
	return err.Error()
}

func runChat(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

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

	p := tea.NewProgram(newChatModel(runner, repo), tea.WithAltScreen())
	runner.OnEvent = func(e agent.Event) { p.Send(eventMsg(e)) }

	_, err = p.Run()
	return err
}
