package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yolodolo42/sitepilot/internal/config"
	"github.com/yolodolo42/sitepilot/internal/domain"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/store"
)

var (
	// ErrEmptyGoal is returned before any store or model call when the goal
	// text is blank.
	ErrEmptyGoal = errors.New("goal is required")
	// ErrPageNotFound is returned when the page context cannot be resolved.
	ErrPageNotFound = errors.New("page not found")
)

// SystemPrompt is the default instruction for site-editing runs.
const SystemPrompt = `You are sitepilot, an editor agent for a wellness clinic's marketing website.
You change page content, SEO metadata and marketing automations by calling tools.

## How to work
- Read before writing: call get_page_content and get_site_context before editing copy.
- Keep the brand tone from the site context.
- Section content shapes depend on the section key; keep existing fields you do not change.
- Use find_similar_components when asked for a new kind of block.
- If a tool result starts with "Error:", read it, adjust and try again or explain the problem.

## Response style
- When you are done, reply with a short summary of what changed. Do not call more tools.`

// RunResult is the outcome of one goal run.
type RunResult struct {
	RunID  string    `json:"run_id"`
	Output string    `json:"result"`
	Rounds int       `json:"rounds"`
	Events []Event   `json:"events,omitempty"`
	Usage  llm.Usage `json:"usage"`
}

// Runner runs goals against the site through a tool registry.
type Runner struct {
	Repo     store.Repository
	Provider llm.Provider
	Tools    *Registry
	Agent    config.AgentConfig

	Model        string
	MaxTokens    int
	SystemPrompt string

	// RunsDir receives a JSONL transcript per run when Agent.Transcripts is set.
	RunsDir string
	Logger  *slog.Logger
	OnEvent func(Event)
}

// NewRunner wires a runner with the full tool registry.
func NewRunner(repo store.Repository, provider llm.Provider, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Repo:     repo,
		Provider: provider,
		Tools:    NewRegistry(Deps{Repo: repo, AgentName: cfg.Agent.Name, Logger: logger}),
		Agent:    cfg.Agent,
		Model:    cfg.LLM.Model,
		RunsDir:  cfg.RunsDir(),
		Logger:   logger,

		MaxTokens:    cfg.LLM.MaxTokens,
		SystemPrompt: SystemPrompt,
	}
}

// RunGoal runs a single goal from an empty history. pageID may be a page ID
// or slug; when set, the page and its sections are sent with the goal.
func (r *Runner) RunGoal(ctx context.Context, goal, pageID string) (*RunResult, error) {
	res, _, err := r.run(ctx, nil, goal, pageID)
	return res, err
}

// Continue runs a goal on top of a conversation and stores the resulting
// history back into it on success.
func (r *Runner) Continue(ctx context.Context, conv *Conversation, goal string) (*RunResult, error) {
	res, history, err := r.run(ctx, conv.History(), goal, conv.Page())
	if err != nil {
		return nil, err
	}
	conv.Replace(history)
	return res, nil
}

func (r *Runner) run(ctx context.Context, history []llm.Message, goal, pageID string) (*RunResult, []llm.Message, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, nil, ErrEmptyGoal
	}
	logger := r.logger()

	seed, err := r.seedMessage(ctx, goal, pageID)
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	if r.Agent.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Agent.RunTimeout)
		defer cancel()
	}
	ctx = WithGoal(ctx, goal)

	var tr *transcript
	if r.Agent.Transcripts && r.RunsDir != "" {
		tr, err = openTranscript(r.RunsDir, runID)
		if err != nil {
			logger.Warn("transcript disabled", "err", err)
			tr = nil
		} else {
			defer tr.Close()
			tr.write(transcriptRecord{
				Type:     "run_start",
				Goal:     goal,
				PageID:   pageID,
				Provider: string(r.Provider.ID()),
				Model:    r.model(),
			})
		}
	}

	loop := &Loop{
		Provider:     r.Provider,
		Tools:        r.Tools,
		SystemPrompt: r.SystemPrompt,
		Model:        r.Model,
		MaxTokens:    r.MaxTokens,
		MaxRounds:    r.Agent.MaxRounds,
		Concurrency:  r.Agent.ToolConcurrency,
		Logger:       logger,
		OnEvent: func(e Event) {
			if tr != nil {
				tr.write(eventRecord(e))
			}
			if r.OnEvent != nil {
				r.OnEvent(e)
			}
		},
	}

	start := time.Now()
	logger.Info("goal run started", "page", pageID)
	out, err := loop.Run(ctx, append(history, seed))
	if err != nil {
		if tr != nil {
			tr.write(transcriptRecord{Type: "run_error", Text: err.Error()})
		}
		logger.Error("goal run failed", "err", err, "elapsed", time.Since(start))
		return nil, nil, err
	}
	logger.Info("goal run finished", "rounds", out.Rounds, "elapsed", time.Since(start),
		"input_tokens", out.Usage.InputTokens, "output_tokens", out.Usage.OutputTokens)

	return &RunResult{
		RunID:  runID,
		Output: out.Output,
		Rounds: out.Rounds,
		Events: out.Events,
		Usage:  out.Usage,
	}, out.History, nil
}

// seedMessage builds the user turn: the goal, followed by the page and its
// sections as a JSON context object when a page is given.
func (r *Runner) seedMessage(ctx context.Context, goal, pageID string) (llm.Message, error) {
	if pageID == "" {
		return llm.UserMessage(goal), nil
	}

	page, err := r.resolvePage(ctx, pageID)
	if err != nil {
		return llm.Message{}, err
	}
	sections, err := r.Repo.ListSections(ctx, page.ID)
	if err != nil {
		return llm.Message{}, fmt.Errorf("load sections: %w", err)
	}

	b, err := json.Marshal(pageContent{Page: *page, Sections: sections})
	if err != nil {
		return llm.Message{}, err
	}
	return llm.UserMessage(goal + "\n\nContext:\n" + string(b)), nil
}

func (r *Runner) resolvePage(ctx context.Context, ref string) (*domain.Page, error) {
	page, err := r.Repo.GetPage(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		page, err = r.Repo.GetPageBySlug(ctx, ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	return page, nil
}

func (r *Runner) model() string {
	if r.Model != "" {
		return r.Model
	}
	return r.Provider.DefaultModel()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
