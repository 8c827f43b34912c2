package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yolodolo42/sitepilot/internal/llm"
)

// State is a phase of the planning loop.
type State string

const (
	StatePlanning      State = "planning"
	StateToolExecution State = "tool_execution"
	StateDone          State = "done"
)

// Event types.
const (
	EventState      = "state"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventContent    = "content"
)

// ErrMaxRoundsExceeded is returned when the model keeps calling tools past the
// configured number of planning steps.
var ErrMaxRoundsExceeded = errors.New("agent exceeded maximum planning rounds")

const defaultMaxRounds = 10

// Event is one observable step of a run (state change, tool call, tool result
// or final content).
type Event struct {
	Type    string    `json:"type"`
	State   State     `json:"state,omitempty"`
	Round   int       `json:"round"`
	Tool    string    `json:"tool,omitempty"`
	Args    string    `json:"args,omitempty"`
	Content string    `json:"content,omitempty"`
	IsError bool      `json:"is_error,omitempty"`
	Blocks  []UIBlock `json:"blocks,omitempty"`
}

// Outcome is what a completed loop produced.
type Outcome struct {
	Output  string
	Rounds  int
	History []llm.Message
	Events  []Event
	Usage   llm.Usage
}

// Loop drives the Planning -> ToolExecution -> Done state machine.
type Loop struct {
	Provider     llm.Provider
	Tools        *Registry
	SystemPrompt string
	Model        string
	MaxTokens    int

	// MaxRounds bounds planning steps; zero means 10.
	MaxRounds int
	// Concurrency bounds sibling tool calls; zero or less runs them one at a time.
	Concurrency int

	Logger *slog.Logger
	// OnEvent is called for every event. Calls never overlap, even when
	// tool calls run concurrently.
	OnEvent func(Event)
}

type runState struct {
	mu     sync.Mutex
	events []Event

	// emitMu serializes onEvent so callbacks see events one at a time, in
	// the order they were recorded.
	emitMu  sync.Mutex
	onEvent func(Event)
}

func (s *runState) emit(e Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

// Run plans until the model answers without tool calls. history must end with
// the user turn to act on; it is not modified.
func (l *Loop) Run(ctx context.Context, history []llm.Message) (*Outcome, error) {
	if l.Provider == nil {
		return nil, fmt.Errorf("agent provider not initialized")
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRounds := l.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}

	msgs := append([]llm.Message(nil), history...)
	st := &runState{onEvent: l.OnEvent}
	out := &Outcome{}

	var tools []llm.Tool
	if l.Tools != nil {
		tools = l.Tools.Tools()
	}

	for round := 1; ; round++ {
		if round > maxRounds {
			out.History, out.Events = msgs, st.events
			return out, fmt.Errorf("%w (%d)", ErrMaxRoundsExceeded, maxRounds)
		}
		out.Rounds = round
		st.emit(Event{Type: EventState, State: StatePlanning, Round: round})

		resp, err := l.Provider.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: l.SystemPrompt,
			Messages:     msgs,
			Tools:        tools,
			Model:        l.Model,
			MaxTokens:    l.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("planning round %d: %w", round, err)
		}
		out.Usage.Add(resp.Usage)
		msgs = append(msgs, llm.AssistantMessage(resp))

		if len(resp.ToolCalls) == 0 {
			st.emit(Event{Type: EventContent, Round: round, Content: resp.Content})
			st.emit(Event{Type: EventState, State: StateDone, Round: round})
			out.Output = resp.Content
			out.History, out.Events = msgs, st.events
			return out, nil
		}

		st.emit(Event{Type: EventState, State: StateToolExecution, Round: round})
		logger.Debug("executing tool calls", "round", round, "count", len(resp.ToolCalls))
		msgs = append(msgs, l.execute(ctx, round, resp.ToolCalls, st)...)
	}
}

// execute runs one round of tool calls concurrently and returns their result
// messages in call order. Handler failures become "Error: ..." results.
func (l *Loop) execute(ctx context.Context, round int, calls []llm.ToolCall, st *runState) []llm.Message {
	results := make([]llm.Message, len(calls))

	var g errgroup.Group
	limit := l.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, call := range calls {
		g.Go(func() error {
			st.emit(Event{Type: EventToolCall, Round: round, Tool: call.Name, Args: RedactJSONArgs(string(call.Input))})

			var (
				content string
				err     error
			)
			if l.Tools == nil {
				err = fmt.Errorf("unknown tool: %s", call.Name)
			} else {
				content, err = l.Tools.Execute(ctx, call.Name, call.Input)
			}

			ev := Event{Type: EventToolResult, Round: round, Tool: call.Name}
			if err != nil {
				content = fmt.Sprintf("Error: %v", err)
				ev.IsError = true
			} else if spec, ok := l.Tools.Spec(call.Name); ok && spec.Render != nil {
				ev.Blocks = spec.Render(content)
			}
			ev.Content = content
			st.emit(ev)

			results[i] = llm.ToolMessage(call, content, err != nil)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
