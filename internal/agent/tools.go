package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/store"
)

// Handler executes one tool call. A returned error is reported to the model
// as an "Error: ..." tool result; it never aborts the run.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// ToolSpec binds a tool schema to its handler.
type ToolSpec struct {
	Tool     llm.Tool
	Handler  Handler
	Mutating bool

	// Render optionally turns a successful result into UI blocks.
	Render func(result string) []UIBlock
}

// Registry manages available tools and their handlers
type Registry struct {
	specs map[string]ToolSpec
	order []string
}

// Deps are the collaborators the built-in tools need.
type Deps struct {
	Repo      store.Repository
	AgentName string
	Logger    *slog.Logger
}

// NewRegistry creates a registry with the built-in site tools.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	audit := &Auditor{Repo: deps.Repo, AgentName: deps.AgentName, Logger: deps.Logger}
	t := &siteTools{repo: deps.Repo}

	r := &Registry{specs: make(map[string]ToolSpec)}
	r.Register(ToolSpec{Tool: getPageContentTool, Handler: t.getPageContent, Render: renderPageContent})
	r.Register(ToolSpec{
		Tool:     updateSectionContentTool,
		Handler:  audit.WithAudit(t.updateSectionContent, describeSectionUpdate),
		Mutating: true,
	})
	r.Register(ToolSpec{Tool: addSectionTool, Handler: t.addSection, Mutating: true})
	r.Register(ToolSpec{Tool: getSiteContextTool, Handler: t.getSiteContext})
	r.Register(ToolSpec{Tool: findSimilarComponentsTool, Handler: findSimilarComponents, Render: renderComponents})
	r.Register(ToolSpec{
		Tool:     updatePageSEOTool,
		Handler:  audit.WithAudit(t.updatePageSEO, describeSEOUpdate),
		Mutating: true,
	})
	r.Register(ToolSpec{Tool: analyzeSEOQualityTool, Handler: analyzeSEOQuality, Render: renderSEOReport})
	r.Register(ToolSpec{Tool: setupWhatsAppTool, Handler: setupWhatsAppAutomation})
	r.Register(ToolSpec{Tool: emailSequenceTool, Handler: generateEmailSequence})
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(spec ToolSpec) {
	name := spec.Tool.Name
	if _, exists := r.specs[name]; !exists {
		r.order = append(r.order, name)
	}
	r.specs[name] = spec
}

// Only returns a registry restricted to the named tools. Unknown names are
// ignored.
func (r *Registry) Only(names ...string) *Registry {
	out := &Registry{specs: make(map[string]ToolSpec)}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for _, name := range r.order {
		if keep[name] {
			out.Register(r.specs[name])
		}
	}
	return out
}

// Tools returns the tool schemas in registration order.
func (r *Registry) Tools() []llm.Tool {
	tools := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.specs[name].Tool)
	}
	return tools
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Spec looks up a tool by name.
func (r *Registry) Spec(name string) (ToolSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Execute executes a tool by name with the given input
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	spec, ok := r.specs[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	return spec.Handler(ctx, input)
}

// decodeInput unmarshals tool arguments.
func decodeInput(input json.RawMessage, v any) error {
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
