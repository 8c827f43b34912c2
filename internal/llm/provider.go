package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ProviderID represents a unique provider identifier
type ProviderID string

const (
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderOpenAI     ProviderID = "openai"
	ProviderVenice     ProviderID = "venice"
	ProviderGemini     ProviderID = "gemini"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderCopilot    ProviderID = "copilot"
)

// Provider is the interface all LLM providers must implement
type Provider interface {
	// ID returns the unique provider identifier
	ID() ProviderID

	// Name returns the human-readable provider name
	Name() string

	// Chat sends the full conversation history and returns the next
	// assistant turn: text, tool calls, or both.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// SupportsTools returns true if provider supports tool use
	SupportsTools() bool

	// Models returns available models for this provider
	Models() []Model

	// DefaultModel returns the default model for this provider
	DefaultModel() string

	// SetModel switches the active model. Returns error if model ID is not
	// in the provider's supported model list.
	SetModel(modelID string) error
}

// Model represents an available model
type Model struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ContextWindow int     `json:"context_window"`
	InputCost     float64 `json:"input_cost"`  // per 1M tokens
	OutputCost    float64 `json:"output_cost"` // per 1M tokens
	SupportsTools bool    `json:"supports_tools"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the conversation history. Assistant messages may
// carry tool calls; tool messages answer exactly one call by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant turn from a model response.
func AssistantMessage(resp *ChatResponse) Message {
	return Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls}
}

// ToolMessage builds the history entry answering a tool call.
func ToolMessage(call ToolCall, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		IsError:    isError,
	}
}

// ToolCall represents a tool call from the model
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ChatRequest is a provider-agnostic chat request
type ChatRequest struct {
	SystemPrompt string     `json:"system_prompt"`
	Messages     []Message  `json:"messages"`
	Tools        []Tool     `json:"tools,omitempty"`
	Model        string     `json:"model,omitempty"` // Uses default if empty
	ToolChoice   ToolChoice `json:"tool_choice,omitempty"`
	MaxTokens    int        `json:"max_tokens,omitempty"`
}

// ChatResponse is a provider-agnostic chat response
type ChatResponse struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another response's usage.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
}

// EnvVarForProvider returns the environment variable name for a provider's API key
func EnvVarForProvider(id ProviderID) string {
	switch id {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderVenice:
		return "VENICE_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderCopilot:
		return "GITHUB_COPILOT_TOKEN"
	default:
		return ""
	}
}

// AllProviderIDs returns all known provider IDs in priority order
func AllProviderIDs() []ProviderID {
	return []ProviderID{
		ProviderAnthropic,
		ProviderOpenAI,
		ProviderOpenRouter,
		ProviderGemini,
		ProviderVenice,
		ProviderCopilot,
	}
}

// NewProvider constructs a provider by ID.
func NewProvider(ctx context.Context, id ProviderID, apiKey, model string) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch id {
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(apiKey, model)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(apiKey, model, "")
	case ProviderOpenRouter:
		p, err = NewOpenRouterProvider(apiKey, model)
	case ProviderGemini:
		p, err = NewGeminiProvider(ctx, apiKey, model)
	case ProviderVenice:
		p, err = NewVeniceProvider(apiKey, model)
	case ProviderCopilot:
		p, err = NewCopilotProvider(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ModelSupportsTools reports whether the provider's model list marks modelID
// as tool-capable. Unlisted models are assumed capable.
func ModelSupportsTools(p Provider, modelID string) bool {
	for _, m := range p.Models() {
		if m.ID == modelID {
			return m.SupportsTools
		}
	}
	return true
}

// ValidateModelID checks whether modelID exists in the given model list.
func ValidateModelID(modelID string, models []Model) error {
	for _, m := range models {
		if m.ID == modelID {
			return nil
		}
	}
	return fmt.Errorf("unknown model %q for this provider", modelID)
}
