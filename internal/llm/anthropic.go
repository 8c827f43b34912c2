package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// AnthropicModels lists available Anthropic models
var AnthropicModels = []Model{
	{
		ID:            "claude-sonnet-4-20250514",
		Name:          "Claude Sonnet 4",
		ContextWindow: 200000,
		InputCost:     3.0,
		OutputCost:    15.0,
		SupportsTools: true,
	},
	{
		ID:            "claude-3-5-sonnet-20241022",
		Name:          "Claude 3.5 Sonnet",
		ContextWindow: 200000,
		InputCost:     3.0,
		OutputCost:    15.0,
		SupportsTools: true,
	},
	{
		ID:            "claude-3-5-haiku-20241022",
		Name:          "Claude 3.5 Haiku",
		ContextWindow: 200000,
		InputCost:     0.80,
		OutputCost:    4.0,
		SupportsTools: true,
	},
	{
		ID:            "claude-3-opus-20240229",
		Name:          "Claude 3 Opus",
		ContextWindow: 200000,
		InputCost:     15.0,
		OutputCost:    75.0,
		SupportsTools: true,
	},
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(apiKey)

	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	return &AnthropicProvider{
		client: client,
		model:  model,
	}, nil
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() ProviderID {
	return ProviderAnthropic
}

// Name returns the human-readable provider name
func (p *AnthropicProvider) Name() string {
	return "Anthropic"
}

// SupportsTools returns true - Anthropic supports tool use
func (p *AnthropicProvider) SupportsTools() bool {
	return true
}

// Models returns available models
func (p *AnthropicProvider) Models() []Model {
	return AnthropicModels
}

// DefaultModel returns the default model
func (p *AnthropicProvider) DefaultModel() string {
	return p.model
}

// SetModel switches the active model after validating the ID
func (p *AnthropicProvider) SetModel(modelID string) error {
	if err := ValidateModelID(modelID, p.Models()); err != nil {
		return err
	}
	p.model = modelID
	return nil
}

// Chat sends the conversation history and returns the response
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	// Convert tools to Anthropic format
	anthropicTools := make([]anthropic.ToolDefinition, len(req.Tools))
	for i, tool := range req.Tools {
		anthropicTools[i] = anthropic.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}

	anthropicReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages:  toAnthropicMessages(req.Messages),
	}

	if len(anthropicTools) > 0 {
		anthropicReq.Tools = anthropicTools
		anthropicReq.ToolChoice = toAnthropicToolChoice(req.ToolChoice)
	}

	resp, err := p.client.CreateMessages(ctx, anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	response := &ChatResponse{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	// Parse response content
	for _, content := range resp.Content {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			if content.Text != nil {
				response.Content += *content.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    content.ID,
				Name:  content.Name,
				Input: content.Input,
			})
		}
	}

	return response, nil
}

// toAnthropicMessages converts the history. Anthropic expects tool results
// as user turns, so consecutive tool messages are merged into one.
func toAnthropicMessages(history []Message) []anthropic.Message {
	out := make([]anthropic.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case RoleTool:
			block := anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, msg.IsError)
			if n := len(out); n > 0 && out[n-1].Role == anthropic.RoleUser && isToolResultTurn(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{block},
			})
		case RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Input
				if len(input) == 0 {
					input = []byte("{}")
				}
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, input))
			}
			if len(content) == 0 {
				content = append(content, anthropic.NewTextMessageContent(""))
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
		default:
			out = append(out, anthropic.Message{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(msg.Content),
				},
			})
		}
	}
	return out
}

func isToolResultTurn(m anthropic.Message) bool {
	for _, c := range m.Content {
		if c.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}

func toAnthropicToolChoice(tc ToolChoice) *anthropic.ToolChoice {
	switch tc.Mode {
	case ToolChoiceForce:
		if tc.Name != "" {
			return &anthropic.ToolChoice{Type: "tool", Name: tc.Name}
		}
		return &anthropic.ToolChoice{Type: "any"}
	case ToolChoiceNone:
		return &anthropic.ToolChoice{Type: "none"}
	default:
		return nil
	}
}
