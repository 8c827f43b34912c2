package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// history is a two-call round: user goal, assistant calls two tools, both
// results come back, one of them an error.
func history() []Message {
	calls := []ToolCall{
		{ID: "call_1", Name: "get_page_content", Input: json.RawMessage(`{"slug":"home"}`)},
		{ID: "call_2", Name: "get_site_context", Input: nil},
	}
	return []Message{
		UserMessage("Add a Spring Sale banner"),
		{Role: RoleAssistant, Content: "Let me look.", ToolCalls: calls},
		ToolMessage(calls[0], `{"page":{}}`, false),
		ToolMessage(calls[1], "Error: boom", true),
	}
}

func TestToAnthropicMessages(t *testing.T) {
	msgs := toAnthropicMessages(history())
	require.Len(t, msgs, 3)

	assert.Equal(t, anthropic.RoleUser, msgs[0].Role)

	assert.Equal(t, anthropic.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 3)
	assert.Equal(t, anthropic.MessagesContentTypeText, msgs[1].Content[0].Type)
	assert.Equal(t, anthropic.MessagesContentTypeToolUse, msgs[1].Content[1].Type)
	assert.JSONEq(t, `{}`, string(msgs[1].Content[2].Input))

	// Both results share one user turn.
	assert.Equal(t, anthropic.RoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	assert.Equal(t, anthropic.MessagesContentTypeToolResult, msgs[2].Content[0].Type)
	assert.Equal(t, anthropic.MessagesContentTypeToolResult, msgs[2].Content[1].Type)
}

func TestToAnthropicToolChoice(t *testing.T) {
	assert.Nil(t, toAnthropicToolChoice(ToolChoice{}))
	assert.Equal(t, "tool", toAnthropicToolChoice(ToolChoice{Mode: ToolChoiceForce, Name: "x"}).Type)
	assert.Equal(t, "any", toAnthropicToolChoice(ToolChoice{Mode: ToolChoiceForce}).Type)
	assert.Equal(t, "none", toAnthropicToolChoice(ToolChoice{Mode: ToolChoiceNone}).Type)
}

func TestToOpenAIMessages(t *testing.T) {
	msgs := toOpenAIMessages("be brief", history())
	require.Len(t, msgs, 5)

	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)

	assistant := msgs[2]
	assert.Equal(t, openai.ChatMessageRoleAssistant, assistant.Role)
	require.Len(t, assistant.ToolCalls, 2)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, `{"slug":"home"}`, assistant.ToolCalls[0].Function.Arguments)
	assert.Equal(t, "{}", assistant.ToolCalls[1].Function.Arguments)

	assert.Equal(t, openai.ChatMessageRoleTool, msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Equal(t, "call_2", msgs[4].ToolCallID)
	assert.Equal(t, "Error: boom", msgs[4].Content)
}

func TestToOpenAIMessages_NoSystem(t *testing.T) {
	msgs := toOpenAIMessages("", []Message{UserMessage("hi")})
	require.Len(t, msgs, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[0].Role)
}

func TestMapToolChoice(t *testing.T) {
	assert.Nil(t, mapToolChoice(ToolChoice{}, false))
	assert.Equal(t, "auto", mapToolChoice(ToolChoice{}, true))
	assert.Equal(t, "none", mapToolChoice(ToolChoice{Mode: ToolChoiceNone}, true))
	assert.Nil(t, mapToolChoice(ToolChoice{Mode: ToolChoiceForce}, true))

	forced, ok := mapToolChoice(ToolChoice{Mode: ToolChoiceForce, Name: "add_section"}, true).(openai.ToolChoice)
	require.True(t, ok)
	assert.Equal(t, "add_section", forced.Function.Name)
}

func TestToGeminiContents(t *testing.T) {
	contents := toGeminiContents(history())
	require.Len(t, contents, 3)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 3)
	call, ok := contents[1].Parts[1].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "get_page_content", call.Name)
	assert.Equal(t, "home", call.Args["slug"])

	assert.Equal(t, "function", contents[2].Role)
	require.Len(t, contents[2].Parts, 2)
	resp, ok := contents[2].Parts[1].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "get_site_context", resp.Name)
	assert.Equal(t, true, resp.Response["is_error"])
}

func TestConvertToSchema(t *testing.T) {
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"properties": {
			"steps": {"type": "array", "items": {"type": "string"}},
			"content": {"type": "object", "properties": {"heading": {"type": "string"}}},
			"tags": {"type": "array"}
		},
		"required": ["steps"]
	}`), &params))

	schema := convertToSchema(params)
	require.NotNil(t, schema)
	assert.Equal(t, []string{"steps"}, schema.Required)
	assert.Equal(t, genai.TypeArray, schema.Properties["steps"].Type)
	assert.Equal(t, genai.TypeString, schema.Properties["steps"].Items.Type)
	assert.Equal(t, genai.TypeString, schema.Properties["tags"].Items.Type)
	assert.Equal(t, genai.TypeString, schema.Properties["content"].Properties["heading"].Type)
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("requires api key", func(t *testing.T) {
		for _, id := range []ProviderID{ProviderAnthropic, ProviderOpenAI, ProviderOpenRouter, ProviderVenice, ProviderGemini, ProviderCopilot} {
			_, err := NewProvider(ctx, id, "", "")
			assert.Error(t, err, string(id))
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider(ctx, ProviderID("mistral"), "k", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("compat providers carry identity", func(t *testing.T) {
		p, err := NewProvider(ctx, ProviderOpenRouter, "k", "")
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenRouter, p.ID())
		assert.Equal(t, "anthropic/claude-3.5-sonnet", p.DefaultModel())

		p, err = NewProvider(ctx, ProviderVenice, "k", "")
		require.NoError(t, err)
		assert.Equal(t, "Venice AI", p.Name())
		assert.Error(t, p.SetModel("gpt-4o"))
		assert.NoError(t, p.SetModel("llama-3.1-405b"))
		assert.Equal(t, "llama-3.1-405b", p.DefaultModel())
	})

	t.Run("copilot uses the copilot endpoint", func(t *testing.T) {
		p, err := NewProvider(ctx, ProviderCopilot, "gho_token", "")
		require.NoError(t, err)
		assert.Equal(t, ProviderCopilot, p.ID())
		assert.Equal(t, "GitHub Copilot", p.Name())
		assert.Equal(t, "gpt-4o", p.DefaultModel())
		assert.Equal(t, copilotBaseURL, p.(*OpenAICompatProvider).baseURL)
		assert.NoError(t, p.SetModel("claude-3.5-sonnet"))
		assert.Error(t, p.SetModel("llama-3.3-70b"))
	})
}

func TestModelSupportsTools(t *testing.T) {
	p, err := NewVeniceProvider("k", "")
	require.NoError(t, err)

	assert.True(t, ModelSupportsTools(p, "llama-3.3-70b"))
	assert.False(t, ModelSupportsTools(p, "deepseek-r1-671b"))
	assert.True(t, ModelSupportsTools(p, "unlisted"))
}

func TestEnvVarForProvider(t *testing.T) {
	tests := []struct {
		provider ProviderID
		expected string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderVenice, "VENICE_API_KEY"},
		{ProviderGemini, "GOOGLE_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderCopilot, "GITHUB_COPILOT_TOKEN"},
		{ProviderID("unknown"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			result := EnvVarForProvider(tt.provider)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAllProviderIDs(t *testing.T) {
	ids := AllProviderIDs()
	assert.Len(t, ids, 6)
	assert.Equal(t, ProviderAnthropic, ids[0])
	assert.Contains(t, ids, ProviderCopilot)
}

func TestValidateModelID(t *testing.T) {
	assert.NoError(t, ValidateModelID("gpt-4o", OpenAIModels))
	assert.Error(t, ValidateModelID("gpt-99", OpenAIModels))
}

func TestUsage_Add(t *testing.T) {
	var u Usage
	u.Add(Usage{InputTokens: 10, OutputTokens: 5})
	u.Add(Usage{InputTokens: 1, OutputTokens: 2})
	assert.Equal(t, Usage{InputTokens: 11, OutputTokens: 7}, u)
}

func TestNewTool(t *testing.T) {
	tool := NewTool("get_site_context", "Read brand context", JSONSchema{Type: "object", Properties: map[string]Property{}})
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(tool.InputSchema))
}
