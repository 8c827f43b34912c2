package llm

import (
	"encoding/json"
)

// Tool represents a tool that can be called by the LLM
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// NewTool creates a new tool definition
func NewTool(name, description string, schema interface{}) Tool {
	schemaBytes, _ := json.Marshal(schema)
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: schemaBytes,
	}
}

// Common JSON Schema types for tool definitions
type JSONSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Default     any       `json:"default,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// ToolChoiceMode controls whether the model may, must or must not call tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto  ToolChoiceMode = ""
	ToolChoiceNone  ToolChoiceMode = "none"
	ToolChoiceForce ToolChoiceMode = "force"
)

// ToolChoice is the zero value for "auto". Force with an empty Name means
// "call any tool" where the provider supports it.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode,omitempty"`
	Name string         `json:"name,omitempty"`
}
