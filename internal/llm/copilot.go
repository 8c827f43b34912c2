package llm

const copilotBaseURL = "https://api.githubcopilot.com"

// CopilotModels lists chat models served through a Copilot subscription.
var CopilotModels = []Model{
	{
		ID:            "gpt-4o",
		Name:          "GPT-4o (Copilot)",
		ContextWindow: 128000,
		InputCost:     0.0, // Included in the subscription
		OutputCost:    0.0,
		SupportsTools: true,
	},
	{
		ID:            "claude-3.5-sonnet",
		Name:          "Claude 3.5 Sonnet (Copilot)",
		ContextWindow: 200000,
		InputCost:     0.0,
		OutputCost:    0.0,
		SupportsTools: true,
	},
}

// NewCopilotProvider creates a GitHub Copilot provider. Copilot speaks the
// OpenAI chat API; the key is a Copilot access token stored like any other
// provider key.
func NewCopilotProvider(token string, model string) (*OpenAICompatProvider, error) {
	return newOpenAICompatProvider(token, model, copilotBaseURL, ProviderCopilot, "GitHub Copilot", CopilotModels, "gpt-4o")
}
