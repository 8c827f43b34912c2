package llm

const veniceBaseURL = "https://api.venice.ai/api/v1"

// VeniceModels lists available Venice models
var VeniceModels = []Model{
	{
		ID:            "llama-3.3-70b",
		Name:          "Llama 3.3 70B",
		ContextWindow: 128000,
		InputCost:     0.0, // Venice pricing may differ
		OutputCost:    0.0,
		SupportsTools: true,
	},
	{
		ID:            "llama-3.1-405b",
		Name:          "Llama 3.1 405B",
		ContextWindow: 128000,
		InputCost:     0.0,
		OutputCost:    0.0,
		SupportsTools: true,
	},
	{
		ID:            "deepseek-r1-671b",
		Name:          "DeepSeek R1",
		ContextWindow: 64000,
		InputCost:     0.0,
		OutputCost:    0.0,
		SupportsTools: false,
	},
}

// NewVeniceProvider creates a new Venice provider. Venice uses an
// OpenAI-compatible API.
func NewVeniceProvider(apiKey string, model string) (*OpenAICompatProvider, error) {
	return newOpenAICompatProvider(apiKey, model, veniceBaseURL, ProviderVenice, "Venice AI", VeniceModels, "llama-3.3-70b")
}
