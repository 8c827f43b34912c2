package auth

import "github.com/yolodolo42/sitepilot/internal/llm"

// ProviderHelp tells the user where to get a key.
type ProviderHelp struct {
	Label  string
	KeyURL string
	EnvVar string
}

var providerHelp = map[llm.ProviderID]ProviderHelp{
	llm.ProviderAnthropic:  {Label: "Anthropic", KeyURL: "console.anthropic.com"},
	llm.ProviderOpenAI:     {Label: "OpenAI", KeyURL: "platform.openai.com/api-keys"},
	llm.ProviderGemini:     {Label: "Google Gemini", KeyURL: "aistudio.google.com/apikey"},
	llm.ProviderOpenRouter: {Label: "OpenRouter", KeyURL: "openrouter.ai/settings/keys"},
	llm.ProviderVenice:     {Label: "Venice AI", KeyURL: "venice.ai"},
	llm.ProviderCopilot:    {Label: "GitHub Copilot", KeyURL: "github.com/settings/copilot"},
}

// GetProviderHelp returns key instructions for a provider. ok is false for
// unknown providers.
func GetProviderHelp(providerID llm.ProviderID) (ProviderHelp, bool) {
	help, ok := providerHelp[providerID]
	if !ok {
		return ProviderHelp{Label: string(providerID)}, false
	}
	help.EnvVar = llm.EnvVarForProvider(providerID)
	return help, true
}
