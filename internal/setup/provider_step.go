package setup

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yolodolo42/sitepilot/internal/auth"
	"github.com/yolodolo42/sitepilot/internal/llm"
)

// ProviderFactory builds a provider for key validation. Tests swap it out.
type ProviderFactory func(ctx context.Context, id llm.ProviderID, apiKey string) (llm.Provider, error)

func defaultFactory(ctx context.Context, id llm.ProviderID, apiKey string) (llm.Provider, error) {
	return llm.NewProvider(ctx, id, apiKey, "")
}

// validateKey makes one tiny chat call with the entered key.
func (m WizardModel) validateKey() tea.Cmd {
	apiKey := m.apiKeyInput.Value()
	id := m.selectedProvider
	factory := m.factory

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		provider, err := factory(ctx, id, apiKey)
		if err != nil {
			return keyValidatedMsg{err: err}
		}
		if c, ok := provider.(io.Closer); ok {
			defer c.Close()
		}

		_, err = provider.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: "You are a connection test.",
			Messages:     []llm.Message{llm.UserMessage("Reply with ok.")},
			MaxTokens:    10,
		})
		if err != nil {
			return keyValidatedMsg{err: fmt.Errorf("API test failed: %w", err)}
		}
		return keyValidatedMsg{success: true}
	}
}

// saveProviderKey stores the key and makes the provider the default.
func (m WizardModel) saveProviderKey() error {
	manager, err := auth.NewManager(m.dataDir, nil)
	if err != nil {
		return fmt.Errorf("open credentials: %w", err)
	}
	if err := manager.SetAPIKey(m.selectedProvider, m.apiKeyInput.Value()); err != nil {
		return fmt.Errorf("save API key: %w", err)
	}
	if err := manager.SetDefaultProvider(m.selectedProvider); err != nil {
		return fmt.Errorf("set default provider: %w", err)
	}
	return nil
}
