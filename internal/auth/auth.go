package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/yolodolo42/sitepilot/internal/llm"
)

// ErrInvalidToken is returned when an admin bearer token does not verify.
var ErrInvalidToken = errors.New("invalid admin token")

const tokenPrefix = "sp_"

// Manager resolves LLM credentials and verifies admin API tokens.
type Manager struct {
	store *Store
	v     *viper.Viper
}

// NewManager creates a new auth manager. v may be nil, in which case config
// file keys are not consulted.
func NewManager(dataDir string, v *viper.Viper) (*Manager, error) {
	store, err := NewStore(dataDir)
	if err != nil {
		return nil, err
	}

	return &Manager{store: store, v: v}, nil
}

// Store exposes the underlying credential store.
func (m *Manager) Store() *Store {
	return m.store
}

// GetAPIKey returns the API key for a provider using priority resolution:
// 1. Environment variable
// 2. Config file (with env substitution)
// 3. Stored credentials.json
func (m *Manager) GetAPIKey(providerID llm.ProviderID) (string, error) {
	if key := envKey(providerID); key != "" {
		return key, nil
	}

	if key := m.configKey(providerID); key != "" {
		return key, nil
	}

	cred, err := m.store.GetCredential(providerID)
	if err == nil && cred.Key != "" {
		return cred.Key, nil
	}

	return "", fmt.Errorf("no API key found for provider: %s", providerID)
}

func envKey(providerID llm.ProviderID) string {
	envVar := llm.EnvVarForProvider(providerID)
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

func (m *Manager) configKey(providerID llm.ProviderID) string {
	if m.v == nil {
		return ""
	}
	key := m.v.GetString(fmt.Sprintf("llm.providers.%s.api_key", providerID))
	if key == "" {
		return ""
	}
	return resolveEnvSubstitution(key)
}

// SetAPIKey stores an API key for a provider
func (m *Manager) SetAPIKey(providerID llm.ProviderID, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("api key is empty")
	}
	return m.store.SetCredential(providerID, Credential{Key: key})
}

// RemoveCredential removes stored credentials for a provider
func (m *Manager) RemoveCredential(providerID llm.ProviderID) error {
	return m.store.RemoveCredential(providerID)
}

// HasCredential checks env, config and the credentials file.
func (m *Manager) HasCredential(providerID llm.ProviderID) bool {
	_, err := m.GetAPIKey(providerID)
	return err == nil
}

// ListConnected returns all providers with credentials
func (m *Manager) ListConnected() []llm.ProviderID {
	connected := make([]llm.ProviderID, 0)

	for _, id := range llm.AllProviderIDs() {
		if m.HasCredential(id) {
			connected = append(connected, id)
		}
	}

	return connected
}

// GetDefaultProvider returns the default provider ID
func (m *Manager) GetDefaultProvider() llm.ProviderID {
	return m.store.GetDefaultProvider()
}

// SetDefaultProvider sets the default provider
func (m *Manager) SetDefaultProvider(providerID llm.ProviderID) error {
	return m.store.SetDefaultProvider(providerID)
}

// ResolveProvider builds a provider. An empty preferred ID means the stored
// default; if that has no key, the first connected provider is used.
func (m *Manager) ResolveProvider(ctx context.Context, preferred llm.ProviderID, model string) (llm.Provider, error) {
	target := preferred
	if target == "" {
		target = m.GetDefaultProvider()
	}

	key, err := m.GetAPIKey(target)
	if err == nil {
		return llm.NewProvider(ctx, target, key, model)
	}
	if preferred != "" {
		return nil, err
	}

	for _, id := range m.ListConnected() {
		key, err := m.GetAPIKey(id)
		if err != nil {
			continue
		}
		// The configured model belongs to the default provider; let the
		// fallback use its own default.
		return llm.NewProvider(ctx, id, key, "")
	}
	return nil, fmt.Errorf("no LLM providers connected. Run 'sitepilot auth set <provider>' or set an API key environment variable")
}

// IssueAdminToken creates a token for the HTTP admin routes. The secret is
// returned once; only its hash is stored.
func (m *Manager) IssueAdminToken(name string) (string, *AdminToken, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("token name is required")
	}
	for _, tok := range m.store.AdminTokens() {
		if tok.Name == name {
			return "", nil, fmt.Errorf("admin token %q already exists", name)
		}
	}

	secret := tokenPrefix + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	tok := AdminToken{
		ID:        uuid.NewString(),
		Name:      name,
		Hash:      hashToken(secret),
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.AddAdminToken(tok); err != nil {
		return "", nil, err
	}
	return secret, &tok, nil
}

// VerifyAdminToken checks a bearer token against the issued tokens.
func (m *Manager) VerifyAdminToken(token string) (*AdminToken, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, ErrInvalidToken
	}
	sum := []byte(hashToken(token))
	for _, tok := range m.store.AdminTokens() {
		if subtle.ConstantTimeCompare(sum, []byte(tok.Hash)) == 1 {
			tok := tok
			return &tok, nil
		}
	}
	return nil, ErrInvalidToken
}

// RevokeAdminToken removes a token by ID or name.
func (m *Manager) RevokeAdminToken(ref string) error {
	return m.store.RevokeAdminToken(ref)
}

// ListAdminTokens returns issued token records (never the secrets).
func (m *Manager) ListAdminTokens() []AdminToken {
	return m.store.AdminTokens()
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var envRef = regexp.MustCompile(`\{env:([^}]+)\}`)

// resolveEnvSubstitution replaces {env:VAR_NAME} with environment variable values
func resolveEnvSubstitution(value string) string {
	if !strings.Contains(value, "{env:") {
		return value
	}

	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[5 : len(match)-1]
		return os.Getenv(varName)
	})
}
