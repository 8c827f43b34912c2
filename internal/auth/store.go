package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/yolodolo42/sitepilot/internal/llm"
)

const (
	credentialsFileName = "credentials.json"
	filePerms           = 0600 // Owner read/write only
)

// Credential is a stored LLM provider key.
type Credential struct {
	Key string `json:"key"`
}

// AdminToken is an issued API token. Only the SHA-256 of the secret is kept.
type AdminToken struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Data is the structure of credentials.json
type Data struct {
	Version         int                           `json:"version"`
	Providers       map[llm.ProviderID]Credential `json:"providers"`
	DefaultProvider llm.ProviderID                `json:"default_provider"`
	AdminTokens     []AdminToken                  `json:"admin_tokens,omitempty"`
}

// Store manages credential storage
type Store struct {
	mu       sync.RWMutex
	filePath string
	data     *Data
}

// NewStore creates a new credential store
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &Store{
		filePath: filepath.Join(dataDir, credentialsFileName),
		data: &Data{
			Version:         1,
			Providers:       make(map[llm.ProviderID]Credential),
			DefaultProvider: llm.ProviderAnthropic,
		},
	}

	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return store, nil
}

// Path returns the credentials file location.
func (s *Store) Path() string {
	return s.filePath
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Providers is never nil, even for a hand-edited file.
	if data.Providers == nil {
		data.Providers = make(map[llm.ProviderID]Credential)
	}

	s.data = &data
	return nil
}

// save writes the file atomically with owner-only permissions. Callers hold mu.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, filePerms); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to save credentials file: %w", err)
	}

	return nil
}

// GetCredential returns the credential for a provider
func (s *Store) GetCredential(providerID llm.ProviderID) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.data.Providers[providerID]
	if !ok {
		return Credential{}, fmt.Errorf("no credential found for provider: %s", providerID)
	}

	return cred, nil
}

// SetCredential stores a credential for a provider
func (s *Store) SetCredential(providerID llm.ProviderID, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Providers[providerID] = cred
	return s.save()
}

// RemoveCredential removes credentials for a provider
func (s *Store) RemoveCredential(providerID llm.ProviderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data.Providers, providerID)
	return s.save()
}

// GetDefaultProvider returns the default provider ID
func (s *Store) GetDefaultProvider() llm.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.DefaultProvider == "" {
		return llm.ProviderAnthropic
	}
	return s.data.DefaultProvider
}

// SetDefaultProvider sets the default provider
func (s *Store) SetDefaultProvider(providerID llm.ProviderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.DefaultProvider = providerID
	return s.save()
}

// ListProviders returns all providers with stored credentials, sorted.
func (s *Store) ListProviders() []llm.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]llm.ProviderID, 0, len(s.data.Providers))
	for id := range s.data.Providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AddAdminToken persists an admin token record.
func (s *Store) AddAdminToken(tok AdminToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.AdminTokens = append(s.data.AdminTokens, tok)
	return s.save()
}

// AdminTokens returns the issued admin tokens.
func (s *Store) AdminTokens() []AdminToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AdminToken(nil), s.data.AdminTokens...)
}

// RevokeAdminToken deletes the token with the given ID or name.
func (s *Store) RevokeAdminToken(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data.AdminTokens[:0]
	found := false
	for _, tok := range s.data.AdminTokens {
		if tok.ID == ref || tok.Name == ref {
			found = true
			continue
		}
		kept = append(kept, tok)
	}
	if !found {
		return fmt.Errorf("no admin token %q", ref)
	}
	s.data.AdminTokens = kept
	return s.save()
}
