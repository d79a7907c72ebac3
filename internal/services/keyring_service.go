package services

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zalando/go-keyring"
)

const serviceName = "memdash"

// serverTokenAccount is the keyring account the memory agent bearer token
// is stored under. Provider API keys use the provider id as the account.
const serverTokenAccount = "memory-agent-token"

func GetOS() string {
	return runtime.GOOS
}

// KeyringService keeps locally remembered credentials in the OS keyring:
// the optional bearer token for the memory agent, and per-provider LLM API
// keys so the settings form can prefill without a backend round-trip.
type KeyringService struct {
}

func NewKeyringService() *KeyringService {
	return &KeyringService{}
}

func (s *KeyringService) Startup() {}

// StoreServerToken remembers the memory agent bearer token.
func (s *KeyringService) StoreServerToken(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(serviceName, serverTokenAccount, token)
}

// ServerToken returns the stored memory agent bearer token, if any.
func (s *KeyringService) ServerToken() (string, error) {
	return keyring.Get(serviceName, serverTokenAccount)
}

// ClearServerToken removes the stored memory agent bearer token.
func (s *KeyringService) ClearServerToken() error {
	err := keyring.Delete(serviceName, serverTokenAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// StoreProviderKey remembers an LLM provider API key.
func (s *KeyringService) StoreProviderKey(provider, apiKey string) error {
	if apiKey == "" {
		return errors.New("API key is empty")
	}
	if provider == "" {
		return errors.New("provider is required")
	}

	if err := keyring.Set(serviceName, provider, apiKey); err != nil {
		return err
	}

	return s.addProvider(provider)
}

// ProviderKey returns the remembered API key for a provider.
func (s *KeyringService) ProviderKey(provider string) (string, error) {
	if provider == "" {
		return "", errors.New("provider is required")
	}
	return keyring.Get(serviceName, provider)
}

// DeleteProviderKey forgets the API key for a provider.
func (s *KeyringService) DeleteProviderKey(provider string) error {
	if provider == "" {
		return errors.New("provider is required")
	}

	err := keyring.Delete(serviceName, provider)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}

	return s.removeProvider(provider)
}

// ListProviderKeys reports which providers have a remembered key. Keys
// themselves are never returned in bulk.
func (s *KeyringService) ListProviderKeys() ([]string, error) {
	providers, err := s.loadProviders()
	if err != nil {
		return nil, err
	}

	var results []string
	for _, provider := range providers {
		if _, err := keyring.Get(serviceName, provider); err != nil {
			continue
		}
		results = append(results, provider)
	}
	return results, nil
}

// The keyring itself can't be enumerated portably, so a small index of
// provider names lives next to the app's other config.
func (s *KeyringService) providersIndexPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	appDir := filepath.Join(configDir, serviceName)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(appDir, "providers.json"), nil
}

func (s *KeyringService) loadProviders() ([]string, error) {
	path, err := s.providersIndexPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var providers []string
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

func (s *KeyringService) saveProviders(providers []string) error {
	path, err := s.providersIndexPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(providers, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (s *KeyringService) addProvider(provider string) error {
	providers, err := s.loadProviders()
	if err != nil {
		return err
	}

	for _, p := range providers {
		if p == provider {
			return nil
		}
	}

	providers = append(providers, provider)
	return s.saveProviders(providers)
}

func (s *KeyringService) removeProvider(provider string) error {
	providers, err := s.loadProviders()
	if err != nil {
		return err
	}

	var remaining []string
	for _, p := range providers {
		if p != provider {
			remaining = append(remaining, p)
		}
	}

	return s.saveProviders(remaining)
}
