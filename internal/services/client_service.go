package services

import (
	"context"
	"sync"

	"memdash/internal/api"
	"memdash/internal/models"
)

// FallbackBaseURL is where requests go before settings have loaded.
// Callers that fire early intentionally talk to this target rather than a
// half-initialized one.
const FallbackBaseURL = "http://localhost:5001"

// ClientService derives the one canonical API client from the current
// settings. For a fixed (serverUrl, serverPort, vectorSetName) triple,
// Client returns the same instance every time; changing any input yields a
// new instance exactly once. Consumers must never mutate the client in
// place; retargeting goes through the settings store so a new client is
// derived here.
type ClientService interface {
	Startup(ctx context.Context)
	Client() *api.Client
}

type clientKey struct {
	baseURL   string
	vectorSet string
}

type clientService struct {
	settings SettingsService
	keyring  *KeyringService
	context  context.Context

	mu        sync.Mutex
	cached    *api.Client
	cachedKey clientKey
}

func NewClientService(settings SettingsService, keyring *KeyringService) ClientService {
	return &clientService{settings: settings, keyring: keyring}
}

func (s *clientService) Startup(ctx context.Context) {
	s.context = ctx
}

func (s *clientService) Client() *api.Client {
	key := s.targetKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.cachedKey == key {
		return s.cached
	}

	s.cached = api.NewClientWithToken(key.baseURL, key.vectorSet, s.serverToken())
	s.cachedKey = key
	return s.cached
}

func (s *clientService) targetKey() clientKey {
	if !s.settings.IsLoaded() {
		return clientKey{baseURL: FallbackBaseURL, vectorSet: models.DefaultVectorSetName}
	}
	return clientKey{
		baseURL:   s.settings.GetAPIBaseURL(),
		vectorSet: s.settings.Get().VectorSetName,
	}
}

func (s *clientService) serverToken() string {
	if s.keyring == nil {
		return ""
	}
	token, err := s.keyring.ServerToken()
	if err != nil {
		// No stored token is the normal case; requests just go out unauthenticated.
		return ""
	}
	return token
}
