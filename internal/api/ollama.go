package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"memdash/internal/models"
)

// OllamaModel is one locally installed model as reported by an Ollama
// server's tags endpoint.
type OllamaModel struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

var ollamaHTTPClient = &http.Client{Timeout: 10 * time.Second}

// ListOllamaModels queries a local Ollama server for its installed models.
// This goes straight to the inference server, not through the memory agent.
func ListOllamaModels(ctx context.Context, baseURL string) ([]OllamaModel, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = models.DefaultOllamaBaseURL
	}
	url := strings.TrimRight(baseURL, "/") + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ollamaHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var result struct {
		Models []OllamaModel `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}
