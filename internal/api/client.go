package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"memdash/internal/models"
)

// Client talks to the memory agent REST API. It is a plain request/response
// client: no retries, no caching, no client-side timeouts beyond the HTTP
// client's own. Instances are immutable; a change of target produces a new
// client via the factory, never an in-place mutation.
type Client struct {
	baseURL    string
	vectorSet  string
	token      string
	httpClient *http.Client
}

// NewClient creates a client bound to one base URL and vector set.
func NewClient(baseURL, vectorSet string) *Client {
	return NewClientWithToken(baseURL, vectorSet, "")
}

// NewClientWithToken additionally attaches a bearer token to every request.
func NewClientWithToken(baseURL, vectorSet, token string) *Client {
	return &Client{
		baseURL:   baseURL,
		vectorSet: vectorSet,
		token:     token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// BaseURL returns the target the client was constructed against.
func (c *Client) BaseURL() string { return c.baseURL }

// VectorSet returns the data partition the client scopes memory calls to.
func (c *Client) VectorSet() string { return c.vectorSet }

// makeRequest creates and executes an HTTP request
func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	url := c.baseURL + endpoint

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

// decodeResponse reads and parses a JSON response. Non-2xx statuses become
// errors whose message carries the status code, which the async wrapper's
// classifier keys on.
func decodeResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, body, result interface{}) error {
	resp, err := c.makeRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, result)
}

// Status probes the backend; used by the availability check.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var result StatusResponse
	if err := c.call(ctx, http.MethodGet, "/api/status", nil, &result); err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return &result, nil
}

// GetLLMConfig fetches the stored two-tier LLM configuration. A success
// response with a nil LLMConfig means the backend has none yet.
func (c *Client) GetLLMConfig(ctx context.Context) (*LLMConfigResponse, error) {
	var result LLMConfigResponse
	if err := c.call(ctx, http.MethodGet, "/api/llm-config", nil, &result); err != nil {
		return nil, fmt.Errorf("get llm config failed: %w", err)
	}
	return &result, nil
}

// UpdateLLMConfig replaces the stored two-tier LLM configuration.
func (c *Client) UpdateLLMConfig(ctx context.Context, cfg models.LLMConfig) (*LLMConfigResponse, error) {
	var result LLMConfigResponse
	if err := c.call(ctx, http.MethodPut, "/api/llm-config", cfg, &result); err != nil {
		return nil, fmt.Errorf("update llm config failed: %w", err)
	}
	return &result, nil
}

// GetPerformanceMetrics fetches backend timing and cache counters.
func (c *Client) GetPerformanceMetrics(ctx context.Context) (*MetricsResponse, error) {
	var result MetricsResponse
	if err := c.call(ctx, http.MethodGet, "/api/performance/metrics", nil, &result); err != nil {
		return nil, fmt.Errorf("get performance metrics failed: %w", err)
	}
	return &result, nil
}

// ClearCache drops the backend cache, optionally scoped to one operation
// type; an empty operationType clears everything.
func (c *Client) ClearCache(ctx context.Context, operationType string) (*CacheClearResponse, error) {
	req := clearCacheRequest{OperationType: operationType}
	var result CacheClearResponse
	if err := c.call(ctx, http.MethodPost, "/api/performance/cache/clear", req, &result); err != nil {
		return nil, fmt.Errorf("clear cache failed: %w", err)
	}
	return &result, nil
}

// AnalyzeCacheEffectiveness asks the backend for a cache-effectiveness report.
func (c *Client) AnalyzeCacheEffectiveness(ctx context.Context) (*CacheAnalysisResponse, error) {
	var result CacheAnalysisResponse
	if err := c.call(ctx, http.MethodGet, "/api/performance/cache/analyze", nil, &result); err != nil {
		return nil, fmt.Errorf("analyze cache failed: %w", err)
	}
	return &result, nil
}

// GetConfig fetches the backend's generic configuration document.
func (c *Client) GetConfig(ctx context.Context) (*ConfigResponse, error) {
	var result ConfigResponse
	if err := c.call(ctx, http.MethodGet, "/api/config", nil, &result); err != nil {
		return nil, fmt.Errorf("get config failed: %w", err)
	}
	return &result, nil
}

// UpdateConfig replaces the backend's generic configuration document.
func (c *Client) UpdateConfig(ctx context.Context, cfg map[string]interface{}) (*ConfigResponse, error) {
	var result ConfigResponse
	if err := c.call(ctx, http.MethodPut, "/api/config", cfg, &result); err != nil {
		return nil, fmt.Errorf("update config failed: %w", err)
	}
	return &result, nil
}

// SearchMemories runs a similarity search scoped to the client's vector set.
func (c *Client) SearchMemories(ctx context.Context, query string, topK int, minSimilarity float64) (*SearchResponse, error) {
	req := searchRequest{
		Query:         query,
		TopK:          topK,
		MinSimilarity: minSimilarity,
		VectorSet:     c.vectorSet,
	}
	var result SearchResponse
	if err := c.call(ctx, http.MethodPost, "/api/memories/search", req, &result); err != nil {
		return nil, fmt.Errorf("search memories failed: %w", err)
	}
	return &result, nil
}
