package api

import "memdash/internal/models"

// StatusResponse is the status probe payload. Anything other than
// "healthy" is treated as not ready by callers.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// LLMConfigResponse wraps both the get and update calls for the two-tier
// LLM configuration. LLMConfig is nil when the backend has none stored.
type LLMConfigResponse struct {
	Success         bool              `json:"success"`
	LLMConfig       *models.LLMConfig `json:"llm_config,omitempty"`
	Message         string            `json:"message,omitempty"`
	RequiresRestart bool              `json:"requires_restart,omitempty"`
}

// OperationMetrics aggregates timing/cache counters for one backend
// operation type.
type OperationMetrics struct {
	Count        int     `json:"count"`
	CacheHits    int     `json:"cache_hits"`
	CacheMisses  int     `json:"cache_misses"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// MetricsResponse is the performance metrics payload.
type MetricsResponse struct {
	Success    bool                        `json:"success"`
	Uptime     float64                     `json:"uptime_seconds,omitempty"`
	HitRate    float64                     `json:"hit_rate,omitempty"`
	Operations map[string]OperationMetrics `json:"operations,omitempty"`
	Message    string                      `json:"message,omitempty"`
}

// CacheClearResponse reports how many cached entries were dropped.
type CacheClearResponse struct {
	Success      bool   `json:"success"`
	ItemsCleared int    `json:"items_cleared"`
	Message      string `json:"message,omitempty"`
}

// CacheAnalysisResponse carries the cache-effectiveness report. The
// analysis body is backend-owned and rendered opaquely by the UI.
type CacheAnalysisResponse struct {
	Success  bool                   `json:"success"`
	Analysis map[string]interface{} `json:"analysis,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// ConfigResponse wraps the generic backend config get/update calls.
type ConfigResponse struct {
	Success bool                   `json:"success"`
	Config  map[string]interface{} `json:"config,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// Memory is one retrieved item from the memory agent.
type Memory struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	Score            float64           `json:"score"`
	GroundingApplied bool              `json:"grounding_applied,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        string            `json:"created_at,omitempty"`
}

// SearchResponse is the retrieval payload for the search/browse pages.
type SearchResponse struct {
	Success  bool     `json:"success"`
	Memories []Memory `json:"memories"`
	Message  string   `json:"message,omitempty"`
}

type searchRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"top_k"`
	MinSimilarity float64 `json:"min_similarity"`
	VectorSet     string  `json:"vector_set"`
}

type clearCacheRequest struct {
	OperationType string `json:"operation_type,omitempty"`
}
