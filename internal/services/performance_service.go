package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"memdash/internal/api"
	"memdash/internal/events"
)

type apiOperation func(ctx context.Context) (interface{}, error)

// PerformanceService gives every performance-monitoring backend call a
// uniform envelope: a loading flag, a classified error message, a
// last-success timestamp, and a one-shot retry of whatever ran last.
// Operations never return errors to the caller; failures land in the
// error state for the UI to render inline.
type PerformanceService struct {
	clients ClientService
	context context.Context

	mu          sync.Mutex
	isLoading   bool
	errMsg      string
	lastUpdated *time.Time
	lastOp      apiOperation
	lastLabel   string
	available   *bool

	refreshMu     sync.Mutex
	refreshCancel context.CancelFunc
}

func NewPerformanceService(clients ClientService) *PerformanceService {
	return &PerformanceService{clients: clients}
}

func (s *PerformanceService) Startup(ctx context.Context) {
	s.context = ctx
}

// Shutdown tears down the auto-refresh timer, if any.
func (s *PerformanceService) Shutdown() {
	s.stopAutoRefresh()
}

// handleAPICall runs one backend operation under the uniform contract:
// loading on, error cleared, the operation remembered for Retry; on
// failure the error is classified into a user-facing message and nil is
// returned rather than the error propagating.
func (s *PerformanceService) handleAPICall(label string, op apiOperation) interface{} {
	s.mu.Lock()
	s.isLoading = true
	s.errMsg = ""
	s.lastOp = op
	s.lastLabel = label
	s.mu.Unlock()

	result, err := op(s.ctx())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false

	if err != nil {
		s.errMsg = classifyAPIError(label, err)
		return nil
	}

	now := time.Now()
	s.lastUpdated = &now
	return result
}

// classifyAPIError maps raw failures onto user-facing phrasing. Rules
// apply in priority order: network reachability first, then specific
// status codes, then a generic fallback that names the operation.
func classifyAPIError(label string, err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "fetch"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "dial tcp"):
		return "cannot reach the memory agent: check the server URL and port in settings"
	case strings.Contains(msg, "404"):
		return "endpoint not found: performance monitoring is not available on this server"
	case strings.Contains(msg, "500"):
		return "the server hit an internal error; try again in a moment"
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"):
		return "permission denied: check the stored API token"
	default:
		return fmt.Sprintf("failed to %s: %s", label, msg)
	}
}

// Retry re-runs the most recently attempted operation. With nothing
// attempted yet it is a no-op. The remembered operation is kept, so Retry
// can be called any number of times.
func (s *PerformanceService) Retry() interface{} {
	s.mu.Lock()
	op := s.lastOp
	label := s.lastLabel
	s.mu.Unlock()

	if op == nil {
		return nil
	}
	return s.handleAPICall(label, op)
}

// ClearError dismisses the current error without rerunning anything.
func (s *PerformanceService) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *PerformanceService) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

func (s *PerformanceService) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *PerformanceService) LastUpdated() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

// FetchMetrics loads backend timing and cache counters; nil on failure.
func (s *PerformanceService) FetchMetrics() *api.MetricsResponse {
	result := s.handleAPICall("load performance metrics", func(ctx context.Context) (interface{}, error) {
		return s.clients.Client().GetPerformanceMetrics(ctx)
	})
	if result == nil {
		return nil
	}
	return result.(*api.MetricsResponse)
}

// ClearCache drops the backend cache, optionally scoped to one operation
// type; an empty scope clears everything. Nil on failure, with the
// pre-call stats untouched so the user can retry.
func (s *PerformanceService) ClearCache(operationType string) *api.CacheClearResponse {
	label := "clear cache"
	if operationType != "" {
		label = "clear " + operationType + " cache"
	}
	result := s.handleAPICall(label, func(ctx context.Context) (interface{}, error) {
		return s.clients.Client().ClearCache(ctx, operationType)
	})
	if result == nil {
		return nil
	}
	return result.(*api.CacheClearResponse)
}

// AnalyzeCache fetches the cache-effectiveness report; nil on failure.
func (s *PerformanceService) AnalyzeCache() *api.CacheAnalysisResponse {
	result := s.handleAPICall("analyze cache effectiveness", func(ctx context.Context) (interface{}, error) {
		return s.clients.Client().AnalyzeCacheEffectiveness(ctx)
	})
	if result == nil {
		return nil
	}
	return result.(*api.CacheAnalysisResponse)
}

// FetchConfig loads the backend's generic configuration; nil on failure.
func (s *PerformanceService) FetchConfig() *api.ConfigResponse {
	result := s.handleAPICall("load backend configuration", func(ctx context.Context) (interface{}, error) {
		return s.clients.Client().GetConfig(ctx)
	})
	if result == nil {
		return nil
	}
	return result.(*api.ConfigResponse)
}

// ApplyConfig replaces the backend's generic configuration; nil on failure.
func (s *PerformanceService) ApplyConfig(cfg map[string]interface{}) *api.ConfigResponse {
	result := s.handleAPICall("update backend configuration", func(ctx context.Context) (interface{}, error) {
		return s.clients.Client().UpdateConfig(ctx, cfg)
	})
	if result == nil {
		return nil
	}
	return result.(*api.ConfigResponse)
}

// CheckAvailability probes the backend once and records the result. The
// tri-state answer gates whether the performance UI renders at all: nil
// while a probe is in flight, false only after a probe explicitly failed.
func (s *PerformanceService) CheckAvailability() bool {
	s.mu.Lock()
	s.available = nil
	s.mu.Unlock()

	status, err := s.clients.Client().Status(s.ctx())
	ok := err == nil && status.Status == "healthy"

	s.mu.Lock()
	s.available = &ok
	s.mu.Unlock()
	return ok
}

// Availability returns the last probe outcome, nil if one is in flight or
// none has run.
func (s *PerformanceService) Availability() *bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// SetAutoRefresh enables or disables periodic metrics fetches. Enabling
// always replaces any prior timer, so at most one is ever active;
// disabling tears the timer down immediately rather than at its next tick.
func (s *PerformanceService) SetAutoRefresh(enabled bool, interval time.Duration) {
	if !enabled {
		s.stopAutoRefresh()
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s.refreshMu.Lock()
	if s.refreshCancel != nil {
		s.refreshCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx())
	s.refreshCancel = cancel
	s.refreshMu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if s.FetchMetrics() != nil {
					events.Emit(s.ctx(), events.MetricsRefreshed, events.NewInfo("performance metrics refreshed"))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *PerformanceService) stopAutoRefresh() {
	s.refreshMu.Lock()
	cancel := s.refreshCancel
	s.refreshCancel = nil
	s.refreshMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *PerformanceService) ctx() context.Context {
	if s.context != nil {
		return s.context
	}
	return context.Background()
}
