package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/metrics"
)

const (
	upstreamFailureThreshold = 3
	upstreamBlockBase        = 2 * time.Minute
	upstreamBlockMax         = 15 * time.Minute
)

type upstreamHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	lastTimeout         bool
	lastOperation       string
	totalRequests       int64
	totalFailures       int64
	timeoutCount        int64
}

func (s *Service) isUpstreamBlocked(upstream string, now time.Time) (bool, time.Time, string) {
	if s == nil {
		return false, time.Time{}, ""
	}
	name := strings.ToLower(strings.TrimSpace(upstream))
	if name == "" {
		return false, time.Time{}, ""
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		return false, time.Time{}, ""
	}
	if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
		return false, time.Time{}, ""
	}
	return true, state.blockedUntil, state.lastError
}

// recordUpstreamResult updates health state and metrics for one call.
// Permanent upstream answers (4xx other than 429) count as served requests:
// the service is up even when it rejects a query.
func (s *Service) recordUpstreamResult(upstream, operation string, err error, latency time.Duration, now time.Time) {
	if s == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(upstream))
	if name == "" {
		return
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		state = &upstreamHealth{}
		s.health[name] = state
	}
	state.totalRequests++
	state.lastOperation = operation
	if latency > 0 {
		state.lastLatency = latency
		metrics.UpstreamRequestDuration.WithLabelValues(name, operation).Observe(latency.Seconds())
	}
	state.lastTimeout = isTimeoutLikeError(err)
	if state.lastTimeout {
		state.timeoutCount++
	}

	if err == nil || !countsAsOutage(err) {
		status := "ok"
		if err != nil {
			status = "rejected"
			state.lastError = err.Error()
		} else {
			state.lastError = ""
		}
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastSuccessAt = now
		metrics.UpstreamRequestsTotal.WithLabelValues(name, operation, status).Inc()
		metrics.UpstreamAvailable.WithLabelValues(name).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if state.lastTimeout {
		status = "timeout"
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(name, operation, status).Inc()

	if state.consecutiveFailures >= upstreamFailureThreshold {
		state.blockedUntil = now.Add(exponentialBlockDuration(state.consecutiveFailures))
		metrics.UpstreamAvailable.WithLabelValues(name).Set(0)
	}
}

func countsAsOutage(err error) bool {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}

// exponentialBlockDuration calculates how long to block an upstream based on
// consecutive failures: baseDuration × 2^(failures - threshold), capped at 15min.
func exponentialBlockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - upstreamFailureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := upstreamBlockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > upstreamBlockMax {
			return upstreamBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

// UpstreamDiagnostics reports the health of the catalog and completion
// upstreams, in that order.
func (s *Service) UpstreamDiagnostics() []domain.UpstreamDiagnostics {
	upstreams := []struct {
		name    string
		enabled bool
	}{
		{upstreamCatalog, s.catalogEnabled()},
		{upstreamCompletion, s.completionEnabled()},
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]domain.UpstreamDiagnostics, 0, len(upstreams))
	for _, u := range upstreams {
		item := domain.UpstreamDiagnostics{Name: u.name, Enabled: u.enabled}
		if state := s.health[u.name]; state != nil {
			item.ConsecutiveFailures = state.consecutiveFailures
			if !state.blockedUntil.IsZero() {
				blockedUntil := state.blockedUntil
				item.BlockedUntil = &blockedUntil
			}
			item.LastError = state.lastError
			if !state.lastSuccessAt.IsZero() {
				lastSuccessAt := state.lastSuccessAt
				item.LastSuccessAt = &lastSuccessAt
			}
			if !state.lastFailureAt.IsZero() {
				lastFailureAt := state.lastFailureAt
				item.LastFailureAt = &lastFailureAt
			}
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.LastTimeout = state.lastTimeout
			item.LastOperation = state.lastOperation
			item.TotalRequests = state.totalRequests
			item.TotalFailures = state.totalFailures
			item.TimeoutCount = state.timeoutCount
		}
		items = append(items, item)
	}
	return items
}
