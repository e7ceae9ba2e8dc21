package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cineforge/promptsearch/internal/domain"
)

func TestExponentialBlockDuration(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{3, 2 * time.Minute},  // 2min × 2^0 = 2min
		{4, 4 * time.Minute},  // 2min × 2^1 = 4min
		{5, 8 * time.Minute},  // 2min × 2^2 = 8min
		{6, 15 * time.Minute}, // 2min × 2^3 = 16min → capped at 15min
		{7, 15 * time.Minute}, // capped
		{10, 15 * time.Minute},
	}
	for _, tt := range tests {
		got := exponentialBlockDuration(tt.failures)
		if got != tt.want {
			t.Errorf("exponentialBlockDuration(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestUpstreamExponentialBlock(t *testing.T) {
	svc := newTestService(&fakeCatalog{})

	baseTime := time.Now()
	testErr := fmt.Errorf("connection timeout")

	for i := 0; i < upstreamFailureThreshold; i++ {
		svc.recordUpstreamResult(upstreamCatalog, "discover", testErr, 100*time.Millisecond, baseTime)
	}

	blocked, until, lastErr := svc.isUpstreamBlocked(upstreamCatalog, baseTime)
	if !blocked {
		t.Fatal("expected upstream to be blocked after threshold failures")
	}
	if lastErr != testErr.Error() {
		t.Fatalf("expected last error %q, got %q", testErr.Error(), lastErr)
	}
	if got := until.Sub(baseTime); got != upstreamBlockBase {
		t.Fatalf("first block: expected %v, got %v", upstreamBlockBase, got)
	}

	afterBlock := until.Add(time.Second)
	if blocked, _, _ = svc.isUpstreamBlocked(upstreamCatalog, afterBlock); blocked {
		t.Fatal("upstream should be unblocked after block expires")
	}

	svc.recordUpstreamResult(upstreamCatalog, "discover", testErr, 100*time.Millisecond, afterBlock)
	blocked, until, _ = svc.isUpstreamBlocked(upstreamCatalog, afterBlock)
	if !blocked {
		t.Fatal("expected upstream to be blocked after additional failure")
	}
	if got := until.Sub(afterBlock); got != 4*time.Minute {
		t.Fatalf("second block: expected %v, got %v", 4*time.Minute, got)
	}

	svc.recordUpstreamResult(upstreamCatalog, "discover", nil, 50*time.Millisecond, afterBlock.Add(time.Second))
	if blocked, _, _ = svc.isUpstreamBlocked(upstreamCatalog, afterBlock.Add(2*time.Second)); blocked {
		t.Fatal("upstream should be unblocked after success")
	}
}

func TestPermanentRejectionsDoNotBlock(t *testing.T) {
	svc := newTestService(&fakeCatalog{})
	now := time.Now()
	rejected := &domain.UpstreamError{Service: "tmdb", Operation: "discover", StatusCode: 422}

	for i := 0; i < upstreamFailureThreshold*2; i++ {
		svc.recordUpstreamResult(upstreamCatalog, "discover", rejected, time.Millisecond, now)
	}
	if blocked, _, _ := svc.isUpstreamBlocked(upstreamCatalog, now); blocked {
		t.Fatal("4xx answers must not block the upstream")
	}

	for i := 0; i < upstreamFailureThreshold; i++ {
		svc.recordUpstreamResult(upstreamCatalog, "discover", context.Canceled, time.Millisecond, now)
	}
	if blocked, _, _ := svc.isUpstreamBlocked(upstreamCatalog, now); blocked {
		t.Fatal("caller cancellations must not block the upstream")
	}
}

func TestUpstreamsAreTrackedSeparately(t *testing.T) {
	svc := newTestService(&fakeCatalog{})
	now := time.Now()
	for i := 0; i < upstreamFailureThreshold; i++ {
		svc.recordUpstreamResult(upstreamCompletion, "complete", &domain.UpstreamError{StatusCode: 503}, time.Millisecond, now)
	}
	if blocked, _, _ := svc.isUpstreamBlocked(upstreamCompletion, now); !blocked {
		t.Fatal("expected completion upstream to be blocked")
	}
	if blocked, _, _ := svc.isUpstreamBlocked(upstreamCatalog, now); blocked {
		t.Fatal("catalog upstream must stay available")
	}
}

func TestUpstreamDiagnostics(t *testing.T) {
	svc := newTestService(&fakeCatalog{})
	now := time.Now()
	svc.recordUpstreamResult(upstreamCatalog, "search_title", nil, 120*time.Millisecond, now)
	svc.recordUpstreamResult(upstreamCatalog, "discover", context.DeadlineExceeded, 8*time.Second, now.Add(time.Second))

	items := svc.UpstreamDiagnostics()
	if len(items) != 2 {
		t.Fatalf("expected catalog and completion entries, got %d", len(items))
	}
	catalog, completion := items[0], items[1]
	if catalog.Name != upstreamCatalog || completion.Name != upstreamCompletion {
		t.Fatalf("unexpected order: %q, %q", catalog.Name, completion.Name)
	}
	if !catalog.Enabled || completion.Enabled {
		t.Fatalf("unexpected enabled flags: %+v / %+v", catalog, completion)
	}
	if catalog.TotalRequests != 2 || catalog.TotalFailures != 1 || catalog.TimeoutCount != 1 {
		t.Fatalf("unexpected counters: %+v", catalog)
	}
	if catalog.ConsecutiveFailures != 1 || !catalog.LastTimeout || catalog.LastOperation != "discover" {
		t.Fatalf("unexpected last-call state: %+v", catalog)
	}
	if catalog.LastSuccessAt == nil || catalog.LastFailureAt == nil || catalog.BlockedUntil != nil {
		t.Fatalf("unexpected timestamps: %+v", catalog)
	}
	if completion.TotalRequests != 0 || completion.LastSuccessAt != nil {
		t.Fatalf("expected untouched completion entry, got %+v", completion)
	}
}
