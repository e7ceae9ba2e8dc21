package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterOnFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	AIFallbackTotal.WithLabelValues("timeout").Inc()
	PoolSize.WithLabelValues("discover").Observe(12)
	PromptSearchesTotal.WithLabelValues("similar", "true").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	for _, want := range []string{"promptsearch_ai_fallback_total", "promptsearch_pool_items", "promptsearch_prompt_searches_total"} {
		if !names[want] {
			t.Errorf("expected %s to be exported, got %v", want, names)
		}
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	Register(reg)
}

func TestFallbackCounterByReason(t *testing.T) {
	before := testutil.ToFloat64(AIFallbackTotal.WithLabelValues("unparsable"))
	AIFallbackTotal.WithLabelValues("unparsable").Inc()
	if got := testutil.ToFloat64(AIFallbackTotal.WithLabelValues("unparsable")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}
