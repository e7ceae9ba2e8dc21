package telemetry

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := Init(context.Background(), "prompt-search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown failed: %v", err)
	}
}

func TestTrimScheme(t *testing.T) {
	tests := map[string]string{
		"http://collector:4318/": "collector:4318",
		"https://otel.example":   "otel.example",
		"collector:4318":         "collector:4318",
	}
	for in, want := range tests {
		if got := trimScheme(in); got != want {
			t.Errorf("trimScheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSamplingRatio(t *testing.T) {
	tests := map[string]float64{"": 1, "0.25": 0.25, "0": 0, "1.5": 1, "abc": 1}
	for raw, want := range tests {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", raw)
		if got := samplingRatio(); got != want {
			t.Errorf("samplingRatio(%q) = %v, want %v", raw, got, want)
		}
	}
}
