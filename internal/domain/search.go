package domain

import (
	"strings"
	"time"
)

// PromptRequest is the input of one prompt search.
// AISuggestion, when set, wins over a completion fetched by the service.
type PromptRequest struct {
	Prompt        string
	MediaTypeHint MediaType
	LanguageHint  string
	YearHint      int
	AISuggestion  *AISuggestion
	UseAI         bool
	NoCache       bool
}

type CallStatus struct {
	Upstream  string `json:"upstream"`
	Operation string `json:"operation"`
	Target    string `json:"target,omitempty"`
	OK        bool   `json:"ok"`
	Count     int    `json:"count"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
}

type PromptResponse struct {
	Prompt      string        `json:"prompt"`
	Items       []CatalogItem `json:"items"`
	Intent      *Intent       `json:"intent,omitempty"`
	Calls       []CallStatus  `json:"calls,omitempty"`
	AIFallback  bool          `json:"aiFallback,omitempty"`
	Partial     bool          `json:"partial,omitempty"`
	Cached      bool          `json:"cached,omitempty"`
	ElapsedMS   int64         `json:"elapsedMs"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

type UpstreamDiagnostics struct {
	Name                string     `json:"name"`
	Enabled             bool       `json:"enabled"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool       `json:"lastTimeout,omitempty"`
	LastOperation       string     `json:"lastOperation,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
	TimeoutCount        int64      `json:"timeoutCount,omitempty"`
}

// NormalizeMediaType maps free-form values onto movie or tv.
// Anything unrecognized, including "both" and "multi", yields "".
func NormalizeMediaType(raw string) MediaType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies", "film", "films":
		return MediaMovie
	case "tv", "series", "show", "shows":
		return MediaTV
	default:
		return ""
	}
}
