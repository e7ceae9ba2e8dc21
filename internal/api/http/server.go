package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/intent"
	"cineforge/promptsearch/internal/search"
)

type SearchService interface {
	PlanAndSearch(ctx context.Context, request domain.PromptRequest) (domain.PromptResponse, error)
	Plan(ctx context.Context, request domain.PromptRequest) (domain.Intent, error)
	Suggest(ctx context.Context, query, locale string, limit int) ([]domain.CatalogItem, error)
	UpstreamDiagnostics() []domain.UpstreamDiagnostics
}

type Server struct {
	search    SearchService
	logger    *slog.Logger
	rateLimit float64
	rateBurst int
}

const (
	defaultRateLimit = 50
	defaultRateBurst = 100
	posterBaseURL    = "https://image.tmdb.org/t/p/w92"
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimit sets the global request budget. A non-positive rps turns
// limiting off.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:    searchService,
		logger:    slog.Default(),
		rateLimit: defaultRateLimit,
		rateBurst: defaultRateBurst,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/prompt", s.handlePromptSearch)
	mux.HandleFunc("/search/intent", s.handleIntent)
	mux.HandleFunc("/search/suggest", s.handleSearchSuggest)
	mux.HandleFunc("/search/upstreams/health", s.handleUpstreamsHealth)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "prompt-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateLimit, s.rateBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// promptRequestBody is the POST form of a prompt search. AI carries a raw
// suggestion object in the completion's own shape.
type promptRequestBody struct {
	Prompt    string          `json:"prompt"`
	MediaType string          `json:"mediaType"`
	Language  string          `json:"language"`
	Year      int             `json:"year"`
	AI        json.RawMessage `json:"ai"`
	UseAI     bool            `json:"useAI"`
	NoCache   bool            `json:"noCache"`
}

func (s *Server) handlePromptSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/prompt" {
		http.NotFound(w, r)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	var request domain.PromptRequest
	switch r.Method {
	case http.MethodGet:
		parsed, err := promptRequestFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		request = parsed
	case http.MethodPost:
		var body promptRequestBody
		if err := decodeJSONBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		request = s.promptRequestFromBody(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len([]rune(strings.TrimSpace(request.Prompt))) > search.MaxPromptLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "prompt too long (max 500 characters)")
		return
	}

	response, err := s.search.PlanAndSearch(r.Context(), request)
	if err != nil {
		s.logger.Warn("prompt search failed",
			slog.String("prompt", truncate(request.Prompt, 80)),
			slog.String("error", err.Error()),
		)
		writeSearchError(w, err)
		return
	}

	noteResponse(r.Context(), response)
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/intent" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	request, err := promptRequestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	planned, err := s.search.Plan(r.Context(), request)
	if err != nil {
		writeSearchError(w, err)
		return
	}
	noteIntent(r.Context(), planned)
	writeJSON(w, http.StatusOK, map[string]any{"intent": planned})
}

func (s *Server) handleSearchSuggest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/suggest" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) < 2 {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}
	limit, err := parsePositiveInt(r, "limit", 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	results, err := s.search.Suggest(r.Context(), query, strings.TrimSpace(r.URL.Query().Get("lang")), limit)
	if err != nil {
		s.logger.Warn("suggest failed", slog.String("query", truncate(query, 60)), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}

	type suggestion struct {
		ID        int     `json:"id"`
		Title     string  `json:"title"`
		Year      int     `json:"year,omitempty"`
		Poster    string  `json:"poster,omitempty"`
		MediaType string  `json:"mediaType"`
		Rating    float64 `json:"rating,omitempty"`
	}

	items := make([]suggestion, 0, len(results))
	for _, item := range results {
		title := item.DisplayTitle()
		if title == "" {
			continue
		}
		poster := ""
		if item.PosterPath != "" {
			poster = posterBaseURL + item.PosterPath
		}
		items = append(items, suggestion{
			ID:        item.ID,
			Title:     title,
			Year:      item.Year(),
			Poster:    poster,
			MediaType: string(item.EffectiveMediaType()),
			Rating:    item.VoteAverage,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleUpstreamsHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/upstreams/health" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.UpstreamDiagnostics(),
	})
}

func promptRequestFromQuery(r *http.Request) (domain.PromptRequest, error) {
	q := r.URL.Query()
	year, err := parseOptionalYear(q.Get("year"))
	if err != nil {
		return domain.PromptRequest{}, err
	}
	return domain.PromptRequest{
		Prompt:        strings.TrimSpace(q.Get("q")),
		MediaTypeHint: domain.NormalizeMediaType(q.Get("type")),
		LanguageHint:  strings.TrimSpace(q.Get("lang")),
		YearHint:      year,
		UseAI:         parseOptionalBool(q.Get("ai")),
		NoCache:       parseOptionalBool(q.Get("nocache")) || parseOptionalBool(q.Get("noCache")),
	}, nil
}

// promptRequestFromBody converts a POST body. A suggestion that is not a JSON
// object is dropped with a warning; the prompt alone still gets served.
func (s *Server) promptRequestFromBody(body promptRequestBody) domain.PromptRequest {
	request := domain.PromptRequest{
		Prompt:        strings.TrimSpace(body.Prompt),
		MediaTypeHint: domain.NormalizeMediaType(body.MediaType),
		LanguageHint:  strings.TrimSpace(body.Language),
		UseAI:         body.UseAI,
		NoCache:       body.NoCache,
	}
	if body.Year >= domain.MinYear {
		request.YearHint = body.Year
	}
	raw := bytes.TrimSpace(body.AI)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return request
	}
	suggestion, err := intent.DecodeSuggestion(raw)
	if err != nil {
		s.logger.Warn("ignoring ai suggestion",
			slog.String("prompt", truncate(request.Prompt, 80)),
			slog.String("error", err.Error()),
		)
		return request
	}
	request.AISuggestion = suggestion
	return request
}

func writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrPromptTooLong):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, search.ErrCatalogNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
	}
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

// parseOptionalYear accepts an empty value or a four-digit year from 1950 on.
func parseOptionalYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < domain.MinYear || year > 9999 {
		return 0, errors.New("invalid year")
	}
	return year, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
