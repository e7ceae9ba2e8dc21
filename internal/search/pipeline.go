package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/intent"
	"cineforge/promptsearch/internal/metrics"
)

const (
	maxSuggestItems = 8
	tracerName      = "cineforge/promptsearch/search"
)

var tracer = otel.Tracer(tracerName)

// planned is the fused intent for one request plus how it was obtained.
type planned struct {
	intent     domain.Intent
	calls      []domain.CallStatus
	aiFallback bool
}

// PlanAndSearch turns a prompt into at most domain.MaxResults ranked catalog
// items. Upstream failures never surface as errors: they shrink the pool and
// show up in the response's call list. Only invalid input and a missing
// catalog client are returned as errors.
func (s *Service) PlanAndSearch(ctx context.Context, request domain.PromptRequest) (domain.PromptResponse, error) {
	startedAt := time.Now()
	request.Prompt = strings.TrimSpace(request.Prompt)
	if n := utf8.RuneCountInString(request.Prompt); n > MaxPromptLength {
		return domain.PromptResponse{}, fmt.Errorf("%w: %d characters, max %d", ErrPromptTooLong, n, MaxPromptLength)
	}

	if request.Prompt == "" {
		parsed := intent.Parse("", s.hints(request))
		return domain.PromptResponse{
			Prompt:      "",
			Items:       []domain.CatalogItem{},
			Intent:      &parsed,
			ElapsedMS:   time.Since(startedAt).Milliseconds(),
			GeneratedAt: time.Now().UTC(),
		}, nil
	}
	if !s.catalogEnabled() {
		return domain.PromptResponse{}, ErrCatalogNotConfigured
	}

	useCache := !s.cacheDisabled && !request.NoCache
	cacheKey := buildPromptCacheKey(request, s.anchorYear)
	if useCache {
		if cached, ok := s.cacheLookup(ctx, cacheKey, startedAt); ok {
			cached.Cached = true
			cached.ElapsedMS = time.Since(startedAt).Milliseconds()
			return cached, nil
		}
	}

	ctx, span := tracer.Start(ctx, "search.plan_and_search")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p := s.plan(ctx, request)
	ex := s.execute(ctx, p.intent)
	items := Rank(ex.pool, p.intent)
	partial := ctx.Err() != nil

	calls := append(p.calls, ex.calls...)
	response := domain.PromptResponse{
		Prompt:      request.Prompt,
		Items:       items,
		Intent:      &p.intent,
		Calls:       calls,
		AIFallback:  p.aiFallback,
		Partial:     partial,
		ElapsedMS:   time.Since(startedAt).Milliseconds(),
		GeneratedAt: time.Now().UTC(),
	}

	span.SetAttributes(
		attribute.String("strategy", string(p.intent.Strategy)),
		attribute.String("media_type", string(p.intent.MediaType)),
		attribute.Bool("lang_lock", p.intent.ExplicitLangLock),
		attribute.Int("pool_size", len(ex.pool)),
		attribute.Int("result_count", len(items)),
		attribute.Bool("partial", partial),
	)
	slog.Info("prompt search completed",
		slog.String("strategy", string(p.intent.Strategy)),
		slog.String("media_type", string(p.intent.MediaType)),
		slog.Any("languages", p.intent.IncludeLanguages),
		slog.Int("pool", len(ex.pool)),
		slog.Int("results", len(items)),
		slog.Int("calls", len(calls)),
		slog.Bool("ai_fallback", p.aiFallback),
		slog.Bool("partial", partial),
		slog.Int64("elapsed_ms", response.ElapsedMS),
	)

	if useCache && cacheable(response) {
		s.cacheStore(ctx, cacheKey, response, time.Now())
	}
	return response, nil
}

// Plan returns the fused intent for a request without querying the catalog.
func (s *Service) Plan(ctx context.Context, request domain.PromptRequest) (domain.Intent, error) {
	request.Prompt = strings.TrimSpace(request.Prompt)
	if n := utf8.RuneCountInString(request.Prompt); n > MaxPromptLength {
		return domain.Intent{}, fmt.Errorf("%w: %d characters, max %d", ErrPromptTooLong, n, MaxPromptLength)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.plan(ctx, request).intent, nil
}

// Suggest is a typeahead over catalog multi-search, capped at eight items.
func (s *Service) Suggest(ctx context.Context, query, locale string, limit int) ([]domain.CatalogItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.CatalogItem{}, nil
	}
	if utf8.RuneCountInString(query) > MaxPromptLength {
		return nil, ErrPromptTooLong
	}
	if !s.catalogEnabled() {
		return nil, ErrCatalogNotConfigured
	}
	if limit <= 0 || limit > maxSuggestItems {
		limit = maxSuggestItems
	}
	if locale == "" {
		locale = defaultLocale
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	items, _, err := callUpstream(ctx, s, upstreamCatalog, "search_multi", query, func(ctx context.Context) ([]domain.CatalogItem, error) {
		return s.catalog.SearchMulti(ctx, query, 1, locale)
	})
	if err != nil {
		// Typeahead degrades to no suggestions, like every other catalog call.
		return []domain.CatalogItem{}, nil
	}
	items = tag(items, "", domain.SourceSearch)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Service) hints(request domain.PromptRequest) intent.Hints {
	return intent.Hints{
		MediaType:    request.MediaTypeHint,
		YearHint:     request.YearHint,
		LanguageHint: request.LanguageHint,
		AnchorYear:   s.anchorYear,
	}
}

// plan parses the prompt and fuses it with a suggestion. A caller-supplied
// suggestion wins; otherwise the completion client is asked when the request
// allows it. A failed or unreadable completion leaves the parsed intent as is.
func (s *Service) plan(ctx context.Context, request domain.PromptRequest) planned {
	parsed := intent.Parse(request.Prompt, s.hints(request))
	out := planned{intent: parsed}

	if request.AISuggestion != nil {
		suggestion := intent.EnsureLanguagePrefs(request.Prompt, *request.AISuggestion)
		out.intent = intent.Fuse(parsed, &suggestion)
		return out
	}
	if !request.UseAI || !s.completionEnabled() || request.Prompt == "" {
		return out
	}

	mode := intent.ModeDescribe
	if len(parsed.TitleCandidates) > 0 {
		mode = intent.ModeTitle
	}
	instruction := intent.SuggestPrompt(request.Prompt, mode)
	text, status, err := callUpstream(ctx, s, upstreamCompletion, "complete", string(mode), func(ctx context.Context) (string, error) {
		return s.completion.Complete(ctx, instruction)
	})
	if err != nil {
		out.calls = append(out.calls, status)
		out.aiFallback = true
		metrics.AIFallbackTotal.WithLabelValues(fallbackReason(err)).Inc()
		return out
	}

	suggestion, err := intent.ParseCompletion(text, request.Prompt)
	if err != nil {
		status.OK = false
		status.Error = err.Error()
		out.calls = append(out.calls, status)
		out.aiFallback = true
		metrics.AIFallbackTotal.WithLabelValues("unparsable").Inc()
		slog.Warn("completion ignored", slog.String("error", err.Error()))
		return out
	}
	status.Count = 1
	out.calls = append(out.calls, status)

	suggestion = intent.EnsureLanguagePrefs(request.Prompt, suggestion)
	out.intent = intent.Fuse(parsed, &suggestion)
	return out
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errUpstreamBlocked):
		return "blocked"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

// cacheable reports whether a response is complete enough to be reused:
// nothing was cut short and every upstream call succeeded.
func cacheable(response domain.PromptResponse) bool {
	if response.Partial {
		return false
	}
	for _, call := range response.Calls {
		if !call.OK {
			return false
		}
	}
	return true
}
