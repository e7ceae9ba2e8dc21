package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/metrics"
)

const (
	maxTitleLookups = 4
	topUpThreshold  = 12
	topUpMinVotes   = 300
	defaultLocale   = "en-US"
	strategyTopUp   = "topup"
)

var errUpstreamBlocked = errors.New("upstream temporarily blocked")

// branch is what one executor task contributes: its items and the status
// of every upstream call it made.
type branch struct {
	items []domain.CatalogItem
	calls []domain.CallStatus
}

type execution struct {
	pool  []domain.CatalogItem
	calls []domain.CallStatus
}

func (e *execution) add(strategy string, branches []outcome[branch]) {
	added := 0
	for _, o := range branches {
		e.calls = append(e.calls, o.value.calls...)
		e.pool = append(e.pool, o.value.items...)
		added += len(o.value.items)
	}
	metrics.PoolSize.WithLabelValues(strategy).Observe(float64(added))
}

// callUpstream runs one upstream call with health gating, a per-call
// timeout and retries for transient failures, and reports its status.
func callUpstream[T any](ctx context.Context, s *Service, upstream, operation, target string, fn func(context.Context) (T, error)) (T, domain.CallStatus, error) {
	var zero T
	status := domain.CallStatus{Upstream: upstream, Operation: operation, Target: target}
	if blocked, until, lastErr := s.isUpstreamBlocked(upstream, time.Now()); blocked {
		status.Skipped = true
		status.Error = fmt.Sprintf("blocked until %s: %s", until.UTC().Format(time.RFC3339), lastErr)
		return zero, status, errUpstreamBlocked
	}

	var value T
	start := time.Now()
	err := RetryWithBackoff(ctx, s.retry, func() error {
		status.Attempts++
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		v, err := fn(callCtx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if ctx.Err() == nil {
		s.recordUpstreamResult(upstream, operation, err, time.Since(start), time.Now())
	}
	if err != nil {
		status.Error = err.Error()
		slog.Warn("upstream call failed",
			slog.String("upstream", upstream),
			slog.String("operation", operation),
			slog.String("target", target),
			slog.Int("attempts", status.Attempts),
			slog.String("error", err.Error()),
		)
		return zero, status, err
	}
	status.OK = true
	return value, status, nil
}

// execute gathers the unranked pool for an intent. Strategies run in order
// similar, discover, search, top-up; search and top-up look at the pool the
// earlier strategies produced.
func (s *Service) execute(ctx context.Context, in domain.Intent) execution {
	locale := in.Locale
	if locale == "" {
		locale = defaultLocale
	}
	var ex execution

	if tasks := s.similarTasks(in, locale); len(tasks) > 0 {
		ex.add(string(domain.StrategySimilar), gatherAll(ctx, s.maxParallel, tasks))
	}

	if in.Strategy == domain.StrategySimilar || in.Strategy == domain.StrategyDiscover {
		ex.add(string(domain.StrategyDiscover), gatherAll(ctx, s.maxParallel, s.discoverTasks(discoverQueries(in), locale)))
	}

	if len(ex.pool) == 0 && ctx.Err() == nil {
		if query := searchQuery(in); query != "" {
			ex.add(string(domain.StrategySearch), gatherAll(ctx, 1, []func(context.Context) (branch, error){s.searchTask(query, locale)}))
		}
	}

	if needsTopUp(in, ex.pool) && ctx.Err() == nil {
		ex.add(strategyTopUp, gatherAll(ctx, s.maxParallel, s.discoverTasks(topUpQueries(in), locale)))
	}
	return ex
}

// similarTasks builds one title lookup per title and media type: up to four
// prompt titles when the strategy is similar, plus up to four liked titles.
func (s *Service) similarTasks(in domain.Intent, locale string) []func(context.Context) (branch, error) {
	var titles []domain.TitleCandidate
	if in.Strategy == domain.StrategySimilar {
		titles = append(titles, capCandidates(in.TitleCandidates, maxTitleLookups)...)
	}
	for i, title := range in.LikedTitles {
		if i == maxTitleLookups {
			break
		}
		titles = append(titles, domain.TitleCandidate{Title: title})
	}

	mediaOrder := []domain.MediaType{domain.MediaMovie, domain.MediaTV}
	if in.MediaType == domain.MediaTV {
		mediaOrder = []domain.MediaType{domain.MediaTV, domain.MediaMovie}
	}

	tasks := make([]func(context.Context) (branch, error), 0, len(titles)*len(mediaOrder))
	for _, title := range titles {
		if strings.TrimSpace(title.Title) == "" {
			continue
		}
		for _, media := range mediaOrder {
			tasks = append(tasks, s.similarTask(title, media, locale))
		}
	}
	return tasks
}

func (s *Service) similarTask(title domain.TitleCandidate, media domain.MediaType, locale string) func(context.Context) (branch, error) {
	return func(ctx context.Context) (branch, error) {
		var b branch
		target := string(media) + ":" + title.Title
		if title.Year > 0 {
			target += ":" + strconv.Itoa(title.Year)
		}
		hit, status, err := callUpstream(ctx, s, upstreamCatalog, "search_title", target, func(ctx context.Context) (*domain.CatalogItem, error) {
			return s.catalog.SearchTitle(ctx, title.Title, title.Year, media, locale)
		})
		if hit != nil {
			status.Count = 1
		}
		b.calls = append(b.calls, status)
		if err != nil || hit == nil || hit.ID == 0 {
			return b, err
		}

		related := []struct {
			operation string
			fetch     func(context.Context, domain.MediaType, int, string) ([]domain.CatalogItem, error)
		}{
			{"similar", s.catalog.Similar},
			{"recommendations", s.catalog.Recommendations},
		}
		var firstErr error
		for _, r := range related {
			items, status, err := callUpstream(ctx, s, upstreamCatalog, r.operation, target, func(ctx context.Context) ([]domain.CatalogItem, error) {
				return r.fetch(ctx, media, hit.ID, locale)
			})
			status.Count = len(items)
			b.calls = append(b.calls, status)
			b.items = append(b.items, tag(items, media, domain.SourceSimilar)...)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return b, firstErr
	}
}

func (s *Service) discoverTasks(queries []domain.DiscoverQuery, locale string) []func(context.Context) (branch, error) {
	tasks := make([]func(context.Context) (branch, error), 0, len(queries))
	for _, q := range queries {
		tasks = append(tasks, func(ctx context.Context) (branch, error) {
			target := string(q.MediaType) + ":" + q.OriginalLanguage
			items, status, err := callUpstream(ctx, s, upstreamCatalog, "discover", target, func(ctx context.Context) ([]domain.CatalogItem, error) {
				return s.catalog.Discover(ctx, q, locale)
			})
			status.Count = len(items)
			return branch{items: tag(items, q.MediaType, domain.SourceDiscover), calls: []domain.CallStatus{status}}, err
		})
	}
	return tasks
}

func (s *Service) searchTask(query, locale string) func(context.Context) (branch, error) {
	return func(ctx context.Context) (branch, error) {
		items, status, err := callUpstream(ctx, s, upstreamCatalog, "search_multi", query, func(ctx context.Context) ([]domain.CatalogItem, error) {
			return s.catalog.SearchMulti(ctx, query, 1, locale)
		})
		status.Count = len(items)
		return branch{items: tag(items, "", domain.SourceSearch), calls: []domain.CallStatus{status}}, err
	}
}

// discoverQueries builds one query per target language with the intent's
// quality settings, falling back to popularity order and the default vote floor.
func discoverQueries(in domain.Intent) []domain.DiscoverQuery {
	minVotes := in.Quality.MinVotes
	if minVotes <= 0 {
		minVotes = domain.DefaultMinVotes
	}
	sortBy := in.Quality.Sort
	if sortBy == "" {
		sortBy = domain.SortPopularity
	}
	return facetQueries(in, in.Genres, minVotes, sortBy)
}

// topUpQueries backfill language coverage with a raised vote floor and
// rating order.
func topUpQueries(in domain.Intent) []domain.DiscoverQuery {
	minVotes := in.Quality.MinVotes
	if minVotes < topUpMinVotes {
		minVotes = topUpMinVotes
	}
	return facetQueries(in, in.Genres, minVotes, domain.SortVoteAverage)
}

func facetQueries(in domain.Intent, genres []string, minVotes int, sortBy domain.SortBy) []domain.DiscoverQuery {
	media := in.MediaType
	if media != domain.MediaTV {
		media = domain.MediaMovie
	}
	langs := capStrings(in.IncludeLanguages, domain.MaxLanguages)
	if len(langs) == 0 {
		langs = []string{"en", "hi"}
	}
	out := make([]domain.DiscoverQuery, 0, len(langs))
	for _, lang := range langs {
		out = append(out, domain.DiscoverQuery{
			MediaType:        media,
			Genres:           append([]string(nil), genres...),
			OriginalLanguage: lang,
			YearFrom:         in.YearRange.From,
			YearTo:           in.YearRange.To,
			MinVoteCount:     minVotes,
			SortBy:           sortBy,
			RuntimeLTE:       in.Runtime.LTE,
			RuntimeGTE:       in.Runtime.GTE,
		})
	}
	return out
}

// searchQuery prefers the completion's query hint, then the first title,
// then the prompt itself.
func searchQuery(in domain.Intent) string {
	if q := strings.TrimSpace(in.QueryHint); q != "" {
		return q
	}
	if len(in.TitleCandidates) > 0 {
		if q := strings.TrimSpace(in.TitleCandidates[0].Title); q != "" {
			return q
		}
	}
	return strings.TrimSpace(in.Prompt)
}

// needsTopUp reports whether a language-locked intent has fewer than
// topUpThreshold pooled items in its first four languages.
func needsTopUp(in domain.Intent, pool []domain.CatalogItem) bool {
	if !in.ExplicitLangLock || len(in.IncludeLanguages) == 0 {
		return false
	}
	have := 0
	for _, item := range pool {
		if in.MatchesLanguage(strings.ToLower(item.OriginalLanguage), domain.MaxLanguages) {
			have++
			if have >= topUpThreshold {
				return false
			}
		}
	}
	return true
}

func tag(items []domain.CatalogItem, media domain.MediaType, source domain.ItemSource) []domain.CatalogItem {
	for i := range items {
		items[i].Source = source
		if items[i].MediaType == "" {
			if media != "" {
				items[i].MediaType = media
			} else {
				items[i].MediaType = items[i].EffectiveMediaType()
			}
		}
	}
	return items
}

func capCandidates(list []domain.TitleCandidate, limit int) []domain.TitleCandidate {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}

func capStrings(list []string, limit int) []string {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
