package search

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"cineforge/promptsearch/internal/domain"
)

// fakeCatalog answers from fixed tables keyed by operation and target, and
// records every call it receives.
type fakeCatalog struct {
	disabled bool
	delay    time.Duration
	titles   map[string]*domain.CatalogItem   // "movie:Se7en"
	related  map[string][]domain.CatalogItem  // "movie:807:similar"
	discover map[string][]domain.CatalogItem  // "movie:hi"
	multi    []domain.CatalogItem
	errs     map[string]error // call key, e.g. "discover:movie:hi"

	mu      sync.Mutex
	calls   []string
	queries []domain.DiscoverQuery
}

func (c *fakeCatalog) Enabled() bool { return !c.disabled }

func (c *fakeCatalog) record(ctx context.Context, key string) error {
	c.mu.Lock()
	c.calls = append(c.calls, key)
	c.mu.Unlock()
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.errs[key]
}

func (c *fakeCatalog) SearchTitle(ctx context.Context, title string, year int, mediaType domain.MediaType, locale string) (*domain.CatalogItem, error) {
	key := string(mediaType) + ":" + title
	if err := c.record(ctx, "search_title:"+key); err != nil {
		return nil, err
	}
	hit, ok := c.titles[key]
	if !ok {
		return nil, nil
	}
	copied := *hit
	return &copied, nil
}

func (c *fakeCatalog) SearchMulti(ctx context.Context, query string, page int, locale string) ([]domain.CatalogItem, error) {
	if err := c.record(ctx, "search_multi:"+query); err != nil {
		return nil, err
	}
	return append([]domain.CatalogItem(nil), c.multi...), nil
}

func (c *fakeCatalog) Discover(ctx context.Context, query domain.DiscoverQuery, locale string) ([]domain.CatalogItem, error) {
	key := string(query.MediaType) + ":" + query.OriginalLanguage
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()
	if err := c.record(ctx, "discover:"+key); err != nil {
		return nil, err
	}
	return append([]domain.CatalogItem(nil), c.discover[key]...), nil
}

func (c *fakeCatalog) Similar(ctx context.Context, mediaType domain.MediaType, id int, locale string) ([]domain.CatalogItem, error) {
	return c.relatedItems(ctx, mediaType, id, "similar")
}

func (c *fakeCatalog) Recommendations(ctx context.Context, mediaType domain.MediaType, id int, locale string) ([]domain.CatalogItem, error) {
	return c.relatedItems(ctx, mediaType, id, "recommendations")
}

func (c *fakeCatalog) relatedItems(ctx context.Context, mediaType domain.MediaType, id int, kind string) ([]domain.CatalogItem, error) {
	key := fmt.Sprintf("%s:%d:%s", mediaType, id, kind)
	if err := c.record(ctx, kind+":"+key); err != nil {
		return nil, err
	}
	return append([]domain.CatalogItem(nil), c.related[key]...), nil
}

func (c *fakeCatalog) callCount(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func (c *fakeCatalog) totalCalls() int {
	return c.callCount("")
}

func newTestService(catalog CatalogClient, opts ...ServiceOption) *Service {
	base := []ServiceOption{
		WithRetryConfig(RetryConfig{MaxAttempts: 1}),
		WithCallTimeout(time.Second),
	}
	return NewService(catalog, 2*time.Second, append(base, opts...)...)
}

func poolIDs(items []domain.CatalogItem) map[int]domain.CatalogItem {
	out := make(map[int]domain.CatalogItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

// ---------------------------------------------------------------------------
// execute
// ---------------------------------------------------------------------------

func TestExecuteSimilarLooksUpTitlesAndBlendsDiscover(t *testing.T) {
	catalog := &fakeCatalog{
		titles: map[string]*domain.CatalogItem{
			"movie:Se7en": {ID: 807, Title: "Se7en"},
		},
		related: map[string][]domain.CatalogItem{
			"movie:807:similar":         {{ID: 1, Title: "Zodiac"}},
			"movie:807:recommendations": {{ID: 2, Title: "Prisoners"}},
		},
		discover: map[string][]domain.CatalogItem{
			"movie:en": {{ID: 3, Title: "Mindhunter Movie"}},
		},
	}
	svc := newTestService(catalog)

	ex := svc.execute(context.Background(), domain.Intent{
		Strategy:         domain.StrategySimilar,
		MediaType:        domain.MediaMovie,
		TitleCandidates:  []domain.TitleCandidate{{Title: "Se7en"}},
		IncludeLanguages: []string{"en"},
	})

	items := poolIDs(ex.pool)
	if len(items) != 3 {
		t.Fatalf("expected 3 pooled items, got %+v", ex.pool)
	}
	if items[1].Source != domain.SourceSimilar || items[2].Source != domain.SourceSimilar {
		t.Fatalf("expected similar source on related items, got %+v", ex.pool)
	}
	if items[1].MediaType != domain.MediaMovie {
		t.Fatalf("expected media type to be filled in, got %q", items[1].MediaType)
	}
	if items[3].Source != domain.SourceDiscover {
		t.Fatalf("expected discover source, got %q", items[3].Source)
	}
	if got := catalog.callCount("search_title:"); got != 2 {
		t.Fatalf("expected a title lookup per media type, got %d", got)
	}
	if got := catalog.callCount("search_multi:"); got != 0 {
		t.Fatalf("search must not run when the pool is filled, got %d calls", got)
	}
	for _, call := range ex.calls {
		if !call.OK {
			t.Fatalf("unexpected failed call: %+v", call)
		}
	}
}

func TestExecutePartialFailureKeepsSiblings(t *testing.T) {
	catalog := &fakeCatalog{
		discover: map[string][]domain.CatalogItem{
			"movie:en": {{ID: 10, OriginalLanguage: "en"}, {ID: 11, OriginalLanguage: "en"}},
		},
		errs: map[string]error{
			"discover:movie:hi": &domain.UpstreamError{Service: "tmdb", Operation: "discover", StatusCode: 502},
		},
	}
	svc := newTestService(catalog)

	ex := svc.execute(context.Background(), domain.Intent{
		Strategy:         domain.StrategyDiscover,
		MediaType:        domain.MediaMovie,
		Genres:           []string{"thriller"},
		IncludeLanguages: []string{"hi", "en"},
	})

	if len(ex.pool) != 2 {
		t.Fatalf("expected the english branch to survive, got %+v", ex.pool)
	}
	failed := 0
	for _, call := range ex.calls {
		if !call.OK {
			failed++
			if call.Target != "movie:hi" || call.Error == "" {
				t.Fatalf("unexpected failed call status: %+v", call)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one failed call, got %d in %+v", failed, ex.calls)
	}
}

func TestExecuteSearchRunsOnlyForEmptyPool(t *testing.T) {
	catalog := &fakeCatalog{
		multi: []domain.CatalogItem{{ID: 20, MediaType: domain.MediaTV, Name: "Dark"}},
	}
	svc := newTestService(catalog)

	ex := svc.execute(context.Background(), domain.Intent{
		Prompt:           "something odd",
		Strategy:         domain.StrategySearch,
		IncludeLanguages: []string{"en"},
	})
	if catalog.callCount("search_multi:something odd") != 1 {
		t.Fatalf("expected search fallback on the prompt, calls: %v", catalog.calls)
	}
	if len(ex.pool) != 1 || ex.pool[0].Source != domain.SourceSearch || ex.pool[0].MediaType != domain.MediaTV {
		t.Fatalf("unexpected pool: %+v", ex.pool)
	}

	filled := &fakeCatalog{
		discover: map[string][]domain.CatalogItem{"movie:en": {{ID: 1}}},
		multi:    []domain.CatalogItem{{ID: 2}},
	}
	svc = newTestService(filled)
	svc.execute(context.Background(), domain.Intent{
		Prompt:           "comedy",
		Strategy:         domain.StrategyDiscover,
		Genres:           []string{"comedy"},
		IncludeLanguages: []string{"en"},
	})
	if got := filled.callCount("search_multi:"); got != 0 {
		t.Fatalf("expected no search when discover filled the pool, got %d", got)
	}
}

func TestExecuteSearchPrefersQueryHint(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := newTestService(catalog)
	svc.execute(context.Background(), domain.Intent{
		Prompt:    "that movie with the spinning top",
		QueryHint: "Inception",
		Strategy:  domain.StrategySearch,
	})
	if catalog.callCount("search_multi:Inception") != 1 {
		t.Fatalf("expected search on the query hint, calls: %v", catalog.calls)
	}
}

func TestExecuteTopUpUnderLanguageLock(t *testing.T) {
	catalog := &fakeCatalog{
		discover: map[string][]domain.CatalogItem{
			"movie:hi": {{ID: 1, OriginalLanguage: "hi"}, {ID: 2, OriginalLanguage: "hi"}},
		},
	}
	svc := newTestService(catalog)

	svc.execute(context.Background(), domain.Intent{
		Strategy:         domain.StrategyDiscover,
		MediaType:        domain.MediaMovie,
		Genres:           []string{"thriller"},
		IncludeLanguages: []string{"hi", "en"},
		ExplicitLangLock: true,
		Quality:          domain.Quality{MinVotes: 200, Sort: domain.SortPopularity},
	})

	if got := catalog.callCount("discover:"); got != 4 {
		t.Fatalf("expected discover plus top-up per language, got %d", got)
	}
	topUps := 0
	for _, q := range catalog.queries {
		if q.SortBy == domain.SortVoteAverage {
			topUps++
			if q.MinVoteCount != topUpMinVotes {
				t.Fatalf("expected top-up vote floor %d, got %d", topUpMinVotes, q.MinVoteCount)
			}
			if len(q.Genres) != 1 || q.Genres[0] != "thriller" {
				t.Fatalf("expected top-up to keep intent genres, got %v", q.Genres)
			}
		}
	}
	if topUps != 2 {
		t.Fatalf("expected 2 top-up queries, got %d", topUps)
	}
}

func TestExecuteNoTopUpWithoutLock(t *testing.T) {
	catalog := &fakeCatalog{
		discover: map[string][]domain.CatalogItem{"movie:en": {{ID: 1, OriginalLanguage: "en"}}},
	}
	svc := newTestService(catalog)
	svc.execute(context.Background(), domain.Intent{
		Strategy:         domain.StrategyDiscover,
		IncludeLanguages: []string{"en"},
	})
	if got := catalog.callCount("discover:"); got != 1 {
		t.Fatalf("expected a single discover call, got %d", got)
	}
}

func TestExecuteLikedTitlesRunForAnyStrategy(t *testing.T) {
	catalog := &fakeCatalog{
		titles: map[string]*domain.CatalogItem{
			"tv:Drishyam": {ID: 55},
		},
		related: map[string][]domain.CatalogItem{
			"tv:55:similar": {{ID: 56}},
		},
	}
	svc := newTestService(catalog)

	ex := svc.execute(context.Background(), domain.Intent{
		Strategy:         domain.StrategyDiscover,
		MediaType:        domain.MediaTV,
		LikedTitles:      []string{"Drishyam", "  "},
		IncludeLanguages: []string{"en"},
	})

	catalog.mu.Lock()
	first := catalog.calls[0]
	catalog.mu.Unlock()
	if got := catalog.callCount("search_title:"); got != 2 {
		t.Fatalf("expected blank liked titles to be skipped, got %d lookups", got)
	}
	if !strings.HasPrefix(first, "search_title:") {
		t.Fatalf("expected title lookups first, got %q", first)
	}
	item, ok := poolIDs(ex.pool)[56]
	if !ok || item.MediaType != domain.MediaTV || item.Source != domain.SourceSimilar {
		t.Fatalf("expected tv similar item, got %+v", ex.pool)
	}
}

func TestExecuteIgnoresPromptTitlesOutsideSimilar(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := newTestService(catalog)
	svc.execute(context.Background(), domain.Intent{
		Strategy:         domain.StrategyDiscover,
		TitleCandidates:  []domain.TitleCandidate{{Title: "Se7en"}},
		IncludeLanguages: []string{"en"},
	})
	if got := catalog.callCount("search_title:"); got != 0 {
		t.Fatalf("expected no title lookups, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// query building
// ---------------------------------------------------------------------------

func TestDiscoverQueriesDefaults(t *testing.T) {
	queries := discoverQueries(domain.Intent{
		MediaType: domain.MediaTV,
		Genres:    []string{"crime", "mystery"},
		YearRange: domain.YearRange{From: 2010, To: 2020},
	})
	if len(queries) != 2 {
		t.Fatalf("expected default languages en and hi, got %+v", queries)
	}
	if queries[0].OriginalLanguage != "en" || queries[1].OriginalLanguage != "hi" {
		t.Fatalf("unexpected languages: %+v", queries)
	}
	q := queries[0]
	if q.MediaType != domain.MediaTV {
		t.Fatalf("expected tv, got %q", q.MediaType)
	}
	if !reflect.DeepEqual(q.Genres, []string{"crime", "mystery"}) {
		t.Fatalf("expected intent genres, got %v", q.Genres)
	}
	if q.MinVoteCount != domain.DefaultMinVotes || q.SortBy != domain.SortPopularity {
		t.Fatalf("expected quality defaults, got %+v", q)
	}
	if q.YearFrom != 2010 || q.YearTo != 2020 {
		t.Fatalf("expected year range to carry over, got %+v", q)
	}
}

func TestDiscoverQueriesCapLanguagesAndCarryQuality(t *testing.T) {
	queries := discoverQueries(domain.Intent{
		Genres:           []string{"horror"},
		IncludeLanguages: []string{"ko", "ja", "en", "hi", "ta"},
		Quality:          domain.Quality{MinVotes: 1000, Sort: domain.SortVoteAverage},
		Runtime:          domain.Runtime{LTE: 100},
	})
	if len(queries) != domain.MaxLanguages {
		t.Fatalf("expected %d languages, got %d", domain.MaxLanguages, len(queries))
	}
	for _, q := range queries {
		if q.MediaType != domain.MediaMovie {
			t.Fatalf("expected movie media, got %q", q.MediaType)
		}
		if len(q.Genres) != 1 || q.Genres[0] != "horror" {
			t.Fatalf("expected intent genres, got %v", q.Genres)
		}
		if q.MinVoteCount != 1000 || q.SortBy != domain.SortVoteAverage || q.RuntimeLTE != 100 {
			t.Fatalf("unexpected query: %+v", q)
		}
	}
}

func TestTopUpQueriesRaiseVoteFloor(t *testing.T) {
	low := topUpQueries(domain.Intent{IncludeLanguages: []string{"ta"}, Quality: domain.Quality{MinVotes: 200}})
	if low[0].MinVoteCount != 300 || low[0].SortBy != domain.SortVoteAverage {
		t.Fatalf("unexpected top-up query: %+v", low[0])
	}
	high := topUpQueries(domain.Intent{IncludeLanguages: []string{"ta"}, Quality: domain.Quality{MinVotes: 1000}})
	if high[0].MinVoteCount != 1000 {
		t.Fatalf("expected higher floor to win, got %d", high[0].MinVoteCount)
	}
}

func TestNeedsTopUp(t *testing.T) {
	in := domain.Intent{IncludeLanguages: []string{"ta", "te", "ml", "kn", "en"}, ExplicitLangLock: true}
	pool := func(lang string, n int) []domain.CatalogItem {
		items := make([]domain.CatalogItem, n)
		for i := range items {
			items[i] = domain.CatalogItem{ID: i + 1, OriginalLanguage: lang}
		}
		return items
	}

	if !needsTopUp(in, pool("ta", topUpThreshold-1)) {
		t.Fatal("expected top-up below threshold")
	}
	if needsTopUp(in, pool("TA", topUpThreshold)) {
		t.Fatal("expected no top-up at threshold")
	}
	if !needsTopUp(in, pool("en", 30)) {
		t.Fatal("only the first four languages count toward the threshold")
	}
	in.ExplicitLangLock = false
	if needsTopUp(in, nil) {
		t.Fatal("expected no top-up without a language lock")
	}
}

// ---------------------------------------------------------------------------
// callUpstream
// ---------------------------------------------------------------------------

func TestCallUpstreamSkipsBlockedUpstream(t *testing.T) {
	svc := newTestService(&fakeCatalog{})
	now := time.Now()
	for i := 0; i < upstreamFailureThreshold; i++ {
		svc.recordUpstreamResult(upstreamCatalog, "discover", fmt.Errorf("connection reset"), time.Millisecond, now)
	}

	called := false
	_, status, err := callUpstream(context.Background(), svc, upstreamCatalog, "discover", "movie:en", func(ctx context.Context) (int, error) {
		called = true
		return 1, nil
	})
	if err == nil || called {
		t.Fatalf("expected blocked upstream to short-circuit, err=%v called=%v", err, called)
	}
	if !status.Skipped || status.OK || status.Attempts != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestCallUpstreamRetriesTransientFailures(t *testing.T) {
	svc := newTestService(&fakeCatalog{}, WithRetryConfig(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}))

	attempts := 0
	value, status, err := callUpstream(context.Background(), svc, upstreamCatalog, "discover", "movie:hi", func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &domain.UpstreamError{Service: "tmdb", StatusCode: 429}
		}
		return "ok", nil
	})
	if err != nil || value != "ok" {
		t.Fatalf("expected success after retries, got %q, %v", value, err)
	}
	if !status.OK || status.Attempts != 3 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestCallUpstreamAppliesPerCallTimeout(t *testing.T) {
	svc := newTestService(&fakeCatalog{}, WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	_, status, err := callUpstream(context.Background(), svc, upstreamCatalog, "discover", "movie:en", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if err == nil || status.OK {
		t.Fatalf("expected timeout failure, got %+v", status)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("per-call timeout not applied, took %v", elapsed)
	}
}
