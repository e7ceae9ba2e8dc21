package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/lexicon"
)

const (
	ServiceName      = "tmdb"
	defaultBaseURL   = "https://api.themoviedb.org/3"
	defaultLocale    = "en-US"
	defaultRateLimit = 35
	redisCacheKey    = "promptsearch:tmdb:"
	maxBodyBytes     = 1 << 20
)

type Client struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	redis    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

type Config struct {
	APIKey   string
	BaseURL  string
	Client   *http.Client
	Redis    *redis.Client
	CacheTTL time.Duration
	// RateLimit is requests per second. Zero uses the default; a negative
	// value disables limiting.
	RateLimit float64
}

type result struct {
	ID               int     `json:"id"`
	Title            string  `json:"title,omitempty"`
	Name             string  `json:"name,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	FirstAirDate     string  `json:"first_air_date,omitempty"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	PosterPath       string  `json:"poster_path,omitempty"`
	MediaType        string  `json:"media_type,omitempty"`
}

type resultPage struct {
	Results []result `json:"results"`
}

func (r result) item(mediaType domain.MediaType, source domain.ItemSource) domain.CatalogItem {
	if mediaType == "" {
		mediaType = domain.NormalizeMediaType(r.MediaType)
	}
	return domain.CatalogItem{
		ID:               r.ID,
		MediaType:        mediaType,
		Title:            r.Title,
		Name:             r.Name,
		Overview:         r.Overview,
		OriginalLanguage: strings.ToLower(r.OriginalLanguage),
		GenreIDs:         r.GenreIDs,
		ReleaseDate:      r.ReleaseDate,
		FirstAirDate:     r.FirstAirDate,
		VoteAverage:      r.VoteAverage,
		VoteCount:        r.VoteCount,
		Popularity:       r.Popularity,
		PosterPath:       r.PosterPath,
		Source:           source,
	}
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	var limiter *rate.Limiter
	switch {
	case cfg.RateLimit == 0:
		limiter = rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit)
	case cfg.RateLimit > 0:
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		redis:    cfg.Redis,
		cacheTTL: cacheTTL,
		limiter:  limiter,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// SearchTitle looks a title up by name and returns the most popular match,
// or nil when nothing matches.
func (c *Client) SearchTitle(ctx context.Context, title string, year int, mediaType domain.MediaType, locale string) (*domain.CatalogItem, error) {
	mediaType = mediaOrMovie(mediaType)
	params := url.Values{
		"query":         {strings.TrimSpace(title)},
		"include_adult": {"false"},
	}
	if year > 0 {
		if mediaType == domain.MediaTV {
			params.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			params.Set("year", strconv.Itoa(year))
		}
	}
	page, err := c.fetch(ctx, "search_title", "/search/"+string(mediaType), params, locale)
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, nil
	}
	best := page.Results[0]
	for _, r := range page.Results[1:] {
		if r.Popularity > best.Popularity {
			best = r
		}
	}
	item := best.item(mediaType, "")
	return &item, nil
}

// Similar returns titles the catalog lists as similar to id.
func (c *Client) Similar(ctx context.Context, mediaType domain.MediaType, id int, locale string) ([]domain.CatalogItem, error) {
	return c.related(ctx, "similar", mediaType, id, locale)
}

// Recommendations returns the catalog's recommendations for id. Items are
// tagged as similar for scoring.
func (c *Client) Recommendations(ctx context.Context, mediaType domain.MediaType, id int, locale string) ([]domain.CatalogItem, error) {
	return c.related(ctx, "recommendations", mediaType, id, locale)
}

func (c *Client) related(ctx context.Context, kind string, mediaType domain.MediaType, id int, locale string) ([]domain.CatalogItem, error) {
	mediaType = mediaOrMovie(mediaType)
	path := fmt.Sprintf("/%s/%d/%s", mediaType, id, kind)
	page, err := c.fetch(ctx, kind, path, url.Values{"page": {"1"}}, locale)
	if err != nil {
		return nil, err
	}
	return items(page.Results, mediaType, domain.SourceSimilar), nil
}

// SearchMulti runs a free-text search across movies and TV; people and
// other result kinds are dropped.
func (c *Client) SearchMulti(ctx context.Context, query string, page int, locale string) ([]domain.CatalogItem, error) {
	if page <= 0 {
		page = 1
	}
	params := url.Values{
		"query":         {strings.TrimSpace(query)},
		"include_adult": {"false"},
		"page":          {strconv.Itoa(page)},
	}
	resp, err := c.fetch(ctx, "search_multi", "/search/multi", params, locale)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CatalogItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		mediaType := domain.NormalizeMediaType(r.MediaType)
		if r.MediaType != string(domain.MediaMovie) && r.MediaType != string(domain.MediaTV) {
			continue
		}
		out = append(out, r.item(mediaType, domain.SourceSearch))
	}
	return out, nil
}

// Discover runs one faceted discovery query.
func (c *Client) Discover(ctx context.Context, q domain.DiscoverQuery, locale string) ([]domain.CatalogItem, error) {
	mediaType := mediaOrMovie(q.MediaType)
	page, err := c.fetch(ctx, "discover", "/discover/"+string(mediaType), discoverParams(q, mediaType), locale)
	if err != nil {
		return nil, err
	}
	return items(page.Results, mediaType, domain.SourceDiscover), nil
}

func discoverParams(q domain.DiscoverQuery, mediaType domain.MediaType) url.Values {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = domain.SortPopularity
	}
	params := url.Values{
		"sort_by":       {string(sortBy)},
		"include_adult": {"false"},
		"page":          {"1"},
	}
	if q.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(q.MinVoteCount))
	}
	if ids := lexicon.GenreIDs(q.Genres, mediaType); len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(parts, ","))
	}
	if lang := strings.TrimSpace(q.OriginalLanguage); lang != "" {
		params.Set("with_original_language", lang)
	}
	dateField := "primary_release_date"
	if mediaType == domain.MediaTV {
		dateField = "first_air_date"
	}
	if q.YearFrom > 0 {
		params.Set(dateField+".gte", fmt.Sprintf("%d-01-01", q.YearFrom))
	}
	if q.YearTo > 0 {
		params.Set(dateField+".lte", fmt.Sprintf("%d-12-31", q.YearTo))
	}
	if q.RuntimeLTE > 0 {
		params.Set("with_runtime.lte", strconv.Itoa(q.RuntimeLTE))
	}
	if q.RuntimeGTE > 0 {
		params.Set("with_runtime.gte", strconv.Itoa(q.RuntimeGTE))
	}
	return params
}

func items(results []result, mediaType domain.MediaType, source domain.ItemSource) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(results))
	for _, r := range results {
		out = append(out, r.item(mediaType, source))
	}
	return out
}

func mediaOrMovie(mediaType domain.MediaType) domain.MediaType {
	if mediaType == domain.MediaTV {
		return domain.MediaTV
	}
	return domain.MediaMovie
}

// fetch performs a GET, serving and filling the Redis cache when one is
// configured. Cache keys never include the API key.
func (c *Client) fetch(ctx context.Context, operation, path string, params url.Values, locale string) (resultPage, error) {
	if !c.Enabled() {
		return resultPage{}, nil
	}
	if strings.TrimSpace(locale) == "" {
		locale = defaultLocale
	}
	params.Set("language", locale)
	cacheKey := redisCacheKey + path + "?" + params.Encode()

	if c.redis != nil {
		if data, err := c.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var page resultPage
			if json.Unmarshal(data, &page) == nil {
				return page, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return resultPage{}, err
		}
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return resultPage{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return resultPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resultPage{}, &domain.UpstreamError{
			Service:    ServiceName,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resultPage{}, err
	}
	var page resultPage
	if err := json.Unmarshal(body, &page); err != nil {
		return resultPage{}, fmt.Errorf("decode tmdb %s: %w", operation, err)
	}

	if c.redis != nil {
		if data, err := json.Marshal(page); err == nil {
			_ = c.redis.Set(ctx, cacheKey, data, c.cacheTTL).Err()
		}
	}
	return page, nil
}
