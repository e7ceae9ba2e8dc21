package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"cineforge/promptsearch/internal/domain"
)

// MaxPromptLength bounds the prompt text accepted by PlanAndSearch.
const MaxPromptLength = 500

var (
	ErrPromptTooLong        = errors.New("prompt is too long")
	ErrCatalogNotConfigured = errors.New("catalog client is not configured")
)

// CatalogClient is the movie/TV catalog the executor queries.
type CatalogClient interface {
	Enabled() bool
	SearchTitle(ctx context.Context, title string, year int, mediaType domain.MediaType, locale string) (*domain.CatalogItem, error)
	SearchMulti(ctx context.Context, query string, page int, locale string) ([]domain.CatalogItem, error)
	Discover(ctx context.Context, query domain.DiscoverQuery, locale string) ([]domain.CatalogItem, error)
	Similar(ctx context.Context, mediaType domain.MediaType, id int, locale string) ([]domain.CatalogItem, error)
	Recommendations(ctx context.Context, mediaType domain.MediaType, id int, locale string) ([]domain.CatalogItem, error)
}

// CompletionClient turns an instruction prompt into completion text.
type CompletionClient interface {
	Enabled() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	upstreamCatalog    = "tmdb"
	upstreamCompletion = "gemini"
)

type Service struct {
	catalog         CatalogClient
	completion      CompletionClient
	timeout         time.Duration
	callTimeout     time.Duration
	retry           RetryConfig
	anchorYear      int
	maxParallel     int64
	cacheDisabled   bool
	cacheTTL        time.Duration
	cacheMaxEntries int
	cacheMu         sync.Mutex
	cache           map[string]*cachedPromptResponse
	redisCache      *RedisCacheBackend
	healthMu        sync.Mutex
	health          map[string]*upstreamHealth
}

type ServiceOption func(*Service)

func WithCompletion(client CompletionClient) ServiceOption {
	return func(s *Service) {
		s.completion = client
	}
}

func WithRedisCache(backend *RedisCacheBackend) ServiceOption {
	return func(s *Service) {
		s.redisCache = backend
	}
}

func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

func WithCallTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.callTimeout = timeout
		}
	}
}

func WithRetryConfig(cfg RetryConfig) ServiceOption {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithAnchorYear fixes the reference year for era windows and recency.
func WithAnchorYear(year int) ServiceOption {
	return func(s *Service) {
		if year > 0 {
			s.anchorYear = year
		}
	}
}

func WithMaxParallel(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxParallel = int64(n)
		}
	}
}

func NewService(catalog CatalogClient, timeout time.Duration, opts ...ServiceOption) *Service {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	svc := &Service{
		catalog:         catalog,
		timeout:         timeout,
		callTimeout:     8 * time.Second,
		retry:           DefaultRetryConfig(),
		anchorYear:      domain.DefaultAnchorYear,
		maxParallel:     defaultMaxParallel,
		cacheTTL:        defaultCacheTTL,
		cacheMaxEntries: defaultCacheMaxEntries,
		cache:           make(map[string]*cachedPromptResponse),
		health:          make(map[string]*upstreamHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) catalogEnabled() bool {
	return s.catalog != nil && s.catalog.Enabled()
}

func (s *Service) completionEnabled() bool {
	return s.completion != nil && s.completion.Enabled()
}
