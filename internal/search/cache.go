package search

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/metrics"
)

const (
	defaultCacheTTL        = 30 * time.Minute
	defaultCacheMaxEntries = 400
	redisCacheTimeout      = 300 * time.Millisecond
)

type cachedPromptResponse struct {
	response  domain.PromptResponse
	updatedAt time.Time
	expiresAt time.Time
}

func (s *Service) cacheLookup(ctx context.Context, key string, now time.Time) (domain.PromptResponse, bool) {
	if s.redisCache != nil {
		redisCtx, cancel := context.WithTimeout(ctx, redisCacheTimeout)
		resp, found, err := s.redisCache.Get(redisCtx, key)
		cancel()
		if err != nil {
			slog.Debug("prompt cache: redis get failed", slog.String("error", err.Error()))
		}
		if err == nil && found {
			metrics.CacheHitsTotal.Inc()
			s.cacheStoreMemoryOnly(key, resp, now)
			return resp, true
		}
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return domain.PromptResponse{}, false
	}
	if now.Before(entry.expiresAt) {
		metrics.CacheHitsTotal.Inc()
		return clonePromptResponse(entry.response), true
	}

	metrics.CacheMissesTotal.Inc()
	delete(s.cache, key)
	return domain.PromptResponse{}, false
}

func (s *Service) cacheStore(ctx context.Context, key string, response domain.PromptResponse, now time.Time) {
	if s.redisCache != nil {
		redisCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisCacheTimeout)
		if err := s.redisCache.Set(redisCtx, key, response, s.cacheTTLOrDefault()); err != nil {
			slog.Debug("prompt cache: redis set failed", slog.String("error", err.Error()))
		}
		cancel()
	}
	s.cacheStoreMemoryOnly(key, response, now)
}

func (s *Service) cacheStoreMemoryOnly(key string, response domain.PromptResponse, now time.Time) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache[key] = &cachedPromptResponse{
		response:  clonePromptResponse(response),
		updatedAt: now,
		expiresAt: now.Add(s.cacheTTLOrDefault()),
	}
	s.trimCacheLocked(now)
}

func (s *Service) cacheTTLOrDefault() time.Duration {
	if s.cacheTTL <= 0 {
		return defaultCacheTTL
	}
	return s.cacheTTL
}

func (s *Service) trimCacheLocked(now time.Time) {
	maxEntries := s.cacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}

	for key, entry := range s.cache {
		if !now.Before(entry.expiresAt) {
			delete(s.cache, key)
		}
	}
	if len(s.cache) <= maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedPromptResponse
	}
	items := make([]pair, 0, len(s.cache))
	for key, entry := range s.cache {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-maxEntries; i++ {
		delete(s.cache, items[i].key)
	}
}

func clonePromptResponse(response domain.PromptResponse) domain.PromptResponse {
	cloned := response
	if response.Items != nil {
		cloned.Items = make([]domain.CatalogItem, len(response.Items))
		for i, item := range response.Items {
			copied := item
			copied.GenreIDs = append([]int(nil), item.GenreIDs...)
			cloned.Items[i] = copied
		}
	}
	if response.Intent != nil {
		intent := response.Intent.Clone()
		cloned.Intent = &intent
	}
	if response.Calls != nil {
		cloned.Calls = append([]domain.CallStatus(nil), response.Calls...)
	}
	return cloned
}

// buildPromptCacheKey identifies a request by its normalized prompt, its
// hints and a digest of any caller-supplied suggestion.
func buildPromptCacheKey(request domain.PromptRequest, anchorYear int) string {
	prompt := strings.Join(strings.Fields(strings.ToLower(request.Prompt)), " ")
	return strings.Join([]string{
		"q=" + prompt,
		"t=" + string(request.MediaTypeHint),
		"l=" + strings.ToLower(strings.TrimSpace(request.LanguageHint)),
		"y=" + strconv.Itoa(request.YearHint),
		"ai=" + strconv.FormatBool(request.UseAI),
		"s=" + suggestionDigest(request.AISuggestion),
		"a=" + strconv.Itoa(anchorYear),
	}, "|")
}

func suggestionDigest(s *domain.AISuggestion) string {
	if s == nil {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "invalid"
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return strconv.FormatUint(h.Sum64(), 16)
}
