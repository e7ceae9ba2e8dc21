package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cineforge/promptsearch/internal/domain"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	CallTimeout    time.Duration
	LogLevel       string
	LogFormat      string
	RedisURL       string
	TMDBAPIKey     string
	TMDBBaseURL    string
	TMDBRateLimit  float64
	TMDBCacheTTL   time.Duration
	GeminiAPIKey   string
	GeminiModels   []string
	CacheTTL       time.Duration
	CacheDisabled  bool
	AnchorYear     int
	HTTPRateLimit  float64
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8090"),
		RequestTimeout: time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 20)) * time.Second,
		CallTimeout:    time.Duration(getEnvInt("CALL_TIMEOUT_SECONDS", 8)) * time.Second,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		RedisURL:       getEnv("REDIS_URL", ""),
		TMDBAPIKey:     strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:    getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBRateLimit:  getEnvFloat("TMDB_RATE_LIMIT", 0),
		TMDBCacheTTL:   time.Duration(getEnvInt("TMDB_CACHE_TTL_HOURS", 24)) * time.Hour,
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModels:   getEnvList("GEMINI_MODELS"),
		CacheTTL:       time.Duration(getEnvInt("PROMPT_CACHE_TTL_MINUTES", 30)) * time.Minute,
		CacheDisabled:  getEnvBool("PROMPT_CACHE_DISABLED", false),
		AnchorYear:     getEnvInt("RANKING_ANCHOR_YEAR", domain.DefaultAnchorYear),
		HTTPRateLimit:  getEnvFloat("HTTP_RATE_LIMIT_RPS", 50),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvFloat accepts zero and negative values; callers give those meaning.
func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}
