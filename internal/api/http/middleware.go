package apihttp

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/metrics"
)

// statusRecorder captures what a handler wrote for logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// searchOutcome is filled in by the search handlers and read back by the
// middleware after the response is written. Zero value means the request
// never reached a planner.
type searchOutcome struct {
	strategy  string
	mediaType string
	items     int
	failed    int
	cached    bool
	partial   bool
	fallback  bool
}

type outcomeKey struct{}

// withOutcome returns r carrying a shared outcome, reusing one an outer
// middleware already attached.
func withOutcome(r *http.Request) (*http.Request, *searchOutcome) {
	if outcome, ok := r.Context().Value(outcomeKey{}).(*searchOutcome); ok {
		return r, outcome
	}
	outcome := &searchOutcome{}
	return r.WithContext(context.WithValue(r.Context(), outcomeKey{}, outcome)), outcome
}

func noteIntent(ctx context.Context, in domain.Intent) {
	if outcome, ok := ctx.Value(outcomeKey{}).(*searchOutcome); ok {
		outcome.strategy = string(in.Strategy)
		outcome.mediaType = string(in.MediaType)
	}
}

func noteResponse(ctx context.Context, response domain.PromptResponse) {
	outcome, ok := ctx.Value(outcomeKey{}).(*searchOutcome)
	if !ok {
		return
	}
	if response.Intent != nil {
		outcome.strategy = string(response.Intent.Strategy)
		outcome.mediaType = string(response.Intent.MediaType)
	}
	outcome.items = len(response.Items)
	outcome.cached = response.Cached
	outcome.partial = response.Partial
	outcome.fallback = response.AIFallback
	outcome.failed = 0
	for _, call := range response.Calls {
		if !call.OK {
			outcome.failed++
		}
	}
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r, outcome := withOutcome(r)
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Int64("durationMs", time.Since(start).Milliseconds()),
			slog.String("clientIP", clientIP(r)),
		}
		if prompt := strings.TrimSpace(r.URL.Query().Get("q")); prompt != "" {
			attrs = append(attrs, slog.String("prompt", truncate(prompt, 120)))
		}
		if outcome.strategy != "" {
			attrs = append(attrs,
				slog.String("strategy", outcome.strategy),
				slog.String("mediaType", outcome.mediaType),
			)
		}
		if r.URL.Path == "/search/prompt" && rec.status == http.StatusOK {
			attrs = append(attrs,
				slog.Int("items", outcome.items),
				slog.Int("failedCalls", outcome.failed),
				slog.Bool("cached", outcome.cached),
				slog.Bool("partial", outcome.partial),
				slog.Bool("aiFallback", outcome.fallback),
			)
		}
		logger.LogAttrs(r.Context(), requestLogLevel(r.URL.Path, rec.status, outcome), "http request", attrs...)
	})
}

func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			logger.Error("handler panic",
				slog.Any("error", recovered),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latency per route, and counts
// served prompt searches by strategy.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		r, outcome := withOutcome(r)
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := normalizeRoute(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		if route == "/search/prompt" && rec.status == http.StatusOK && outcome.strategy != "" {
			metrics.PromptSearchesTotal.WithLabelValues(outcome.strategy, strconv.FormatBool(outcome.cached)).Inc()
		}
	})
}

func normalizeRoute(path string) string {
	switch path {
	case "/health", "/metrics", "/search/prompt", "/search/intent", "/search/suggest":
		return path
	}
	if strings.HasPrefix(path, "/search/upstreams") {
		return "/search/upstreams"
	}
	return "/other"
}

// requestLogLevel keeps health checks quiet and raises degraded searches to warn.
func requestLogLevel(path string, status int, outcome *searchOutcome) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case outcome.partial || outcome.failed > 0:
		return slog.LevelWarn
	case path == "/health" || path == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

// rateLimitMiddleware sheds search traffic above rps with a 429. Health and
// metrics scrapes are never limited. A non-positive rps turns it off.
func rateLimitMiddleware(rps float64, burst int, next http.Handler) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = max(int(rps*2), 1)
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
