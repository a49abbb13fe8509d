package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"startingline/internal/platform/metrics"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/httputil"
	"startingline/pkg/requestcontext"
)

type Limiter struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New limits each client to limit requests per window. A non-positive limit
// disables the limiter.
func New(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware admits or rejects the request for its client. Authenticated
// callers are keyed by account, anonymous ones by client IP. A failing store
// lets the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := clientKey(r)

		result, err := l.store.Allow(ctx, key, l.limit, l.window)
		if err != nil {
			l.logger.WarnContext(ctx, "rate limit store unavailable, admitting request",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			l.metrics.IncrementRateLimited()
			l.logger.InfoContext(ctx, "registration submission rate limited",
				"client", key,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(time.Now())))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many registration attempts, please try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	ctx := r.Context()
	if accountID := requestcontext.AccountID(ctx); !accountID.IsNil() {
		return "account:" + accountID.String()
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + r.RemoteAddr
}
