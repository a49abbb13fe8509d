package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"startingline/internal/platform/metrics"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/httputil"
	"startingline/pkg/requestcontext"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"

	maxKeyLength = 255
	maxBodyBytes = 1 << 20
	defaultTTL   = 24 * time.Hour
)

type Guard struct {
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Guard)

func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func NewGuard(store Store, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		ttl:    defaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware applies the guard to requests that carry an Idempotency-Key.
// Only 2xx responses are remembered; anything else releases the key so the
// caller can retry. Store outages degrade to plain, unguarded handling.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderKey)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		if len(key) > maxKeyLength {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Idempotency-Key must be at most 255 characters"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil || len(body) > maxBodyBytes {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		scoped := scope(r, key)
		fingerprint := fingerprintOf(body)
		existing, err := g.store.Claim(ctx, scoped, fingerprint, g.ttl)
		if err != nil {
			g.logger.WarnContext(ctx, "idempotency store unavailable, serving unguarded",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}
		if existing != nil {
			g.answerRepeat(w, r, existing, fingerprint)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		storeCtx := context.WithoutCancel(ctx)
		if rec.status >= 200 && rec.status < 300 {
			err = g.store.Complete(storeCtx, scoped, Record{
				Fingerprint: fingerprint,
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}, g.ttl)
		} else {
			err = g.store.Release(storeCtx, scoped)
		}
		if err != nil {
			g.logger.WarnContext(ctx, "failed to settle idempotency key",
				"error", err,
				"status", rec.status,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	})
}

func (g *Guard) answerRepeat(w http.ResponseWriter, r *http.Request, existing *Record, fingerprint string) {
	ctx := r.Context()
	switch {
	case existing.Fingerprint != fingerprint:
		g.logger.InfoContext(ctx, "idempotency key reused with a different body",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "Idempotency-Key was already used for a different request"))
	case existing.Pending:
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a request with this Idempotency-Key is still being processed"))
	default:
		g.metrics.IncrementIdempotentReplays()
		if existing.ContentType != "" {
			w.Header().Set("Content-Type", existing.ContentType)
		}
		w.Header().Set(HeaderReplayed, "true")
		w.WriteHeader(existing.Status)
		_, _ = w.Write(existing.Body)
	}
}

// scope binds a client key to the caller and route so two callers choosing
// the same key never see each other's responses.
func scope(r *http.Request, key string) string {
	caller := "anonymous"
	if accountID := requestcontext.AccountID(r.Context()); !accountID.IsNil() {
		caller = accountID.String()
	}
	return r.Method + " " + r.URL.Path + "|" + caller + "|" + key
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type recorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
