package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/httputil"
	"startingline/pkg/requestcontext"
)

// TokenValidator validates identity tokens minted at registration.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the identity facts the middleware needs from a token.
type Claims struct {
	AccountID string
	Role      string
}

const bearerPrefix = "Bearer "

// OptionalAuth authenticates the caller when a bearer token is present and
// lets anonymous requests through. A present but invalid token is rejected:
// silently downgrading it to anonymous would create a second account.
func OptionalAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			r, ok := authenticate(w, r, header, validator, logger)
			if !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}
			r, ok := authenticate(w, r, header, validator, logger)
			if !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, header string, validator TokenValidator, logger *slog.Logger) (*http.Request, bool) {
	ctx := r.Context()
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
		return r, false
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access - invalid token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
		return r, false
	}

	accountID, err := id.ParseAccountID(claims.AccountID)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access - token subject is not an account id",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
		return r, false
	}

	ctx = requestcontext.WithAccountID(ctx, accountID)
	ctx = requestcontext.WithRole(ctx, claims.Role)
	return r.WithContext(ctx), true
}
