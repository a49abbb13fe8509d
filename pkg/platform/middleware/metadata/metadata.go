package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"startingline/pkg/requestcontext"
)

// Channels reported on orders and in metrics.
const (
	ChannelWeb    = "web"
	ChannelMobile = "mobile"
	ChannelBot    = "bot"
	ChannelAPI    = "api"
)

// ClientMetadata extracts client IP, User-Agent and the derived channel and
// adds them to the request context. Apply early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua, ChannelFromUserAgent(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ChannelFromUserAgent classifies a User-Agent header.
func ChannelFromUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ChannelAPI
	}
	ua := useragent.New(raw)
	switch {
	case ua.Bot():
		return ChannelBot
	case ua.Mobile():
		return ChannelMobile
	}
	if name, _ := ua.Browser(); name != "" && ua.OS() != "" {
		return ChannelWeb
	}
	return ChannelAPI
}

// ClientIPFromRequest returns the originating client IP, honouring
// X-Forwarded-For and X-Real-IP from the fronting proxy.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
