package testutil

import (
	"net/http"

	id "startingline/pkg/domain"
	"startingline/pkg/requestcontext"
)

// AsAccount marks req as authenticated, the way the auth middleware does.
func AsAccount(req *http.Request, accountID id.AccountID, role string) *http.Request {
	ctx := requestcontext.WithAccountID(req.Context(), accountID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// WithRequestID attaches a request id to req.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
