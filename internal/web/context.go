package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/traintrack/internal/core"
)

// withRequestMetadata adds the client address to ctx for import history.
// The actor is already on the context from the auth middleware.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithIPAddress(ctx, r.RemoteAddr)
}
