package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header carries a caller supplied request id.
const Header = "X-Request-Id"

type contextKey struct{}

var requestIDKey contextKey

func Generate() string {
	return uuid.NewString()
}

func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromContext returns an empty string when no request id was set.
func FromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
