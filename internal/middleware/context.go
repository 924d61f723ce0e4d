package middleware

import (
	"context"

	"github.com/beachmessages/relay/internal/observability"
)

type ctxKey int

const subjectKey ctxKey = iota

func RequestIDFromContext(ctx context.Context) string {
	return observability.RequestID(ctx)
}

// Subject returns the token subject stored by JWT, if any.
func Subject(ctx context.Context) string {
	v := ctx.Value(subjectKey)
	if v == nil {
		return ""
	}
	return v.(string)
}
