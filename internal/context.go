package internal

import (
	"context"
)

type ctxKey string

const ContextUserKey ctxKey = "operatorID"

// UserIDFromContext returns the operator identity placed by the auth middleware.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserKey).(string); ok {
		return userID
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserKey, userID)
}
