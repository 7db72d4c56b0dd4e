// Package actorctx carries the authenticated caller on a request context so
// code below the HTTP layer (services, log handlers) can see who is acting.
package actorctx

import "context"

type ctxKey string

const keyUserID ctxKey = "user_id"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}
