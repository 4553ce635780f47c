package domain

import "context"

type ctxKey string

const accessTokenKey ctxKey = "access_token"

// WithAccessToken attaches the caller's bearer token so row-level-secured
// stores can act on the user's behalf.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken returns the bearer token stored by WithAccessToken.
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok && token != ""
}
