package gateway

import "context"

type ctxKey struct{}

func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the AuthContext the gateway attached, nil when the
// request never went through it.
func FromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(ctxKey{}).(*AuthContext)
	return ac
}
