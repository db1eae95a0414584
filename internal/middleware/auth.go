package middleware

import (
	"context"
	"slices"

	"connectrpc.com/connect"

	"github.com/mmynk/futsalon/internal/auth"
)

// RequireAuth returns a Connect interceptor that requires a valid login.
// The token comes from the Authorization bearer header or the login cookie,
// and the identity is added to the context for the handler.
// Interceptors run in order, so the identity is visible to LoggingInterceptor
// only when RequireAuth is listed first. Procedures named in public run
// without a login.
func RequireAuth(sessions *auth.SessionManager, public ...string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if slices.Contains(public, req.Spec().Procedure) {
				return next(ctx, req)
			}
			id, err := sessions.FromHeader(ctx, req.Header())
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(auth.WithIdentity(ctx, id), req)
		}
	}
}
