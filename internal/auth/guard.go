package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/login"

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Decision is the outcome of a guard check: either Authenticated with an
// Identity, or denied with the reason in Err.
type Decision struct {
	Identity      Identity
	Authenticated bool
	Err           error
}

// Guard admits requests that carry a valid login and turns everyone else
// away before the protected handler runs.
type Guard struct {
	sessions *SessionManager
	public   []string
	prefixes []string
}

// NewGuard creates a guard. The login page, health probe, favicon and
// static assets are always public.
func NewGuard(sessions *SessionManager) *Guard {
	return &Guard{
		sessions: sessions,
		public:   []string{LoginPath, "/healthz", "/favicon.ico"},
		prefixes: []string{"/static/"},
	}
}

// PublicPrefix marks additional path prefixes as not needing a login here,
// typically because another layer authenticates them.
func (g *Guard) PublicPrefix(prefixes ...string) *Guard {
	g.prefixes = append(g.prefixes, prefixes...)
	return g
}

// IsPublic reports whether path skips the login check.
func (g *Guard) IsPublic(path string) bool {
	for _, p := range g.public {
		if path == p {
			return true
		}
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Check decides whether r carries a valid login.
func (g *Guard) Check(r *http.Request) Decision {
	id, err := g.sessions.FromHeader(r.Context(), r.Header)
	if err != nil {
		return Decision{Err: err}
	}
	return Decision{Identity: id, Authenticated: true}
}

// IsAuthenticated reports whether ctx carries an identity.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := IdentityFrom(ctx)
	return ok
}

// Require wraps next so that protected paths are only served to logged in
// users. Anonymous requests get a 303 to the login page and next never runs.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Check(r)
		if decision.Authenticated {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), decision.Identity)))
			return
		}

		if g.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if errors.Is(decision.Err, ErrInvalidToken) {
			slog.Debug("Rejected login token", "path", r.URL.Path, "error", decision.Err)
			g.sessions.Logout(w)
		}
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	})
}
