// Package web serves the HTML administration pages.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/futsalon/internal/auth"
	"github.com/mmynk/futsalon/internal/metrics"
	"github.com/mmynk/futsalon/internal/storage"
)

// Server holds the dependencies of the HTML handlers.
type Server struct {
	store         storage.Store
	authenticator auth.Authenticator
	sessions      *auth.SessionManager
	metrics       *metrics.Metrics
	validate      *validator.Validate
	views         *renderer
}

// New creates a Server. m may be nil.
func New(store storage.Store, authenticator auth.Authenticator, sessions *auth.SessionManager, m *metrics.Metrics) (*Server, error) {
	views, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{
		store:         store,
		authenticator: authenticator,
		sessions:      sessions,
		metrics:       m,
		validate:      newValidator(),
		views:         views,
	}, nil
}

// Routes registers every page on mux. Access control is applied outside,
// by wrapping the mux in auth.Guard.Require.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", s.handle(s.loginPage))
	mux.HandleFunc("POST /login", s.handle(s.login))
	mux.HandleFunc("GET /logout", s.logout)

	mux.HandleFunc("GET /{$}", s.handle(s.home))

	mux.HandleFunc("GET /players", s.handle(s.listPlayers))
	mux.HandleFunc("POST /players", s.handle(s.createPlayer))
	mux.HandleFunc("GET /players/{id}", s.handle(s.playerDetail))
	mux.HandleFunc("POST /players/{id}/edit", s.handle(s.updatePlayer))
	mux.HandleFunc("POST /players/{id}/delete", s.handle(s.deletePlayer))

	mux.HandleFunc("GET /sessions", s.handle(s.listSessions))
	mux.HandleFunc("GET /sessions/new", s.handle(s.newSession))
	mux.HandleFunc("POST /sessions", s.handle(s.createSession))
	mux.HandleFunc("GET /sessions/{id}/edit", s.handle(s.editSession))
	mux.HandleFunc("POST /sessions/{id}/edit", s.handle(s.updateSession))
	mux.HandleFunc("POST /sessions/{id}/delete", s.handle(s.deleteSession))

	mux.HandleFunc("GET /debts", s.handle(s.debts))
	mux.HandleFunc("POST /payments", s.handle(s.createPayment))
	mux.HandleFunc("POST /payments/{id}/delete", s.handle(s.deletePayment))

	mux.HandleFunc("GET /backup", s.handle(s.backup))
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
}

// healthz reports whether the store answers.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "unavailable")
		return
	}
	fmt.Fprintln(w, "ok")
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
