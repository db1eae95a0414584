package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/futsalon/internal/auth"
)

type loginView struct {
	Failed bool
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) error {
	if _, err := s.sessions.FromHeader(r.Context(), r.Header); err == nil {
		redirect(w, r, "/")
		return nil
	}
	view := loginView{Failed: r.URL.Query().Get("failed") != ""}
	return s.render(w, r, http.StatusOK, "login", "Log in", view)
}

// login checks the submitted credentials. Any rejection sends the visitor
// back to the login form with no identity set.
func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	form := parseLoginForm(r)
	if err := s.check(form); err != nil {
		s.metrics.LoginAttempt(false)
		redirect(w, r, auth.LoginPath+"?failed=1")
		return nil
	}

	id, err := s.authenticator.Authenticate(r.Context(), form.Username, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Warn("Login failed", "username", form.Username)
		s.metrics.LoginAttempt(false)
		redirect(w, r, auth.LoginPath+"?failed=1")
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.sessions.Login(w, id); err != nil {
		return err
	}
	s.metrics.LoginAttempt(true)
	slog.Info("User logged in", "username", id.Username, "user_id", id.UserID)

	redirect(w, r, "/")
	return nil
}

// logout ends the token server side as well, so a copied cookie stops
// working too.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Revoke(r.Context(), r.Header); err != nil {
		slog.Error("Failed to revoke token", "error", err)
	}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		slog.Info("User logged out", "username", id.Username)
	}
	s.sessions.Logout(w)
	redirect(w, r, auth.LoginPath)
}
