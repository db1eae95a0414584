package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/futsalon/internal/auth"
	"github.com/mmynk/futsalon/internal/middleware"
	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/roster"
	"github.com/mmynk/futsalon/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{
	"login",
	"error",
	"home",
	"players",
	"player",
	"sessions",
	"session_form",
	"debts",
}

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"date":  formatDate,
	"join":  strings.Join,
}

// page is the data every template receives.
type page struct {
	Title    string
	Username string
	Data     any
}

// renderer holds one template set per page, each combined with the layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		pages[name] = t
	}
	return &renderer{pages: pages}, nil
}

// render executes a page into a buffer first so template errors never
// produce half-written responses.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) error {
	t, ok := s.views.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	p := page{Title: title, Data: data}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		p.Username = id.Username
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// handle adapts an error-returning handler. Errors are mapped to an error
// page: validation problems are 400, missing records 404, anything else 500.
func (s *Server) handle(h func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.fail(w, r, err)
		}
	}
}

type errorView struct {
	Message string
	Back    string
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	var formErr *ValidationError
	var rosterErr *roster.ValidationError
	switch {
	case errors.As(err, &formErr):
		status, message = http.StatusBadRequest, formErr.Error()
	case errors.As(err, &rosterErr):
		status, message = http.StatusBadRequest, rosterErr.Error()
	case errors.Is(err, storage.ErrNotFound):
		status, message = http.StatusNotFound, "The requested record does not exist."
	}

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", middleware.RequestID(r.Context()),
		"error", err,
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", attrs...)
	} else {
		slog.Warn("Request rejected", attrs...)
	}

	view := errorView{Message: message, Back: backPath(r)}
	if rerr := s.render(w, r, status, "error", http.StatusText(status), view); rerr != nil {
		slog.Error("Failed to render error page", "error", rerr)
		http.Error(w, message, status)
	}
}

// backPath returns the local path of the referring page, or "/".
func backPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") {
		return "/"
	}
	if ref.Host != "" && ref.Host != r.Host {
		return "/"
	}
	return ref.Path
}

func formatMoney(v any) string {
	switch m := v.(type) {
	case decimal.Decimal:
		return m.StringFixed(2)
	case float64:
		return decimal.NewFromFloat(m).StringFixed(2)
	case int:
		return strconv.Itoa(m) + ".00"
	}
	return fmt.Sprint(v)
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}
