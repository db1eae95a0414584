package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/futsalon/internal/auth"
	"github.com/mmynk/futsalon/internal/config"
	"github.com/mmynk/futsalon/internal/metrics"
	"github.com/mmynk/futsalon/internal/middleware"
	"github.com/mmynk/futsalon/internal/service"
	"github.com/mmynk/futsalon/internal/storage"
	"github.com/mmynk/futsalon/internal/storage/sqlite"
	"github.com/mmynk/futsalon/internal/web"
	"github.com/mmynk/futsalon/pkg/logging"
)

// rpcPrefix is the path prefix of every Connect procedure.
const rpcPrefix = "/futsalon.v1."

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	// Logging settings may come from the .env file, so set up after loading.
	logging.Setup()
	if err != nil {
		return err
	}
	if cfg.GeneratedSecret {
		slog.Warn("SESSION_SECRET not set, generated a random one; logins will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	authenticator := auth.NewPasswordAuthenticator(store.Users())
	created, err := authenticator.EnsureUser(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		slog.Info("Seeded admin account", "username", cfg.AdminUsername)
	}

	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies).
		WithRevocations(store.Revocations())
	m := metrics.New()

	handler, err := newHandler(store, authenticator, sessions, m, cfg.MetricsAddr == "")
	if err != nil {
		return err
	}

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	servers := []*http.Server{{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", m.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			slog.Info("Server starting", "address", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()
	}

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}

// newHandler builds the full request pipeline: pages and RPC services on
// one mux, behind the login guard, CORS for RPC paths and request logging.
// With metricsOnMux, /metrics is served there too and needs a login like
// every other page.
func newHandler(store storage.Store, authenticator *auth.PasswordAuthenticator, sessions *auth.SessionManager, m *metrics.Metrics, metricsOnMux bool) (http.Handler, error) {
	mux := http.NewServeMux()

	pages, err := web.New(store, authenticator, sessions, m)
	if err != nil {
		return nil, err
	}
	pages.Routes(mux)

	// Register Connect services; they answer with their own auth error
	// instead of the login redirect.
	ledgerPath, ledgerHandler := service.NewLedgerServiceHandler(
		service.NewLedgerService(store, m),
		connect.WithInterceptors(middleware.RequireAuth(sessions), middleware.LoggingInterceptor()),
	)
	mux.Handle(ledgerPath, ledgerHandler)

	authPath, authHandler := service.NewAuthServiceHandler(
		service.NewAuthService(authenticator, sessions, store.Users()),
		connect.WithInterceptors(
			middleware.RequireAuth(sessions, service.LoginProcedure),
			middleware.LoggingInterceptor(),
		),
	)
	mux.Handle(authPath, authHandler)

	if metricsOnMux {
		mux.Handle("GET /metrics", m.Handler())
	}

	guard := auth.NewGuard(sessions).PublicPrefix(rpcPrefix)
	routeOf := func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
	return middleware.Logging(m, routeOf)(corsMiddleware(guard.Require(mux))), nil
}

// corsMiddleware adds CORS headers to RPC responses so API clients running
// in a browser can call them with a bearer token.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, rpcPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
