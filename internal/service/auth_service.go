package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/futsalon/internal/auth"
	"github.com/mmynk/futsalon/internal/storage"
)

const (
	// AuthServiceName is the fully-qualified name of the AuthService.
	AuthServiceName = "futsalon.v1.AuthService"

	// LoginProcedure exchanges a username and password for a bearer token.
	LoginProcedure = "/" + AuthServiceName + "/Login"
	// LogoutProcedure ends the caller's token.
	LogoutProcedure = "/" + AuthServiceName + "/Logout"
	// GetCurrentUserProcedure returns the caller's account.
	GetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	sessions      *auth.SessionManager
	users         storage.UserRepository
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, sessions *auth.SessionManager, users storage.UserRepository) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		users:         users,
	}
}

// Login authenticates a user and returns a token for the Authorization header.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	slog.Info("Login request", "username", req.Msg.Username)

	if req.Msg.Username == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrEmptyCredentials)
	}

	id, err := s.authenticator.Authenticate(ctx, req.Msg.Username, req.Msg.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Warn("Login failed", "username", req.Msg.Username)
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	if err != nil {
		slog.Error("Login failed", "username", req.Msg.Username, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.sessions.Generate(id)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", id.UserID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("User logged in successfully", "user_id", id.UserID)
	return connect.NewResponse(&LoginResponse{
		UserID:    id.UserID,
		Username:  id.Username,
		Token:     token,
		ExpiresAt: s.sessions.ExpiresAt(),
	}), nil
}

// Logout revokes the token the request was made with.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	if err := s.sessions.Revoke(ctx, req.Header()); err != nil {
		slog.Error("Logout failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if id, ok := auth.IdentityFrom(ctx); ok {
		slog.Info("User logged out", "user_id", id.UserID)
	}
	return connect.NewResponse(&LogoutResponse{}), nil
}

// GetCurrentUser returns the account behind the caller's token.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrNoIdentity)
	}

	user, err := s.users.Get(ctx, id.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrNoIdentity)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetCurrentUserResponse{UserID: user.ID, Username: user.Username}), nil
}

// NewAuthServiceHandler builds an HTTP handler for every AuthService
// procedure. Login must stay reachable without a token, so callers that
// install middleware.RequireAuth should exempt LoginProcedure.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	login := connect.NewUnaryHandler(LoginProcedure, svc.Login, opts...)
	logout := connect.NewUnaryHandler(LogoutProcedure, svc.Logout, opts...)
	getCurrentUser := connect.NewUnaryHandler(GetCurrentUserProcedure, svc.GetCurrentUser, opts...)

	return "/" + AuthServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LoginProcedure:
			login.ServeHTTP(w, r)
		case LogoutProcedure:
			logout.ServeHTTP(w, r)
		case GetCurrentUserProcedure:
			getCurrentUser.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
