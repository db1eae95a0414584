package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmynk/futsalon/internal/storage"
)

// CookieName is the cookie that carries the login token.
const CookieName = "futsalon_session"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoIdentity   = errors.New("not logged in")
	ErrRevokedToken = fmt.Errorf("%w: logged out", ErrInvalidToken)
)

// SessionManager issues and validates login tokens. A token is an HS256 JWT
// holding the Identity; it travels in an HttpOnly cookie for browsers or in
// an Authorization bearer header for API clients.
type SessionManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	secureCookie  bool
	revoked       storage.RevocationRepository
	now           func() time.Time
}

// Claims represents the custom JWT claims for a login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewSessionManager creates a new session manager with the given secret and token duration.
// secretKey should be a strong random string (e.g., 32 bytes).
// tokenDuration is how long a login lasts (e.g., 24 hours).
func NewSessionManager(secretKey string, tokenDuration time.Duration, secureCookie bool) *SessionManager {
	return &SessionManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		secureCookie:  secureCookie,
		now:           time.Now,
	}
}

// WithRevocations makes logouts end tokens server side: revoked token ids
// are rejected by FromHeader until they expire.
func (m *SessionManager) WithRevocations(revoked storage.RevocationRepository) *SessionManager {
	m.revoked = revoked
	return m
}

// Generate creates a signed token for the identity.
func (m *SessionManager) Generate(id Identity) (string, error) {
	now := m.now()
	claims := &Claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(id.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ExpiresAt is when a token generated now stops being valid.
func (m *SessionManager) ExpiresAt() time.Time {
	return m.now().Add(m.tokenDuration)
}

// Validate parses and validates a token, returning the identity if valid.
// It does not consult the revocation list; FromHeader does.
func (m *SessionManager) Validate(tokenString string) (Identity, error) {
	id, _, err := m.parse(tokenString)
	return id, err
}

func (m *SessionManager) parse(tokenString string) (Identity, *Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return Identity{}, nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.Username == "" {
		return Identity{}, nil, ErrInvalidToken
	}

	return Identity{UserID: userID, Username: claims.Username}, claims, nil
}

// Login stores a fresh token for id in the response cookie.
func (m *SessionManager) Login(w http.ResponseWriter, id Identity) error {
	token, err := m.Generate(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.tokenDuration.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout clears the login cookie.
func (m *SessionManager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromHeader extracts the identity from request headers: the Authorization
// bearer token wins over the cookie. Returns ErrNoIdentity when neither is
// present and ErrRevokedToken for a token ended by Revoke.
func (m *SessionManager) FromHeader(ctx context.Context, h http.Header) (Identity, error) {
	tokenString, err := tokenFromHeader(h)
	if err != nil {
		return Identity{}, err
	}
	id, claims, err := m.parse(tokenString)
	if err != nil {
		return Identity{}, err
	}

	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Identity{}, err
		}
		if revoked {
			return Identity{}, ErrRevokedToken
		}
	}
	return id, nil
}

// Revoke ends the login carried by h so its token stops working before it
// expires. Requests without a valid token have nothing to revoke.
func (m *SessionManager) Revoke(ctx context.Context, h http.Header) error {
	if m.revoked == nil {
		return nil
	}
	tokenString, err := tokenFromHeader(h)
	if err != nil {
		return nil
	}
	_, claims, err := m.parse(tokenString)
	if err != nil {
		return nil
	}
	return m.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func tokenFromHeader(h http.Header) (string, error) {
	if authHeader := h.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", ErrInvalidToken
		}
		return parts[1], nil
	}

	r := http.Request{Header: h}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoIdentity
	}
	return cookie.Value, nil
}
