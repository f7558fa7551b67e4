// Package auth verifies bearer tokens issued by the hosted auth backend and
// puts the caller's user id on the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "dompet/internal/log"
)

type contextKey struct{}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingSub   = errors.New("token has no subject")
)

// Config selects how requests are authenticated. With DevUserID set every
// request runs as that user and tokens are not checked.
type Config struct {
	Secret    string
	DevUserID string
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
}

// Authenticator verifies HS256 tokens signed with the configured secret.
type Authenticator struct {
	cfg    Config
	parser *jwt.Parser
}

func New(cfg Config) *Authenticator {
	if cfg.Leeway == 0 {
		cfg.Leeway = 30 * time.Second
	}
	return &Authenticator{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(cfg.Leeway),
			jwt.WithExpirationRequired(),
		),
	}
}

// Authenticate returns the user id carried by the Authorization header.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	if a.cfg.DevUserID != "" {
		return a.cfg.DevUserID, nil
	}

	header := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := a.parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrMissingSub
	}
	return claims.Subject, nil
}

// Middleware rejects unauthenticated requests with a 401 JSON body.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Authenticate(r)
		if err != nil {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).WarnContext(r.Context(), "Authentication failed",
				applog.NewFields().
					WithHTTPRequest(r.Method, r.URL.Path, "", r.Header.Get("User-Agent")).
					WithError(err).
					ToSlice()...)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="dompet"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}

		ctx := WithUserID(r.Context(), userID)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id, or "" outside an authenticated request.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
