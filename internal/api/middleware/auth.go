package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
)

// Auth validates HS256 bearer tokens. The subject claim is the user id and
// the "role" claim decides admin access.
type Auth struct {
	secret    []byte
	adminRole string
}

// NewAuth creates the token middleware. An empty secret rejects every
// admin request and treats every customer as a guest.
func NewAuth(secret, adminRole string) *Auth {
	if adminRole == "" {
		adminRole = "admin"
	}
	return &Auth{secret: []byte(secret), adminRole: adminRole}
}

// UserIDFromContext returns the authenticated user id, or "" for guests
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RoleFromContext returns the role claim of the authenticated caller
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// OptionalUser attaches the caller's identity when a valid token is present.
// Missing or invalid tokens fall through as guests.
func (a *Auth) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// AdminOnly rejects requests without a valid token carrying the admin role.
func (a *Auth) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r)
		if err != nil {
			observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("rejected admin token")
			writeAuthError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		if role, _ := claims["role"].(string); role != a.adminRole {
			writeAuthError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (a *Auth) parse(r *http.Request) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, jwt.ErrTokenUnverifiable
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, jwt.ErrTokenMalformed
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func withClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		ctx = context.WithValue(ctx, userIDKey, sub)
	}
	if role, ok := claims["role"].(string); ok {
		ctx = context.WithValue(ctx, roleKey, role)
	}
	return ctx
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
