package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const authUserKey ctxKey = iota

// AuthUserID returns the Supabase auth user id attached by BearerAuthMiddleware,
// or "" for service-token and unauthenticated requests.
func AuthUserID(ctx context.Context) string {
	v, _ := ctx.Value(authUserKey).(string)
	return v
}

func withAuthUser(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, authUserKey, id)
}

// BearerAuthMiddleware accepts either the static service token or a Supabase
// access token signed with jwtSecret. With neither configured every request
// passes.
func BearerAuthMiddleware(apiToken, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiToken == "" && jwtSecret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if apiToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			if jwtSecret != "" {
				sub, err := verifySupabaseToken(token, jwtSecret)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(withAuthUser(r.Context(), sub)))
					return
				}
			}
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func verifySupabaseToken(token, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
