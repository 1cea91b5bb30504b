package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"schoolpay/internal/domain"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the resolved caller: a user id plus its role. The token
// issuer lives elsewhere; this middleware only resolves bearer credentials
// against storage.
type Identity struct {
	UserID int64
	Role   string
}

type TokenResolver interface {
	FindByPlainToken(ctx context.Context, plainToken string) (*domain.AccessToken, error)
}

func BearerMiddleware(tokens TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var plain string

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				plain = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			}
			if plain == "" {
				// query param fallback, used by websocket connections
				plain = r.URL.Query().Get("token")
			}
			if plain == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := tokens.FindByPlainToken(r.Context(), plain)
			if err != nil {
				if !errors.Is(err, domain.ErrTokenNotFound) {
					log.Printf("[AUTH] token lookup error: %v", err)
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				UserID: token.UserID,
				Role:   token.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetIdentity(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{}, errors.New("identity not found in context")
	}
	return id, nil
}

// WithIdentity is used by tests and the websocket endpoint to inject an
// already-resolved identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
