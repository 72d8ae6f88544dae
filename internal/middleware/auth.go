package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/models"
)

type contextKey string

const (
	ctxCallerKey contextKey = "caller"
	ctxUserKey   contextKey = "user"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// UserLoader loads the current user row for the token subject.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticate validates the Bearer JWT and loads the caller's user row, so
// role changes take effect on the next request. On success the caller and
// user are set into request context.
func Authenticate(tokens TokenValidator, users UserLoader, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			user, err := users.GetByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					http.Error(w, `{"error":"unknown user"}`, http.StatusUnauthorized)
					return
				}
				log.Error("load caller", "user_id", id, "error", err)
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if user.IsSystemAccount {
				http.Error(w, `{"error":"unknown user"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// CallerFromCtx returns the authenticated caller. ok is false on
// unauthenticated requests.
func CallerFromCtx(ctx context.Context) (models.Caller, bool) {
	c, ok := ctx.Value(ctxCallerKey).(models.Caller)
	return c, ok
}

// UserFromCtx returns the authenticated user row or nil.
func UserFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUserKey).(*models.User)
	return u
}

// WithUser returns a context carrying the user and the caller derived from it.
func WithUser(ctx context.Context, u *models.User) context.Context {
	ctx = context.WithValue(ctx, ctxUserKey, u)
	return context.WithValue(ctx, ctxCallerKey, models.CallerFor(u))
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
