package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/hirehub/apiserver/internal/auth"
	"github.com/hirehub/apiserver/internal/services"
	"github.com/hirehub/apiserver/types"
)

type contextKey string

const (
	contextUserKey   contextKey = "user"
	contextClaimsKey contextKey = "claims"
)

// TokenVerifier checks a raw token. *auth.TokenService implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Claims, error)
}

// UserLoader loads the account a token was issued to.
type UserLoader interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// Authenticate resolves the caller from the token cookie or Bearer header and
// stores the user in the request context. Requests without a usable token, or
// whose account no longer exists, stop here with 401.
func Authenticate(tokens TokenVerifier, users UserLoader, rs *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := auth.TokenFromRequest(r)
			if raw == "" {
				rs.Error(w, r, errNotAuthenticated)
				return
			}

			claims, err := tokens.Verify(r.Context(), raw)
			if err != nil {
				rs.Error(w, r, err)
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, services.ErrUserNotFound) {
					err = errNotAuthenticated
				}
				rs.Error(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextUserKey, user)
			ctx = context.WithValue(ctx, contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize lets the request through only when the authenticated user holds
// one of roles. It must run after Authenticate.
func Authorize(rs *Responder, roles ...types.Role) func(http.Handler) http.Handler {
	allowed := make(map[types.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userFromContext(r.Context())
			if !ok {
				rs.Error(w, r, errNotAuthenticated)
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				rs.Error(w, r, errRoleNotAllowed)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func claimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(auth.Claims)
	return claims, ok
}

// currentUser returns the authenticated user or errNotAuthenticated.
func currentUser(r *http.Request) (types.User, error) {
	user, ok := userFromContext(r.Context())
	if !ok {
		return types.User{}, errNotAuthenticated
	}
	return user, nil
}
