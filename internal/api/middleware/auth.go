package middleware

import (
	"context"
	"errors"
	"net/http"

	"contest_registry/internal/common"
	"contest_registry/internal/common/security"
	"contest_registry/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
)

// UserLookup resolves the stored account behind a token. It errors with
// common.ErrUnauthorized for unknown users and common.ErrForbidden for deactivated ones.
type UserLookup interface {
	ActiveUser(ctx context.Context, id uint) (*model.User, error)
}

var activeUsers UserLookup

// SetUserLookup makes Authenticator check every token against the stored account,
// so deactivation and role changes apply before the token expires. Nil trusts the claims.
func SetUserLookup(l UserLookup) {
	activeUsers = l
}

// Authenticator rejects requests without a valid token and puts the caller's id and role in context.
// It expects jwtauth.Verifier to have run earlier in the chain.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			if errors.Is(err, jwtauth.ErrNoTokenFound) {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}
		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		role, err := security.GetUserRoleFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		if activeUsers != nil {
			user, err := activeUsers.ActiveUser(r.Context(), userID)
			if err != nil {
				common.RespondWithServiceError(w, err)
				return
			}
			role = string(user.Role)
		}

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		ctx = context.WithValue(ctx, UserRoleCtxKey, model.Role(role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets a request through only when the caller's role is at least min.
// Must run after Authenticator.
func RequireRole(min model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRoleFromContext(r.Context())
			if !ok || !role.Allows(min) {
				common.RespondWithError(w, http.StatusForbidden, string(min)+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AdminOnly(next http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin)(next)
}

func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(uint)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (model.Role, bool) {
	role, ok := ctx.Value(UserRoleCtxKey).(model.Role)
	return role, ok
}
