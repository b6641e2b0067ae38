package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/shopora-backend/api/responses"
	pkgAuth "github.com/angelmondragon/shopora-backend/pkg/auth"
	"github.com/angelmondragon/shopora-backend/pkg/auth/session"
	"github.com/angelmondragon/shopora-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
)

// BearerToken extracts the token from the Authorization header. The "Bearer"
// scheme is optional and case-insensitive.
func BearerToken(r *http.Request) (string, error) {
	const scheme = "bearer"
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) >= len(scheme) && strings.EqualFold(token[:len(scheme)], scheme) &&
		(len(token) == len(scheme) || token[len(scheme)] == ' ') {
		token = strings.TrimSpace(token[len(scheme):])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// Auth requires a valid, unexpired access token whose refresh session still
// exists. Logging out deletes the session, so revoked tokens fail here even
// before they expire.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				ctx = logg.WithUserID(ctx, UserIDFromContext(ctx))
				ctx = logg.WithActorRole(ctx, RoleFromContext(ctx))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (context.Context, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if verifier != nil {
		live, err := verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked")
		}
	}
	ctx := WithUserID(r.Context(), claims.UserID.String())
	return WithRole(ctx, string(claims.Role)), nil
}
