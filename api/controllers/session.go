package controllers

import (
	"context"
	stdErrors "errors"
	"net/http"
	"time"

	authctl "github.com/angelmondragon/shopora-backend/api/controllers/auth"
	"github.com/angelmondragon/shopora-backend/api/middleware"
	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/api/validators"
	pkgAuth "github.com/angelmondragon/shopora-backend/pkg/auth"
	"github.com/angelmondragon/shopora-backend/pkg/auth/session"
	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// sessionHandler is a logout or refresh step that runs once the caller's
// access token has been read. Expired tokens are accepted here: a client must
// be able to log out or refresh after its access token lapsed.
type sessionHandler func(w http.ResponseWriter, r *http.Request, claims *pkgAuth.AccessTokenClaims) error

func withPresentedSession(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger, next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := func() error {
			if manager == nil {
				return errors.New(errors.CodeInternal, "session manager unavailable")
			}
			token, err := middleware.BearerToken(r)
			if err != nil {
				return err
			}
			claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
			if err != nil {
				return errors.Wrap(errors.CodeUnauthorized, err, "invalid token")
			}
			return next(w, r, claims)
		}()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

// AuthLogout deletes the refresh session keyed by the token's jti. The access
// token then fails the session check in middleware.Auth as well.
func AuthLogout(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return withPresentedSession(manager, cfg, logg, func(w http.ResponseWriter, r *http.Request, claims *pkgAuth.AccessTokenClaims) error {
		if err := manager.Revoke(r.Context(), claims.ID); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "revoke session")
		}
		if logg != nil {
			logg.Info(logg.WithUserID(r.Context(), claims.UserID.String()), "session revoked")
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
		return nil
	})
}

// AuthRefresh trades a refresh token for a new pair. A refresh token is
// single use.
func AuthRefresh(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return withPresentedSession(manager, cfg, logg, func(w http.ResponseWriter, r *http.Request, claims *pkgAuth.AccessTokenClaims) error {
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}

		accessID, refreshToken, err := manager.Rotate(r.Context(), claims.ID, body.RefreshToken)
		if stdErrors.Is(err, session.ErrInvalidRefreshToken) {
			return errors.New(errors.CodeUnauthorized, "invalid refresh token")
		}
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "rotate session")
		}

		accessToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID: claims.UserID,
			Role:   claims.Role,
			JTI:    accessID,
		})
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "mint jwt")
		}
		w.Header().Set(authctl.TokenHeader, accessToken)
		responses.WriteSuccess(w, refreshResponse{AccessToken: accessToken, RefreshToken: refreshToken})
		return nil
	})
}
