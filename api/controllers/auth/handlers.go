package auth

import (
	"context"
	"net/http"

	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/api/validators"
	"github.com/angelmondragon/shopora-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
)

// TokenHeader mirrors the access token so clients can read it without parsing the body.
const TokenHeader = "X-Shop-Token"

const maxNameLength = 100

// issueSession decodes a credentials body, hands it to the service, and writes
// the resulting session with the token mirrored into TokenHeader.
func issueSession[Req any](
	svc auth.Service,
	logg *logger.Logger,
	status int,
	call func(ctx context.Context, req Req) (*auth.LoginResponse, error),
	prepare func(*Req),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(err error) { responses.WriteError(r.Context(), logg, w, err) }
		if svc == nil {
			fail(pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body Req
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			fail(err)
			return
		}
		if prepare != nil {
			prepare(&body)
		}

		result, err := call(r.Context(), body)
		if err != nil {
			fail(err)
			return
		}
		w.Header().Set(TokenHeader, result.AccessToken)
		responses.WriteSuccessStatus(w, status, result)
	}
}

// AuthLogin verifies credentials and folds any guest cart into the account.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	var call func(context.Context, auth.LoginRequest) (*auth.LoginResponse, error)
	if svc != nil {
		call = svc.Login
	}
	return issueSession(svc, logg, http.StatusOK, call, nil)
}

// AuthRegister creates a customer account and returns the same payload as login.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	var call func(context.Context, auth.RegisterRequest) (*auth.LoginResponse, error)
	if svc != nil {
		call = svc.Register
	}
	return issueSession(svc, logg, http.StatusCreated, call, func(req *auth.RegisterRequest) {
		req.Name = validators.SanitizeString(req.Name, maxNameLength)
	})
}
