package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/internal/auth"
	"github.com/angelmondragon/shopora-backend/internal/users"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
)

type stubAuthService struct {
	calls        int
	lastLogin    auth.LoginRequest
	lastRegister auth.RegisterRequest
	resp         *auth.LoginResponse
	err          error
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.calls++
	s.lastLogin = req
	return s.resp, s.err
}

func (s *stubAuthService) Register(_ context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	s.calls++
	s.lastRegister = req
	return s.resp, s.err
}

func post(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestAuthLoginMirrorsTokenAndForwardsGuestCart(t *testing.T) {
	productID := uuid.New()
	svc := &stubAuthService{resp: &auth.LoginResponse{
		AccessToken:     "access",
		RefreshToken:    "refresh",
		GuestCartMerged: true,
		User:            &users.UserDTO{ID: uuid.New(), Email: "c@example.com", Role: enums.UserRoleCustomer},
	}}
	body := `{"email":"c@example.com","password":"pw","guestCart":[{"productId":"` + productID.String() + `","quantity":2}]}`

	rec := post(AuthLogin(svc, nil), "/api/v1/auth/login", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "access", rec.Header().Get(TokenHeader))
	require.Len(t, svc.lastLogin.GuestCart, 1)
	assert.Equal(t, productID, svc.lastLogin.GuestCart[0].ProductID)

	var envelope struct {
		Data struct {
			AccessToken     string `json:"access_token"`
			GuestCartMerged bool   `json:"guestCartMerged"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "access", envelope.Data.AccessToken)
	assert.True(t, envelope.Data.GuestCartMerged)
}

func TestAuthLoginKeepsFractionalGuestLineForMerge(t *testing.T) {
	svc := &stubAuthService{resp: &auth.LoginResponse{AccessToken: "access"}}
	body := `{"email":"c@example.com","password":"pw","guestCart":[{"productId":"` + uuid.NewString() + `","quantity":1.5}]}`

	rec := post(AuthLogin(svc, nil), "/api/v1/auth/login", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.lastLogin.GuestCart, 1)
	assert.Equal(t, "1.5", svc.lastLogin.GuestCart[0].Quantity.String())
}

func TestAuthRegisterSanitizesNameAndReturnsCreated(t *testing.T) {
	svc := &stubAuthService{resp: &auth.LoginResponse{AccessToken: "access", User: &users.UserDTO{Name: "Ann"}}}

	rec := post(AuthRegister(svc, nil), "/api/v1/auth/register", `{"name":"  Ann  ","email":"ann@example.com","password":"secret-pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Ann", svc.lastRegister.Name)
	assert.Equal(t, "access", rec.Header().Get(TokenHeader))
}

func TestAuthHandlerFailures(t *testing.T) {
	cases := map[string]struct {
		handler   func(auth.Service) http.HandlerFunc
		svc       *stubAuthService
		body      string
		want      int
		wantCalls int
	}{
		"login malformed body": {
			handler: func(s auth.Service) http.HandlerFunc { return AuthLogin(s, nil) },
			svc:     &stubAuthService{},
			body:    `{"email":"not-an-email"}`,
			want:    http.StatusBadRequest,
		},
		"login bad credentials": {
			handler:   func(s auth.Service) http.HandlerFunc { return AuthLogin(s, nil) },
			svc:       &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")},
			body:      `{"email":"c@example.com","password":"bad"}`,
			want:      http.StatusUnauthorized,
			wantCalls: 1,
		},
		"register duplicate email": {
			handler:   func(s auth.Service) http.HandlerFunc { return AuthRegister(s, nil) },
			svc:       &stubAuthService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")},
			body:      `{"name":"Ann","email":"ann@example.com","password":"secret-pw"}`,
			want:      http.StatusConflict,
			wantCalls: 1,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(tc.handler(tc.svc), "/", tc.body)
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.wantCalls, tc.svc.calls)
			assert.Empty(t, rec.Header().Get(TokenHeader))
		})
	}
}

func TestAuthHandlersWithoutService(t *testing.T) {
	for _, handler := range []http.HandlerFunc{AuthLogin(nil, nil), AuthRegister(nil, nil)} {
		rec := post(handler, "/", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
}
