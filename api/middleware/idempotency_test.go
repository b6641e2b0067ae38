package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/api/validators"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
)

// memoryStore is an in-process stand-in for the redis idempotency store.
type memoryStore map[string]string

func (m memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, taken := m[key]; taken {
		return false, nil
	}
	m[key], _ = value.(string)
	return true, nil
}

func (m memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m[key], _ = value.(string)
	return nil
}

func (m memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m, k)
	}
	return nil
}

func (m memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

type idemCall struct {
	method  string
	path    string
	pattern string
	key     string
	body    string
}

var (
	placeOrder = idemCall{method: http.MethodPost, path: "/api/v1/orders", pattern: "/api/v1/orders"}
	payOrder   = idemCall{method: http.MethodPut, path: "/api/v1/orders/7/pay", pattern: "/api/v1/orders/{id}/pay"}
)

func (c idemCall) with(key, body string) idemCall {
	c.key, c.body = key, body
	return c
}

func (c idemCall) withPath(path string) idemCall {
	c.path = path
	return c
}

// serve runs c through the middleware with the chi route pattern already
// resolved, as it would be inside the router.
func (c idemCall) serve(store memoryStore, next http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
	if c.key != "" {
		req.Header.Set(idempotencyHeader, c.key)
	}
	rctx := chi.NewRouteContext()
	rctx.RoutePatterns = []string{c.pattern}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	Idempotency(store, nil)(next).ServeHTTP(rec, req)
	return rec
}

func respond(status int, body string, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls != nil {
			*calls++
		}
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func mustNotRun(t *testing.T) http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestRouteRules(t *testing.T) {
	cases := []struct {
		method, pattern string
		ok, required    bool
		ttl             time.Duration
	}{
		{http.MethodPost, "/api/v1/orders", true, false, criticalIdempotencyTTL},
		{http.MethodPut, "/api/v1/orders/{id}/pay", true, true, criticalIdempotencyTTL},
		{http.MethodPut, "/api/v1/orders/{id}/cancel", true, false, criticalIdempotencyTTL},
		{http.MethodPost, "/api/v1/cart/merge", true, false, defaultIdempotencyTTL},
		{http.MethodPost, "/api/v1/auth/register", true, false, defaultIdempotencyTTL},
		{http.MethodPut, "/api/v1/orders/{id}/deliver", false, false, 0},
		{http.MethodPost, "/api/v1/auth/login", false, false, 0},
		{http.MethodGet, "/api/v1/orders", false, false, 0},
	}
	for _, tc := range cases {
		rule, ok := routeRule(tc.method, tc.pattern)
		require.Equal(t, tc.ok, ok, "%s %s", tc.method, tc.pattern)
		assert.Equal(t, tc.required, rule.required, "%s %s", tc.method, tc.pattern)
		assert.Equal(t, tc.ttl, rule.ttl, "%s %s", tc.method, tc.pattern)
	}
}

func TestIdempotencyRequiresKeyForPayment(t *testing.T) {
	rec := payOrder.with("", `{"id":"pi_1"}`).serve(memoryStore{}, mustNotRun(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
}

func TestIdempotencyOptionalKeyPassesThrough(t *testing.T) {
	store := memoryStore{}
	calls := 0
	for range 2 {
		rec := placeOrder.with("", `{"paymentMethod":"PayPal"}`).serve(store, respond(http.StatusCreated, "", &calls))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store)
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	store := memoryStore{}
	calls := 0
	call := placeOrder.with("abc", `{"foo":"bar"}`)
	handler := respond(http.StatusAccepted, `{"ok":true}`, &calls)

	first := call.serve(store, handler)
	require.Equal(t, http.StatusAccepted, first.Code)
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	second := call.serve(store, handler)
	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"ok":true}`, second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyKeysAreScopedToPath(t *testing.T) {
	store := memoryStore{}
	calls := 0
	handler := respond(http.StatusOK, "", &calls)

	cancel := idemCall{method: http.MethodPut, pattern: "/api/v1/orders/{id}/cancel"}
	cancel.with("same", `{}`).withPath("/api/v1/orders/1/cancel").serve(store, handler)
	cancel.with("same", `{}`).withPath("/api/v1/orders/2/cancel").serve(store, handler)

	assert.Equal(t, 2, calls)
	assert.Len(t, store, 2)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := memoryStore{}
	placeOrder.with("xyz", `{"foo":"bar"}`).serve(store, respond(http.StatusOK, "", nil))

	rec := placeOrder.with("xyz", `{"foo":"diff"}`).serve(store, mustNotRun(t))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := memoryStore{}
	call := placeOrder.with("race", `{"a":1}`)
	var dup *httptest.ResponseRecorder
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		dup = call.serve(store, mustNotRun(t))
		w.WriteHeader(http.StatusCreated)
	})

	rec := call.serve(store, handler)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, dup)
	assert.Equal(t, http.StatusConflict, dup.Code)
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := memoryStore{}
	call := payOrder.with("retry-me", `{}`)
	calls := 0

	rec := call.serve(store, respond(http.StatusServiceUnavailable, "", &calls))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, store, "5xx responses are not recorded")

	rec = call.serve(store, respond(http.StatusOK, "", &calls))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
	assert.Len(t, store, 1)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	key := strings.Repeat("k", maxIdempotencyKeyLen+1)
	rec := placeOrder.with(key, `{}`).serve(memoryStore{}, mustNotRun(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyRejectsOversizedBody(t *testing.T) {
	store := memoryStore{}
	body := `{"pad":"` + strings.Repeat("x", validators.MaxBodyBytes) + `"}`

	rec := placeOrder.with("big", body).serve(store, mustNotRun(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
	assert.Empty(t, store, "nothing is claimed for a rejected body")
}
