package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var envelope ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, rec.Body.String())
}

func TestWriteErrorPublicShape(t *testing.T) {
	cases := map[string]struct {
		err         error
		status      int
		message     string
		wantDetails bool
	}{
		"validation keeps message and details": {
			err:         pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "demo"}),
			status:      http.StatusBadRequest,
			message:     "bad input",
			wantDetails: true,
		},
		"insufficient stock keeps details": {
			err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
				WithDetails(map[string]any{"productId": "p1", "requested": 3, "available": 2}),
			status:      http.StatusConflict,
			message:     "not enough stock",
			wantDetails: true,
		},
		"plain error becomes internal": {
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
		"nil error becomes internal": {
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.Header().Set(RequestIDHeader, "req-1")
			WriteError(context.Background(), nil, rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tc.message, body.Message)
			assert.Equal(t, "req-1", body.RequestID)
			assert.Equal(t, tc.wantDetails, body.Details != nil)
		})
	}
}

func TestWriteErrorLogLevels(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &logs})

	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, logs.String(), "request.error")

	logs.Reset()
	rejected := pkgerrors.New(pkgerrors.CodeValidation, "bad").WithDetails(map[string]any{"field": "email"})
	WriteError(context.Background(), logg, httptest.NewRecorder(), rejected)
	assert.Contains(t, logs.String(), "request.rejected")
	assert.Contains(t, logs.String(), `"field":"email"`)
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
