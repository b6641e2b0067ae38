package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryCodeHasMetadata(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound,
		CodeInsufficientStock, CodeInvalidQuantity, CodeConflict, CodeStateConflict,
		CodeIdempotency, CodeRateLimit, CodeInternal, CodeDependency,
	}
	for _, code := range codes {
		_, ok := metadataByCode[code]
		assert.True(t, ok, "missing metadata for %s", code)
	}
	assert.Len(t, metadataByCode, len(codes))
}

func TestMetadataFor(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:        {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", ExposeMessage: true, DetailsAllowed: true},
		CodeInsufficientStock: {HTTPStatus: http.StatusConflict, PublicMessage: "insufficient stock", ExposeMessage: true, DetailsAllowed: true},
		CodeStateConflict:     {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", ExposeMessage: true, DetailsAllowed: true},
		CodeRateLimit:         {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", ExposeMessage: true},
		CodeInternal:          {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:        {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		"SOMETHING_UNKNOWN":   {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	}
	for code, want := range cases {
		assert.Equal(t, want, MetadataFor(code), string(code))
	}
}

func TestInternalMessagesStayPrivate(t *testing.T) {
	assert.False(t, MetadataFor(CodeInternal).ExposeMessage)
	assert.False(t, MetadataFor(CodeDependency).ExposeMessage)
}

func TestErrorAccessors(t *testing.T) {
	err := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, err.Code())
	assert.Equal(t, "missing foo", err.Message())
	assert.Nil(t, err.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing foo", err.Error())

	same := err.WithDetails(map[string]string{"field": "foo"})
	assert.Same(t, err, same)
	assert.Equal(t, map[string]string{"field": "foo"}, err.Details())

	var nilErr *Error
	assert.Equal(t, CodeInternal, nilErr.Code())
	assert.Empty(t, nilErr.Error())
	assert.Nil(t, nilErr.WithDetails("x"))
	assert.NoError(t, nilErr.Unwrap())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "save order")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "CONFLICT: save order: boom", wrapped.Error())

	bare := Wrap(CodeInternal, nil, "no cause")
	assert.Equal(t, "INTERNAL_ERROR: no cause", bare.Error())
	assert.NoError(t, bare.Unwrap())
}

func TestCodeLookupThroughWrapping(t *testing.T) {
	err := fmt.Errorf("add item: %w", New(CodeInsufficientStock, "insufficient stock"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeInsufficientStock, typed.Code())

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInsufficientStock, code)
	assert.True(t, Is(err, CodeInsufficientStock))
	assert.False(t, Is(err, CodeNotFound))

	_, ok = CodeOf(stdErrors.New("plain"))
	assert.False(t, ok)
	assert.False(t, Is(stdErrors.New("plain"), CodeInternal))
	assert.Nil(t, As(nil))
}

func TestAsReturnsOutermostTypedError(t *testing.T) {
	inner := New(CodeNotFound, "product missing")
	outer := Wrap(CodeValidation, inner, "invalid cart line")
	assert.Equal(t, CodeValidation, As(outer).Code())
	assert.ErrorIs(t, outer, inner)
}
