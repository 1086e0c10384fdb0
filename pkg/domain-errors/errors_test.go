package domainerrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "failed to persist appointment")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, HasCode(err, CodeUnavailable))
	assert.False(t, HasCode(err, CodeNotFound))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeUnavailable, "ignored"))
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := New(CodeConflict, "appointment already exists")
	outer := Wrap(inner, CodeUnavailable, "failed to process appointment")

	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.True(t, HasCode(outer, CodeConflict))
	assert.Equal(t, CodeUnavailable, CodeOf(outer))
}

func TestMessageOfShieldsUnclassifiedErrors(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(errors.New("pq: relation does not exist")))
	assert.Equal(t, "appointment not found", MessageOf(New(CodeNotFound, "appointment not found")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeInvalidInput:       http.StatusBadRequest,
		CodeBadRequest:         http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInvariantViolation: http.StatusConflict,
		CodeUnavailable:        http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
		Code("unknown"):        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
