package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("wrapped error keeps the chain", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeUnavailable, "store unreachable")
		require.Error(t, err)
		assert.True(t, errors.Is(err, cause))
		assert.True(t, HasCode(err, CodeUnavailable))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "case missing")
		outer := Wrap(inner, CodeInternal, "lookup failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.False(t, HasCode(outer, CodeNotFound))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(New(CodeConflict, "duplicate case")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeBadRequest, CodeOf(fmt.Errorf("outer: %w", New(CodeBadRequest, "bad"))))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput: http.StatusBadRequest,
		CodeBadRequest:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeUnavailable:  http.StatusServiceUnavailable,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
