package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[*Error]int{
		Validation("bad"):           http.StatusBadRequest,
		Unauthenticated("who"):      http.StatusUnauthorized,
		Forbidden("no"):             http.StatusForbidden,
		NotFound("gone"):            http.StatusNotFound,
		Conflict("dup"):             http.StatusConflict,
		Processing("pdf", nil):      http.StatusUnprocessableEntity,
		Canceled("gone", nil):       StatusClientClosedRequest,
		Internal("boom", nil):       http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, err.Status(), err.Message)
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	got := From(cause)
	assert.Equal(t, KindInternal, got.Kind)
	assert.ErrorIs(t, got, cause)

	wrapped := fmt.Errorf("send message: %w", NotFound("conversation not found"))
	got = From(wrapped)
	assert.Equal(t, KindNotFound, got.Kind)
	assert.Equal(t, "conversation not found", got.Message)
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindValidation))
	assert.Nil(t, From(nil))
}
