package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, CodeNotFound.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, CodeValidation.HTTPStatus())
	assert.Equal(t, http.StatusConflict, CodeConflict.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, CodeUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeInternal.HTTPStatus())
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFound("book not found")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestError_WrappedStillMatches(t *testing.T) {
	cause := fmt.Errorf("disk went away")
	err := Wrap(cause, CodeInternal, "failed to load book")

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk went away")
}

func TestError_WithDetails(t *testing.T) {
	base := Validation("title is required")
	detailed := base.WithDetails(map[string]string{"title": "title is required"})

	assert.Equal(t, base.Code, detailed.Code)
	assert.Equal(t, "title is required", detailed.Details["title"])
	assert.Nil(t, base.Details)
}

func TestError_As(t *testing.T) {
	var target *Error
	err := fmt.Errorf("handler: %w", Conflict("book already exists"))

	require.ErrorAs(t, err, &target)
	assert.Equal(t, CodeConflict, target.Code)
	assert.Equal(t, http.StatusConflict, target.HTTPStatus())
}
