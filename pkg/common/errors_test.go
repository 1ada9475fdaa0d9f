package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	err := fmt.Errorf("persist: %w", NewInternalError("failed to save review", cause))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save review: duplicate key", appErr.Error())
}

func TestConstructorsDefaultCauses(t *testing.T) {
	assert.ErrorIs(t, NewConflictError("dup"), ErrConflict)
	assert.ErrorIs(t, NewNotFoundError("missing", nil), ErrNotFound)
	assert.ErrorIs(t, NewValidationError("bad"), ErrValidation)
	assert.Equal(t, http.StatusBadRequest, NewBadRequestError("bad", nil).Code)
}
