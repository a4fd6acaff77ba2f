package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrConflict, "staff id already exists")
	assert.Equal(t, "staff id already exists", err.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	wrapped := fmt.Errorf("load profile: %w", sql.ErrConnDone)
	appErr := FromError(wrapped)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)

	typed := Validation(errors.New("bad gender"), "invalid application payload")
	assert.Same(t, typed, FromError(fmt.Errorf("submit: %w", typed)))
	assert.Nil(t, FromError(nil))
}
