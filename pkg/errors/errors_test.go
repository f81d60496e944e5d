package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsComparesCodes(t *testing.T) {
	cloned := Clone(ErrDatasetNotFound, `admission dataset "x.json" not found`)
	wrapped := fmt.Errorf("startup: %w", cloned)

	assert.True(t, Is(wrapped, ErrDatasetNotFound))
	assert.False(t, Is(wrapped, ErrDatasetMalformed))
	assert.False(t, Is(nil, ErrDatasetNotFound))
	assert.False(t, Is(errors.New("plain"), ErrInternal))
}

func TestCloneKeepsOriginal(t *testing.T) {
	cloned := Clone(ErrValidation, "format must be csv or pdf")

	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, "format must be csv or pdf", cloned.Message)
	assert.Equal(t, http.StatusBadRequest, cloned.Status)
	assert.Nil(t, Clone(nil, "x"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := FromError(fmt.Errorf("load: %w", ErrDatasetUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, typed.Status)

	cause := errors.New("boom")
	generic := FromError(cause)
	assert.Equal(t, ErrInternal.Code, generic.Code)
	assert.ErrorIs(t, generic, cause)
	assert.Equal(t, "internal server error: boom", generic.Error())
}
