package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerErrorIs(t *testing.T) {
	err := NewTransport("wishlist:1", "request failed", errors.New("connection refused"))
	wrapped := fmt.Errorf("check failed: %w", err)

	assert.True(t, errors.Is(wrapped, ErrTransport))
	assert.False(t, errors.Is(wrapped, ErrSelectorNotFound))
	assert.Equal(t, ErrorTypeTransport, TypeOf(wrapped))
	assert.True(t, err.IsRetryable())
}

func TestTrackerErrorMessage(t *testing.T) {
	err := NewNotFound("product:42", "h1.title")
	assert.Contains(t, err.Error(), "not_found")
	assert.Contains(t, err.Error(), "product:42")
	assert.Contains(t, err.Error(), "h1.title")
	assert.False(t, err.IsRetryable())

	inner := errors.New("boom")
	err = NewStorage("wishlist:7", "update failed", inner)
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, inner)
}

func TestTypeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(ErrAlreadySubscribed))
}
