package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("submit: %w", Wrap(ErrStorageUnavailable, "Could not save the chat", cause))

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)

	msg, ok := PublicMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "Could not save the chat", msg)
	assert.Contains(t, err.Error(), "connection reset")

	_, ok = PublicMessage(ErrInternal)
	assert.False(t, ok)

	assert.Equal(t, "resource not found: Chat not found", New(ErrNotFound, "Chat not found").Error())
}
