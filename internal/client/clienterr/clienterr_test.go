package clienterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfAndMessage(t *testing.T) {
	base := New("Login", KindAuth, "Invalid credentials.")
	wrapped := fmt.Errorf("session: %w", base)

	assert.Equal(t, KindAuth, KindOf(wrapped))
	assert.Equal(t, "Invalid credentials.", MessageOf(wrapped))
	assert.True(t, Is(wrapped, KindAuth))

	plain := errors.New("boom")
	assert.Equal(t, KindUnknown, KindOf(plain))
	assert.Equal(t, MsgGeneric, MessageOf(plain))
	assert.False(t, Is(nil, KindUnknown))
}

func TestWrapKeepsExistingClassification(t *testing.T) {
	inner := New("Save", KindPersistence, MsgPersistence)
	assert.Same(t, inner, Wrap("Login", KindUnknown, "x", inner))

	disk := errors.New("disk full")
	err := Persistence("Save", disk)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.ErrorIs(t, err, disk)

	assert.NoError(t, Wrap("Op", KindNetwork, "m", nil))
}
