package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type distance struct{ Meters int }

func TestHasCode(t *testing.T) {
	base := New(CodeNotFound, "service not found")
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, HasCode(base, CodeNotFound))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeConflict))
	assert.False(t, HasCode(nil, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "noop"))

	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to save")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save: connection reset", err.Error())
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestDetailsOf(t *testing.T) {
	err := WithDetails(CodeOutOfRange, "too far", distance{Meters: 600})

	d, ok := DetailsOf[distance](fmt.Errorf("check in: %w", err))
	assert.True(t, ok)
	assert.Equal(t, 600, d.Meters)

	_, ok = DetailsOf[string](err)
	assert.False(t, ok)
}
