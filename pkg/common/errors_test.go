package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	wrapped := fmt.Errorf("%w: bad thing", ErrMalformedInput)
	assert.Equal(t, ErrMalformedInput, Kind(wrapped))
	assert.Equal(t, ErrMalformedInput, Kind(fmt.Errorf("outer: %w", wrapped)))
	assert.Equal(t, ErrInvalidParameter, Kind(ErrPasswordRequired))
	assert.Equal(t, ErrInvalidParameter, Kind(ErrPasswordsDontMatch))
	assert.Equal(t, ErrAuthenticationFailed, Kind(ErrAuthenticationFailed))
	assert.Nil(t, Kind(errors.New("something else")))
	assert.Nil(t, Kind(nil))
}
