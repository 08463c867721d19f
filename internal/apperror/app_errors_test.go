package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	t.Run("Returns the code of a wrapped sentinel", func(t *testing.T) {
		// Given: a sentinel wrapped twice
		err := fmt.Errorf("failed to join: %w", fmt.Errorf("room ABC123: %w", ErrRoomFull))

		// When: resolving the code
		code := Code(err)

		// Then: the sentinel code is returned
		assert.Equal(t, "room_full", code)
	})

	t.Run("Returns internal for unknown errors", func(t *testing.T) {
		assert.Equal(t, "internal", Code(errors.New("boom")))
	})

	t.Run("Every sentinel has a code", func(t *testing.T) {
		for _, c := range codes {
			assert.Equal(t, c.code, Code(c.err), c.err.Error())
		}
	})

	t.Run("A not found code wins over an invalid code", func(t *testing.T) {
		err := fmt.Errorf("%w: %w", ErrRoomNotFound, ErrInvalidRoomCode)

		assert.Equal(t, "room_not_found", Code(err))
	})
}
