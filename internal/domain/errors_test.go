package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalQueryError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("vegetation series: %w", &ExternalQueryError{Op: "reduce", Err: cause})

	assert.True(t, IsExternal(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "vegetation series: reduce: quota exceeded", err.Error())
}

func TestIsExternalFalseForDomainErrors(t *testing.T) {
	assert.False(t, IsExternal(nil))
	assert.False(t, IsExternal(ErrNoData))
	assert.False(t, IsExternal(fmt.Errorf("wrapped: %w", ErrInvalidRequest)))
}
