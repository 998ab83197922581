package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatchesAfterWrapping(t *testing.T) {
	errInvalidRate := Validation("invalid_rate")
	wrapped := fmt.Errorf("quote: %w", errInvalidRate)

	assert.True(t, errors.Is(wrapped, errInvalidRate))
	assert.True(t, IsValidation(wrapped))
	assert.Equal(t, "invalid_rate", CodeOf(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestDistinctCodesDoNotMatch(t *testing.T) {
	assert.False(t, errors.Is(Conflict("already_captured"), Conflict("invalid_status")))
	assert.False(t, errors.Is(Conflict("already_captured"), Validation("already_captured")))
}

func TestExternalUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := External("paystack", cause)

	assert.True(t, IsExternal(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "external_service_error: paystack: dial tcp: i/o timeout", err.Error())
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
