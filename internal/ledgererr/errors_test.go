package ledgererr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := InsufficientFunds("insufficient funds: required %s, available %s", "50.50", "10.00")

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrLimitExceeded))
	assert.Equal(t, "insufficient funds: required 50.50, available 10.00", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("card transfer: %w", NotFound("card %s not found", "c1"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsClientError(err))
}

func TestUntypedErrorsAreSystem(t *testing.T) {
	err := errors.New("disk I/O error")

	assert.Equal(t, KindSystem, KindOf(err))
	assert.False(t, IsClientError(err))
	assert.Equal(t, 500, StatusCode(err))
}

func TestSystemUnwraps(t *testing.T) {
	cause := errors.New("database is locked")
	err := System("failed to commit transaction", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrSystem))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 200},
		{Validation("bad"), 400},
		{NotFound("missing"), 404},
		{LimitExceeded("over"), 422},
		{InvalidOperation("self"), 422},
		{InsufficientFunds("short"), 422},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err))
	}
}
