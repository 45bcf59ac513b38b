package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	base := errors.New("base")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", NewError("bad"), "bad"},
		{"formatted", NewErrorf("bad %d", 3), "bad 3"},
		{"component and op", NewError("bad").WithComponent("genetic").WithOperation("evaluate"), "genetic: evaluate: bad"},
		{"component only", NewError("bad").WithComponent("genetic"), "genetic: bad"},
		{"wrapped", WrapError(base, "outer"), "outer: base"},
		{"wrapped with prefix", WrapErrorf(base, "gen %d", 2).WithOperation("evaluate"), "evaluate: gen 2: base"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
	assert.Nil(t, WrapError(nil, "x"))
	assert.Nil(t, WrapErrorf(nil, "x"))
}

func TestIsOptimizationError(t *testing.T) {
	err := InvalidConfigf("genetic", "population %d", 1)
	wrapped := fmt.Errorf("outer: %w", err)

	got, ok := IsOptimizationError(wrapped)
	assert.True(t, ok)
	assert.Same(t, err, got)
	assert.ErrorIs(t, wrapped, ErrInvalidConfig)

	_, ok = IsOptimizationError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = IsOptimizationError(nil)
	assert.False(t, ok)
}
