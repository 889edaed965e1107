package ayerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructorsSetKind(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want Kind
	}{
		{"spec", Specf("ctx", "bad %s", "name"), Spec},
		{"invariant", Invariantf("ctx", "broken"), Invariant},
		{"cache", Cachef("ctx", "stale"), Cache},
		{"simulation", Simulationf("ctx", "oops"), Simulation},
		{"io", IOf("ctx", "failed"), IO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Kind)
			require.True(t, Is(tt.err, tt.want))
		})
	}
}

func TestIsFollowsWrapChain(t *testing.T) {
	base := Specf("season.yaml", "unknown name %q", "alice")
	wrapped := fmt.Errorf("loading season: %w", base)
	require.True(t, Is(wrapped, Spec))
	require.False(t, Is(wrapped, IO))
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), Spec))
	require.False(t, Is(nil, Spec))
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := Specf("constraint 3", "unknown A name %q", "bob")
	require.Contains(t, err.Error(), "constraint 3")
	require.Contains(t, err.Error(), "bob")
	require.Contains(t, err.Error(), "spec")
}

func TestUnwrapReturnsUnderlyingError(t *testing.T) {
	inner := errors.New("boom")
	err := New(Cache, "cache.json", inner)
	require.Equal(t, inner, errors.Unwrap(err))
}
