package errs_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/internal/errs"
)

func TestNew_CarriesKindAndMessage(t *testing.T) {
	err := errs.New(errs.ShapeMismatch, "bad shape %d", 3)
	require.EqualError(t, err, "bad shape 3")
	require.True(t, errs.Is(err, errs.ShapeMismatch))
	require.False(t, errs.Is(err, errs.InvalidInput))
}

func TestWrap_NilIsNil(t *testing.T) {
	require.NoError(t, errs.Wrap(errs.CollectiveFailure, nil, "context"))
}

func TestWrap_PreservesKindAndWrapsMessage(t *testing.T) {
	inner := fmt.Errorf("network down")
	err := errs.Wrap(errs.CollectiveFailure, inner, "broadcast failed")
	require.True(t, errs.Is(err, errs.CollectiveFailure))
	require.Contains(t, err.Error(), "broadcast failed")
	require.Contains(t, err.Error(), "network down")
}

func TestIs_UnwrapsThroughPlainWrappedErrors(t *testing.T) {
	base := errs.New(errs.InvalidInput, "bad input")
	wrapped := fmt.Errorf("outer: %w", base)
	require.True(t, errs.Is(wrapped, errs.InvalidInput))
	require.False(t, errs.Is(wrapped, errs.ShapeMismatch))
}

func TestIs_FalseForPlainError(t *testing.T) {
	require.False(t, errs.Is(fmt.Errorf("plain"), errs.ShapeMismatch))
	require.False(t, errs.Is(nil, errs.ShapeMismatch))
}

func TestFatal(t *testing.T) {
	require.True(t, errs.Fatal(errs.ResourceExhausted))
	require.True(t, errs.Fatal(errs.CollectiveFailure))
	require.False(t, errs.Fatal(errs.ShapeMismatch))
	require.False(t, errs.Fatal(errs.InvalidInput))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "shape_mismatch", errs.ShapeMismatch.String())
	require.Equal(t, "resource_exhausted", errs.ResourceExhausted.String())
	require.Equal(t, "collective_failure", errs.CollectiveFailure.String())
	require.Equal(t, "invalid_input", errs.InvalidInput.String())
	require.Equal(t, "unknown", errs.Kind(99).String())
}
