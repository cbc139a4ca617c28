package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash_StableUnderKeyOrder(t *testing.T) {
	// spec §8 invariant 7: structurally equal payloads, regardless of key
	// order, must hash identically.
	a := map[string]any{"ma_short": 9, "ma_long": 50, "rsi_period": 14}
	b := map[string]any{"rsi_period": 14, "ma_long": 50, "ma_short": 9}

	hashA, err := ContentHash(a)
	require.NoError(t, err)
	hashB, err := ContentHash(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestContentHash_DifferentPayloadsDiffer(t *testing.T) {
	a := DefaultIndicatorConfig()
	b := DefaultIndicatorConfig()
	b.RSIPeriod = 21

	hashA, err := ContentHash(a)
	require.NoError(t, err)
	hashB, err := ContentHash(b)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestContentHash_NestedKeyOrderIndependence(t *testing.T) {
	a := map[string]any{
		"outer": map[string]any{"z": 1, "a": 2},
		"list":  []any{1, 2, 3},
	}
	b := map[string]any{
		"list":  []any{1, 2, 3},
		"outer": map[string]any{"a": 2, "z": 1},
	}
	hashA, err := ContentHash(a)
	require.NoError(t, err)
	hashB, err := ContentHash(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}
