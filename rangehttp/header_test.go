package rangehttp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRangeHeadersSinglePack(t *testing.T) {
	inputs := []RangeRequest{
		{Offset: 0, Size: 10},
		{Offset: 20, Size: 5},
		{Offset: 100, Size: 1},
	}
	packs := BuildRangeHeaders(inputs, 3900)
	require.Len(t, packs, 1)
	require.Equal(t, "0-9,20-24,100-100", packs[0].Value)
	require.Equal(t, 0, packs[0].Start)
	require.Equal(t, 3, packs[0].Count)
}

func TestBuildRangeHeadersSplitsOnBudget(t *testing.T) {
	inputs := []RangeRequest{
		{Offset: 0, Size: 10},  // "0-9" = 3 bytes
		{Offset: 20, Size: 10}, // "20-29" = 5 bytes
		{Offset: 40, Size: 10}, // "40-49" = 5 bytes
	}
	// Budget small enough that only the first two ranges fit in one pack.
	packs := BuildRangeHeaders(inputs, 9)
	require.Len(t, packs, 2)
	require.Equal(t, "0-9,20-29", packs[0].Value)
	require.Equal(t, 0, packs[0].Start)
	require.Equal(t, 2, packs[0].Count)
	require.Equal(t, "40-49", packs[1].Value)
	require.Equal(t, 2, packs[1].Start)
	require.Equal(t, 1, packs[1].Count)
}

func TestBuildRangeHeadersOversizedRangeAlone(t *testing.T) {
	inputs := []RangeRequest{{Offset: 0, Size: 1}}
	packs := BuildRangeHeaders(inputs, 1) // "0-0" is 3 bytes, exceeds budget 1
	require.Len(t, packs, 1)
	require.Equal(t, "0-0", packs[0].Value)
}

func TestBuildRangeHeadersZeroSizeRangeEncodesAsOffsetOffset(t *testing.T) {
	inputs := []RangeRequest{{Offset: 42, Size: 0}}
	packs := BuildRangeHeaders(inputs, 3900)
	require.Len(t, packs, 1)
	require.Equal(t, "42-42", packs[0].Value)
}

func TestBuildRangeHeadersEmptyInput(t *testing.T) {
	packs := BuildRangeHeaders(nil, 3900)
	require.Empty(t, packs)
}
