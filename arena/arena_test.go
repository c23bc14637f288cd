package arena_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/arena"
)

func TestRegion_PushWritesAndReadsBackBytes(t *testing.T) {
	r := arena.New(16)
	off, err := r.Push(4)
	require.NoError(t, err)

	buf := r.Bytes(off, 4)
	copy(buf, []byte{1, 2, 3, 4})
	require.Equal(t, []byte{1, 2, 3, 4}, r.Bytes(off, 4))
}

func TestRegion_Push_RejectsNegativeSize(t *testing.T) {
	r := arena.New(16)
	_, err := r.Push(-1)
	require.Error(t, err)
}

func TestRegion_Push_GrowsBeyondInitialCapacity(t *testing.T) {
	r := arena.New(2)
	off, err := r.Push(10)
	require.NoError(t, err)
	require.Equal(t, arena.Offset(0), off)

	buf := r.Bytes(off, 10)
	require.Len(t, buf, 10)
}

func TestRegion_PopIsLIFO(t *testing.T) {
	r := arena.New(16)
	a, err := r.Push(4)
	require.NoError(t, err)
	b, err := r.Push(4)
	require.NoError(t, err)

	r.Pop(b)
	r.Pop(a)
}

func TestRegion_Pop_PanicsOnOutOfOrderRelease(t *testing.T) {
	r := arena.New(16)
	a, err := r.Push(4)
	require.NoError(t, err)
	_, err = r.Push(4)
	require.NoError(t, err)

	require.Panics(t, func() { r.Pop(a) })
}

func TestRegion_Pop_PanicsOnUnknownOffset(t *testing.T) {
	r := arena.New(16)
	require.Panics(t, func() { r.Pop(arena.Offset(99)) })
}

func TestRegion_ShouldCompact_ThresholdsOnUsedAndHighWaterFraction(t *testing.T) {
	r := arena.New(100)
	big, err := r.Push(90) // highWater 90% of cap
	require.NoError(t, err)
	require.False(t, r.ShouldCompact()) // used fraction is still 90%, above the 40% cutoff

	r.Pop(big)
	require.True(t, r.ShouldCompact()) // used 0%, highWater still 90%
}

func TestRegion_Compact_SlidesLiveBlocksDownAndReportsRelocations(t *testing.T) {
	r := arena.New(32)
	a, err := r.Push(4)
	require.NoError(t, err)
	copy(r.Bytes(a, 4), []byte{1, 1, 1, 1})
	b, err := r.Push(4)
	require.NoError(t, err)
	copy(r.Bytes(b, 4), []byte{2, 2, 2, 2})
	c, err := r.Push(4)
	require.NoError(t, err)
	copy(r.Bytes(c, 4), []byte{3, 3, 3, 3})

	// Pop only ever releases from the top of the stack, so under this
	// API a fully-live region never develops gaps; Compact over one is a
	// no-op that must still preserve every block's bytes.
	relocs := r.Compact()
	require.Empty(t, relocs)
	require.Equal(t, []byte{1, 1, 1, 1}, r.Bytes(a, 4))
	require.Equal(t, []byte{2, 2, 2, 2}, r.Bytes(b, 4))
	require.Equal(t, []byte{3, 3, 3, 3}, r.Bytes(c, 4))
}

func TestRegion_SubRegion_IsIndependent(t *testing.T) {
	r := arena.New(16)
	sub := r.SubRegion(8)
	off, err := sub.Push(4)
	require.NoError(t, err)
	require.NotNil(t, sub.Bytes(off, 4))
}
