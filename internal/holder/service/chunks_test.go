package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceFetcher serves ints from a fixed backing slice, recording the limit of
// every fetch round.
type sliceFetcher struct {
	items  []int
	pos    int
	limits []int
	err    error
}

func (f *sliceFetcher) fetch(_ context.Context, limit int) ([]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.limits = append(f.limits, limit)
	end := min(f.pos+limit, len(f.items))
	batch := f.items[f.pos:end]
	f.pos = end
	return batch, nil
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestSkipChunks(t *testing.T) {
	f := &sliceFetcher{items: sequence(10)}
	require.NoError(t, skipChunks(context.Background(), f.fetch, 7, 3))
	assert.Equal(t, 7, f.pos)
	// bounded rounds: 3+3+1
	assert.Equal(t, []int{3, 3, 1}, f.limits)
}

func TestSkipChunksExhaustedCursor(t *testing.T) {
	f := &sliceFetcher{items: sequence(4)}
	require.NoError(t, skipChunks(context.Background(), f.fetch, 100, 3))
	assert.Equal(t, 4, f.pos)
	// a short batch stops the skip immediately
	assert.Equal(t, []int{3, 3}, f.limits)
}

func TestCollectChunks(t *testing.T) {
	f := &sliceFetcher{items: sequence(10)}
	out, err := collectChunks(context.Background(), f.fetch, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, sequence(7), out)
	assert.Equal(t, []int{3, 3, 1}, f.limits)
}

func TestCollectChunksShortCursor(t *testing.T) {
	f := &sliceFetcher{items: sequence(4)}
	out, err := collectChunks(context.Background(), f.fetch, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, sequence(4), out)
	// stops the moment a fetch comes back short
	assert.Equal(t, []int{3, 3}, f.limits)
}

func TestCollectChunksZeroTarget(t *testing.T) {
	f := &sliceFetcher{items: sequence(4)}
	out, err := collectChunks(context.Background(), f.fetch, 0, 3)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, f.limits)
}

func TestChunkedSliceProperty(t *testing.T) {
	// start/count slicing over a chunked cursor always yields the slice
	// [start : start+count] of the backing sequence
	const n = 23
	for _, chunk := range []int{1, 3, 5, 64} {
		for _, start := range []int{0, 1, 7, 22, 23, 40} {
			for _, count := range []int{0, 1, 5, 23, 50} {
				f := &sliceFetcher{items: sequence(n)}
				require.NoError(t, skipChunks(context.Background(), f.fetch, start, chunk))
				out, err := collectChunks(context.Background(), f.fetch, count, chunk)
				require.NoError(t, err)

				lo := min(start, n)
				hi := min(start+count, n)
				assert.Equal(t, sequence(n)[lo:hi], append([]int{}, out...),
					"chunk=%d start=%d count=%d", chunk, start, count)
			}
		}
	}
}

func TestChunksPropagateFetchErrors(t *testing.T) {
	f := &sliceFetcher{err: errors.New("cursor gone")}
	require.Error(t, skipChunks(context.Background(), f.fetch, 5, 3))
	_, err := collectChunks(context.Background(), f.fetch, 5, 3)
	require.Error(t, err)
}
