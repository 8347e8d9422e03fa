package service

import "context"

// defaultChunk caps how many credentials a single wallet fetch may return,
// bounding memory regardless of the caller's requested count.
const defaultChunk = 256

// fetchFunc pulls up to limit items from an open search cursor.
type fetchFunc[T any] func(ctx context.Context, limit int) ([]T, error)

// skipChunks advances the cursor past skip entries, fetching and discarding
// in bounded chunks so no more than one chunk is ever materialized. A short
// batch means the cursor is already exhausted.
func skipChunks[T any](ctx context.Context, fetch fetchFunc[T], skip, chunk int) error {
	for skip > 0 {
		n := min(skip, chunk)
		batch, err := fetch(ctx, n)
		if err != nil {
			return err
		}
		skip -= len(batch)
		if len(batch) < n {
			return nil
		}
	}
	return nil
}

// collectChunks gathers up to target entries, fetching min(remaining, chunk)
// per round and stopping early the moment a fetch comes back short, even if
// the running total is below target.
func collectChunks[T any](ctx context.Context, fetch fetchFunc[T], target, chunk int) ([]T, error) {
	var out []T
	for len(out) < target {
		n := min(target-len(out), chunk)
		batch, err := fetch(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < n {
			break
		}
	}
	return out, nil
}
