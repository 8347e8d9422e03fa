// Package adapters provides production implementations of the holder ports
// that need no external collaborator of their own.
package adapters

import (
	"context"
	"io"
	"os"
)

// LocalTailsResolver resolves tails-file locations on the local filesystem.
type LocalTailsResolver struct{}

// Resolve opens the tails file at path for reading.
func (LocalTailsResolver) Resolve(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}
