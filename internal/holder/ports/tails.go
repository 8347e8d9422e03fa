package ports

import (
	"context"
	"io"
)

// TailsReaderResolver resolves a tails-file path or content-addressed
// location into a byte-stream capability, handed opaquely to the crypto
// engine for revocation-witness computation.
type TailsReaderResolver interface {
	Resolve(ctx context.Context, location string) (io.ReadCloser, error)
}
