package ports

import (
	"context"

	"holdfast/internal/holder/models"
)

// Ledger is the ledger collaborator used for revocation checks.
type Ledger interface {
	// GetRevocRegDelta returns the revocation registry delta over the
	// half-open interval [from, to) plus the delta's last-updated
	// timestamp. A zero bound means unbounded on that side.
	GetRevocRegDelta(ctx context.Context, revRegID string, from, to int64) (models.RevRegDelta, int64, error)
}
