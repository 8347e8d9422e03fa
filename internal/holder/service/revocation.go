package service

import (
	"context"
	"encoding/json"

	"holdfast/internal/holder/models"
	"holdfast/internal/holder/ports"
	dErrors "holdfast/pkg/domain-errors"
)

// CreateRevocationState produces a point-in-time revocation witness for a
// received credential. The state is recomputed on demand and never cached by
// this layer. Tails-reader resolution failures wrap into the same fixed
// context as engine failures.
func (s *Service) CreateRevocationState(
	ctx context.Context,
	credRevID string,
	revRegDef json.RawMessage,
	delta models.RevRegDelta,
	timestamp int64,
	tailsLocation string,
) (json.RawMessage, error) {
	if s.tails == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "tails reader resolution not configured")
	}

	tails, err := s.tails.Resolve(ctx, tailsLocation)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, "cannot construct revocation state")
	}
	defer tails.Close() //nolint:errcheck // read-only stream

	state, err := s.wallet.CreateRevocationState(ctx, ports.RevocationStateParams{
		RevRegDef: revRegDef,
		CredRevID: credRevID,
		Delta:     delta,
		Timestamp: timestamp,
		Tails:     tails,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, "cannot construct revocation state")
	}
	return state, nil
}
