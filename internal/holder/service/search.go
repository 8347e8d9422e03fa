package service

import (
	"context"
	"slices"
	"sort"

	"holdfast/internal/holder/models"
	dErrors "holdfast/pkg/domain-errors"
)

// GetCredentials returns the slice [start : start+count] of the credentials
// matching the wallet query, under the backend's stable ordering. The search
// session is released exactly once, on every exit path.
func (s *Service) GetCredentials(ctx context.Context, start, count int, query models.WQL) ([]models.CredentialInfo, error) {
	search, err := s.wallet.OpenCredentialSearch(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, "cannot construct wallet credential query")
	}
	defer search.Close() //nolint:errcheck // close failure cannot mask the result

	fetch := func(ctx context.Context, limit int) ([]models.CredentialInfo, error) {
		batch, err := search.Fetch(ctx, limit)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBackend, "cannot fetch credentials from wallet")
		}
		if s.metrics != nil {
			s.metrics.IncrementFetchRounds()
		}
		return batch, nil
	}

	if start > 0 {
		// must move the backend cursor manually
		if err := skipChunks(ctx, fetch, start, defaultChunk); err != nil {
			return nil, err
		}
	}
	credentials, err := collectChunks(ctx, fetch, count, defaultChunk)
	if err != nil {
		return nil, err
	}
	return credentials, nil
}

// GetCredentialsForPresentationRequestByReferent searches the wallet for
// credentials eligible for a presentation request, per referent, and merges
// the results into one bounded, deterministically ordered list.
//
// Each credential appears once, annotated with every referent label it
// qualified for in first-seen order. The per-referent collect target is the
// remaining global budget, so total fetched volume stays bounded once count
// distinct matches have been seen. The final order puts irrevocable
// credentials first, ties broken by credential id ascending.
func (s *Service) GetCredentialsForPresentationRequestByReferent(
	ctx context.Context,
	request models.PresentationRequest,
	referents []string,
	start, count int,
	extraQuery models.WQL,
) ([]models.PresentationCredential, error) {
	search, err := s.wallet.OpenPresentationSearch(ctx, request, extraQuery)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, "cannot construct wallet credential query")
	}
	defer search.Close() //nolint:errcheck // close failure cannot mask the result

	if len(referents) == 0 {
		referents = request.Referents()
	}

	// order-preserving accumulation keyed by credential id
	var order []string
	matched := make(map[string]*models.PresentationCredential)

	for _, reft := range referents {
		remaining := count - len(order)
		if remaining <= 0 {
			break
		}

		fetch := func(ctx context.Context, limit int) ([]models.PresentationCredential, error) {
			batch, err := search.FetchForReferent(ctx, reft, limit)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeBackend,
					"cannot fetch credentials from wallet for presentation request")
			}
			if s.metrics != nil {
				s.metrics.IncrementFetchRounds()
			}
			return batch, nil
		}

		if start > 0 {
			// must move the backend cursor manually
			if err := skipChunks(ctx, fetch, start, defaultChunk); err != nil {
				return nil, err
			}
		}
		credentials, err := collectChunks(ctx, fetch, remaining, defaultChunk)
		if err != nil {
			return nil, err
		}

		for _, credential := range credentials {
			id := credential.CredInfo.Referent
			if entry, ok := matched[id]; ok {
				if !slices.Contains(entry.PresentationReferents, reft) {
					entry.PresentationReferents = append(entry.PresentationReferents, reft)
				}
				continue
			}
			entry := credential
			entry.PresentationReferents = []string{reft}
			matched[id] = &entry
			order = append(order, id)
		}
	}

	result := make([]models.PresentationCredential, 0, len(order))
	for _, id := range order {
		result = append(result, *matched[id])
	}

	// irrevocable credentials sort first; an empty registry id precedes
	// any non-empty one under plain string order
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].CredInfo, result[j].CredInfo
		if a.RevRegID != b.RevRegID {
			return a.RevRegID < b.RevRegID
		}
		return a.Referent < b.Referent
	})

	if len(result) > count {
		result = result[:count]
	}
	if s.metrics != nil {
		s.metrics.ObservePresentationMatches(len(result))
	}
	return result, nil
}
