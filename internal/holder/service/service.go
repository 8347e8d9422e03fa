// Package service implements the credential-wallet lifecycle and query
// operations of the holder: storing and retrieving credentials, paginated
// wallet search, presentation-request matching, and revocation-state
// assembly. All cryptographic work is delegated to the wallet port.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"holdfast/internal/holder/metrics"
	"holdfast/internal/holder/models"
	"holdfast/internal/holder/ports"
	"holdfast/internal/holder/store"
	dErrors "holdfast/pkg/domain-errors"
)

// Service exposes the holder-side wallet operations.
type Service struct {
	wallet   ports.Wallet
	metadata *store.MetadataStore
	tails    ports.TailsReaderResolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the holder service.
type Option func(*Service)

// WithTailsResolver configures the tails-file reader resolution mechanism.
func WithTailsResolver(resolver ports.TailsReaderResolver) Option {
	return func(s *Service) { s.tails = resolver }
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics configures prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a holder service over the wallet capability and the
// metadata side-record store.
func NewService(wallet ports.Wallet, metadata *store.MetadataStore, opts ...Option) *Service {
	svc := &Service{
		wallet:   wallet,
		metadata: metadata,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateCredentialRequest blinds a credential request for the given issuer
// offer. Backend failures carry a fixed context plus the original cause; no
// retries.
func (s *Service) CreateCredentialRequest(ctx context.Context, offer, credDef json.RawMessage, holderDID string) (json.RawMessage, json.RawMessage, error) {
	request, metadata, err := s.wallet.CreateCredentialRequest(ctx, offer, credDef, holderDID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBackend, "cannot create credential request")
	}
	if s.logger != nil {
		s.logger.Debug("created credential request", "holder_did", holderDID)
	}
	return request, metadata, nil
}

// StoreCredential persists an issued credential through the wallet and, when
// a MIME-type map is supplied, a metadata side record restricted to the
// attribute names actually present on the credential. Returns the final
// credential id, wallet-assigned when the caller passed none.
func (s *Service) StoreCredential(
	ctx context.Context,
	credDef json.RawMessage,
	credential models.Credential,
	requestMetadata json.RawMessage,
	mimeTypes map[string]string,
	credentialID string,
	revRegDef json.RawMessage,
) (string, error) {
	id, err := s.wallet.StoreCredential(ctx, ports.StoreCredentialParams{
		CredentialID:         credentialID,
		CredentialDefinition: credDef,
		Credential:           credential,
		RequestMetadata:      requestMetadata,
		RevRegDef:            revRegDef,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBackend, "cannot store credential in wallet")
	}

	if len(mimeTypes) > 0 {
		kept := make(map[string]string)
		for attr := range credential.Values {
			if mt, ok := mimeTypes[attr]; ok {
				kept[attr] = mt
			}
		}
		if len(kept) > 0 {
			if err := s.metadata.Put(ctx, id, kept); err != nil {
				return "", err
			}
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementCredentialsStored()
	}
	return id, nil
}

// GetCredential fetches a stored credential by id; NotFound when absent.
func (s *Service) GetCredential(ctx context.Context, credentialID string) (models.Credential, error) {
	credential, err := s.wallet.GetCredential(ctx, credentialID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.Credential{}, err
		}
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeBackend,
			fmt.Sprintf("cannot fetch credential %s", credentialID))
	}
	return credential, nil
}

// DeleteCredential removes a stored credential, cascading to its metadata
// record first. A missing metadata record is tolerated; a missing credential
// is surfaced as NotFound.
func (s *Service) DeleteCredential(ctx context.Context, credentialID string) error {
	if err := s.metadata.Delete(ctx, credentialID); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		// MIME types record not present: carry on
	}

	if err := s.wallet.DeleteCredential(ctx, credentialID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeBackend, "cannot delete credential")
	}
	if s.metrics != nil {
		s.metrics.IncrementCredentialsDeleted()
	}
	return nil
}

// GetMimeTypes returns a credential's attribute MIME-type map. A credential
// with no metadata record yields (nil, nil): a normal outcome, not an error.
func (s *Service) GetMimeTypes(ctx context.Context, credentialID string) (map[string]string, error) {
	mimeTypes, err := s.metadata.Get(ctx, credentialID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil // no MIME types: not an error
		}
		return nil, err
	}
	return mimeTypes, nil
}

// GetMimeType returns the declared MIME type of one attribute, or "" when
// the credential has no metadata record or the attribute none declared.
func (s *Service) GetMimeType(ctx context.Context, credentialID, attr string) (string, error) {
	mimeTypes, err := s.GetMimeTypes(ctx, credentialID)
	if err != nil {
		return "", err
	}
	return mimeTypes[attr], nil
}

// CredentialRevoked checks the ledger for the credential's revocation status
// over the half-open interval [from, to). Credentials without a revocation
// registry are never revoked.
func (s *Service) CredentialRevoked(ctx context.Context, ledger ports.Ledger, credentialID string, from, to int64) (bool, error) {
	credential, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return false, err
	}
	if credential.RevRegID == "" {
		return false, nil
	}

	credRevID, err := strconv.ParseInt(credential.CredRevID, 10, 64)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeValidation,
			fmt.Sprintf("invalid credential revocation index on credential %s", credentialID))
	}

	delta, _, err := ledger.GetRevocRegDelta(ctx, credential.RevRegID, from, to)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeBackend, "cannot fetch revocation registry delta")
	}
	return delta.IsRevoked(credRevID), nil
}

// CreatePresentation constructs a zero-knowledge proof for the presentation
// request from the requested credentials.
func (s *Service) CreatePresentation(ctx context.Context, params ports.PresentationParams) (json.RawMessage, error) {
	presentation, err := s.wallet.CreatePresentation(ctx, params)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, "cannot construct proof")
	}
	return presentation, nil
}
