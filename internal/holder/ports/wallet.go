// Package ports declares the external capability interfaces the holder layer
// depends on: the wallet/crypto engine, the ledger client, and tails-file
// reader resolution. The holder never talks to a concrete wallet
// implementation directly.
package ports

import (
	"context"
	"encoding/json"
	"io"

	"holdfast/internal/holder/models"
)

// CredentialSearch is a cursor over stored credentials matching a wallet
// query. It must be closed exactly once, on every exit path.
type CredentialSearch interface {
	// Fetch returns up to limit credentials, advancing the cursor. A
	// short batch signals cursor exhaustion.
	Fetch(ctx context.Context, limit int) ([]models.CredentialInfo, error)
	Close() error
}

// PresentationSearch is a cursor over credentials eligible for a
// presentation request, advanced independently per referent. It must be
// closed exactly once, on every exit path.
type PresentationSearch interface {
	FetchForReferent(ctx context.Context, referent string, limit int) ([]models.PresentationCredential, error)
	Close() error
}

// StoreCredentialParams carries the inputs to Wallet.StoreCredential.
type StoreCredentialParams struct {
	// CredentialID overrides the stored credential id; the wallet assigns
	// one when empty.
	CredentialID         string
	CredentialDefinition json.RawMessage
	Credential           models.Credential
	RequestMetadata      json.RawMessage
	RevRegDef            json.RawMessage
}

// RevocationStateParams carries the inputs to Wallet.CreateRevocationState.
type RevocationStateParams struct {
	RevRegDef json.RawMessage
	CredRevID string
	Delta     models.RevRegDelta
	Timestamp int64
	Tails     io.Reader
}

// PresentationParams carries the inputs to Wallet.CreatePresentation.
type PresentationParams struct {
	Request               models.PresentationRequest
	RequestedCredentials  json.RawMessage
	Schemas               json.RawMessage
	CredentialDefinitions json.RawMessage
	RevocationStates      json.RawMessage
}

// Wallet is the holder-side capability of the wallet/crypto engine. All
// cryptographic protocol work happens behind this interface.
type Wallet interface {
	// CreateCredentialRequest blinds a credential request against an
	// issuer offer, returning the request and its private metadata.
	CreateCredentialRequest(ctx context.Context, offer, credDef json.RawMessage, holderDID string) (request, metadata json.RawMessage, err error)
	// StoreCredential persists an issued credential and returns its final
	// id.
	StoreCredential(ctx context.Context, params StoreCredentialParams) (string, error)
	GetCredential(ctx context.Context, credentialID string) (models.Credential, error)
	DeleteCredential(ctx context.Context, credentialID string) error
	OpenCredentialSearch(ctx context.Context, query models.WQL) (CredentialSearch, error)
	OpenPresentationSearch(ctx context.Context, request models.PresentationRequest, extraQuery models.WQL) (PresentationSearch, error)
	// CreateRevocationState computes a point-in-time revocation witness.
	CreateRevocationState(ctx context.Context, params RevocationStateParams) (json.RawMessage, error)
	// CreatePresentation constructs a zero-knowledge proof for a
	// presentation request.
	CreatePresentation(ctx context.Context, params PresentationParams) (json.RawMessage, error)
}
