// Package models defines the JSON document shapes exchanged with the wallet
// and ledger collaborators: credentials, presentation requests, and
// revocation registry deltas.
package models

import (
	"encoding/json"
	"sort"
)

// WQL is a wallet query over stored credentials. Scalar entries match by
// equality ("schema_id", "cred_def_id", "attr::<name>::value", ...); the
// reserved "$and", "$or" and "$not" keys combine clauses.
type WQL map[string]any

// AttributeValue is one issued attribute: the raw value plus its encoded
// form as signed by the issuer.
type AttributeValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded,omitempty"`
}

// Credential is a stored credential document: a signed attribute bundle tied
// to a schema and credential definition, optionally bound to a revocation
// registry. Signature material is carried opaquely.
type Credential struct {
	SchemaID                  string                    `json:"schema_id"`
	CredDefID                 string                    `json:"cred_def_id"`
	RevRegID                  string                    `json:"rev_reg_id,omitempty"`
	CredRevID                 string                    `json:"cred_rev_id,omitempty"`
	Values                    map[string]AttributeValue `json:"values"`
	Signature                 json.RawMessage           `json:"signature,omitempty"`
	SignatureCorrectnessProof json.RawMessage           `json:"signature_correctness_proof,omitempty"`
	Witness                   json.RawMessage           `json:"witness,omitempty"`
}

// AttributeNames returns the credential's attribute names in sorted order.
func (c Credential) AttributeNames() []string {
	names := make([]string, 0, len(c.Values))
	for name := range c.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CredentialInfo is the public view of a stored credential as returned by
// wallet searches. Referent is the wallet credential id.
type CredentialInfo struct {
	Referent  string            `json:"referent"`
	Attrs     map[string]string `json:"attrs"`
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
	RevRegID  string            `json:"rev_reg_id,omitempty"`
	CredRevID string            `json:"cred_rev_id,omitempty"`
}

// NonRevokedInterval is a half-open timestamp interval over which revocation
// freshness is requested.
type NonRevokedInterval struct {
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

// AttributeSpec is one requested attribute group in a presentation request.
// Either Name or Names is set.
type AttributeSpec struct {
	Name         string              `json:"name,omitempty"`
	Names        []string            `json:"names,omitempty"`
	Restrictions []map[string]string `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

// PredicateSpec is one requested predicate in a presentation request.
type PredicateSpec struct {
	Name         string              `json:"name"`
	PType        string              `json:"p_type"`
	PValue       int64               `json:"p_value"`
	Restrictions []map[string]string `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

// PresentationRequest is a verifier-side proof request. Referent labels key
// the requested attribute and predicate groups.
type PresentationRequest struct {
	Name                string                   `json:"name,omitempty"`
	Version             string                   `json:"version,omitempty"`
	Nonce               string                   `json:"nonce,omitempty"`
	RequestedAttributes map[string]AttributeSpec `json:"requested_attributes"`
	RequestedPredicates map[string]PredicateSpec `json:"requested_predicates"`
	NonRevoked          *NonRevokedInterval      `json:"non_revoked,omitempty"`
}

// Referents returns the union of attribute and predicate referent labels:
// attributes first, each group in sorted label order. Go maps carry no
// insertion order, so sorted order is the stable choice.
func (r PresentationRequest) Referents() []string {
	attrs := make([]string, 0, len(r.RequestedAttributes))
	for reft := range r.RequestedAttributes {
		attrs = append(attrs, reft)
	}
	sort.Strings(attrs)

	preds := make([]string, 0, len(r.RequestedPredicates))
	for reft := range r.RequestedPredicates {
		preds = append(preds, reft)
	}
	sort.Strings(preds)

	return append(attrs, preds...)
}

// PresentationCredential is one eligible credential for a presentation
// request, annotated with the referent labels for which it qualified, in
// first-seen order without duplicates.
type PresentationCredential struct {
	CredInfo              CredentialInfo      `json:"cred_info"`
	Interval              *NonRevokedInterval `json:"interval,omitempty"`
	PresentationReferents []string            `json:"presentation_referents,omitempty"`
}

// RevRegDelta is a revocation registry delta over a timestamp interval.
type RevRegDelta struct {
	Ver   string           `json:"ver,omitempty"`
	Value RevRegDeltaValue `json:"value"`
}

// RevRegDeltaValue holds the delta payload.
type RevRegDeltaValue struct {
	PrevAccum string  `json:"prevAccum,omitempty"`
	Accum     string  `json:"accum,omitempty"`
	Issued    []int64 `json:"issued,omitempty"`
	Revoked   []int64 `json:"revoked,omitempty"`
}

// IsRevoked reports whether the credential revocation index appears in the
// delta's revoked set.
func (d RevRegDelta) IsRevoked(credRevID int64) bool {
	for _, idx := range d.Value.Revoked {
		if idx == credRevID {
			return true
		}
	}
	return false
}
