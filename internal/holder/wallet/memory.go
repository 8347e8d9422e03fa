// Package wallet provides an in-memory implementation of the holder wallet
// port for tests or local use. It performs no cryptography: credential
// requests and revocation states are fabricated documents with the right
// shape, and searches evaluate the equality/$and/$or/$not subset of the
// wallet query language plus referent matching for presentation requests.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"holdfast/internal/holder/models"
	"holdfast/internal/holder/ports"
	dErrors "holdfast/pkg/domain-errors"
)

// InMemoryWallet stores credentials in insertion order. It is safe for
// concurrent access but does not persist across process restarts.
type InMemoryWallet struct {
	mu    sync.RWMutex
	creds map[string]models.Credential
	order []string
}

// NewInMemory constructs an empty in-memory wallet.
func NewInMemory() *InMemoryWallet {
	return &InMemoryWallet{creds: make(map[string]models.Credential)}
}

// CreateCredentialRequest fabricates a request/metadata pair bound to the
// offer's nonce and credential definition.
func (w *InMemoryWallet) CreateCredentialRequest(_ context.Context, offer, credDef json.RawMessage, holderDID string) (json.RawMessage, json.RawMessage, error) {
	var offerDoc struct {
		CredDefID string `json:"cred_def_id"`
		Nonce     string `json:"nonce"`
	}
	if err := json.Unmarshal(offer, &offerDoc); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed credential offer")
	}
	if len(credDef) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "credential definition required")
	}

	nonce := uuid.NewString()
	request, err := json.Marshal(map[string]any{
		"prover_did":  holderDID,
		"cred_def_id": offerDoc.CredDefID,
		"nonce":       nonce,
	})
	if err != nil {
		return nil, nil, err
	}
	metadata, err := json.Marshal(map[string]any{
		"master_secret_name": "default",
		"nonce":              nonce,
	})
	if err != nil {
		return nil, nil, err
	}
	return request, metadata, nil
}

// StoreCredential persists the credential, assigning an id when the caller
// supplied none.
func (w *InMemoryWallet) StoreCredential(_ context.Context, params ports.StoreCredentialParams) (string, error) {
	id := params.CredentialID
	if id == "" {
		id = uuid.NewString()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.creds[id]; exists {
		return "", dErrors.New(dErrors.CodeDuplicate,
			fmt.Sprintf("credential %s already exists in wallet", id))
	}
	w.creds[id] = cloneCredential(params.Credential)
	w.order = append(w.order, id)
	return id, nil
}

// GetCredential retrieves a stored credential by id.
func (w *InMemoryWallet) GetCredential(_ context.Context, credentialID string) (models.Credential, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if cred, ok := w.creds[credentialID]; ok {
		return cloneCredential(cred), nil
	}
	return models.Credential{}, dErrors.New(dErrors.CodeNotFound,
		fmt.Sprintf("credential %s not found in wallet", credentialID))
}

// DeleteCredential removes a stored credential by id.
func (w *InMemoryWallet) DeleteCredential(_ context.Context, credentialID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.creds[credentialID]; !ok {
		return dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("credential %s not found in wallet", credentialID))
	}
	delete(w.creds, credentialID)
	for i, id := range w.order {
		if id == credentialID {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

// OpenCredentialSearch opens a cursor over the credentials matching the
// query, in insertion order.
func (w *InMemoryWallet) OpenCredentialSearch(_ context.Context, query models.WQL) (ports.CredentialSearch, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var items []models.CredentialInfo
	for _, id := range w.order {
		cred := w.creds[id]
		ok, err := matchWQL(id, cred, query)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, credInfo(id, cred))
		}
	}
	return &credentialSearch{items: items}, nil
}

// OpenPresentationSearch opens a per-referent cursor over the credentials
// eligible for the presentation request.
func (w *InMemoryWallet) OpenPresentationSearch(_ context.Context, request models.PresentationRequest, extraQuery models.WQL) (ports.PresentationSearch, error) {
	w.mu.RLock()
	snapshot := make([]models.Credential, 0, len(w.order))
	ids := make([]string, 0, len(w.order))
	for _, id := range w.order {
		snapshot = append(snapshot, cloneCredential(w.creds[id]))
		ids = append(ids, id)
	}
	w.mu.RUnlock()

	return &presentationSearch{
		request:    request,
		extraQuery: extraQuery,
		ids:        ids,
		creds:      snapshot,
		matches:    make(map[string][]models.PresentationCredential),
		cursors:    make(map[string]int),
	}, nil
}

// CreateRevocationState fabricates a witness document keyed by the inputs.
func (w *InMemoryWallet) CreateRevocationState(_ context.Context, params ports.RevocationStateParams) (json.RawMessage, error) {
	if params.Tails == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tails reader required")
	}
	// consume the stream the way the real engine would
	if _, err := io.Copy(io.Discard, params.Tails); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"rev_reg":   map[string]any{"accum": params.Delta.Value.Accum},
		"witness":   map[string]any{"omega": params.CredRevID},
		"timestamp": params.Timestamp,
	})
}

// CreatePresentation fabricates a proof document for the request.
func (w *InMemoryWallet) CreatePresentation(_ context.Context, params ports.PresentationParams) (json.RawMessage, error) {
	return json.Marshal(map[string]any{
		"proof": map[string]any{"proofs": []any{}},
		"requested_proof": map[string]any{
			"revealed_attrs": map[string]any{},
		},
		"identifiers": []any{},
	})
}

type credentialSearch struct {
	mu     sync.Mutex
	items  []models.CredentialInfo
	pos    int
	closed bool
}

func (s *credentialSearch) Fetch(_ context.Context, limit int) ([]models.CredentialInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, dErrors.New(dErrors.CodeBackend, "credential search is closed")
	}
	end := min(s.pos+limit, len(s.items))
	batch := s.items[s.pos:end]
	s.pos = end
	return batch, nil
}

func (s *credentialSearch) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dErrors.New(dErrors.CodeBackend, "credential search already closed")
	}
	s.closed = true
	return nil
}

type presentationSearch struct {
	mu         sync.Mutex
	request    models.PresentationRequest
	extraQuery models.WQL
	ids        []string
	creds      []models.Credential
	matches    map[string][]models.PresentationCredential
	cursors    map[string]int
	closed     bool
}

func (s *presentationSearch) FetchForReferent(_ context.Context, referent string, limit int) ([]models.PresentationCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, dErrors.New(dErrors.CodeBackend, "presentation search is closed")
	}

	matched, ok := s.matches[referent]
	if !ok {
		var err error
		matched, err = s.matchReferent(referent)
		if err != nil {
			return nil, err
		}
		s.matches[referent] = matched
	}

	pos := s.cursors[referent]
	end := min(pos+limit, len(matched))
	batch := matched[pos:end]
	s.cursors[referent] = end
	return batch, nil
}

func (s *presentationSearch) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dErrors.New(dErrors.CodeBackend, "presentation search already closed")
	}
	s.closed = true
	return nil
}

func (s *presentationSearch) matchReferent(referent string) ([]models.PresentationCredential, error) {
	var (
		names        []string
		restrictions []map[string]string
		interval     *models.NonRevokedInterval
		predicate    *models.PredicateSpec
	)
	if spec, ok := s.request.RequestedAttributes[referent]; ok {
		names = spec.Names
		if spec.Name != "" {
			names = []string{spec.Name}
		}
		restrictions = spec.Restrictions
		interval = spec.NonRevoked
	} else if spec, ok := s.request.RequestedPredicates[referent]; ok {
		names = []string{spec.Name}
		restrictions = spec.Restrictions
		interval = spec.NonRevoked
		predicate = &spec
	} else {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("referent %s not present in presentation request", referent))
	}
	if interval == nil {
		interval = s.request.NonRevoked
	}

	var matched []models.PresentationCredential
	for i, cred := range s.creds {
		id := s.ids[i]
		if !hasAttributes(cred, names) {
			continue
		}
		if predicate != nil && !satisfiesPredicate(cred, *predicate) {
			continue
		}
		if !satisfiesRestrictions(id, cred, restrictions) {
			continue
		}
		if ok, err := matchWQL(id, cred, s.extraQuery); err != nil {
			return nil, err
		} else if !ok {
			continue
		}
		matched = append(matched, models.PresentationCredential{
			CredInfo: credInfo(id, cred),
			Interval: interval,
		})
	}
	return matched, nil
}

func hasAttributes(cred models.Credential, names []string) bool {
	for _, name := range names {
		if _, ok := cred.Values[name]; !ok {
			return false
		}
	}
	return len(names) > 0
}

func satisfiesPredicate(cred models.Credential, spec models.PredicateSpec) bool {
	raw, ok := cred.Values[spec.Name]
	if !ok {
		return false
	}
	value, err := strconv.ParseInt(raw.Raw, 10, 64)
	if err != nil {
		return false
	}
	switch spec.PType {
	case ">=":
		return value >= spec.PValue
	case ">":
		return value > spec.PValue
	case "<=":
		return value <= spec.PValue
	case "<":
		return value < spec.PValue
	}
	return false
}

func satisfiesRestrictions(id string, cred models.Credential, restrictions []map[string]string) bool {
	if len(restrictions) == 0 {
		return true
	}
	for _, restriction := range restrictions {
		hit := true
		for k, v := range restriction {
			if credField(id, cred, k) != v {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

// matchWQL evaluates the supported wallet query subset against a stored
// credential: scalar equality plus the $and/$or/$not combinators.
func matchWQL(id string, cred models.Credential, query models.WQL) (bool, error) {
	for k, v := range query {
		switch k {
		case "$and", "$or":
			clauses, ok := asQueryList(v)
			if !ok {
				return false, dErrors.New(dErrors.CodeInvalidInput,
					fmt.Sprintf("%s clause must hold a query list", k))
			}
			hit := k == "$and"
			for _, clause := range clauses {
				matched, err := matchWQL(id, cred, clause)
				if err != nil {
					return false, err
				}
				if k == "$and" && !matched {
					hit = false
					break
				}
				if k == "$or" {
					hit = matched
					if matched {
						break
					}
				}
			}
			if !hit {
				return false, nil
			}
		case "$not":
			clause, ok := v.(models.WQL)
			if !ok {
				if m, isMap := v.(map[string]any); isMap {
					clause = models.WQL(m)
				} else {
					return false, dErrors.New(dErrors.CodeInvalidInput, "$not clause must hold a query")
				}
			}
			matched, err := matchWQL(id, cred, clause)
			if err != nil {
				return false, err
			}
			if matched {
				return false, nil
			}
		default:
			want, ok := v.(string)
			if !ok {
				return false, dErrors.New(dErrors.CodeInvalidInput,
					fmt.Sprintf("query field %s must be a string", k))
			}
			if credField(id, cred, k) != want {
				return false, nil
			}
		}
	}
	return true, nil
}

func asQueryList(v any) ([]models.WQL, bool) {
	switch list := v.(type) {
	case []models.WQL:
		return list, true
	case []map[string]any:
		out := make([]models.WQL, len(list))
		for i, q := range list {
			out[i] = models.WQL(q)
		}
		return out, true
	case []any:
		// queries decoded from JSON arrive as []any of map[string]any
		out := make([]models.WQL, 0, len(list))
		for _, e := range list {
			q, ok := e.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, models.WQL(q))
		}
		return out, true
	}
	return nil, false
}

// credField resolves a query field name against a credential: the fixed
// identifier fields plus "attr::<name>::value" attribute references.
func credField(id string, cred models.Credential, field string) string {
	switch field {
	case "referent":
		return id
	case "schema_id":
		return cred.SchemaID
	case "cred_def_id":
		return cred.CredDefID
	case "rev_reg_id":
		return cred.RevRegID
	case "cred_rev_id":
		return cred.CredRevID
	}
	if strings.HasPrefix(field, "attr::") && strings.HasSuffix(field, "::value") {
		name := strings.TrimSuffix(strings.TrimPrefix(field, "attr::"), "::value")
		return cred.Values[name].Raw
	}
	return ""
}

func credInfo(id string, cred models.Credential) models.CredentialInfo {
	attrs := make(map[string]string, len(cred.Values))
	for name, value := range cred.Values {
		attrs[name] = value.Raw
	}
	return models.CredentialInfo{
		Referent:  id,
		Attrs:     attrs,
		SchemaID:  cred.SchemaID,
		CredDefID: cred.CredDefID,
		RevRegID:  cred.RevRegID,
		CredRevID: cred.CredRevID,
	}
}

func cloneCredential(cred models.Credential) models.Credential {
	values := make(map[string]models.AttributeValue, len(cred.Values))
	for k, v := range cred.Values {
		values[k] = v
	}
	cred.Values = values
	return cred
}
