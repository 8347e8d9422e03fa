// Package store holds the non-secret metadata side records the holder keeps
// next to wallet credentials: per-credential attribute MIME-type maps,
// addressed by a deterministic id derived from the credential id.
package store

import (
	"context"

	"holdfast/internal/records"
)

// RecordTypeMimeTypes is the record type tag for attribute MIME-type maps.
const RecordTypeMimeTypes = "attribute-mime-types"

// MimeTypesRecordID derives the deterministic metadata record id for a
// credential id.
func MimeTypesRecordID(credentialID string) string {
	return RecordTypeMimeTypes + "::" + credentialID
}

// MimeTypesRecord maps a credential's attribute names to their declared MIME
// types. At most one exists per credential, and it lives and dies with the
// credential.
type MimeTypesRecord struct {
	records.Record
	CredentialID string
	MimeTypes    map[string]string
}

// Properties declares the record type's storage attributes. MIME maps carry
// no webhook topic: they are side records, not lifecycle records.
func (r *MimeTypesRecord) Properties() records.Properties {
	return records.Properties{
		Type:   RecordTypeMimeTypes,
		IDName: "record_id",
	}
}

// RecordTags exposes the MIME map itself as the record's tags, keeping each
// attribute's type searchable.
func (r *MimeTypesRecord) RecordTags() map[string]string {
	return r.MimeTypes
}

// RecordValue adds the owning credential id to the persisted body.
func (r *MimeTypesRecord) RecordValue() map[string]any {
	return map[string]any{"credential_id": r.CredentialID}
}

// LoadValue rebuilds the record from a decoded body. Every field that is not
// a lifecycle field or the credential id is a MIME tag.
func (r *MimeTypesRecord) LoadValue(vals map[string]any) error {
	r.CredentialID, _ = vals["credential_id"].(string)
	r.MimeTypes = make(map[string]string)
	for k, v := range vals {
		switch k {
		case "credential_id", "state", "created_at", "updated_at":
			continue
		}
		if s, ok := v.(string); ok {
			r.MimeTypes[k] = s
		}
	}
	return nil
}

// MetadataStore persists MIME-type records through the tagged-record model.
type MetadataStore struct {
	records *records.Store
}

// NewMetadataStore builds a MetadataStore over the given storage
// collaborator.
func NewMetadataStore(storage records.Storage, opts ...records.StoreOption) (*MetadataStore, error) {
	st, err := records.NewStore(
		func() records.Entity { return &MimeTypesRecord{} },
		storage,
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return &MetadataStore{records: st}, nil
}

// Put writes the MIME-type record for a credential at its deterministic id.
func (s *MetadataStore) Put(ctx context.Context, credentialID string, mimeTypes map[string]string) error {
	rec := &MimeTypesRecord{CredentialID: credentialID, MimeTypes: mimeTypes}
	rec.Base().ID = MimeTypesRecordID(credentialID)
	_, err := s.records.Save(ctx, rec)
	return err
}

// Get returns the MIME map for a credential, or NotFound when no record
// exists. Interpreting absence as a normal outcome is the caller's contract.
func (s *MetadataStore) Get(ctx context.Context, credentialID string) (map[string]string, error) {
	rec, err := s.records.RetrieveByID(ctx, MimeTypesRecordID(credentialID))
	if err != nil {
		return nil, err
	}
	return rec.(*MimeTypesRecord).MimeTypes, nil
}

// Delete removes the MIME-type record for a credential, surfacing NotFound
// when none exists.
func (s *MetadataStore) Delete(ctx context.Context, credentialID string) error {
	rec, err := s.records.RetrieveByID(ctx, MimeTypesRecordID(credentialID))
	if err != nil {
		return err
	}
	return s.records.DeleteRecord(ctx, rec)
}
