// Package records implements the tagged-record persistence model shared by
// every domain record type: a reversible plain/encrypted tag-naming scheme,
// composable boolean tag filters, in-process post-filtering, caching hooks,
// and a state-transition-driven webhook notification policy on top of a
// generic storage collaborator.
package records

import (
	"time"
)

// PlaintextPrefix marks a tag name as stored searchable without requiring
// decryption of the record body. Stripping the marker and re-adding it is an
// exact bijection on tag names.
const PlaintextPrefix = "~"

// StorageRecord is the unit exchanged with the generic storage collaborator.
type StorageRecord struct {
	Type  string
	ID    string
	Value string // JSON-encoded record body
	Tags  map[string]string
}

// Properties declares the fixed, per-record-type storage attributes. The
// original design derived these by reflection over class attributes; here
// each record type declares them explicitly.
type Properties struct {
	// Type is the stored record type discriminator. Required.
	Type string
	// IDName is the field name carrying the record id in serialized
	// payloads; defaults to "record_id".
	IDName string
	// WebhookTopic enables state-transition webhook notifications when
	// non-empty.
	WebhookTopic string
	// CacheTTL is the default time-to-live applied by SetCached when the
	// caller passes none.
	CacheTTL time.Duration
	// TagNames declares the record's tag names; a PlaintextPrefix marker
	// on a name keeps that tag searchable without decryption.
	TagNames []string
}

// Record carries the lifecycle fields common to every stored record type.
// Concrete record types embed it and implement the rest of Entity.
type Record struct {
	ID        string
	State     string
	CreatedAt string
	UpdatedAt string

	// lastState is the webhook baseline: the state value as of the last
	// successful persist (or load). It only advances after a successful
	// persistence attempt.
	lastState string
	// stored tracks whether the record exists in storage, independent of
	// whether the id was caller-assigned before the first save.
	stored bool
}

// Base returns the embedded lifecycle fields; it makes any embedding type
// satisfy the accessor half of Entity.
func (r *Record) Base() *Record { return r }

// Stored reports whether the record has been persisted (or loaded from
// storage).
func (r *Record) Stored() bool { return r.stored }

// LastState returns the webhook baseline state.
func (r *Record) LastState() string { return r.lastState }

// markLoaded fixes the lifecycle fields of a record decoded from storage.
func (r *Record) markLoaded(state, createdAt, updatedAt string) {
	r.State = state
	r.CreatedAt = createdAt
	r.UpdatedAt = updatedAt
	r.lastState = state
	r.stored = true
}

// Entity is implemented by every concrete record type managed by a Store.
type Entity interface {
	// Base exposes the embedded Record lifecycle fields.
	Base() *Record
	// Properties declares the record type's storage attributes.
	Properties() Properties
	// RecordTags returns the record's tag values keyed by bare tag name;
	// the Store applies the plaintext marker from Properties.TagNames.
	RecordTags() map[string]string
	// RecordValue returns the subclass-declared extra fields merged into
	// the persisted JSON body.
	RecordValue() map[string]any
	// LoadValue populates the subclass fields from a decoded record body.
	LoadValue(vals map[string]any) error
}

// timeNow renders the current UTC instant in the stored timestamp format.
func timeNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
