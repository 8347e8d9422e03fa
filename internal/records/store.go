package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"holdfast/internal/records/metrics"
	dErrors "holdfast/pkg/domain-errors"
)

// Storage is the generic storage collaborator the record model layers on.
// Implementations own the on-disk format; this package only defines the
// access pattern and data shape on top of it.
type Storage interface {
	AddRecord(ctx context.Context, record StorageRecord) error
	GetRecord(ctx context.Context, recordType, id string) (StorageRecord, error)
	UpdateRecord(ctx context.Context, record StorageRecord, value string, tags map[string]string) error
	DeleteRecord(ctx context.Context, record StorageRecord) error
	// SearchRecords returns a lazy cursor over records of the given type
	// matching the tag filter. The caller must close the iterator.
	SearchRecords(ctx context.Context, recordType string, tagFilter TagFilter) (RecordIterator, error)
}

// RecordIterator is a lazy sequence of storage records.
type RecordIterator interface {
	// Next returns the next record, or ok=false once the sequence is
	// exhausted.
	Next(ctx context.Context) (record StorageRecord, ok bool, err error)
	Close() error
}

// Cache is the optional cache collaborator for record-adjacent values.
type Cache interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// Responder is the optional webhook collaborator. Send is fire-and-forget
// from the record model's point of view: failures are logged, never
// propagated into the save path.
type Responder interface {
	Send(ctx context.Context, topic string, payload map[string]any) error
}

// Store persists one record type through the generic storage collaborator,
// adding tag translation, post-filtering, caching hooks and the webhook
// notification policy.
type Store struct {
	storage   Storage
	newEntity func() Entity
	props     Properties
	tagMap    map[string]string

	cache       Cache
	responder   Responder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	trimWebhook bool
}

// StoreOption configures optional Store collaborators.
type StoreOption func(*Store)

// WithCache configures the cache collaborator used by the cache helpers.
func WithCache(cache Cache) StoreOption {
	return func(s *Store) { s.cache = cache }
}

// WithResponder configures the webhook collaborator.
func WithResponder(responder Responder) StoreOption {
	return func(s *Store) { s.responder = responder }
}

// WithLogger configures a logger for save diagnostics.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics configures prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// WithWebhookTrim strips heavyweight keys from webhook payloads.
func WithWebhookTrim() StoreOption {
	return func(s *Store) { s.trimWebhook = true }
}

// NewStore builds a Store for the record type produced by newEntity.
// A record type declared without a type tag is a construction error.
func NewStore(newEntity func() Entity, storage Storage, opts ...StoreOption) (*Store, error) {
	props := newEntity().Properties()
	if props.Type == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot build store for record type with no type tag")
	}
	if props.IDName == "" {
		props.IDName = "record_id"
	}
	s := &Store{
		storage:   storage,
		newEntity: newEntity,
		props:     props,
		tagMap:    TagMap(props.TagNames),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Properties returns the stored record type's declared attributes.
func (s *Store) Properties() Properties { return s.props }

// SaveOption adjusts a single Save call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	reason  string
	webhook *bool
}

// WithReason attaches a reason to the save diagnostic log entry.
func WithReason(reason string) SaveOption {
	return func(o *saveOptions) { o.reason = reason }
}

// WithWebhook forces webhook emission on or off for this save, overriding
// the state-transition policy.
func WithWebhook(send bool) SaveOption {
	return func(o *saveOptions) { o.webhook = &send }
}

// Save persists the record. A record never persisted is inserted, keeping a
// caller-assigned id or allocating one; a persisted record is rewritten in
// place. A diagnostic log entry is emitted as part of finalization on both
// outcomes, tagged as failed when persistence raised. The webhook policy is
// evaluated only after a successful persist, and the state baseline advances
// with it.
func (s *Store) Save(ctx context.Context, rec Entity, opts ...SaveOption) (string, error) {
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	base := rec.Base()
	newRecord := !base.stored
	base.UpdatedAt = timeNow()
	if newRecord {
		if base.ID == "" {
			base.ID = uuid.NewString()
		}
		base.CreatedAt = base.UpdatedAt
	}

	stored := s.storageRecord(rec)
	var err error
	if newRecord {
		err = s.storage.AddRecord(ctx, stored)
	} else {
		err = s.storage.UpdateRecord(ctx, stored, stored.Value, stored.Tags)
	}

	s.logSave(rec, o.reason, newRecord, err)

	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementSaveFailed()
		}
		return "", dErrors.Wrap(err, dErrors.CodeBackend, fmt.Sprintf("cannot persist %s record", s.props.Type))
	}

	base.stored = true
	if s.metrics != nil {
		s.metrics.IncrementSaved(newRecord)
	}
	s.postSave(ctx, rec, newRecord, o.webhook)
	base.lastState = base.State

	return base.ID, nil
}

// RetrieveByID loads a stored record by id.
func (s *Store) RetrieveByID(ctx context.Context, id string) (Entity, error) {
	stored, err := s.storage.GetRecord(ctx, s.props.Type, id)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, fmt.Sprintf("cannot fetch %s record", s.props.Type))
	}
	return s.load(stored)
}

// RetrieveByTagFilter locates the single record matching the tag filter and,
// in-process, the positive-equality post filter. Zero survivors is NotFound;
// the full candidate set is scanned, and a second survivor is Duplicate.
func (s *Store) RetrieveByTagFilter(ctx context.Context, tagFilter TagFilter, postFilter PostFilter) (Entity, error) {
	it, err := s.storage.SearchRecords(ctx, s.props.Type, PrefixTagFilter(tagFilter, s.tagMap))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, fmt.Sprintf("cannot search %s records", s.props.Type))
	}
	defer it.Close() //nolint:errcheck // close failure cannot mask the result

	var found Entity
	var survivors int
	for {
		stored, ok, err := it.Next(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBackend, fmt.Sprintf("cannot search %s records", s.props.Type))
		}
		if !ok {
			break
		}
		vals, err := decodeValue(stored)
		if err != nil {
			return nil, err
		}
		if !MatchPostFilter(vals, postFilter, true, false) {
			continue
		}
		survivors++
		if found == nil {
			found, err = s.loadVals(stored, vals)
			if err != nil {
				return nil, err
			}
		}
	}
	if survivors > 1 {
		return nil, dErrors.New(dErrors.CodeDuplicate,
			fmt.Sprintf("multiple %s records located for %v", s.props.Type, tagFilter))
	}
	if found == nil {
		return nil, dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("%s record not found for %v", s.props.Type, tagFilter))
	}
	return found, nil
}

// QueryOption adjusts a Query call.
type QueryOption func(*queryOptions)

type queryOptions struct {
	positive PostFilter
	negative PostFilter
	alt      bool
}

// WithPostFilterPositive keeps only candidates matching the filter.
func WithPostFilterPositive(filter PostFilter) QueryOption {
	return func(o *queryOptions) { o.positive = filter }
}

// WithPostFilterNegative drops candidates matching the filter.
func WithPostFilterNegative(filter PostFilter) QueryOption {
	return func(o *queryOptions) { o.negative = filter }
}

// WithAlt switches both post filters to alternative-set semantics.
func WithAlt() QueryOption {
	return func(o *queryOptions) { o.alt = true }
}

// Query returns all stored records matching the tag filter and surviving the
// in-process post filters.
func (s *Store) Query(ctx context.Context, tagFilter TagFilter, opts ...QueryOption) ([]Entity, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	it, err := s.storage.SearchRecords(ctx, s.props.Type, PrefixTagFilter(tagFilter, s.tagMap))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend, fmt.Sprintf("cannot search %s records", s.props.Type))
	}
	defer it.Close() //nolint:errcheck // close failure cannot mask the result

	var result []Entity
	for {
		stored, ok, err := it.Next(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBackend, fmt.Sprintf("cannot search %s records", s.props.Type))
		}
		if !ok {
			break
		}
		vals, err := decodeValue(stored)
		if err != nil {
			return nil, err
		}
		if !MatchPostFilter(vals, o.positive, true, o.alt) ||
			!MatchPostFilter(vals, o.negative, false, o.alt) {
			continue
		}
		rec, err := s.loadVals(stored, vals)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

// DeleteRecord removes the stored representation. A record never persisted is
// a no-op. Deletion has no state or webhook side effect.
func (s *Store) DeleteRecord(ctx context.Context, rec Entity) error {
	base := rec.Base()
	if base.ID == "" {
		return nil
	}
	if err := s.storage.DeleteRecord(ctx, s.storageRecord(rec)); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeBackend, fmt.Sprintf("cannot delete %s record", s.props.Type))
	}
	return nil
}

// GetCached fetches a cached value; no-op when no cache is configured or the
// key is empty.
func (s *Store) GetCached(ctx context.Context, key string) (any, error) {
	if s.cache == nil || key == "" {
		return nil, nil
	}
	return s.cache.Get(ctx, key)
}

// SetCached caches a value, applying the record type's default TTL when the
// caller passes none; no-op when no cache is configured or the key is empty.
func (s *Store) SetCached(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.cache == nil || key == "" {
		return nil
	}
	if ttl == 0 {
		ttl = s.props.CacheTTL
	}
	return s.cache.Set(ctx, key, value, ttl)
}

// ClearCached clears a cached value, if any; no-op when no cache is
// configured or the key is empty.
func (s *Store) ClearCached(ctx context.Context, key string) error {
	if s.cache == nil || key == "" {
		return nil
	}
	return s.cache.Clear(ctx, key)
}

// Tags computes the record's stored tags: the declared plaintext markers
// applied over the bare tag values, with the lifecycle state included when
// set.
func (s *Store) Tags(rec Entity) map[string]string {
	bare := rec.RecordTags()
	tags := make(map[string]string, len(bare)+1)
	for k, v := range bare {
		tags[k] = v
	}
	if state := rec.Base().State; state != "" {
		tags["state"] = state
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if stored, ok := s.tagMap[k]; ok {
			k = stored
		}
		out[k] = v
	}
	return out
}

// Value computes the persisted JSON body: the tags with the plaintext marker
// stripped, merged with the lifecycle timestamps and the subclass-declared
// extra fields. The merge never drops a tag or a timestamp.
func (s *Store) Value(rec Entity) map[string]any {
	base := rec.Base()
	vals := make(map[string]any)
	for k, v := range StripTagPrefix(s.Tags(rec)) {
		vals[k] = v
	}
	vals["created_at"] = base.CreatedAt
	vals["updated_at"] = base.UpdatedAt
	for k, v := range rec.RecordValue() {
		vals[k] = v
	}
	return vals
}

// Serialize renders the record body plus its id, as carried by webhook
// payloads and diagnostic logs.
func (s *Store) Serialize(rec Entity) map[string]any {
	vals := s.Value(rec)
	vals[s.props.IDName] = rec.Base().ID
	return vals
}

func (s *Store) storageRecord(rec Entity) StorageRecord {
	body, err := json.Marshal(s.Value(rec))
	if err != nil {
		// record bodies are maps of JSON-encodable values; keep the
		// record persistable regardless
		body = []byte("{}")
	}
	return StorageRecord{
		Type:  s.props.Type,
		ID:    rec.Base().ID,
		Value: string(body),
		Tags:  s.Tags(rec),
	}
}

func decodeValue(stored StorageRecord) (map[string]any, error) {
	var vals map[string]any
	if err := json.Unmarshal([]byte(stored.Value), &vals); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBackend,
			fmt.Sprintf("cannot decode stored %s record %s", stored.Type, stored.ID))
	}
	return vals, nil
}

func (s *Store) load(stored StorageRecord) (Entity, error) {
	vals, err := decodeValue(stored)
	if err != nil {
		return nil, err
	}
	return s.loadVals(stored, vals)
}

func (s *Store) loadVals(stored StorageRecord, vals map[string]any) (Entity, error) {
	rec := s.newEntity()
	base := rec.Base()
	base.ID = stored.ID
	state, _ := vals["state"].(string)
	createdAt, _ := vals["created_at"].(string)
	updatedAt, _ := vals["updated_at"].(string)
	base.markLoaded(state, createdAt, updatedAt)
	if err := rec.LoadValue(vals); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation,
			fmt.Sprintf("cannot load stored %s record %s", stored.Type, stored.ID))
	}
	return rec, nil
}

func (s *Store) logSave(rec Entity, reason string, newRecord bool, err error) {
	if s.logger == nil {
		return
	}
	if reason == "" {
		if newRecord {
			reason = "created record"
		} else {
			reason = "updated record"
		}
	}
	attrs := []any{
		"record_type", s.props.Type,
		"record_id", rec.Base().ID,
		"state", rec.Base().State,
	}
	if err != nil {
		attrs = append(attrs, "failed", true, "error", err.Error())
	}
	s.logger.Debug(reason, attrs...)
}

func (s *Store) postSave(ctx context.Context, rec Entity, newRecord bool, force *bool) {
	topic := s.props.WebhookTopic
	if topic == "" {
		return
	}
	base := rec.Base()
	send := newRecord || base.lastState != base.State
	if force != nil {
		send = *force
	}
	if !send || s.responder == nil {
		return
	}

	payload := s.Serialize(rec)
	if s.trimWebhook {
		payload = TrimWebhookPayload(payload)
	}
	if len(payload) == 0 {
		return
	}
	if err := s.responder.Send(ctx, topic, payload); err != nil {
		if s.logger != nil {
			s.logger.Warn("webhook send failed", "topic", topic, "record_id", base.ID, "error", err)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementWebhookSent(topic)
	}
}
