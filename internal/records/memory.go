package records

import (
	"context"
	"fmt"
	"sync"

	dErrors "holdfast/pkg/domain-errors"
)

// MemoryStorage is an in-memory implementation of Storage for tests or local
// use. It is safe for concurrent access but does not persist across process
// restarts, and supports the equality and $and/$or/$not subset of the tag
// query language.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]map[string]StorageRecord
	order   map[string][]string
}

// NewMemoryStorage constructs an empty in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]map[string]StorageRecord),
		order:   make(map[string][]string),
	}
}

// AddRecord inserts a record, rejecting duplicate ids within a type.
func (s *MemoryStorage) AddRecord(_ context.Context, record StorageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.records[record.Type]
	if byID == nil {
		byID = make(map[string]StorageRecord)
		s.records[record.Type] = byID
	}
	if _, exists := byID[record.ID]; exists {
		return dErrors.New(dErrors.CodeDuplicate,
			fmt.Sprintf("%s record %s already exists", record.Type, record.ID))
	}
	byID[record.ID] = cloneRecord(record)
	s.order[record.Type] = append(s.order[record.Type], record.ID)
	return nil
}

// GetRecord retrieves a record by type and id or returns NotFound.
func (s *MemoryStorage) GetRecord(_ context.Context, recordType, id string) (StorageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[recordType][id]; ok {
		return cloneRecord(record), nil
	}
	return StorageRecord{}, dErrors.New(dErrors.CodeNotFound,
		fmt.Sprintf("%s record %s not found", recordType, id))
}

// UpdateRecord overwrites the value and tags of a stored record.
func (s *MemoryStorage) UpdateRecord(_ context.Context, record StorageRecord, value string, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[record.Type][record.ID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("%s record %s not found", record.Type, record.ID))
	}
	stored.Value = value
	stored.Tags = cloneTags(tags)
	s.records[record.Type][record.ID] = stored
	return nil
}

// DeleteRecord removes a stored record or returns NotFound.
func (s *MemoryStorage) DeleteRecord(_ context.Context, record StorageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Type][record.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("%s record %s not found", record.Type, record.ID))
	}
	delete(s.records[record.Type], record.ID)
	ids := s.order[record.Type]
	for i, id := range ids {
		if id == record.ID {
			s.order[record.Type] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// SearchRecords returns a cursor over a snapshot of matching records in
// insertion order.
func (s *MemoryStorage) SearchRecords(_ context.Context, recordType string, tagFilter TagFilter) (RecordIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []StorageRecord
	for _, id := range s.order[recordType] {
		record := s.records[recordType][id]
		ok, err := matchTagFilter(record.Tags, tagFilter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, cloneRecord(record))
		}
	}
	return &sliceIterator{records: matched}, nil
}

type sliceIterator struct {
	records []StorageRecord
	pos     int
	closed  bool
}

func (it *sliceIterator) Next(_ context.Context) (StorageRecord, bool, error) {
	if it.closed {
		return StorageRecord{}, false, dErrors.New(dErrors.CodeBackend, "iterator is closed")
	}
	if it.pos >= len(it.records) {
		return StorageRecord{}, false, nil
	}
	record := it.records[it.pos]
	it.pos++
	return record, true, nil
}

func (it *sliceIterator) Close() error {
	it.closed = true
	return nil
}

// matchTagFilter evaluates the supported tag query subset against stored
// tags: scalar string equality plus the $and/$or/$not combinators.
func matchTagFilter(tags map[string]string, filter TagFilter) (bool, error) {
	for k, v := range filter {
		switch k {
		case "$and", "$or":
			clauses, ok := asFilterList(v)
			if !ok {
				return false, dErrors.New(dErrors.CodeInvalidInput,
					fmt.Sprintf("%s clause must hold a filter list", k))
			}
			hit := k == "$and"
			for _, clause := range clauses {
				matched, err := matchTagFilter(tags, clause)
				if err != nil {
					return false, err
				}
				if k == "$and" && !matched {
					hit = false
					break
				}
				if k == "$or" && matched {
					hit = true
					break
				}
				if k == "$or" {
					hit = false
				}
			}
			if !hit {
				return false, nil
			}
		case "$not":
			clause, ok := asFilter(v)
			if !ok {
				return false, dErrors.New(dErrors.CodeInvalidInput, "$not clause must hold a filter")
			}
			matched, err := matchTagFilter(tags, clause)
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
					fmt.Sprintf("tag %s filter must be a string", k))
			}
			if tags[k] != want {
				return false, nil
			}
		}
	}
	return true, nil
}

func cloneRecord(record StorageRecord) StorageRecord {
	record.Tags = cloneTags(record.Tags)
	return record
}

func cloneTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
