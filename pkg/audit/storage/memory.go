package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/overseer/pkg/audit"
)

// MemoryStorage implements audit.Storage with an in-memory map. Records are
// lost on restart.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists a copy of the record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = record.Clone()
	return nil
}

// Query retrieves records matching the query filters, sorted by timestamp.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectLocked(query), nil
}

// QueryStream returns a channel of matching records.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	s.mu.RLock()
	selected := s.selectLocked(query)
	s.mu.RUnlock()

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range selected {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters. Limit and Offset are
// ignored.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if query.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops every record.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// selectLocked filters, sorts and paginates. Callers hold at least a read lock.
func (s *MemoryStorage) selectLocked(query *audit.Query) []*audit.Record {
	results := []*audit.Record{}
	for _, record := range s.records {
		if query.Matches(record) {
			results = append(results, record.Clone())
		}
	}

	asc := query != nil && query.SortOrder == "asc"
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if asc {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})

	if query == nil {
		return results
	}
	start := query.Offset
	if start > len(results) {
		return []*audit.Record{}
	}
	end := len(results)
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}
	return results[start:end]
}
