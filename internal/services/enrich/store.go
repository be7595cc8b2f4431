package enrich

import "github.com/ternarybob/flickrinsert/internal/models"

// Store is the in-memory photo cache for one pass. It is loaded from and saved
// to a RecordStorage by the caller.
type Store struct {
	records map[string]*models.CacheRecord
}

// NewStore wraps loaded records. A nil map starts an empty store.
func NewStore(records map[string]*models.CacheRecord) *Store {
	if records == nil {
		records = make(map[string]*models.CacheRecord)
	}
	return &Store{records: records}
}

// Get returns the live record for id
func (s *Store) Get(id string) (*models.CacheRecord, bool) {
	record, ok := s.records[id]
	return record, ok
}

// GetOrCreate returns the live record for id, adding an empty one if needed
func (s *Store) GetOrCreate(id string) *models.CacheRecord {
	if record, ok := s.records[id]; ok {
		return record
	}
	record := models.NewCacheRecord(id)
	s.records[id] = record
	return record
}

// Put stores record under its ID
func (s *Store) Put(record *models.CacheRecord) {
	s.records[record.ID] = record
}

// Records returns the backing map for persistence
func (s *Store) Records() map[string]*models.CacheRecord {
	return s.records
}

// Len returns the number of records
func (s *Store) Len() int {
	return len(s.records)
}
