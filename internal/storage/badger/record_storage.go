package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/flickrinsert/internal/interfaces"
	"github.com/ternarybob/flickrinsert/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RecordStorage implements interfaces.RecordStorage for Badger
type RecordStorage struct {
	db         *BadgerDB
	fieldNames []string
	logger     arbor.ILogger
}

// NewRecordStorage creates a new RecordStorage instance. Loaded records are
// narrowed to fieldNames so the backend keeps the same columns as the CSV file.
func NewRecordStorage(db *BadgerDB, fieldNames []string, logger arbor.ILogger) *RecordStorage {
	return &RecordStorage{
		db:         db,
		fieldNames: fieldNames,
		logger:     logger,
	}
}

// Load returns every stored record keyed by id
func (s *RecordStorage) Load(ctx context.Context) (map[string]*models.CacheRecord, error) {
	var stored []models.CacheRecord
	if err := s.db.Store().Find(&stored, nil); err != nil {
		return make(map[string]*models.CacheRecord), &interfaces.PersistenceError{
			Op:   "load",
			Path: s.db.Path(),
			Err:  fmt.Errorf("failed to list records: %w", err),
		}
	}

	records := make(map[string]*models.CacheRecord, len(stored))
	for i := range stored {
		record := &stored[i]
		record.Narrow(s.fieldNames)
		records[record.ID] = record
	}

	s.logger.Debug().Str("path", s.db.Path()).Int("records", len(records)).Msg("Cache loaded")

	return records, nil
}

// Save replaces the stored record set in a single transaction
func (s *RecordStorage) Save(ctx context.Context, records map[string]*models.CacheRecord) error {
	err := s.db.Store().Badger().Update(func(tx *badger.Txn) error {
		if err := s.db.Store().TxDeleteMatching(tx, &models.CacheRecord{}, nil); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}
		for id, record := range records {
			narrowed := record.Clone()
			narrowed.ID = id
			narrowed.Narrow(s.fieldNames)
			if err := s.db.Store().TxUpsert(tx, id, narrowed); err != nil {
				return fmt.Errorf("failed to save record %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return &interfaces.PersistenceError{Op: "save", Path: s.db.Path(), Err: err}
	}

	s.logger.Debug().Str("path", s.db.Path()).Int("records", len(records)).Msg("Cache saved")

	return nil
}

// Close closes the underlying database
func (s *RecordStorage) Close() error {
	return s.db.Close()
}

// Get returns a single record, or nil when it is not stored
func (s *RecordStorage) Get(ctx context.Context, id string) (*models.CacheRecord, error) {
	var record models.CacheRecord
	err := s.db.Store().Get(id, &record)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	record.Narrow(s.fieldNames)
	return &record, nil
}
