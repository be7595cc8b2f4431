// Package csv stores the photo cache as a CSV file with one row per photo.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/flickrinsert/internal/interfaces"
	"github.com/ternarybob/flickrinsert/internal/models"
	"github.com/ternarybob/flickrinsert/internal/services/cache"
)

// RecordStorage implements interfaces.RecordStorage on a CSV file.
// The first column is the key field, followed by the configured field names.
type RecordStorage struct {
	path       string
	keyField   string
	fieldNames []string
	logger     arbor.ILogger
}

// NewRecordStorage creates a CSV-backed record store
func NewRecordStorage(path, keyField string, fieldNames []string, logger arbor.ILogger) *RecordStorage {
	if keyField == "" {
		keyField = models.DefaultKeyField
	}
	return &RecordStorage{
		path:       path,
		keyField:   keyField,
		fieldNames: slices.Clone(fieldNames),
		logger:     logger,
	}
}

// Path returns the CSV file location
func (s *RecordStorage) Path() string {
	return s.path
}

// Load reads every row of the cache file. A missing file is created with only
// the header row and yields an empty map.
func (s *RecordStorage) Load(ctx context.Context) (map[string]*models.CacheRecord, error) {
	records := make(map[string]*models.CacheRecord)

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("path", s.path).Msg("Cache file not found, creating empty cache")
		if err := s.Save(ctx, records); err != nil {
			return records, err
		}
		return records, nil
	}
	if err != nil {
		return records, &interfaces.PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	defer f.Close()

	reader := stdcsv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return records, nil
	}
	if err != nil {
		return records, &interfaces.PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	keyIndex := slices.Index(header, s.keyField)
	if keyIndex < 0 {
		return records, &interfaces.PersistenceError{
			Op:   "load",
			Path: s.path,
			Err:  fmt.Errorf("header has no key column %q", s.keyField),
		}
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return make(map[string]*models.CacheRecord), &interfaces.PersistenceError{Op: "load", Path: s.path, Err: err}
		}

		if keyIndex >= len(row) || row[keyIndex] == "" {
			s.logger.Warn().Str("path", s.path).Int("line", line).Msg("Skipping cache row without key")
			continue
		}

		record := models.NewCacheRecord(row[keyIndex])
		for i, column := range header {
			if i == keyIndex || i >= len(row) {
				continue
			}
			s.setColumn(record, column, row[i], line)
		}
		records[record.ID] = record
	}

	s.logger.Debug().Str("path", s.path).Int("records", len(records)).Msg("Cache loaded")

	return records, nil
}

func (s *RecordStorage) setColumn(record *models.CacheRecord, column, value string, line int) {
	if !models.IsEpochField(column) {
		record.SetField(column, value)
		return
	}

	epoch, err := cache.ParseEpoch(value)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("photo_id", record.ID).
			Str("column", column).
			Int("line", line).
			Msg("Invalid epoch in cache, treating as never")
		epoch = 0
	}
	record.SetEpochField(column, epoch)
}

// Save writes all records sorted by key. Columns outside the configured field
// list are dropped. The file is replaced atomically.
func (s *RecordStorage) Save(ctx context.Context, records map[string]*models.CacheRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &interfaces.PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &interfaces.PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()

	if err := s.write(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &interfaces.PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &interfaces.PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &interfaces.PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	s.logger.Debug().Str("path", s.path).Int("records", len(records)).Msg("Cache saved")

	return nil
}

func (s *RecordStorage) write(w io.Writer, records map[string]*models.CacheRecord) error {
	writer := stdcsv.NewWriter(w)

	header := append([]string{s.keyField}, s.fieldNames...)
	if err := writer.Write(header); err != nil {
		return err
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	row := make([]string, len(header))
	for _, id := range ids {
		record := records[id]
		row[0] = id
		for i, name := range s.fieldNames {
			value, _ := record.Field(name)
			row[i+1] = value
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Close is a no-op, the file is only open during Load and Save
func (s *RecordStorage) Close() error {
	return nil
}
