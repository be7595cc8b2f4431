package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/flickrinsert/internal/common"
	"github.com/ternarybob/flickrinsert/internal/interfaces"
	"github.com/ternarybob/flickrinsert/internal/storage/badger"
	"github.com/ternarybob/flickrinsert/internal/storage/csv"
)

// NewRecordStorage creates the cache backend selected by config
func NewRecordStorage(logger arbor.ILogger, config *common.Config) (interfaces.RecordStorage, error) {
	switch config.StorageType() {
	case "csv":
		return csv.NewRecordStorage(config.Cache.Filename, config.Cache.KeyField, config.Cache.FieldNames, logger), nil
	case "badger":
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, err
		}
		return badger.NewRecordStorage(db, config.Cache.FieldNames, logger), nil
	}
	return nil, fmt.Errorf("unsupported storage type: %s (csv or badger)", config.Storage.Type)
}
