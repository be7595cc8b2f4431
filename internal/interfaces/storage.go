package interfaces

import (
	"context"
	"fmt"

	"github.com/ternarybob/flickrinsert/internal/models"
)

// RecordStorage persists the photo cache between runs.
// Load is called once before a pass and Save once after it.
type RecordStorage interface {
	// Load returns every stored record keyed by photo id.
	// A missing backing store is not an error: it yields an empty map.
	Load(ctx context.Context) (map[string]*models.CacheRecord, error)

	// Save replaces the stored records with the given set
	Save(ctx context.Context, records map[string]*models.CacheRecord) error

	// Close releases any resources held by the backend
	Close() error
}

// PersistenceError reports a failure to read or write the record store
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
