package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flickrinsert/internal/common"
	"github.com/ternarybob/flickrinsert/internal/models"
)

func newTestStorage(t *testing.T, fieldNames []string) *RecordStorage {
	t.Helper()
	logger := arbor.NewLogger()

	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)

	storage := NewRecordStorage(db, fieldNames, logger)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestRecordStorage_EmptyLoad(t *testing.T) {
	storage := newTestStorage(t, models.DefaultFieldNames())

	records, err := storage.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordStorage_RoundTrip(t *testing.T) {
	storage := newTestStorage(t, models.DefaultFieldNames())
	ctx := context.Background()

	records := map[string]*models.CacheRecord{
		"100": {ID: "100", Title: "First", ImageURLBase: "https://farm1.staticflickr.com/1/100_a_", LastUpdated: 10, NextUpdate: 20, LastUpdatedStr: "x", NextUpdateStr: "y"},
		"200": {ID: "200", Error: "flickr error 1 for photo 200: not found"},
	}
	require.NoError(t, storage.Save(ctx, records))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records["100"], loaded["100"])
	assert.Equal(t, records["200"], loaded["200"])

	single, err := storage.Get(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "First", single.Title)

	missing, err := storage.Get(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordStorage_SaveReplacesSet(t *testing.T) {
	storage := newTestStorage(t, models.DefaultFieldNames())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, map[string]*models.CacheRecord{
		"a": {ID: "a"},
		"b": {ID: "b"},
	}))
	require.NoError(t, storage.Save(ctx, map[string]*models.CacheRecord{
		"b": {ID: "b", Title: "B"},
		"c": {ID: "c"},
	}))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.NotContains(t, loaded, "a")
	assert.Equal(t, "B", loaded["b"].Title)
}

func TestRecordStorage_NarrowsToFieldNames(t *testing.T) {
	storage := newTestStorage(t, []string{"title", "last_updated", "notes"})
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, map[string]*models.CacheRecord{
		"a": {
			ID:           "a",
			Title:        "A",
			ImageURLBase: "dropped",
			LastUpdated:  5,
			NextUpdate:   9,
			Extra:        map[string]string{"notes": "kept", "legacy": "dropped"},
		},
	}))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	record := loaded["a"]
	require.NotNil(t, record)
	assert.Equal(t, "A", record.Title)
	assert.Equal(t, int64(5), record.LastUpdated)
	assert.Empty(t, record.ImageURLBase)
	assert.Zero(t, record.NextUpdate)
	assert.Equal(t, map[string]string{"notes": "kept"}, record.Extra)
}
