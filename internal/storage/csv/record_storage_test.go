package csv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flickrinsert/internal/interfaces"
	"github.com/ternarybob/flickrinsert/internal/models"
)

func newStorage(t *testing.T, fieldNames []string) (*RecordStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flickr_insert_cache.csv")
	return NewRecordStorage(path, "pic_id", fieldNames, arbor.NewLogger()), path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoad_MissingFileCreatesHeader(t *testing.T) {
	storage, path := newStorage(t, models.DefaultFieldNames())

	records, err := storage.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Equal(t,
		"pic_id,title,insert_image_url_base,last_updated,next_update,last_updated_str,next_update_str,flickr_error\n",
		readFile(t, path))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	storage, _ := newStorage(t, models.DefaultFieldNames())
	ctx := context.Background()

	records := map[string]*models.CacheRecord{
		"200": {ID: "200", Title: "Second, with comma", ImageURLBase: "https://farm1.staticflickr.com/1/200_b_", LastUpdated: 1000, NextUpdate: 2000, LastUpdatedStr: "a", NextUpdateStr: "b"},
		"100": {ID: "100", Title: "First", Error: "flickr error 1 for photo 100: not found"},
	}
	require.NoError(t, storage.Save(ctx, records))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records["200"], loaded["200"])
	assert.Equal(t, records["100"], loaded["100"])
	assert.Zero(t, loaded["100"].LastUpdated)
}

func TestSave_SortedAndDropsUnknownColumns(t *testing.T) {
	storage, path := newStorage(t, []string{"title", "last_updated"})

	records := map[string]*models.CacheRecord{
		"b": {ID: "b", Title: "B", LastUpdated: 7, ImageURLBase: "dropped", Extra: map[string]string{"notes": "dropped"}},
		"a": {ID: "a", Title: "A"},
		"c": {ID: "c", Title: "C", LastUpdated: 9},
	}
	require.NoError(t, storage.Save(context.Background(), records))

	assert.Equal(t, "pic_id,title,last_updated\na,A,\nb,B,7\nc,C,9\n", readFile(t, path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be renamed away")
}

func TestSave_KeepsConfiguredExtraColumns(t *testing.T) {
	storage, path := newStorage(t, []string{"title", "notes"})

	records := map[string]*models.CacheRecord{
		"a": {ID: "a", Title: "A", Extra: map[string]string{"notes": "kept"}},
	}
	require.NoError(t, storage.Save(context.Background(), records))
	assert.Equal(t, "pic_id,title,notes\na,A,kept\n", readFile(t, path))

	loaded, err := storage.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kept", loaded["a"].Extra["notes"])
}

func TestLoad_CoercesInvalidEpochs(t *testing.T) {
	storage, path := newStorage(t, models.DefaultFieldNames())
	content := "pic_id,title,last_updated,next_update\n" +
		"1,One, 1700000000 ,\n" +
		"2,Two,garbage,12x\n" +
		",orphan,5,5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	records, err := storage.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(1700000000), records["1"].LastUpdated)
	assert.Zero(t, records["1"].NextUpdate)
	assert.Zero(t, records["2"].LastUpdated)
	assert.Zero(t, records["2"].NextUpdate)
	assert.Equal(t, "Two", records["2"].Title)
}

func TestLoad_ShortRowsAndUnknownColumns(t *testing.T) {
	storage, path := newStorage(t, models.DefaultFieldNames())
	content := "pic_id,title,legacy\n1,One\n2,Two,old\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	records, err := storage.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "One", records["1"].Title)
	assert.Equal(t, "old", records["2"].Extra["legacy"])

	require.NoError(t, storage.Save(context.Background(), records))
	assert.NotContains(t, readFile(t, path), "legacy")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing key column", "id,title\n1,One\n"},
		{"corrupt quoting", "pic_id,title\n1,\"unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, path := newStorage(t, models.DefaultFieldNames())
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			records, err := storage.Load(context.Background())
			require.Error(t, err)
			assert.Empty(t, records)

			var persistErr *interfaces.PersistenceError
			require.True(t, errors.As(err, &persistErr))
			assert.Equal(t, "load", persistErr.Op)
			assert.Equal(t, path, persistErr.Path)
		})
	}
}

func TestSave_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	storage := NewRecordStorage(filepath.Join(blocker, "cache.csv"), "pic_id", nil, arbor.NewLogger())
	err := storage.Save(context.Background(), map[string]*models.CacheRecord{})

	var persistErr *interfaces.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, "save", persistErr.Op)
	assert.True(t, strings.HasSuffix(persistErr.Path, "cache.csv"))
}
