package models

import (
	"maps"
	"strconv"
)

// Cache column names. The key column name is configurable (cache.key_field) and
// is not part of this list.
const (
	FieldTitle          = "title"
	FieldImageURLBase   = "insert_image_url_base"
	FieldLastUpdated    = "last_updated"
	FieldNextUpdate     = "next_update"
	FieldLastUpdatedStr = "last_updated_str"
	FieldNextUpdateStr  = "next_update_str"
	FieldError          = "flickr_error"
)

// DefaultKeyField is the default name of the cache key column
const DefaultKeyField = "pic_id"

// DefaultFieldNames returns the default ordered cache columns (key column excluded)
func DefaultFieldNames() []string {
	return []string{
		FieldTitle,
		FieldImageURLBase,
		FieldLastUpdated,
		FieldNextUpdate,
		FieldLastUpdatedStr,
		FieldNextUpdateStr,
		FieldError,
	}
}

// CacheRecord is the cached knowledge about one Flickr photo
type CacheRecord struct {
	ID             string `json:"id" badgerhold:"key"`
	Title          string `json:"title"`
	ImageURLBase   string `json:"insert_image_url_base"`
	LastUpdated    int64  `json:"last_updated"` // epoch seconds, 0 = never
	NextUpdate     int64  `json:"next_update"`  // epoch seconds
	LastUpdatedStr string `json:"last_updated_str"`
	NextUpdateStr  string `json:"next_update_str"`
	Error          string `json:"flickr_error,omitempty"`

	// Extra holds columns read from storage that have no named field
	Extra map[string]string `json:"extra,omitempty"`
}

// NewCacheRecord returns a record with only the identifier populated
func NewCacheRecord(id string) *CacheRecord {
	return &CacheRecord{ID: id}
}

// Clone returns a deep copy of the record
func (r *CacheRecord) Clone() *CacheRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Extra != nil {
		clone.Extra = maps.Clone(r.Extra)
	}
	return &clone
}

// Field returns the string value stored under a column name.
// The second return value is false when the column is unknown to the record.
func (r *CacheRecord) Field(name string) (string, bool) {
	switch name {
	case FieldTitle:
		return r.Title, true
	case FieldImageURLBase:
		return r.ImageURLBase, true
	case FieldLastUpdated:
		return formatEpochField(r.LastUpdated), true
	case FieldNextUpdate:
		return formatEpochField(r.NextUpdate), true
	case FieldLastUpdatedStr:
		return r.LastUpdatedStr, true
	case FieldNextUpdateStr:
		return r.NextUpdateStr, true
	case FieldError:
		return r.Error, true
	}
	v, ok := r.Extra[name]
	return v, ok
}

// SetField assigns a column value. Epoch columns must already be parsed by the
// caller, see SetEpochField.
func (r *CacheRecord) SetField(name, value string) {
	switch name {
	case FieldTitle:
		r.Title = value
	case FieldImageURLBase:
		r.ImageURLBase = value
	case FieldLastUpdatedStr:
		r.LastUpdatedStr = value
	case FieldNextUpdateStr:
		r.NextUpdateStr = value
	case FieldError:
		r.Error = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[name] = value
	}
}

// SetEpochField assigns one of the epoch columns
func (r *CacheRecord) SetEpochField(name string, value int64) {
	switch name {
	case FieldLastUpdated:
		r.LastUpdated = value
	case FieldNextUpdate:
		r.NextUpdate = value
	}
}

// IsEpochField reports whether a column holds epoch seconds
func IsEpochField(name string) bool {
	return name == FieldLastUpdated || name == FieldNextUpdate
}

// Narrow clears every column, named or extra, that is not listed in fieldNames
func (r *CacheRecord) Narrow(fieldNames []string) {
	keep := make(map[string]bool, len(fieldNames))
	for _, name := range fieldNames {
		keep[name] = true
	}

	for _, name := range DefaultFieldNames() {
		if keep[name] {
			continue
		}
		if IsEpochField(name) {
			r.SetEpochField(name, 0)
		} else {
			r.SetField(name, "")
		}
	}

	for name := range r.Extra {
		if !keep[name] {
			delete(r.Extra, name)
		}
	}
	if len(r.Extra) == 0 {
		r.Extra = nil
	}
}

// never-updated records keep empty epoch cells on disk
func formatEpochField(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// Metadata is the normalised result of a successful Flickr lookup
type Metadata struct {
	Title        string `json:"title"`
	ImageURLBase string `json:"insert_image_url_base"`
}

// Photo is one marker occurrence after parsing, normalisation and cache merge.
// It is rendered once and discarded.
type Photo struct {
	Params      map[string]string // raw marker parameters
	FullTag     string            // the bracketed marker text
	KeyField    string
	ID          string
	URL         string
	Size        string
	SizeSuffix  string
	ShowCaption bool
	Float       string
	ImageURL    string
	Record      *CacheRecord
}

// TemplateData flattens the photo into the map handed to the template renderer.
// Marker parameters come first so normalised values override them.
func (p *Photo) TemplateData() map[string]any {
	data := make(map[string]any, len(p.Params)+16)
	for k, v := range p.Params {
		data[k] = v
	}

	if p.Record != nil {
		data[FieldTitle] = p.Record.Title
		data[FieldImageURLBase] = p.Record.ImageURLBase
		data[FieldLastUpdated] = p.Record.LastUpdated
		data[FieldNextUpdate] = p.Record.NextUpdate
		data[FieldLastUpdatedStr] = p.Record.LastUpdatedStr
		data[FieldNextUpdateStr] = p.Record.NextUpdateStr
		data[FieldError] = p.Record.Error
		for k, v := range p.Record.Extra {
			if _, exists := data[k]; !exists {
				data[k] = v
			}
		}
	}

	if p.KeyField != "" {
		data[p.KeyField] = p.ID
	}
	data["id"] = p.ID
	data["url"] = p.URL
	data["size"] = p.Size
	data["size_suffix"] = p.SizeSuffix
	data["show_caption"] = p.ShowCaption
	data["float"] = p.Float
	data["insert_image_url"] = p.ImageURL
	data["full_tag"] = p.FullTag

	return data
}
