// Package photos turns parsed marker parameters into a normalised Photo.
package photos

import (
	"fmt"
	"strings"

	"github.com/ternarybob/flickrinsert/internal/models"
	"github.com/ternarybob/flickrinsert/internal/services/flickr"
	"github.com/ternarybob/flickrinsert/internal/services/tags"
)

// DefaultSuffix is the Flickr size suffix for "medium"
const DefaultSuffix = "z"

// DefaultSize is used when neither the marker nor the configuration names a known size
const DefaultSize = "medium"

// sizeAliases maps each Flickr size suffix to the names a marker may use for it.
// See https://www.flickr.com/services/api/misc.urls.html
var sizeAliases = map[string][]string{
	"s":           {"smallsq", "sq75", "75"},
	"t":           {"thumb", "th100", "100"},
	"q":           {"largesq", "sq150", "150"},
	"m":           {"small", "small240", "240"},
	DefaultSuffix: {"medium", "medium640", "640"},
	"b":           {"large", "large1024", "1024"},
}

var sizeSuffixes = func() map[string]string {
	suffixes := make(map[string]string)
	for suffix, names := range sizeAliases {
		for _, name := range names {
			suffixes[name] = suffix
		}
	}
	return suffixes
}()

// Small sizes hide the caption unless the marker asks for one
var captionForSuffix = map[string]bool{
	"s": false, "t": false, "q": false, "m": false,
	"z": true, "b": true,
}

var booleanStates = map[string]bool{
	"1": true, "yes": true, "y": true, "true": true, "on": true,
	"0": false, "no": false, "n": false, "false": false, "off": false,
}

// Normalizer builds Photos for one cache key field and default size
type Normalizer struct {
	keyField    string
	defaultSize string
}

// NewNormalizer creates a Normalizer. An unknown defaultSize falls back to medium.
func NewNormalizer(keyField, defaultSize string) *Normalizer {
	if keyField == "" {
		keyField = models.DefaultKeyField
	}
	defaultSize = strings.ToLower(strings.TrimSpace(defaultSize))
	if _, ok := sizeSuffixes[defaultSize]; !ok {
		defaultSize = DefaultSize
	}
	return &Normalizer{keyField: keyField, defaultSize: defaultSize}
}

// Normalize resolves identifier, URL, size, caption and float for a marker.
// The returned Photo has no cache record merged yet.
func (n *Normalizer) Normalize(tag string, params map[string]string) (*models.Photo, error) {
	id, url, err := ResolveIDAndURL(params, n.keyField)
	if err != nil {
		return nil, &tags.MalformedMatchError{Tag: tag, Reason: err.Error()}
	}

	size, suffix := ResolveSize(params["size"], n.defaultSize)

	return &models.Photo{
		Params:      params,
		FullTag:     tag,
		KeyField:    n.keyField,
		ID:          id,
		URL:         url,
		Size:        size,
		SizeSuffix:  suffix,
		ShowCaption: ResolveCaption(params, suffix),
		Float:       ResolveFloat(params["float"]),
	}, nil
}

// ResolveIDAndURL returns the photo identifier and its page URL. The id is read
// from keyField, then "id". Without a url the flic.kr short URL is derived from
// the id; without an id the url's trailing path segment is decoded as a short id.
// http:// is always upgraded to https://.
func ResolveIDAndURL(params map[string]string, keyField string) (string, string, error) {
	id := strings.TrimSpace(params[keyField])
	if id == "" {
		id = strings.TrimSpace(params["id"])
	}
	url := strings.TrimSpace(params["url"])

	switch {
	case id == "" && url == "":
		return "", "", fmt.Errorf("neither %s nor url given", keyField)
	case url == "":
		short, err := flickr.ShortURL(id)
		if err != nil {
			return "", "", err
		}
		url = short
	case id == "":
		segments := strings.Split(strings.Trim(url, "/"), "/")
		decoded, err := flickr.DecodeShortID(segments[len(segments)-1])
		if err != nil {
			return "", "", fmt.Errorf("cannot derive photo id from url %q: %w", url, err)
		}
		id = decoded
	}

	url = strings.ReplaceAll(url, "http://", "https://")
	return id, url, nil
}

// ResolveSize maps a size name to its canonical name and Flickr suffix.
// Unknown or empty names use defaultSize.
func ResolveSize(raw, defaultSize string) (string, string) {
	size := strings.ToLower(strings.TrimSpace(raw))
	if suffix, ok := sizeSuffixes[size]; ok {
		return size, suffix
	}
	if suffix, ok := sizeSuffixes[defaultSize]; ok {
		return defaultSize, suffix
	}
	return DefaultSize, DefaultSuffix
}

// ResolveCaption reads "caption" then "show_caption". A non-empty value that is
// not a recognised boolean counts as true; an absent one uses the size default.
func ResolveCaption(params map[string]string, suffix string) bool {
	specified, ok := params["caption"]
	if !ok {
		specified = params["show_caption"]
	}
	specified = strings.TrimSpace(specified)

	if specified != "" {
		if v, known := booleanStates[strings.ToLower(specified)]; known {
			return v
		}
		return true
	}

	if show, known := captionForSuffix[suffix]; known {
		return show
	}
	return captionForSuffix[DefaultSuffix]
}

// ResolveFloat returns "left", "right" or "" for no float
func ResolveFloat(raw string) string {
	f := strings.ToLower(strings.TrimSpace(raw))
	if f == "left" || f == "right" {
		return f
	}
	return ""
}

// ImageURL joins the cached URL base with the size suffix
func ImageURL(base, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return base + suffix + ".jpg"
}

// Merge attaches a cache record to the photo and derives the final image URL
func Merge(photo *models.Photo, record *models.CacheRecord) {
	photo.Record = record
	base := ""
	if record != nil {
		base = record.ImageURLBase
	}
	photo.ImageURL = ImageURL(base, photo.SizeSuffix)
}
