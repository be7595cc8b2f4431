// Package tags finds [flickr:...] markers in document HTML and parses their parameters.
package tags

import (
	"fmt"
	"regexp"
	"strings"
)

// markerPattern matches a paragraph holding only a marker. Group 1 is the
// bracketed marker, group 2 the raw parameter list.
var markerPattern = regexp.MustCompile(`(?i)<p>\s*(\[flickr:([^\]]*)\])\s*</p>`)

// Match is one marker occurrence in a document
type Match struct {
	// Text is the full matched paragraph, replaced as a whole
	Text string
	// Tag is the bracketed marker, e.g. [flickr:id=123]
	Tag string
	// RawParams is everything between "flickr:" and the closing bracket
	RawParams string
	// Start and End are byte offsets of Text in the document
	Start int
	End   int
}

// MalformedMatchError reports a marker whose parameters cannot be used
type MalformedMatchError struct {
	Tag    string
	Reason string
}

func (e *MalformedMatchError) Error() string {
	return fmt.Sprintf("malformed flickr tag %s: %s", e.Tag, e.Reason)
}

// FindAll returns every marker occurrence in content, in document order
func FindAll(content string) []Match {
	locs := markerPattern.FindAllStringSubmatchIndex(content, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			Text:      content[loc[0]:loc[1]],
			Tag:       content[loc[2]:loc[3]],
			RawParams: content[loc[4]:loc[5]],
			Start:     loc[0],
			End:       loc[1],
		})
	}
	return matches
}

// ParseParams parses a marker parameter list. Entries are separated by commas
// or newlines and take the form key=value or key: value, whichever separator
// comes first. Keys are lower-cased, keys and values are trimmed and blank
// entries are ignored.
func ParseParams(tag, raw string) (map[string]string, error) {
	params := make(map[string]string)

	entries := strings.Split(strings.ReplaceAll(raw, ",", "\n"), "\n")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		idx := strings.IndexAny(entry, "=:")
		if idx < 0 {
			return nil, &MalformedMatchError{Tag: tag, Reason: fmt.Sprintf("entry %q has no '=' or ':'", entry)}
		}

		key := strings.ToLower(strings.TrimSpace(entry[:idx]))
		value := strings.TrimSpace(entry[idx+1:])
		if key == "" {
			return nil, &MalformedMatchError{Tag: tag, Reason: fmt.Sprintf("entry %q has an empty key", entry)}
		}
		if _, exists := params[key]; exists {
			return nil, &MalformedMatchError{Tag: tag, Reason: fmt.Sprintf("duplicate key %q", key)}
		}

		params[key] = value
	}

	return params, nil
}

// Parse parses the parameters of m
func (m Match) Parse() (map[string]string, error) {
	return ParseParams(m.Tag, m.RawParams)
}
