// Package enrich replaces photo markers in documents with rendered markup,
// refreshing cached Flickr metadata when the cache policy asks for it.
package enrich

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flickrinsert/internal/interfaces"
	"github.com/ternarybob/flickrinsert/internal/services/cache"
	"github.com/ternarybob/flickrinsert/internal/services/photos"
	"github.com/ternarybob/flickrinsert/internal/services/tags"
)

// Stats summarises one pass
type Stats struct {
	Documents   int // documents scanned
	Changed     int // documents with at least one replacement
	Markers     int // marker occurrences found
	Replaced    int // occurrences replaced with rendered markup
	Skipped     int // malformed or unrenderable occurrences left as-is
	Fetched     int // successful Flickr lookups
	FetchErrors int // failed Flickr lookups
}

// Service is the document mutator
type Service struct {
	cache      *cache.Service
	resolver   interfaces.MetadataResolver
	renderer   interfaces.Renderer
	normalizer *photos.Normalizer
	logger     arbor.ILogger
}

// NewService creates a new enrichment service
func NewService(
	cacheService *cache.Service,
	resolver interfaces.MetadataResolver,
	renderer interfaces.Renderer,
	normalizer *photos.Normalizer,
	logger arbor.ILogger,
) *Service {
	return &Service{
		cache:      cacheService,
		resolver:   resolver,
		renderer:   renderer,
		normalizer: normalizer,
		logger:     logger,
	}
}

// pass holds the state shared by all documents of one run
type pass struct {
	store     *Store
	now       int64
	attempted map[string]bool // ids already sent to the resolver this pass
	stats     Stats
}

// EnrichAll processes docs in order against store at time now (epoch seconds).
// Only context cancellation aborts the pass.
func (s *Service) EnrichAll(ctx context.Context, store *Store, docs []interfaces.Document, now int64) (Stats, error) {
	p := &pass{
		store:     store,
		now:       now,
		attempted: make(map[string]bool),
	}

	s.logger.Info().Int("documents", len(docs)).Msg("Looking for flickr tags in content")

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return p.stats, err
		}
		s.enrichDocument(ctx, p, doc)
	}

	s.logger.Info().
		Int("documents", p.stats.Documents).
		Int("changed", p.stats.Changed).
		Int("markers", p.stats.Markers).
		Int("replaced", p.stats.Replaced).
		Int("skipped", p.stats.Skipped).
		Int("fetched", p.stats.Fetched).
		Int("fetch_errors", p.stats.FetchErrors).
		Msg("Flickr tag replacement complete")

	return p.stats, nil
}

// enrichDocument replaces every marker in doc. Offsets refer to the text as
// loaded, so one replacement never shifts or re-matches another.
func (s *Service) enrichDocument(ctx context.Context, p *pass, doc interfaces.Document) {
	p.stats.Documents++

	text := doc.Text()
	matches := tags.FindAll(text)
	if len(matches) == 0 {
		return
	}
	p.stats.Markers += len(matches)

	var out strings.Builder
	out.Grow(len(text))

	last := 0
	replaced := 0
	for _, m := range matches {
		out.WriteString(text[last:m.Start])
		last = m.End

		replacement, ok := s.replace(ctx, p, doc, m)
		if !ok {
			out.WriteString(m.Text)
			continue
		}
		out.WriteString(replacement)
		replaced++
	}
	out.WriteString(text[last:])

	p.stats.Replaced += replaced
	p.stats.Skipped += len(matches) - replaced

	if replaced > 0 {
		doc.SetText(out.String())
		p.stats.Changed++
	}
}

// replace resolves and renders one marker. It returns false when the marker
// must be left untouched.
func (s *Service) replace(ctx context.Context, p *pass, doc interfaces.Document, m tags.Match) (string, bool) {
	params, err := m.Parse()
	if err != nil {
		s.warnMalformed(doc, err)
		return "", false
	}

	photo, err := s.normalizer.Normalize(m.Tag, params)
	if err != nil {
		s.warnMalformed(doc, err)
		return "", false
	}

	record := p.store.GetOrCreate(photo.ID)
	decision := s.cache.Check(record, p.now)

	if decision.IsStale() && !p.attempted[photo.ID] {
		p.attempted[photo.ID] = true

		meta, err := s.resolver.Resolve(ctx, photo.ID)
		if err != nil {
			p.stats.FetchErrors++
			record.Error = err.Error()
			s.logger.Warn().
				Err(err).
				Str("photo_id", photo.ID).
				Str("document", doc.SourcePath()).
				Msg("Flickr lookup failed, using cached data")
		} else {
			p.stats.Fetched++
			s.cache.ApplyRefresh(record, meta, decision, p.now)
		}
	}

	photos.Merge(photo, record.Clone())

	data := photo.TemplateData()
	data["document"] = doc.SourcePath()

	html, err := s.renderer.Render(data)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("photo_id", photo.ID).
			Str("document", doc.SourcePath()).
			Msg("Failed to render flickr tag")
		return "", false
	}

	return html, true
}

func (s *Service) warnMalformed(doc interfaces.Document, err error) {
	var malformed *tags.MalformedMatchError
	if errors.As(err, &malformed) {
		s.logger.Warn().
			Str("tag", malformed.Tag).
			Str("reason", malformed.Reason).
			Str("document", doc.SourcePath()).
			Msg("Skipping malformed flickr tag")
		return
	}
	s.logger.Warn().Err(err).Str("document", doc.SourcePath()).Msg("Skipping flickr tag")
}
