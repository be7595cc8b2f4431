// Package documents loads content files for enrichment and writes the results.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/flickrinsert/internal/common"
	"github.com/ternarybob/flickrinsert/internal/interfaces"
	"github.com/ternarybob/flickrinsert/internal/models"
)

// Service implements interfaces.DocumentSource on the filesystem
type Service struct {
	dirs       []string
	extensions []string
	outputDir  string
	markdown   goldmark.Markdown
	logger     arbor.ILogger
}

// Compile-time assertion
var _ interfaces.DocumentSource = (*Service)(nil)

// NewService creates a filesystem document source
func NewService(config common.ContentConfig, logger arbor.ILogger) *Service {
	extensions := make([]string, 0, len(config.Extensions))
	for _, ext := range config.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions = append(extensions, ext)
	}

	// Linkify stays off: it would turn url= parameters inside markers into anchors
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	return &Service{
		dirs:       config.Dirs,
		extensions: extensions,
		outputDir:  config.OutputDir,
		markdown:   md,
		logger:     logger,
	}
}

// Documents loads every matching file under the content directories, in
// directory order and then lexical path order. Missing directories are skipped.
func (s *Service) Documents(ctx context.Context) ([]interfaces.Document, error) {
	var docs []interfaces.Document

	for _, root := range s.dirs {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Str("dir", root).Msg("Content directory not found, skipping")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat content directory %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("content path %s is not a directory", root)
		}

		var paths []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if slices.Contains(s.extensions, strings.ToLower(filepath.Ext(path))) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan content directory %s: %w", root, err)
		}
		slices.Sort(paths)

		for _, path := range paths {
			doc, err := s.Load(root, path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	s.logger.Debug().Int("documents", len(docs)).Strs("dirs", s.dirs).Msg("Documents collected")

	return docs, nil
}

// Load reads one file and converts Markdown to HTML
func (s *Service) Load(root, path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	doc := &models.Document{
		Path:    path,
		RelPath: rel,
		Root:    root,
		Format:  models.FormatHTML,
	}

	body := data
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		doc.Format = models.FormatMarkdown

		meta, rest, err := splitFrontMatter(data)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Ignoring invalid front matter")
		}
		doc.Meta = meta

		var buf bytes.Buffer
		if err := s.markdown.Convert(rest, &buf); err != nil {
			return nil, fmt.Errorf("failed to convert markdown %s: %w", path, err)
		}
		body = buf.Bytes()
	}

	doc.Body = string(body)
	doc.Original = doc.Body
	doc.OutputPath = s.outputPath(root, rel)

	return doc, nil
}

// outputPath mirrors the relative path under the output directory with an
// .html extension. With several roots the root name is kept as a prefix.
func (s *Service) outputPath(root, rel string) string {
	out := strings.TrimSuffix(rel, filepath.Ext(rel)) + ".html"
	if len(s.dirs) > 1 {
		out = filepath.Join(filepath.Base(filepath.Clean(root)), out)
	}
	return filepath.Join(s.outputDir, out)
}

// Write stores every document at its output path
func (s *Service) Write(ctx context.Context, docs []interfaces.Document) error {
	written := 0
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, ok := d.(*models.Document)
		if !ok {
			return fmt.Errorf("unsupported document type %T for %s", d, d.SourcePath())
		}

		if err := os.MkdirAll(filepath.Dir(doc.OutputPath), 0755); err != nil {
			return fmt.Errorf("failed to create output directory for %s: %w", doc.OutputPath, err)
		}
		if err := os.WriteFile(doc.OutputPath, []byte(doc.Body), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", doc.OutputPath, err)
		}
		written++
	}

	s.logger.Info().Int("documents", written).Str("output_dir", s.outputDir).Msg("Documents written")

	return nil
}

// splitFrontMatter separates a leading YAML block delimited by --- lines
func splitFrontMatter(data []byte) (map[string]any, []byte, error) {
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, data, nil
	}

	rest := normalized[4:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, data, nil
	}

	block := rest[:end]
	body := rest[end+4:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	meta := map[string]any{}
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, body, fmt.Errorf("failed to parse front matter: %w", err)
	}
	return meta, body, nil
}
