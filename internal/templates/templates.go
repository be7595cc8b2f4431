// Package templates renders the markup that replaces a photo marker.
// Templates are loaded with resolution order:
// 1. User override: templatesDir/{name}.html.tmpl
// 2. Embedded: internal/templates/{name}.html.tmpl
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
)

//go:embed *.html.tmpl
var fs embed.FS

// DefaultName is the embedded default template
const DefaultName = "photo"

const extension = ".html.tmpl"

// defaults keeps templates free of "<no value>" output for optional keys
var defaults = map[string]any{
	"url":                "",
	"title":              "",
	"float":              "",
	"insert_image_url":   "",
	"show_caption":       false,
	"include_dimensions": false,
	"width":              "",
	"height":             "",
}

// GetTemplate loads a template by name, user override first, then embedded
func GetTemplate(name string, templatesDir string) (*template.Template, error) {
	name = strings.TrimSuffix(name, extension)

	if templatesDir != "" {
		userPath := filepath.Join(templatesDir, name+extension)
		if data, err := os.ReadFile(userPath); err == nil {
			return parseTemplate(name, data)
		}
	}

	data, err := fs.ReadFile(name + extension)
	if err != nil {
		return nil, fmt.Errorf("template '%s' not found (checked user override and embedded)", name)
	}
	return parseTemplate(name, data)
}

// ListEmbeddedTemplates returns names of all embedded templates
func ListEmbeddedTemplates() ([]string, error) {
	entries, err := fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), extension) {
			names = append(names, strings.TrimSuffix(entry.Name(), extension))
		}
	}
	return names, nil
}

func parseTemplate(name string, data []byte) (*template.Template, error) {
	t, err := template.New(name).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return t, nil
}

// Renderer renders photo data with one template. It implements interfaces.Renderer.
type Renderer struct {
	tmpl              *template.Template
	includeDimensions bool
}

// NewRenderer loads the named template. An empty name selects the default; a
// custom template that cannot be loaded is logged and replaced by the default.
func NewRenderer(name, templatesDir string, includeDimensions bool, logger arbor.ILogger) (*Renderer, error) {
	if name != "" && name != DefaultName {
		tmpl, err := GetTemplate(name, templatesDir)
		if err == nil {
			return &Renderer{tmpl: tmpl, includeDimensions: includeDimensions}, nil
		}
		if logger != nil {
			logger.Error().Err(err).Str("template", name).Msg("Unable to get custom template, using default")
		}
	}

	tmpl, err := GetTemplate(DefaultName, "")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, includeDimensions: includeDimensions}, nil
}

// Render executes the template over data
func (r *Renderer) Render(data map[string]any) (string, error) {
	merged := make(map[string]any, len(defaults)+len(data)+1)
	for k, v := range defaults {
		merged[k] = v
	}
	merged["include_dimensions"] = r.includeDimensions
	for k, v := range data {
		merged[k] = v
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, merged); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", r.tmpl.Name(), err)
	}
	return buf.String(), nil
}
