package models

const (
	// FormatHTML marks documents whose content is already HTML
	FormatHTML = "html"
	// FormatMarkdown marks documents that are converted to HTML before enrichment
	FormatMarkdown = "markdown"
)

// Document is a single source file loaded for enrichment.
// Body always holds HTML once the document has been loaded.
type Document struct {
	Path       string // path of the source file
	RelPath    string // path relative to the content root it was found in
	Root       string // content root the file was found in
	Format     string // source format: html or markdown
	Body       string
	Original   string         // body as loaded (after markdown conversion)
	Meta       map[string]any // front matter, if any
	OutputPath string
}

// SourcePath returns the path the document was loaded from
func (d *Document) SourcePath() string {
	return d.Path
}

// Text returns the current HTML body
func (d *Document) Text() string {
	return d.Body
}

// SetText replaces the HTML body
func (d *Document) SetText(text string) {
	d.Body = text
}

// Changed reports whether enrichment modified the document
func (d *Document) Changed() bool {
	return d.Body != d.Original
}
