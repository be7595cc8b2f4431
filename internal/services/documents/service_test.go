package documents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flickrinsert/internal/common"
	"github.com/ternarybob/flickrinsert/internal/models"
	"github.com/ternarybob/flickrinsert/internal/services/tags"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDocuments_CollectsAndConverts(t *testing.T) {
	base := t.TempDir()
	articles := filepath.Join(base, "articles")
	pages := filepath.Join(base, "pages")

	writeFile(t, filepath.Join(articles, "b.md"), "---\ntitle: Trip\ntags: [travel]\n---\n# Trip\n\n[flickr:id=16736042621,url=https://flic.kr/p/ruUAoZ,show_caption=yes]\n\nDone.\n")
	writeFile(t, filepath.Join(articles, "a.html"), "<p>[flickr:id=1]</p>")
	writeFile(t, filepath.Join(articles, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(pages, "about", "index.MD"), "About")

	svc := NewService(common.ContentConfig{
		Dirs:       []string{articles, pages, filepath.Join(base, "missing")},
		Extensions: []string{".md", "html"},
		OutputDir:  filepath.Join(base, "out"),
	}, arbor.NewLogger())

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, filepath.Join(articles, "a.html"), docs[0].SourcePath())
	assert.Equal(t, filepath.Join(articles, "b.md"), docs[1].SourcePath())
	assert.Equal(t, filepath.Join(pages, "about", "index.MD"), docs[2].SourcePath())

	html := docs[0].(*models.Document)
	assert.Equal(t, models.FormatHTML, html.Format)
	assert.Equal(t, "<p>[flickr:id=1]</p>", html.Text())

	md := docs[1].(*models.Document)
	assert.Equal(t, models.FormatMarkdown, md.Format)
	assert.Equal(t, "Trip", md.Meta["title"])
	assert.Contains(t, md.Text(), "<h1>Trip</h1>")
	assert.NotContains(t, md.Text(), "title: Trip")
	assert.False(t, md.Changed())

	// The marker survives conversion as its own paragraph
	matches := tags.FindAll(md.Text())
	require.Len(t, matches, 1)
	params, err := matches[0].Parse()
	require.NoError(t, err)
	assert.Equal(t, "https://flic.kr/p/ruUAoZ", params["url"])
	assert.Equal(t, "yes", params["show_caption"])

	assert.Equal(t, filepath.Join(base, "out", "articles", "b.html"), md.OutputPath)
	assert.Equal(t, filepath.Join(base, "out", "pages", "about", "index.html"), docs[2].(*models.Document).OutputPath)
}

func TestWrite(t *testing.T) {
	base := t.TempDir()
	content := filepath.Join(base, "content")
	writeFile(t, filepath.Join(content, "post.html"), "<p>[flickr:id=1]</p>")

	svc := NewService(common.ContentConfig{
		Dirs:       []string{content},
		Extensions: []string{".html"},
		OutputDir:  filepath.Join(base, "out"),
	}, arbor.NewLogger())

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs[0].SetText("<div>rendered</div>")
	require.NoError(t, svc.Write(context.Background(), docs))

	data, err := os.ReadFile(filepath.Join(base, "out", "post.html"))
	require.NoError(t, err)
	assert.Equal(t, "<div>rendered</div>", string(data))

	// Source is never modified
	src, err := os.ReadFile(filepath.Join(content, "post.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>[flickr:id=1]</p>", string(src))
}

func TestDocuments_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.md")
	writeFile(t, file, "x")

	svc := NewService(common.ContentConfig{Dirs: []string{file}, Extensions: []string{".md"}}, arbor.NewLogger())
	_, err := svc.Documents(context.Background())
	assert.Error(t, err)
}

func TestSplitFrontMatter(t *testing.T) {
	meta, body, err := splitFrontMatter([]byte("---\ntitle: A\n---\nBody\n"))
	require.NoError(t, err)
	assert.Equal(t, "A", meta["title"])
	assert.Equal(t, "Body\n", string(body))

	meta, body, err = splitFrontMatter([]byte("No front matter"))
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Equal(t, "No front matter", string(body))

	_, _, err = splitFrontMatter([]byte("---\n: [broken\n---\nBody"))
	assert.Error(t, err)
}
