package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func photoData() map[string]any {
	return map[string]any{
		"url":              "https://flic.kr/p/ruUAoZ",
		"title":            "Sunset & sea",
		"insert_image_url": "https://farm9.staticflickr.com/8579/16736042621_7cfe88c078_z.jpg",
		"show_caption":     true,
		"float":            "",
	}
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestListEmbeddedTemplates(t *testing.T) {
	names, err := ListEmbeddedTemplates()
	require.NoError(t, err)
	assert.Contains(t, names, DefaultName)
}

func TestRender_Default(t *testing.T) {
	renderer, err := NewRenderer("", "", false, nil)
	require.NoError(t, err)

	out, err := renderer.Render(photoData())
	require.NoError(t, err)

	doc := parse(t, out)
	link := doc.Find("div.caption-container a.caption")
	require.Equal(t, 1, link.Length())
	href, _ := link.Attr("href")
	assert.Equal(t, "https://flic.kr/p/ruUAoZ", href)

	img := doc.Find("img.img-polaroid")
	src, _ := img.Attr("src")
	alt, _ := img.Attr("alt")
	assert.Equal(t, "https://farm9.staticflickr.com/8579/16736042621_7cfe88c078_z.jpg", src)
	assert.Equal(t, "Sunset & sea", alt)
	_, hasWidth := img.Attr("width")
	assert.False(t, hasWidth)

	assert.Equal(t, "Sunset & sea", doc.Find("p.desc_content").Text())
	assert.Equal(t, 1, doc.Find("div.clearfix").Length())
	assert.Contains(t, out, "Sunset &amp; sea")
}

func TestRender_FloatAndNoCaption(t *testing.T) {
	renderer, err := NewRenderer("", "", false, nil)
	require.NoError(t, err)

	data := photoData()
	data["float"] = "left"
	data["show_caption"] = false

	out, err := renderer.Render(data)
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, 1, doc.Find("div.image-wrapper.pull-left").Length())
	assert.Equal(t, 0, doc.Find("div.desc").Length())
	assert.Equal(t, 0, doc.Find("div.clearfix").Length())
}

func TestRender_IncludeDimensions(t *testing.T) {
	renderer, err := NewRenderer("", "", true, nil)
	require.NoError(t, err)

	data := photoData()
	data["width"] = "640"
	data["height"] = "480"

	out, err := renderer.Render(data)
	require.NoError(t, err)

	img := parse(t, out).Find("img")
	width, _ := img.Attr("width")
	height, _ := img.Attr("height")
	assert.Equal(t, "640", width)
	assert.Equal(t, "480", height)
}

func TestRender_MissingKeysRenderEmpty(t *testing.T) {
	renderer, err := NewRenderer("", "", true, nil)
	require.NoError(t, err)

	out, err := renderer.Render(map[string]any{})
	require.NoError(t, err)
	assert.NotContains(t, out, "no value")
}

func TestNewRenderer_UserOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "simple.html.tmpl"),
		[]byte(`<img src="{{.insert_image_url}}" alt="{{.title}}">`), 0644))

	renderer, err := NewRenderer("simple", dir, false, nil)
	require.NoError(t, err)

	out, err := renderer.Render(photoData())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<img"))
	assert.NotContains(t, out, "caption-container")
}

func TestNewRenderer_MissingCustomFallsBack(t *testing.T) {
	renderer, err := NewRenderer("does-not-exist", t.TempDir(), false, arbor.NewLogger())
	require.NoError(t, err)

	out, err := renderer.Render(photoData())
	require.NoError(t, err)
	assert.Contains(t, out, "caption-container")
}

func TestNewRenderer_BrokenCustomFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.html.tmpl"), []byte(`{{if .title}`), 0644))

	renderer, err := NewRenderer("broken", dir, false, arbor.NewLogger())
	require.NoError(t, err)

	out, err := renderer.Render(photoData())
	require.NoError(t, err)
	assert.Contains(t, out, "caption-container")
}
