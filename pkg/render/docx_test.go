package render_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/ignatij/letterflow/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchiveFile(t *testing.T, data []byte, name string) string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(content)
	}
	t.Fatalf("archive missing %s", name)
	return ""
}

func TestDocumentIsValidArchive(t *testing.T) {
	data, err := render.Document("Hello newsletter", "claude-sonnet-4-6")
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}, names)
}

func TestDocumentParagraphsAndModelLine(t *testing.T) {
	data, err := render.Document("line one\nline two", "claude-sonnet-4-6")
	require.NoError(t, err)

	body := readArchiveFile(t, data, "word/document.xml")
	assert.Contains(t, body, `<w:t xml:space="preserve">line one</w:t>`)
	assert.Contains(t, body, `<w:t xml:space="preserve">line two</w:t>`)
	assert.Contains(t, body, "Generated with claude-sonnet-4-6")
}

func TestDocumentEscapesMarkup(t *testing.T) {
	data, err := render.Document(`costs <$5 & "rising">`, "")
	require.NoError(t, err)

	body := readArchiveFile(t, data, "word/document.xml")
	assert.Contains(t, body, "costs &lt;$5 &amp; &quot;rising&quot;&gt;")
	assert.NotContains(t, body, "<$5")
}

func TestDocumentRejectsEmptyText(t *testing.T) {
	_, err := render.Document("   \n  ", "m")
	assert.Error(t, err)
}

func TestDocxRendererImplementsRender(t *testing.T) {
	data, err := render.DocxRenderer{}.Render("Hello", "m")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
