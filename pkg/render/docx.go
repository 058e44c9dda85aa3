// Package render produces the downloadable document for a generated
// draft. The output is a minimal OOXML word-processing archive: content
// types, package relationships and the document body.
package render

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// ContentType is the MIME type of the rendered document.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DocxRenderer satisfies the pipeline renderer contract.
type DocxRenderer struct{}

func (DocxRenderer) Render(text, model string) ([]byte, error) {
	return Document(text, model)
}

// Document renders generated text as .docx bytes, one paragraph per line,
// with the generating model noted in a closing line.
func Document(text, model string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot render an empty document")
	}

	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, line := range strings.Split(text, "\n") {
		body.WriteString(paragraph(line))
	}
	if model != "" {
		body.WriteString(paragraph(""))
		body.WriteString(paragraph("Generated with " + model))
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	files := []struct {
		name, content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", body.String()},
	}
	for _, f := range files {
		w, err := archive.Create(f.name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", f.name)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", f.name)
		}
	}
	if err := archive.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finalize document archive")
	}
	return buf.Bytes(), nil
}

func paragraph(line string) string {
	if strings.TrimSpace(line) == "" {
		return "<w:p/>"
	}
	return `<w:p><w:r><w:t xml:space="preserve">` + escape(line) + `</w:t></w:r></w:p>`
}

func escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}
