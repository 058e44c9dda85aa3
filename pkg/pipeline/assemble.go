package pipeline

import "strings"

// TaskInstruction is the fixed closing instruction of every prompt.
const TaskInstruction = "Using the data above and following the template exactly, generate the " +
	"newsletter draft. Output should be ready to copy into the final document " +
	"with no further editing needed."

// UploadedDoc is an extracted context document, keyed by filename.
type UploadedDoc struct {
	Name string
	Text string
}

// AssembleContext concatenates the source text blocks, uploaded document
// texts and template text into one prompt under delimited sections.
// Empty sections get an explanatory placeholder so the generator always
// receives a complete, well-formed structure.
func AssembleContext(sourceBlocks []string, docs []UploadedDoc, templateText string) string {
	var parts []string

	var data []string
	for _, block := range sourceBlocks {
		if strings.TrimSpace(block) != "" {
			data = append(data, strings.TrimSpace(block))
		}
	}
	parts = append(parts, "=== DATA CONTEXT ===")
	if len(data) > 0 {
		parts = append(parts, strings.Join(data, "\n\n"))
	} else {
		parts = append(parts, "(No live data fetched — work from uploaded documents and template only.)")
	}

	parts = append(parts, "\n=== UPLOADED DOCUMENTS ===")
	if len(docs) > 0 {
		for _, doc := range docs {
			parts = append(parts, "--- "+doc.Name+" ---")
			parts = append(parts, strings.TrimSpace(doc.Text))
		}
	} else {
		parts = append(parts, "(No additional documents uploaded.)")
	}

	parts = append(parts, "\n=== TEMPLATE & INSTRUCTIONS ===")
	if strings.TrimSpace(templateText) != "" {
		parts = append(parts, strings.TrimSpace(templateText))
	} else {
		parts = append(parts, "(No template provided — use a standard newsletter format.)")
	}

	parts = append(parts, "\n=== YOUR TASK ===")
	parts = append(parts, TaskInstruction)

	return strings.Join(parts, "\n\n")
}
