package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/extract-cli/internal/model"
)

// SystemPrompt tells the model what to extract and how to answer.
func SystemPrompt(schema model.Schema, instruction string) string {
	var b strings.Builder
	b.WriteString("You extract structured data from web page content.\n\n")
	if instruction != "" {
		b.WriteString("Instruction:\n")
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}
	b.WriteString("Each extracted item must be a JSON object matching this JSON Schema:\n")
	b.Write(schema.JSONSchema())
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Return ONLY a JSON array of items, no markdown fences or explanation.\n")
	b.WriteString("- Return [] when the content holds nothing to extract.\n")
	b.WriteString("- Use exactly the field names in the schema.\n")
	b.WriteString("- Do not invent values. Leave a field empty when unsure.\n")
	return b.String()
}

// UserPrompt wraps one content chunk for the model.
func UserPrompt(pageURL, chunk string, index, total int) string {
	part := ""
	if total > 1 {
		part = fmt.Sprintf(" (part %d of %d)", index+1, total)
	}
	return fmt.Sprintf("Page URL: %s%s\n\n<content>\n%s\n</content>", pageURL, part, chunk)
}
