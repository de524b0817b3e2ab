package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(albumSchema, "Extract all Titles, URLs, Years and Language from the tables in the page.")

	assert.Contains(t, p, "Extract all Titles, URLs, Years and Language")
	assert.Contains(t, p, string(albumSchema.JSONSchema()))
	assert.Contains(t, p, "JSON array")
}

func TestSystemPrompt_NoInstruction(t *testing.T) {
	p := SystemPrompt(albumSchema, "")
	assert.NotContains(t, p, "Instruction:")
}

func TestUserPrompt(t *testing.T) {
	single := UserPrompt("https://en.wikipedia.org/wiki/Roja", "body", 0, 1)
	assert.Equal(t, "Page URL: https://en.wikipedia.org/wiki/Roja\n\n<content>\nbody\n</content>", single)

	multi := UserPrompt("https://x", "body", 1, 3)
	assert.Contains(t, multi, "(part 2 of 3)")
}
