package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_FrontmatterTitleAndInlineTags(t *testing.T) {
	content := "---\ntitle: My Note\ntags: [a, b]\n---\n# Heading\n\nbody"
	meta := Extract(content, true)

	assert.Equal(t, "My Note", meta.Title)
	assert.Equal(t, []string{"a", "b"}, meta.Tags)
	assert.Len(t, meta.Headings, 1)
	assert.Equal(t, 1, meta.Headings[0].Level)
	assert.Equal(t, "Heading", meta.Headings[0].Text)
}

func TestExtract_FrontmatterBlockListTags(t *testing.T) {
	content := "---\ntitle: Note\ntags:\n  - x\n  - y\n---\nbody"
	meta := Extract(content, true)
	assert.Equal(t, []string{"x", "y"}, meta.Tags)
}

func TestExtract_TitleFallsBackToFirstH1(t *testing.T) {
	content := "# The Title\n\nsome body\n\n## Sub"
	meta := Extract(content, true)
	assert.Equal(t, "The Title", meta.Title)
	assert.Len(t, meta.Headings, 2)
}

func TestExtract_WikiLinksWithAndWithoutDisplay(t *testing.T) {
	content := "See [[b]] and also [[c|See C]]."
	meta := Extract(content, true)
	assert.Len(t, meta.Links, 2)
	assert.Equal(t, "b", meta.Links[0].Target)
	assert.Equal(t, "b", meta.Links[0].Display)
	assert.Equal(t, "c", meta.Links[1].Target)
	assert.Equal(t, "See C", meta.Links[1].Display)
}

func TestExtract_WikiLinkDoesNotCrossNewlines(t *testing.T) {
	content := "[[broken\nlink]]"
	meta := Extract(content, true)
	assert.Empty(t, meta.Links)
}

func TestExtract_CodeBlocksWithLanguageTag(t *testing.T) {
	content := "intro\n```go\nfunc main() {}\n```\nmore text\n~~~\nplain\n~~~"
	meta := Extract(content, true)
	assert.Len(t, meta.CodeBlocks, 2)
	assert.Equal(t, "go", meta.CodeBlocks[0].Language)
	assert.Contains(t, meta.CodeBlocks[0].Content, "func main")
	assert.Equal(t, "", meta.CodeBlocks[1].Language)
}

func TestExtract_CodeBlocksOmittedWhenDisabled(t *testing.T) {
	content := "```go\ncode\n```"
	meta := Extract(content, false)
	assert.Empty(t, meta.CodeBlocks)
}

func TestExtract_NoFrontmatterNoHeadings(t *testing.T) {
	meta := Extract("just plain text", true)
	assert.Equal(t, "", meta.Title)
	assert.Empty(t, meta.Headings)
	assert.Empty(t, meta.Tags)
}
