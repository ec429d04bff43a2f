// Package markdown extracts structural metadata — frontmatter, headings,
// wiki-links, code blocks — from markdown-categorised file content. It
// does not alter the content itself, and the Indexer sends the raw text
// to FTS unchanged: Config.StripMarkdownSyntax is passed through to
// index.Options, but the Indexer does not act on it, so no markup is
// stripped anywhere.
package markdown

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	headingPattern  = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)#*\s*$`)
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\]\n|]+)(?:\|([^\]\n]+))?\]\]`)
	fencePattern    = regexp.MustCompile("(?m)^(```|~~~)(\\S*)[ \\t]*$")
)

// Heading is one ATX heading with its 1-6 level.
type Heading struct {
	Level int
	Text  string
}

// CodeBlock is one fenced block and its declared language tag, which is
// empty when the fence carries no language hint.
type CodeBlock struct {
	Language string
	Content  string
}

// WikiLink is an occurrence of `[[target]]` or `[[target|display]]`.
type WikiLink struct {
	Target  string
	Display string
	Line    int // 1-based
}

// Metadata is the full extraction result for one markdown file.
type Metadata struct {
	Title      string
	Tags       []string
	Links      []WikiLink
	Headings   []Heading
	CodeBlocks []CodeBlock
}

// frontmatter mirrors the recognised YAML-lite keys. Unknown keys are
// ignored rather than rejected — frontmatter is user content, not config.
type frontmatter struct {
	Title string      `yaml:"title"`
	Tags  interface{} `yaml:"tags"`
}

// Extract runs the single linear pass described by the extraction
// algorithm: frontmatter, then headings/wiki-links/code-blocks over the
// remaining body. includeCodeBlocks controls whether fenced blocks are
// collected at all (Config.index_code_blocks).
func Extract(content string, includeCodeBlocks bool) Metadata {
	var meta Metadata

	body := content
	if fm, rest, ok := splitFrontmatter(content); ok {
		meta.Title = fm.Title
		meta.Tags = normalizeTags(fm.Tags)
		body = rest
	}

	meta.Headings = extractHeadings(body)
	meta.Links = extractWikiLinks(body)
	if includeCodeBlocks {
		meta.CodeBlocks = extractCodeBlocks(body)
	}

	if meta.Title == "" {
		for _, h := range meta.Headings {
			if h.Level == 1 {
				meta.Title = h.Text
				break
			}
		}
	}

	return meta
}

// splitFrontmatter consumes a leading "---\n...\n---" block if present.
func splitFrontmatter(content string) (frontmatter, string, bool) {
	if !strings.HasPrefix(content, "---\n") {
		return frontmatter{}, content, false
	}
	rest := content[4:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return frontmatter{}, content, false
	}
	block := rest[:idx]
	after := rest[idx+4:]
	after = strings.TrimPrefix(after, "\n")

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return frontmatter{}, content, false
	}
	return fm, after, true
}

// normalizeTags handles both the inline [a, b] array and YAML block-list
// forms, both of which yaml.v3 decodes into a []interface{}.
func normalizeTags(raw interface{}) []string {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

func extractHeadings(body string) []Heading {
	var out []Heading
	matches := headingPattern.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		out = append(out, Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
		})
	}
	return out
}

func extractWikiLinks(body string) []WikiLink {
	var out []WikiLink
	lineStarts := lineStartOffsets(body)
	for _, m := range wikiLinkPattern.FindAllStringSubmatchIndex(body, -1) {
		target := strings.TrimSpace(body[m[2]:m[3]])
		display := target
		if m[4] >= 0 {
			display = strings.TrimSpace(body[m[4]:m[5]])
		}
		out = append(out, WikiLink{
			Target:  target,
			Display: display,
			Line:    lineForOffset(lineStarts, m[0]),
		})
	}
	return out
}

func extractCodeBlocks(body string) []CodeBlock {
	lines := strings.Split(body, "\n")
	var out []CodeBlock
	var open bool
	var fenceChar string
	var lang string
	var buf strings.Builder

	for _, line := range lines {
		if m := fencePattern.FindStringSubmatch(line); m != nil {
			if !open {
				open = true
				fenceChar = m[1]
				lang = m[2]
				buf.Reset()
				continue
			}
			if strings.HasPrefix(m[1], string(fenceChar[0])) {
				out = append(out, CodeBlock{Language: lang, Content: buf.String()})
				open = false
				continue
			}
		}
		if open {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	return out
}

func lineStartOffsets(s string) []int {
	starts := []int{0}
	for i, c := range s {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineForOffset(starts []int, offset int) int {
	// Binary search would be overkill for typical note sizes; linear scan
	// keeps this readable and correct.
	line := 0
	for _, start := range starts {
		if start > offset {
			break
		}
		line++
	}
	return line
}
