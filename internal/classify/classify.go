// Package classify turns a file path and stat data into an indexing
// decision: include with a category, or skip with a reason. It never
// touches the Store or the filesystem beyond reading a size-bounded
// content prefix for binary detection.
package classify

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// SkipReason explains why a path was excluded from indexing.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipBinaryExtension SkipReason = "binary-extension"
	SkipExceedsSizeCap  SkipReason = "exceeds-size-cap"
	SkipIgnorePattern   SkipReason = "ignore-pattern-hit"
	SkipNullByte        SkipReason = "null-byte-in-prefix"
)

// Category is one of the file categories named in the data model.
type Category string

const (
	CategoryMarkdown  Category = "markdown"
	CategoryPlaintext Category = "plaintext"
	CategoryOrgMode   Category = "org-mode"
	CategoryRST       Category = "rst"
	CategoryConfig    Category = "config"
	CategoryUnknown   Category = "unknown"
)

// CodeCategory returns "code/<language>" for a detected language.
func CodeCategory(language string) Category {
	return Category("code/" + language)
}

// Decision is the result of classifying one path.
type Decision struct {
	Include  bool
	Category Category
	Reason   SkipReason
}

// NullBytePrefixSize bounds how much content is scanned for the null-byte
// binary heuristic.
const NullBytePrefixSize = 8 * 1024

// Classifier applies Config-driven size and ignore-pattern gating plus a
// fixed extension table to decide the fate of each candidate path.
type Classifier struct {
	maxFileSize    int64
	ignoreGlobs    []glob.Glob
	ignorePatterns []string // substrings, kept for rationale/debugging surfaces
}

// New builds a Classifier from the maximum file size (bytes) and a list of
// ignore patterns. Patterns are compiled as gobwas/glob expressions
// (supporting "**" and "{a,b}") so Config's ignore_patterns key behaves
// like a real gitignore-style filter rather than a bare substring match.
func New(maxFileSize int64, ignorePatterns []string) *Classifier {
	c := &Classifier{
		maxFileSize:    maxFileSize,
		ignorePatterns: ignorePatterns,
	}
	for _, p := range ignorePatterns {
		pattern := p
		if !strings.Contains(pattern, "*") && !strings.Contains(pattern, "{") {
			// Plain directory/name fragments behave like a substring
			// match when wrapped in separator-crossing wildcards on
			// both sides.
			pattern = "**" + pattern + "**"
		}
		if g, err := glob.Compile(pattern, '/'); err == nil {
			c.ignoreGlobs = append(c.ignoreGlobs, g)
		}
	}
	return c
}

// MatchesIgnorePattern reports whether relPath hits any configured ignore
// pattern.
func (c *Classifier) MatchesIgnorePattern(relPath string) bool {
	slash := filepath.ToSlash(relPath)
	for _, g := range c.ignoreGlobs {
		if g.Match(slash) {
			return true
		}
	}
	return false
}

// Classify decides the fate of a path given its size and a content prefix
// (at most NullBytePrefixSize bytes) already read by the caller. Passing a
// nil prefix skips the null-byte check (used when the caller has not read
// the file yet and only wants the size/ignore/extension verdict).
func (c *Classifier) Classify(relPath string, size int64, prefix []byte) Decision {
	if c.MatchesIgnorePattern(relPath) {
		return Decision{Reason: SkipIgnorePattern}
	}

	ext := strings.ToLower(filepath.Ext(relPath))
	if binaryExtensions[ext] {
		return Decision{Reason: SkipBinaryExtension}
	}

	if size > c.maxFileSize {
		return Decision{Reason: SkipExceedsSizeCap}
	}

	if prefix != nil {
		n := len(prefix)
		if n > NullBytePrefixSize {
			n = NullBytePrefixSize
		}
		if bytes.IndexByte(prefix[:n], 0) >= 0 {
			return Decision{Reason: SkipNullByte}
		}
	}

	return Decision{Include: true, Category: categoryFor(relPath)}
}

func categoryFor(relPath string) Category {
	base := filepath.Base(relPath)
	if lang, ok := exactNameLanguage[base]; ok {
		return CodeCategory(lang)
	}

	ext := strings.ToLower(filepath.Ext(relPath))
	switch ext {
	case ".md", ".mdx", ".markdown":
		return CategoryMarkdown
	case ".org":
		return CategoryOrgMode
	case ".rst":
		return CategoryRST
	case ".txt":
		return CategoryPlaintext
	}

	if lang, ok := languageExtensions[ext]; ok {
		return CodeCategory(lang)
	}
	if configExtensions[ext] {
		return CategoryConfig
	}

	return CategoryUnknown
}

var exactNameLanguage = map[string]string{
	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",
}

var languageExtensions = map[string]string{
	".go":     "go",
	".js":     "javascript",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".py":     "python",
	".pyw":    "python",
	".pyi":    "python",
	".rb":     "ruby",
	".rake":   "ruby",
	".rs":     "rust",
	".java":   "java",
	".kt":     "kotlin",
	".kts":    "kotlin",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".hpp":    "cpp",
	".cc":     "cpp",
	".cxx":    "cpp",
	".cs":     "csharp",
	".swift":  "swift",
	".php":    "php",
	".scala":  "scala",
	".ex":     "elixir",
	".exs":    "elixir",
	".erl":    "erlang",
	".hs":     "haskell",
	".lua":    "lua",
	".sql":    "sql",
	".sh":     "shell",
	".bash":   "shell",
	".zsh":    "shell",
	".fish":   "fish",
	".html":   "html",
	".htm":    "html",
	".css":    "css",
	".scss":   "scss",
	".sass":   "sass",
	".less":   "less",
	".vue":    "vue",
	".svelte": "svelte",
	".graphql": "graphql",
	".gql":    "graphql",
	".proto":  "protobuf",
}

var configExtensions = map[string]bool{
	".json":       true,
	".yaml":       true,
	".yml":        true,
	".toml":       true,
	".xml":        true,
	".ini":        true,
	".conf":       true,
	".properties": true,
}

// binaryExtensions are extensions skipped without reading content.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true,
	".webp": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true, ".flac": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true, ".o": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true, ".eot": true,
	".pyc": true, ".class": true, ".jar": true, ".wasm": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
	".dat": true, ".bin": true,
}
