package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_CodeExtension(t *testing.T) {
	c := New(10*1024*1024, nil)
	d := c.Classify("main.go", 100, []byte("package main"))
	assert.True(t, d.Include)
	assert.Equal(t, Category("code/go"), d.Category)
}

func TestClassify_MarkdownExtension(t *testing.T) {
	c := New(10*1024*1024, nil)
	d := c.Classify("notes/a.md", 100, []byte("# hi"))
	assert.True(t, d.Include)
	assert.Equal(t, CategoryMarkdown, d.Category)
}

func TestClassify_UnknownExtensionStillIndexed(t *testing.T) {
	c := New(10*1024*1024, nil)
	d := c.Classify("weird.xyz123", 10, []byte("data"))
	assert.True(t, d.Include)
	assert.Equal(t, CategoryUnknown, d.Category)
}

func TestClassify_BinaryExtensionSkipped(t *testing.T) {
	c := New(10*1024*1024, nil)
	d := c.Classify("photo.png", 10, nil)
	assert.False(t, d.Include)
	assert.Equal(t, SkipBinaryExtension, d.Reason)
}

func TestClassify_ExceedsSizeCap(t *testing.T) {
	c := New(10, nil)
	d := c.Classify("big.txt", 1000, []byte("x"))
	assert.False(t, d.Include)
	assert.Equal(t, SkipExceedsSizeCap, d.Reason)
}

func TestClassify_IgnorePatternHit(t *testing.T) {
	c := New(10*1024*1024, []string{"node_modules", ".git"})
	d := c.Classify("node_modules/pkg/index.js", 10, []byte("x"))
	assert.False(t, d.Include)
	assert.Equal(t, SkipIgnorePattern, d.Reason)
}

func TestClassify_IgnoreGlobPattern(t *testing.T) {
	c := New(10*1024*1024, []string{"**/*.generated.go"})
	d := c.Classify("internal/api/types.generated.go", 10, []byte("x"))
	assert.False(t, d.Include)
	assert.Equal(t, SkipIgnorePattern, d.Reason)
}

func TestClassify_NullByteInPrefixMarksBinary(t *testing.T) {
	c := New(10*1024*1024, nil)
	prefix := append([]byte{0x00}, []byte("rest of content")...)
	d := c.Classify("blob.dat", int64(len(prefix)), prefix)
	assert.False(t, d.Include)
	assert.Equal(t, SkipNullByte, d.Reason)
}

func TestClassify_ExactFilenameLanguage(t *testing.T) {
	c := New(10*1024*1024, nil)
	d := c.Classify("Dockerfile", 10, []byte("FROM scratch"))
	assert.True(t, d.Include)
	assert.Equal(t, Category("code/dockerfile"), d.Category)
}
