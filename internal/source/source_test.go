package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_LocalDirectory(t *testing.T) {
	ref, err := Classify(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, KindLocal, ref.Kind)
}

func TestClassify_ShorthandOwnerName(t *testing.T) {
	ref, err := Classify("octocat/hello-world")
	require.NoError(t, err)
	assert.Equal(t, KindShorthand, ref.Kind)
	assert.Equal(t, "octocat", ref.Owner)
	assert.Equal(t, "hello-world", ref.Name)
	assert.Equal(t, "https://github.com/octocat/hello-world.git", ref.NormalizedURL)
}

func TestClassify_HTTPSURL(t *testing.T) {
	ref, err := Classify("https://github.com/octocat/hello-world.git")
	require.NoError(t, err)
	assert.Equal(t, KindHTTPS, ref.Kind)
	assert.Equal(t, "octocat", ref.Owner)
	assert.Equal(t, "hello-world", ref.Name)
	assert.Equal(t, "https://github.com/octocat/hello-world.git", ref.NormalizedURL)
}

func TestClassify_SSHShorthand(t *testing.T) {
	ref, err := Classify("git@github.com:octocat/hello-world.git")
	require.NoError(t, err)
	assert.Equal(t, KindSSH, ref.Kind)
	assert.Equal(t, "https://github.com/octocat/hello-world.git", ref.NormalizedURL)
}

func TestClassify_SSHURL(t *testing.T) {
	ref, err := Classify("ssh://git@github.com/octocat/hello-world.git")
	require.NoError(t, err)
	assert.Equal(t, KindSSH, ref.Kind)
	assert.Equal(t, "octocat", ref.Owner)
	assert.Equal(t, "hello-world", ref.Name)
}

func TestClassify_EmptyInputIsInvalid(t *testing.T) {
	_, err := Classify("   ")
	assert.Error(t, err)
}

func TestClonePath_IsDeterministic(t *testing.T) {
	p1 := ClonePath("/cfg", "octocat", "hello-world")
	p2 := ClonePath("/cfg", "octocat", "hello-world")
	assert.Equal(t, p1, p2)
	assert.Equal(t, filepath.Join("/cfg", "repos", "octocat", "hello-world"), p1)
}
