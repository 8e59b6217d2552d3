package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/museo-go/pkg/sequence"
)

func writeSequence(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad_ParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeSequence(t, dir, "intro.txt", "# welcome\nImage: foo\nWait: 1\nText: \"hi\"\nAction: bar\nBogus line\n")

	lib := New(dir)
	seq, err := lib.Load("intro")
	require.NoError(t, err)

	require.Len(t, seq.Instructions, 4)
	assert.Equal(t, sequence.Image{Path: "foo"}, seq.Instructions[0])
	assert.Equal(t, sequence.Action{Name: "bar"}, seq.Instructions[3])
	assert.Len(t, seq.Issues, 1)

	again, err := lib.Load("intro.txt")
	require.NoError(t, err)
	assert.Same(t, seq, again, "second load is served from the cache")
}

func TestLoad_RejectsBadNames(t *testing.T) {
	lib := New(t.TempDir())

	for _, name := range []string{"", "..", "../etc/passwd", `a\b`, "missing"} {
		_, err := lib.Load(name)
		assert.ErrorIs(t, err, ErrSequenceNotFound, "name %q", name)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeSequence(t, dir, "b.txt", "Text: b\n")
	writeSequence(t, dir, "a.txt", "Audio: a\nAudio: a2\nWait: 2\n")
	writeSequence(t, dir, "notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	infos, err := New(dir).List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, 3, infos[0].Instructions)
	assert.Equal(t, "Audio=2 Wait=1", infos[0].Summary)
	assert.Equal(t, "b", infos[1].Name)
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	writeSequence(t, dir, "s.txt", "Text: one\n")
	lib := New(dir)

	_, err := lib.Load("s")
	require.NoError(t, err)

	writeSequence(t, dir, "s.txt", "Text: one\nText: two\n")
	lib.Invalidate("s")

	seq, err := lib.Load("s")
	require.NoError(t, err)
	assert.Len(t, seq.Instructions, 2)
}

func TestWatch_ReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	writeSequence(t, dir, "live.txt", "Text: v1\n")
	lib := New(dir)
	require.NoError(t, lib.Watch())
	defer lib.Close()

	_, err := lib.Load("live")
	require.NoError(t, err)

	writeSequence(t, dir, "live.txt", "Text: v2\nText: v2b\n")

	require.Eventually(t, func() bool {
		seq, err := lib.Load("live")
		return err == nil && len(seq.Instructions) == 2
	}, 3*time.Second, 10*time.Millisecond)
}
