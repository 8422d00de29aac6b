package path

import (
	"os"
	"testing"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	t.Parallel()

	p, err := Parse("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", p.String())

	root, err := Parse("/")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	collapsed, err := Parse("//a///b")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", collapsed.String())
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := Parse("a/b")
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))

	_, err = Parse("/a:b")
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"/", "/a", "/a/b/c", "/x/y"} {
		p, err := Parse(s)
		require.NoError(t, err)
		q, err := Parse(p.String())
		require.NoError(t, err)
		assert.True(t, p.Equals(q))
	}
}

func TestAppendParentLastInverse(t *testing.T) {
	t.Parallel()

	p, err := Parse("/a/b/c")
	require.NoError(t, err)

	parent, err := p.Parent()
	require.NoError(t, err)
	last, err := p.Last()
	require.NoError(t, err)

	rebuilt, err := Append(parent, last)
	require.NoError(t, err)
	assert.True(t, p.Equals(rebuilt))

	rebuiltParent, err := rebuilt.Parent()
	require.NoError(t, err)
	assert.True(t, parent.Equals(rebuiltParent))
}

func TestRootHasNoParentOrLast(t *testing.T) {
	t.Parallel()

	root := Root()
	_, err := root.Parent()
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))

	_, err = root.Last()
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))
}

func TestIsSubpath(t *testing.T) {
	t.Parallel()

	p, _ := Parse("/foo/bar")
	assert.True(t, p.IsSubpath(p))

	foo, _ := Parse("/foo")
	assert.True(t, p.IsSubpath(foo))

	foobar, _ := Parse("/foobar")
	assert.False(t, foobar.IsSubpath(foo), "string-prefix false positive must be rejected")

	child, err := Append(p, "baz")
	require.NoError(t, err)
	assert.True(t, child.IsSubpath(p))
}

func TestAppendRejectsInvalidComponent(t *testing.T) {
	t.Parallel()

	_, err := Append(Root(), "")
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))

	_, err = Append(Root(), "a/b")
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))

	_, err = Append(Root(), "a:b")
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))
}

func TestIterateOutermostFirst(t *testing.T) {
	t.Parallel()

	p, _ := Parse("/a/b/c")
	assert.Equal(t, []string{"a", "b", "c"}, p.Iterate())
}

func TestAncestors(t *testing.T) {
	t.Parallel()

	p, _ := Parse("/a/b/c")
	anc := p.Ancestors()
	require.Len(t, anc, 3)
	assert.Equal(t, "/", anc[0].String())
	assert.Equal(t, "/a", anc[1].String())
	assert.Equal(t, "/a/b", anc[2].String())

	assert.Empty(t, Root().Ancestors())
}

func TestListLocal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir+"/sub", 0o755))
	require.NoError(t, os.WriteFile(dir+"/a.txt", []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(dir+"/sub/b.txt", []byte("b"), 0o644))

	found, err := ListLocal(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range found {
		names = append(names, p.String())
	}
	assert.ElementsMatch(t, []string{"/a.txt", "/sub/b.txt"}, names)
}

func TestListLocalMissingDir(t *testing.T) {
	t.Parallel()

	_, err := ListLocal("/nonexistent/distfs/dir")
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestListLocalNotADirectory(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "file")
	require.NoError(t, err)
	defer f.Close()

	_, err = ListLocal(f.Name())
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))
}

func TestToLocalFile(t *testing.T) {
	t.Parallel()

	p, _ := Parse("/a/b")
	assert.Equal(t, "/root/a/b", p.ToLocalFile("/root"))
}
