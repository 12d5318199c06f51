package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name   string
	Values map[string][]float64
}

func TestBinaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "thing.dat")
	in := payload{Name: "x", Values: map[string][]float64{"a": {1, 2.5}}}

	require.NoError(t, CreateBinary(path, in))
	out, err := ReadBinary[payload](path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadBinaryMissing(t *testing.T) {
	_, err := ReadBinary[payload](filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestGatherAllMidiPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mid", "a.MIDI", "c.txt", "sub/d.mid"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
		require.NoError(t, os.WriteFile(path, nil, 0666))
	}

	all, err := GatherAllMidiPaths(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.MIDI"),
		filepath.Join(dir, "b.mid"),
		filepath.Join(dir, "sub/d.mid"),
	}, all)

	some, err := GatherAllMidiPaths(dir, 2)
	require.NoError(t, err)
	assert.Len(t, some, 2)

	_, err = GatherAllMidiPaths(filepath.Join(dir, "missing"), 0)
	assert.Error(t, err)
}

func TestNumericHelpers(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(2, Min(2, 5))
	assert.Equal([]string{"a", "b"}, GetKeys(map[string]int{"b": 1, "a": 2}))
}

func TestAssert(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true, "fine") })
	assert.PanicsWithValue(t, "bad shape 2x3", func() { Assert(false, "bad shape %dx%d", 2, 3) })
}
