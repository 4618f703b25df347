package container

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/brillouin/internal/testutil"
)

func TestCreateRefusesExisting(t *testing.T) {
	testutil.MuteLogs(t)
	path := filepath.Join(t.TempDir(), "p.bproj")
	require.NoError(t, os.WriteFile(path, []byte("not a container"), 0o644))

	_, err := Create(path)
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not a container", string(data), "existing file untouched")
}

func TestOpenMissing(t *testing.T) {
	testutil.MuteLogs(t)
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "absent.bproj"))
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = OpenReadOnly(filepath.Join(dir, "absent.bproj"))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = os.Stat(filepath.Join(dir, "absent.bproj"))
	assert.True(t, os.IsNotExist(err), "Open must not create the file")
}

func TestCreateInMissingDirectoryIsIOError(t *testing.T) {
	testutil.MuteLogs(t)
	_, err := Create(filepath.Join(t.TempDir(), "no", "such", "dir", "p.bproj"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))

	var ioe *IOError
	assert.True(t, errors.As(err, &ioe))
}

func TestReopenSeesCommittedData(t *testing.T) {
	testutil.MuteLogs(t)
	path := filepath.Join(t.TempDir(), "p.bproj")

	f, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Update(func(tx *Tx) error {
		g, err := tx.CreateGroup(tx.Root(), "data")
		if err != nil {
			return err
		}
		return tx.SetAttr(g, "note", String("kept"))
	}))
	require.NoError(t, f.Flush())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "double close is a no-op")

	_, err = f.Lookup("/data")
	assert.True(t, errors.Is(err, ErrClosed))

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	version, dirty, err := again.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	g, err := again.Lookup("/data")
	require.NoError(t, err)
	v, err := again.GetAttr(g, "note")
	require.NoError(t, err)
	assert.True(t, v.Equal(String("kept")))
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	testutil.MuteLogs(t)
	path := filepath.Join(t.TempDir(), "p.bproj")
	f, err := Create(path)
	require.NoError(t, err)
	_, err = f.CreateGroup(f.Root(), "data")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()
	assert.True(t, ro.ReadOnly())

	_, err = ro.Lookup("/data")
	assert.NoError(t, err)

	_, err = ro.CreateGroup(ro.Root(), "calibrations")
	assert.True(t, errors.Is(err, ErrReadOnly))
	assert.True(t, errors.Is(ro.Update(func(*Tx) error { return nil }), ErrReadOnly))
	assert.NoError(t, ro.Flush())
}

func TestFlush(t *testing.T) {
	testutil.MuteLogs(t)
	path := filepath.Join(t.TempDir(), "p.bproj")
	f, err := Create(path)
	require.NoError(t, err)
	assert.NoError(t, f.Flush())

	_, err = f.CreateGroup(f.Root(), "data")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.True(t, errors.Is(f.Flush(), ErrClosed))

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	_, err = again.Lookup("/data")
	assert.NoError(t, err, "committed without Flush")
}

func TestIOErrorMatching(t *testing.T) {
	inner := errors.New("disk full")
	err := ioErr("write", "/x.bproj", inner)

	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "disk full")
	assert.Same(t, err, ioErr("again", "/y", err), "already wrapped")
	assert.Nil(t, ioErr("noop", "/x", nil))
}
