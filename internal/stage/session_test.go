package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/brillouin/internal/config"
	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/fsutil"
	"github.com/banshee-data/brillouin/internal/testutil"
)

func TestCreateLayout(t *testing.T) {
	s, dir := newSession(t)

	assert.Equal(t, filepath.Join(dir, "sample.bproj"), s.CommittedPath())
	assert.Equal(t, filepath.Join(dir, "temp", "sample_temp.bproj"), s.WorkingPath())
	assert.FileExists(t, s.CommittedPath())
	assert.FileExists(t, s.WorkingPath())

	attrs, err := s.Tree().Attrs(s.Tree().Root())
	require.NoError(t, err)
	assert.True(t, attrs[AttrProjectName].Equal(container.String("sample")))
	assert.True(t, attrs[AttrCreationTime].Equal(container.String("2024-05-01T09:00:00Z")))
	assert.True(t, attrs[AttrModificationTime].Equal(attrs[AttrCreationTime]))
	assert.True(t, attrs[AttrPressures].Equal(container.Floats(nil)))
	assert.True(t, attrs[AttrCrystals].Equal(container.Strings(nil)))
	id, _ := attrs[AttrProjectID].AsString()
	assert.Len(t, id, 36)

	d, err := s.CheckDirty()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(Diff{
		Added:   []string{"/calibrations", "/data"},
		Removed: []string{},
		Altered: []string{},
	}, d), "snapshot holds only root attributes")
}

func TestCreateRefusesExistingProject(t *testing.T) {
	_, dir := newSession(t)

	_, err := Create(dir, "sample")
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestCreateValidation(t *testing.T) {
	testutil.MuteLogs(t)
	dir := t.TempDir()

	for _, name := range []string{"", "..", "a/b", "../escape"} {
		_, err := Create(dir, name)
		assert.True(t, errors.Is(err, ErrInvalidName), "name %q: %v", name, err)
	}

	_, err := Create(filepath.Join(dir, "missing"), "p")
	assert.True(t, errors.Is(err, ErrIO))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed creates leave nothing behind")
}

func TestCreateUnwritableLocation(t *testing.T) {
	testutil.MuteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/projects", 0o755))
	mfs.SetReadOnly("/projects")

	_, err := Create("/projects", "p", WithFileSystem(mfs))
	assert.True(t, errors.Is(err, ErrIO))
}

func TestLoadMissing(t *testing.T) {
	testutil.MuteLogs(t)
	_, err := Load(t.TempDir(), "nothing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveThenCleanAndLoadFidelity(t *testing.T) {
	s, dir := newSession(t)
	clock := s.Clock().(interface{ Advance(time.Duration) })
	addRecord(t, s, "m1.DAT")

	d, err := s.CheckDirty()
	require.NoError(t, err)
	assert.Contains(t, d.Added, "/data")

	clock.Advance(time.Hour)
	require.NoError(t, s.Save())

	dirty, err := s.Dirty()
	require.NoError(t, err)
	assert.False(t, dirty, "save then check is clean")

	v, err := s.Tree().GetAttr(s.Tree().Root(), AttrModificationTime)
	require.NoError(t, err)
	assert.True(t, v.Equal(container.String("2024-05-01T10:00:00Z")))

	require.NoError(t, s.Discard())
	assert.NoFileExists(t, filepath.Join(dir, "temp", "sample_temp.bproj"))

	loaded, err := Load(dir, "sample")
	require.NoError(t, err)
	defer loaded.Discard()

	d, err = loaded.CheckDirty()
	require.NoError(t, err)
	assert.True(t, d.Empty(), "load then check is clean: %+v", d)

	arr, err := loaded.Tree().ReadArray(mustLookup(t, loaded.Tree(), "/data/m1.DAT"), "original_data")
	require.NoError(t, err)
	samples, _ := arr.Int64s()
	assert.Equal(t, []int64{1, 2}, samples)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no temporary snapshot left behind")
}

func mustLookup(t *testing.T, tree container.Tree, p string) container.Node {
	t.Helper()
	n, err := tree.Lookup(p)
	require.NoError(t, err)
	return n
}

func TestDiffSensitivity(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Save())

	addRecord(t, s, "m1.DAT")
	d, err := s.CheckDirty()
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/m1.DAT"}, d.Added)

	require.NoError(t, s.Save())
	addRecord(t, s, "m2.DAT")
	require.NoError(t, s.Update("test_set", func(tx *container.Tx) error {
		n, err := tx.Lookup("/data/m1.DAT")
		if err != nil {
			return err
		}
		return tx.SetAttr(n, "pressure", container.Float(2))
	}))
	require.NoError(t, s.Update("test_root", func(tx *container.Tx) error {
		return tx.SetAttr(tx.Root(), AttrCrystals, container.Strings([]string{"quartz"}))
	}))

	d, err = s.CheckDirty()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(Diff{
		Added:   []string{"/data/m2.DAT"},
		Removed: []string{},
		Altered: []string{"/", "/data/m1.DAT"},
	}, d))

	require.NoError(t, s.Update("test_rm", func(tx *container.Tx) error {
		n, err := tx.Lookup("/data/m1.DAT")
		if err != nil {
			return err
		}
		return tx.Delete(n)
	}))
	d, err = s.CheckDirty()
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/m1.DAT"}, d.Removed)
	assert.Equal(t, []string{"/"}, d.Altered)
}

// failingRename wraps the real filesystem and refuses renames.
type failingRename struct {
	fsutil.OSFileSystem
}

func (failingRename) Rename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: errors.New("injected failure")}
}

func TestFailedSaveLeavesSnapshotUntouched(t *testing.T) {
	s, dir := newSession(t, WithFileSystem(failingRename{}))
	before, err := os.ReadFile(s.CommittedPath())
	require.NoError(t, err)

	addRecord(t, s, "m1.DAT")
	err = s.Save()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))

	after, err := os.ReadFile(s.CommittedPath())
	require.NoError(t, err)
	assert.Equal(t, before, after, "snapshot must be byte-identical")

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	dirty, err := s.Dirty()
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestDiscardIsIdempotent(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Discard())
	require.NoError(t, s.Discard())
	assert.Nil(t, s.Tree())

	var nilSession *Session
	assert.NoError(t, nilSession.Discard())

	assert.True(t, errors.Is(s.Update("late", func(*container.Tx) error { return nil }), ErrClosed))
	_, err := s.CheckDirty()
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(s.Save(), ErrClosed))
}

func TestSuspendAndResumeKeepsEdits(t *testing.T) {
	s, dir := newSession(t)
	addRecord(t, s, "m1.DAT")
	require.NoError(t, s.Suspend())
	assert.FileExists(t, s.WorkingPath())

	resumed, err := Resume(dir, "sample")
	require.NoError(t, err)
	defer resumed.Discard()

	_, err = resumed.Tree().Lookup("/data/m1.DAT")
	assert.NoError(t, err, "unsaved edit survives resume")

	strays, err := StrayWorkingCopies(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{resumed.WorkingPath()}, strays)
}

func TestResumeWithoutWorkingCopyLoads(t *testing.T) {
	s, dir := newSession(t)
	require.NoError(t, s.Discard())

	resumed, err := Resume(dir, "sample")
	require.NoError(t, err)
	defer resumed.Discard()

	d, err := resumed.CheckDirty()
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestLoadReplacesStrayWorkingCopy(t *testing.T) {
	s, dir := newSession(t)
	require.NoError(t, s.Save())
	addRecord(t, s, "unsaved.DAT")
	require.NoError(t, s.Suspend())

	loaded, err := Load(dir, "sample")
	require.NoError(t, err)
	defer loaded.Discard()

	_, err = loaded.Tree().Lookup("/data/unsaved.DAT")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRename(t *testing.T) {
	s, dir := newSession(t)
	require.NoError(t, s.Save())

	other, err := Create(dir, "taken")
	require.NoError(t, err)
	defer other.Discard()
	assert.True(t, errors.Is(s.Rename("taken"), ErrAlreadyExists))

	require.NoError(t, s.Rename("renamed"))
	assert.Equal(t, "renamed", s.Name())
	assert.Equal(t, filepath.Join(dir, "renamed.bproj"), s.CommittedPath())
	assert.FileExists(t, s.CommittedPath())
	assert.FileExists(t, s.WorkingPath())
	assert.NoFileExists(t, filepath.Join(dir, "sample.bproj"))

	d, err := s.CheckDirty()
	require.NoError(t, err)
	assert.Equal(t, []string{"/"}, d.Altered, "project_name changed in the working copy")

	require.NoError(t, s.Save())
	v, err := s.Tree().GetAttr(s.Tree().Root(), AttrProjectName)
	require.NoError(t, err)
	assert.True(t, v.Equal(container.String("renamed")))
}

func TestDelete(t *testing.T) {
	s, _ := newSession(t)
	committed, working := s.CommittedPath(), s.WorkingPath()

	require.NoError(t, s.Delete())
	assert.NoFileExists(t, committed)
	assert.NoFileExists(t, working)
	assert.True(t, errors.Is(s.Delete(), ErrClosed))
}

func TestWithConfig(t *testing.T) {
	cfg := config.EmptyStoreConfig()
	ext, tmp := "h5", "scratch"
	cfg.ProjectExtension = &ext
	cfg.TempDir = &tmp

	s, dir := newSession(t, WithConfig(cfg))
	assert.Equal(t, filepath.Join(dir, "sample.h5"), s.CommittedPath())
	assert.Equal(t, filepath.Join(dir, "scratch", "sample_temp.h5"), s.WorkingPath())
}
