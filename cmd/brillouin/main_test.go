package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/brillouin/internal/monitoring"
	"github.com/banshee-data/brillouin/internal/testutil"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	original := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = original })

	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "brillouin %s: %s", strings.Join(args, " "), out)
	return out
}

func writeDAT(t *testing.T, dir, name string, samples ...string) string {
	return testutil.WriteFile(t, dir, name, testutil.DAT(12, samples...))
}

func writeFit(t *testing.T, dir, name, doc string) string {
	return testutil.WriteFile(t, dir, name, []byte(doc))
}

func TestProjectLifecycle(t *testing.T) {
	dir := t.TempDir()
	inputs := t.TempDir()

	out := mustRun(t, dir, "new", "sample")
	assert.Contains(t, out, "sample.bproj")

	out = mustRun(t, dir, "-p", "sample", "status")
	assert.Equal(t, "A /calibrations\nA /data\n", out)

	mustRun(t, dir, "-p", "sample", "save")
	assert.Equal(t, "no unsaved changes\n", mustRun(t, dir, "-p", "sample", "status"))

	mustRun(t, dir, "-p", "sample", "pressure", "add", "1.5", "2")
	assert.Equal(t, "1.5\n2\n", mustRun(t, dir, "-p", "sample", "pressure", "ls"))
	mustRun(t, dir, "-p", "sample", "crystal", "add", "MgO")
	assert.Equal(t, "MgO\n", mustRun(t, dir, "-p", "sample", "crystal", "ls"))

	a := writeDAT(t, inputs, "a.DAT", "10", "20", "30")
	b := writeDAT(t, inputs, "b.DAT", "1")
	out = mustRun(t, dir, "-p", "sample", "data", "add", a, b)
	assert.Contains(t, out, "added a.DAT (3 channels)")

	mustRun(t, dir, "-p", "sample", "data", "set", "a.DAT", "--pressure", "1.5", "--crystal", "MgO")
	assert.Equal(t, "a.DAT\n", mustRun(t, dir, "-p", "sample", "data", "find", "--pressure", "1.5"))
	assert.Equal(t, "b.DAT\n", mustRun(t, dir, "-p", "sample", "data", "find", "--pressure", "NaN"))

	out = mustRun(t, dir, "-p", "sample", "status")
	assert.Contains(t, out, "A /data/a.DAT")
	assert.Contains(t, out, "M /")

	mustRun(t, dir, "-p", "sample", "discard")
	assert.Equal(t, "no unsaved changes\n", mustRun(t, dir, "-p", "sample", "status"))
	assert.Empty(t, mustRun(t, dir, "-p", "sample", "data", "find"))
}

func TestCalibrationCommands(t *testing.T) {
	dir := t.TempDir()
	inputs := t.TempDir()
	mustRun(t, dir, "new", "sample")

	mustRun(t, dir, "-p", "sample", "calib", "new", "c1")
	mustRun(t, dir, "-p", "sample", "calib", "set", "c1",
		"--mirror-spacing", "5", "--laser-wavelength", "532", "--scattering-angle", "180")
	ref := writeDAT(t, inputs, "ref.DAT", "1", "5", "50", "5", "1")
	mustRun(t, dir, "-p", "sample", "calib", "add", "c1", ref)

	extra := writeDAT(t, inputs, "extra.DAT", "2", "4")
	_, err := run(t, dir, "-p", "sample", "calib", "add", "c1", extra, ref)
	assert.Error(t, err, "ref.DAT already imported")

	left := writeFit(t, inputs, "left.json", `{"center": 100, "fwhm": 2, "x_fit": [99, 100, 101], "y_fit": [1, 50, 1]}`)
	right := writeFit(t, inputs, "right.json", `{"center": 140}`)
	mustRun(t, dir, "-p", "sample", "calib", "fit", "c1", "ref.DAT", "left", left)
	out := mustRun(t, dir, "-p", "sample", "calib", "fit", "c1", "ref.DAT", "right", right)
	assert.Contains(t, out, "nm/channel 6.65,")

	out = mustRun(t, dir, "-p", "sample", "calib", "show", "c1")
	assert.Contains(t, out, "ref.DAT")
	assert.Contains(t, out, "over 1 files")
	assert.NotContains(t, out, "extra.DAT")

	png := filepath.Join(inputs, "ref.png")
	mustRun(t, dir, "-p", "sample", "plot", "c1", "ref.DAT", "-o", png)
	assert.FileExists(t, png)

	mustRun(t, dir, "-p", "sample", "calib", "clear", "c1", "ref.DAT", "left")
	out = mustRun(t, dir, "-p", "sample", "calib", "show", "c1", "ref.DAT")
	assert.Contains(t, out, "left  unfit")
	assert.Contains(t, out, "nm/channel -,")

	_, err = run(t, dir, "-p", "sample", "calib", "clear", "c1", "ref.DAT", "up")
	assert.Error(t, err)

	mustRun(t, dir, "-p", "sample", "calib", "rename", "c1", "c2")
	out = mustRun(t, dir, "-p", "sample", "calib", "ls")
	assert.Contains(t, out, "c2")
	assert.NotContains(t, out, "c1")

	mustRun(t, dir, "-p", "sample", "calib", "rm", "c2")
	_, err = run(t, dir, "-p", "sample", "calib", "show", "c2")
	assert.Error(t, err)
}

func TestFitWithoutCenterIsRejected(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "new", "sample")
	fit := writeFit(t, t.TempDir(), "fit.json", `{"fwhm": 2}`)

	_, err := run(t, dir, "-p", "sample", "calib", "fit", "c1", "ref.DAT", "left", fit)
	assert.ErrorContains(t, err, "no center")
}

func TestDeleteAndStray(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "new", "sample")

	out := mustRun(t, dir, "stray")
	assert.Contains(t, out, "sample_temp.bproj")

	_, err := run(t, dir, "-p", "sample", "delete")
	assert.ErrorContains(t, err, "--force")
	assert.FileExists(t, filepath.Join(dir, "sample.bproj"))

	mustRun(t, dir, "-p", "sample", "delete", "--force")
	assert.NoFileExists(t, filepath.Join(dir, "sample.bproj"))
	assert.Empty(t, mustRun(t, dir, "stray"))
}

func TestRenameAndInfo(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "new", "sample")

	mustRun(t, dir, "-p", "sample", "rename", "other")
	out := mustRun(t, dir, "-p", "other", "info")
	assert.Contains(t, out, "name:     other")
	assert.Contains(t, out, "location: ")
	assert.Contains(t, out, filepath.Base(dir))

	_, err := run(t, dir, "-p", "sample", "info")
	assert.Error(t, err)
}

func TestMissingProjectFlag(t *testing.T) {
	t.Setenv("BRILLOUIN_PROJECT", "")
	_, err := run(t, t.TempDir(), "status")
	assert.ErrorIs(t, err, errNoProject)
}

func TestConfigAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("project_extension: brp\n"), 0o644))

	mustRun(t, dir, "--config", cfg, "new", "sample")
	assert.FileExists(t, filepath.Join(dir, "sample.brp"))

	out := mustRun(t, dir, "--config", cfg, "--metrics", "-p", "sample", "save")
	assert.Contains(t, out, "brillouin_store_save_duration_seconds")
}

func TestVersion(t *testing.T) {
	out := mustRun(t, t.TempDir(), "version")
	assert.True(t, strings.HasPrefix(out, "brillouin "))
}
