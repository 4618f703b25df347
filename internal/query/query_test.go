package query

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/monitoring"
)

func setupData(t *testing.T) (*container.File, container.Node) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	f, err := container.Create(filepath.Join(t.TempDir(), "q.bproj"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	var data container.Node
	require.NoError(t, f.Update(func(tx *container.Tx) error {
		var err error
		data, err = tx.CreateGroup(tx.Root(), "data")
		if err != nil {
			return err
		}
		records := map[string]map[string]container.Value{
			"c.DAT": {"pressure": container.Float(1.5), "crystal": container.String("quartz")},
			"a.DAT": {"pressure": container.Float(1.5), "crystal": container.String("diamond")},
			"b.DAT": {"pressure": container.NaN(), "crystal": container.String("quartz")},
			"d.DAT": {"crystal": container.String("quartz")},
		}
		for name, attrs := range records {
			g, err := tx.CreateGroup(data, name)
			if err != nil {
				return err
			}
			if err := tx.SetAttrs(g, attrs); err != nil {
				return err
			}
		}
		return tx.SetAttrs(tx.Root(), map[string]container.Value{
			"pressures": container.Floats([]float64{1.5, 3}),
			"crystals":  container.Strings([]string{"quartz"}),
		})
	}))
	return f, data
}

func TestFindByAttribute(t *testing.T) {
	f, data := setupData(t)

	got, err := FindByAttribute(f, data, "pressure", container.Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.DAT", "c.DAT"}, got)

	got, err = FindByAttribute(f, data, "pressure", container.Float(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.DAT"}, got, "NaN matches NaN exactly")

	got, err = FindByAttribute(f, data, "pressure", container.Int(1))
	require.NoError(t, err)
	assert.Empty(t, got, "kinds never cross-match")
	assert.NotNil(t, got)
}

func TestFindByAttributes(t *testing.T) {
	f, data := setupData(t)

	got, err := FindByAttributes(f, data, map[string]container.Value{
		"pressure": container.Float(1.5),
		"crystal":  container.String("quartz"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.DAT"}, got)

	got, err = FindByAttributes(f, data, map[string]container.Value{"crystal": container.String("quartz")})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.DAT", "c.DAT", "d.DAT"}, got)

	got, err = FindByAttributes(f, data, map[string]container.Value{
		"crystal":  container.String("quartz"),
		"pressure": container.NaN(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.DAT"}, got, "d.DAT has no pressure attribute")

	got, err = FindByAttributes(f, data, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.DAT", "b.DAT", "c.DAT", "d.DAT"}, got)
}

func TestFindOnMissingGroup(t *testing.T) {
	f, data := setupData(t)
	require.NoError(t, f.Delete(data))

	_, err := FindByAttributes(f, data, nil)
	assert.True(t, errors.Is(err, container.ErrNotFound))
}

func TestRegistryContains(t *testing.T) {
	f, _ := setupData(t)
	root := f.Root()

	ok, err := RegistryContains(f, root, "pressures", container.Float(3))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = RegistryContains(f, root, "pressures", container.Float(2))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = RegistryContains(f, root, "crystals", container.String("quartz"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = RegistryContains(f, root, "crystals", container.Float(1))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = RegistryContains(f, root, "velocities", container.Float(1))
	require.NoError(t, err)
	assert.False(t, ok, "absent registry")
}
