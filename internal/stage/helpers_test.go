package stage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/testutil"
)

func newSession(t *testing.T, opts ...Option) (*Session, string) {
	t.Helper()
	testutil.MuteLogs(t)
	dir := t.TempDir()
	s, err := Create(dir, "sample", append([]Option{WithClock(testutil.NewClock())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Discard() })
	return s, dir
}

// addRecord writes a small measurement-like subtree under /data.
func addRecord(t *testing.T, s *Session, name string) {
	t.Helper()
	require.NoError(t, s.Update("test_add", func(tx *container.Tx) error {
		data, err := tx.OpenGroup(tx.Root(), GroupData)
		if err != nil {
			return err
		}
		g, err := tx.CreateGroup(data, name)
		if err != nil {
			return err
		}
		if err := tx.SetAttrs(g, map[string]container.Value{
			"pressure": container.NaN(),
			"crystal":  container.String(""),
		}); err != nil {
			return err
		}
		if _, err := tx.CreateArray(g, "raw_content", container.BytesArray([]byte("1\n2\n"))); err != nil {
			return err
		}
		_, err = tx.CreateArray(g, "original_data", container.Int64Array([]int64{1, 2}))
		return err
	}))
}
