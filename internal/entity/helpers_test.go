package entity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/brillouin/internal/calib"
	"github.com/banshee-data/brillouin/internal/stage"
	"github.com/banshee-data/brillouin/internal/testutil"
)

func newProject(t *testing.T) *Project {
	t.Helper()
	testutil.MuteLogs(t)

	s, err := stage.Create(t.TempDir(), "sample", stage.WithClock(testutil.NewClock()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Discard() })
	return New(s, calib.NewEngine(calib.SpeedOfLightAir))
}

func ptr[T any](v T) *T { return &v }

// fitAt is a minimal fit centred on c.
func fitAt(c float64) PeakFit {
	f := EmptyPeakFit()
	f.Center = c
	f.Amplitude = 1000
	f.FWHM = 2.5
	f.XFit = []float64{c - 1, c, c + 1}
	f.YFit = []float64{10, 1000, 10}
	return f
}

// referenceCalibration builds calibration "c1" with one fitted file whose
// constants are 6.65 nm and about 0.749 GHz per channel.
func referenceCalibration(t *testing.T, p *Project) {
	t.Helper()
	require.NoError(t, p.AddCalibration("c1"))
	require.NoError(t, p.SetCalibrationInstrument("c1", CalibrationUpdate{
		MirrorSpacing:   ptr(5.0),
		LaserWavelength: ptr(532.0),
		ScatteringAngle: ptr(180.0),
	}))
	require.NoError(t, p.AddCalibrationFile("c1", "ref.DAT", []byte("1\n2\n3\n"), []int64{1, 2, 3}))
	require.NoError(t, p.SetPeakFit("c1", "ref.DAT", SideLeft, fitAt(100)))
	require.NoError(t, p.SetPeakFit("c1", "ref.DAT", SideRight, fitAt(140)))
}
