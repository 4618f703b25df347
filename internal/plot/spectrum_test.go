package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/brillouin/internal/entity"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func fit(center float64) entity.PeakFit {
	f := entity.EmptyPeakFit()
	f.Center = center
	f.XFit = []float64{center - 1, center, center + 1}
	f.YFit = []float64{5, 50, 5}
	return f
}

func TestSpectrumLegend(t *testing.T) {
	p, err := Spectrum("ref", []int64{1, 5, 50, 5, 1}, fit(2), entity.EmptyPeakFit())
	require.NoError(t, err)
	assert.Equal(t, "ref", p.Title.Text)
	assert.Equal(t, "Channel", p.X.Label.Text)
	assert.False(t, p.Legend.Left)
}

func TestSpectrumMismatchedFit(t *testing.T) {
	bad := fit(2)
	bad.YFit = bad.YFit[:1]
	_, err := Spectrum("ref", []int64{1, 2}, bad, entity.EmptyPeakFit())
	assert.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	cf := entity.CalibrationFile{Calibration: "c1", Filename: "ref.DAT", Left: fit(2), Right: fit(6)}
	p, err := CalibrationFile(cf, []int64{1, 5, 50, 5, 1, 5, 50, 5})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ref.png")
	require.NoError(t, SavePNG(p, Size{Width: 4, Height: 3}, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, Size{Width: 4, Height: 3}, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestEmptySpectrum(t *testing.T) {
	p, err := Spectrum("empty", nil, entity.EmptyPeakFit(), entity.EmptyPeakFit())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, Size{Width: 2, Height: 2}, &buf))
}
