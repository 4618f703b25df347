// Package calib derives spectrometer calibration constants from a pair of
// fitted peak centers and the instrument geometry.
package calib

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SpeedOfLightAir is c in air, in m/s.
const SpeedOfLightAir = 299702547.0

// Inputs are the quantities a calibration file's constants depend on.
// Centers are in channels, LaserWavelength in nm, MirrorSpacing in mm and
// ScatteringAngle in degrees.
type Inputs struct {
	LeftCenter      float64
	RightCenter     float64
	LaserWavelength float64
	MirrorSpacing   float64
	ScatteringAngle float64
}

// Result holds the derived constants. Both are NaN when not computable.
type Result struct {
	NmPerChannel  float64
	GHzPerChannel float64
}

// Computable reports whether both constants are defined.
func (r Result) Computable() bool {
	return !math.IsNaN(r.NmPerChannel) && !math.IsNaN(r.GHzPerChannel)
}

// Engine computes derived fields with a configurable speed of light.
type Engine struct {
	C float64
}

// NewEngine returns an Engine using c in m/s. A non-positive c selects
// SpeedOfLightAir.
func NewEngine(c float64) Engine {
	if !(c > 0) {
		c = SpeedOfLightAir
	}
	return Engine{C: c}
}

// Constants derives nm and GHz per channel. The scattering angle gates
// computability but does not enter either formula.
func (e Engine) Constants(in Inputs) Result {
	nan := Result{NmPerChannel: math.NaN(), GHzPerChannel: math.NaN()}
	for _, v := range []float64{in.LeftCenter, in.RightCenter, in.LaserWavelength, in.MirrorSpacing, in.ScatteringAngle} {
		if math.IsNaN(v) {
			return nan
		}
	}
	delta := math.Abs(in.LeftCenter - in.RightCenter)
	if delta == 0 || in.MirrorSpacing == 0 {
		return nan
	}
	c := e.C
	if !(c > 0) {
		c = SpeedOfLightAir
	}

	fsrGHz := c / (2 * in.MirrorSpacing / 1000) / 1e9
	r := Result{
		NmPerChannel:  (in.LaserWavelength / 2) / delta,
		GHzPerChannel: fsrGHz / delta,
	}
	// Both constants are set together or not at all.
	if !finite(r.NmPerChannel) || !finite(r.GHzPerChannel) {
		return nan
	}
	return r
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Constants derives nm and GHz per channel using SpeedOfLightAir.
func Constants(in Inputs) Result {
	return Engine{C: SpeedOfLightAir}.Constants(in)
}

// Summary is the spread of one derived constant across calibration files.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	N      int     `json:"n"`
}

// Summarize returns the mean and sample standard deviation of the non-NaN
// values. With fewer than two values both statistics are NaN.
func Summarize(values []float64) Summary {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			xs = append(xs, v)
		}
	}
	if len(xs) < 2 {
		return Summary{Mean: math.NaN(), StdDev: math.NaN(), N: len(xs)}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return Summary{Mean: mean, StdDev: std, N: len(xs)}
}
