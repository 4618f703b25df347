package entity

import (
	"fmt"
	"math"

	"github.com/banshee-data/brillouin/internal/container"
)

// Side selects one of the two peak-fit slots of a calibration file.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide accepts "left" or "right".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLeft, SideRight:
		return Side(s), nil
	}
	return "", fmt.Errorf("side %q: %w", s, ErrInvalidValue)
}

// Peak-fit attribute and array names.
const (
	AttrCenter        = "center"
	AttrAmplitude     = "amplitude"
	AttrSigma         = "sigma"
	AttrGamma         = "gamma"
	AttrFWHM          = "fwhm"
	AttrArea          = "area"
	AttrGoodnessOfFit = "goodness_of_fit"
	AttrXMin          = "x_min"
	AttrXMax          = "x_max"
	ArrayXFit         = "x_fit"
	ArrayYFit         = "y_fit"
)

// PeakFit is the persisted result of fitting one peak. Scalars are NaN and
// the fitted curve is empty while unfit.
type PeakFit struct {
	Center        float64   `json:"center"`
	Amplitude     float64   `json:"amplitude"`
	Sigma         float64   `json:"sigma"`
	Gamma         float64   `json:"gamma"`
	FWHM          float64   `json:"fwhm"`
	Area          float64   `json:"area"`
	GoodnessOfFit float64   `json:"goodness_of_fit"`
	XMin          float64   `json:"x_min"`
	XMax          float64   `json:"x_max"`
	XFit          []float64 `json:"x_fit"`
	YFit          []float64 `json:"y_fit"`
}

// EmptyPeakFit is the unfit state.
func EmptyPeakFit() PeakFit {
	nan := math.NaN()
	return PeakFit{
		Center: nan, Amplitude: nan, Sigma: nan, Gamma: nan, FWHM: nan,
		Area: nan, GoodnessOfFit: nan, XMin: nan, XMax: nan,
		XFit: []float64{}, YFit: []float64{},
	}
}

// Present reports whether a fit is stored, i.e. the center is known.
func (f PeakFit) Present() bool { return !math.IsNaN(f.Center) }

func (f PeakFit) attrs() map[string]container.Value {
	return map[string]container.Value{
		AttrCenter:        container.Float(f.Center),
		AttrAmplitude:     container.Float(f.Amplitude),
		AttrSigma:         container.Float(f.Sigma),
		AttrGamma:         container.Float(f.Gamma),
		AttrFWHM:          container.Float(f.FWHM),
		AttrArea:          container.Float(f.Area),
		AttrGoodnessOfFit: container.Float(f.GoodnessOfFit),
		AttrXMin:          container.Float(f.XMin),
		AttrXMax:          container.Float(f.XMax),
	}
}

// writePeakFit overwrites every scalar and both curves of the slot group.
func writePeakFit(tx *container.Tx, slot container.Node, f PeakFit) error {
	if err := tx.SetAttrs(slot, f.attrs()); err != nil {
		return err
	}
	if err := tx.ReplaceArray(slot, ArrayXFit, container.Float64Array(f.XFit)); err != nil {
		return err
	}
	return tx.ReplaceArray(slot, ArrayYFit, container.Float64Array(f.YFit))
}

func readPeakFit(t container.Tree, slot container.Node) (PeakFit, error) {
	attrs, err := t.Attrs(slot)
	if err != nil {
		return PeakFit{}, err
	}
	f := PeakFit{
		Center:        floatAttr(attrs, AttrCenter),
		Amplitude:     floatAttr(attrs, AttrAmplitude),
		Sigma:         floatAttr(attrs, AttrSigma),
		Gamma:         floatAttr(attrs, AttrGamma),
		FWHM:          floatAttr(attrs, AttrFWHM),
		Area:          floatAttr(attrs, AttrArea),
		GoodnessOfFit: floatAttr(attrs, AttrGoodnessOfFit),
		XMin:          floatAttr(attrs, AttrXMin),
		XMax:          floatAttr(attrs, AttrXMax),
	}
	if f.XFit, err = readCurve(t, slot, ArrayXFit); err != nil {
		return PeakFit{}, err
	}
	if f.YFit, err = readCurve(t, slot, ArrayYFit); err != nil {
		return PeakFit{}, err
	}
	return f, nil
}

func readCurve(t container.Tree, slot container.Node, name string) ([]float64, error) {
	a, err := t.ReadArray(slot, name)
	if err != nil {
		return nil, err
	}
	xs, ok := a.Float64s()
	if !ok {
		return nil, fmt.Errorf("%s/%s is %s: %w", slot.Path, name, a.DType(), ErrInvalidValue)
	}
	return xs, nil
}

// SetPeakFit stores a fit in one slot and recomputes the file's constants.
func (p *Project) SetPeakFit(cal, filename string, side Side, f PeakFit) error {
	if _, err := ParseSide(string(side)); err != nil {
		return err
	}
	return p.s.Update("set_peak_fit", func(tx *container.Tx) error {
		return p.writeSlot(tx, cal, filename, side, f)
	})
}

// ClearPeakFit resets one slot to the unfit state and recomputes, which
// makes the file's constants NaN. Clearing an unfit slot changes nothing.
func (p *Project) ClearPeakFit(cal, filename string, side Side) error {
	if _, err := ParseSide(string(side)); err != nil {
		return err
	}
	return p.s.Update("clear_peak_fit", func(tx *container.Tx) error {
		return p.writeSlot(tx, cal, filename, side, EmptyPeakFit())
	})
}

func (p *Project) writeSlot(tx *container.Tx, cal, filename string, side Side, f PeakFit) error {
	calNode, err := openPath(tx, groupCalibrations, cal)
	if err != nil {
		return err
	}
	file, err := tx.OpenGroup(calNode, filename)
	if err != nil {
		return err
	}
	slot, err := tx.OpenGroup(file, string(side))
	if err != nil {
		return err
	}
	if err := writePeakFit(tx, slot, f); err != nil {
		return err
	}
	return p.recompute(tx, calNode, file)
}

// PeakFit reads one slot.
func (p *Project) PeakFit(cal, filename string, side Side) (PeakFit, error) {
	if _, err := ParseSide(string(side)); err != nil {
		return PeakFit{}, err
	}
	t, err := p.tree()
	if err != nil {
		return PeakFit{}, err
	}
	slot, err := openPath(t, groupCalibrations, cal, filename, string(side))
	if err != nil {
		return PeakFit{}, err
	}
	return readPeakFit(t, slot)
}
