package entity

import (
	"fmt"
	"math"

	"github.com/banshee-data/brillouin/internal/calib"
	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/stage"
)

const groupCalibrations = stage.GroupCalibrations

// Calibration file attribute keys.
const (
	AttrChannels      = "channels"
	AttrNmPerChannel  = "nm_per_channel"
	AttrGHzPerChannel = "ghz_per_channel"
	AttrInverted      = "inverted"
)

// Calibration is an instrument setup shared by its calibration files.
// Values are NaN until set.
type Calibration struct {
	Name            string  `json:"name"`
	MirrorSpacing   float64 `json:"mirror_spacing"`
	LaserWavelength float64 `json:"laser_wavelength"`
	ScatteringAngle float64 `json:"scattering_angle"`
}

// CalibrationUpdate carries the instrument values to change.
type CalibrationUpdate struct {
	MirrorSpacing   *float64
	LaserWavelength *float64
	ScatteringAngle *float64
}

// CalibrationFile is one reference spectrum with its two peak fits and the
// constants derived from them.
type CalibrationFile struct {
	Calibration   string  `json:"calibration"`
	Filename      string  `json:"filename"`
	Channels      int     `json:"channels"`
	NmPerChannel  float64 `json:"nm_per_channel"`
	GHzPerChannel float64 `json:"ghz_per_channel"`
	Inverted      bool    `json:"inverted"`
	Left          PeakFit `json:"left"`
	Right         PeakFit `json:"right"`
}

// AddCalibration creates an empty calibration with unset instrument values.
func (p *Project) AddCalibration(name string) error {
	return p.s.Update("add_calibration", func(tx *container.Tx) error {
		cals, err := openPath(tx, groupCalibrations)
		if err != nil {
			return err
		}
		g, err := tx.CreateGroup(cals, name)
		if err != nil {
			return err
		}
		nan := container.Float(math.NaN())
		return tx.SetAttrs(g, map[string]container.Value{
			AttrMirrorSpacing:   nan,
			AttrLaserWavelength: nan,
			AttrScatteringAngle: nan,
		})
	})
}

func calibrationFrom(name string, attrs map[string]container.Value) Calibration {
	return Calibration{
		Name:            name,
		MirrorSpacing:   floatAttr(attrs, AttrMirrorSpacing),
		LaserWavelength: floatAttr(attrs, AttrLaserWavelength),
		ScatteringAngle: floatAttr(attrs, AttrScatteringAngle),
	}
}

// Calibration reads one calibration's instrument values.
func (p *Project) Calibration(name string) (Calibration, error) {
	t, err := p.tree()
	if err != nil {
		return Calibration{}, err
	}
	g, err := openPath(t, groupCalibrations, name)
	if err != nil {
		return Calibration{}, err
	}
	attrs, err := t.Attrs(g)
	if err != nil {
		return Calibration{}, err
	}
	return calibrationFrom(name, attrs), nil
}

// Calibrations reads every calibration in name order.
func (p *Project) Calibrations() ([]Calibration, error) {
	t, err := p.tree()
	if err != nil {
		return nil, err
	}
	cals, err := openPath(t, groupCalibrations)
	if err != nil {
		return nil, err
	}
	children, err := t.ListChildren(cals)
	if err != nil {
		return nil, err
	}
	out := make([]Calibration, 0, len(children))
	for _, c := range children {
		attrs, err := t.Attrs(c)
		if err != nil {
			return nil, err
		}
		out = append(out, calibrationFrom(c.Name, attrs))
	}
	return out, nil
}

// RemoveCalibration deletes a calibration with all of its files. Measurement
// records naming it keep the name.
func (p *Project) RemoveCalibration(name string) error {
	return p.s.Update("remove_calibration", func(tx *container.Tx) error {
		g, err := openPath(tx, groupCalibrations, name)
		if err != nil {
			return err
		}
		return tx.Delete(g)
	})
}

// RenameCalibration moves a calibration subtree to a new name. Measurement
// records naming the old calibration keep the old name.
func (p *Project) RenameCalibration(oldName, newName string) error {
	return p.s.Update("rename_calibration", func(tx *container.Tx) error {
		cals, err := openPath(tx, groupCalibrations)
		if err != nil {
			return err
		}
		src, err := tx.OpenGroup(cals, oldName)
		if err != nil {
			return err
		}
		if oldName == newName {
			return nil
		}
		if _, err := stage.CopySubtree(tx, src, cals, newName); err != nil {
			return err
		}
		return tx.Delete(src)
	})
}

// SetCalibrationInstrument writes the non-nil instrument values and
// recomputes the constants of every file in the calibration.
func (p *Project) SetCalibrationInstrument(name string, u CalibrationUpdate) error {
	return p.s.Update("set_calibration", func(tx *container.Tx) error {
		g, err := openPath(tx, groupCalibrations, name)
		if err != nil {
			return err
		}
		m := map[string]container.Value{}
		setFloat(m, AttrMirrorSpacing, u.MirrorSpacing)
		setFloat(m, AttrLaserWavelength, u.LaserWavelength)
		setFloat(m, AttrScatteringAngle, u.ScatteringAngle)
		if err := tx.SetAttrs(g, m); err != nil {
			return err
		}
		files, err := tx.ListChildren(g)
		if err != nil {
			return err
		}
		for _, f := range files {
			if !f.IsGroup() {
				continue
			}
			if err := p.recompute(tx, g, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddCalibrationFile stores a reference spectrum under cal with empty fit
// slots and NaN constants.
func (p *Project) AddCalibrationFile(cal, filename string, raw []byte, samples []int64) error {
	return p.s.Update("add_calibration_file", func(tx *container.Tx) error {
		return addCalibrationFile(tx, cal, filename, raw, samples)
	})
}

// AddCalibrationFiles stores several captures under cal in one transaction;
// if any name is taken none are added.
func (p *Project) AddCalibrationFiles(cal string, captures []Capture) error {
	return p.s.Update("add_calibration_file", func(tx *container.Tx) error {
		for _, c := range captures {
			if err := addCalibrationFile(tx, cal, c.Name, c.Raw, c.Samples); err != nil {
				return err
			}
		}
		return nil
	})
}

func addCalibrationFile(tx *container.Tx, cal, filename string, raw []byte, samples []int64) error {
	calNode, err := openPath(tx, groupCalibrations, cal)
	if err != nil {
		return err
	}
	g, err := tx.CreateGroup(calNode, filename)
	if err != nil {
		return err
	}
	nan := container.Float(math.NaN())
	if err := tx.SetAttrs(g, map[string]container.Value{
		AttrChannels:      container.Int(int64(len(samples))),
		AttrNmPerChannel:  nan,
		AttrGHzPerChannel: nan,
		AttrInverted:      container.Bool(false),
	}); err != nil {
		return err
	}
	if _, err := tx.CreateArray(g, ArrayRawContent, container.BytesArray(raw)); err != nil {
		return err
	}
	if _, err := tx.CreateArray(g, ArrayOriginalData, container.Int64Array(samples)); err != nil {
		return err
	}
	for _, side := range []Side{SideLeft, SideRight} {
		slot, err := tx.CreateGroup(g, string(side))
		if err != nil {
			return err
		}
		if err := writePeakFit(tx, slot, EmptyPeakFit()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) calibrationFile(t container.Tree, cal string, file container.Node) (CalibrationFile, error) {
	attrs, err := t.Attrs(file)
	if err != nil {
		return CalibrationFile{}, err
	}
	cf := CalibrationFile{
		Calibration:   cal,
		Filename:      file.Name,
		Channels:      intAttr(attrs, AttrChannels),
		NmPerChannel:  floatAttr(attrs, AttrNmPerChannel),
		GHzPerChannel: floatAttr(attrs, AttrGHzPerChannel),
		Inverted:      boolAttr(attrs, AttrInverted),
	}
	for _, side := range []Side{SideLeft, SideRight} {
		slot, err := t.OpenGroup(file, string(side))
		if err != nil {
			return CalibrationFile{}, err
		}
		f, err := readPeakFit(t, slot)
		if err != nil {
			return CalibrationFile{}, err
		}
		if side == SideLeft {
			cf.Left = f
		} else {
			cf.Right = f
		}
	}
	return cf, nil
}

// CalibrationFile reads one calibration file with both fits.
func (p *Project) CalibrationFile(cal, filename string) (CalibrationFile, error) {
	t, err := p.tree()
	if err != nil {
		return CalibrationFile{}, err
	}
	g, err := openPath(t, groupCalibrations, cal, filename)
	if err != nil {
		return CalibrationFile{}, err
	}
	return p.calibrationFile(t, cal, g)
}

// CalibrationFiles reads every file of cal in filename order.
func (p *Project) CalibrationFiles(cal string) ([]CalibrationFile, error) {
	t, err := p.tree()
	if err != nil {
		return nil, err
	}
	calNode, err := openPath(t, groupCalibrations, cal)
	if err != nil {
		return nil, err
	}
	children, err := t.ListChildren(calNode)
	if err != nil {
		return nil, err
	}
	out := make([]CalibrationFile, 0, len(children))
	for _, c := range children {
		if !c.IsGroup() {
			continue
		}
		cf, err := p.calibrationFile(t, cal, c)
		if err != nil {
			return nil, err
		}
		out = append(out, cf)
	}
	return out, nil
}

// RemoveCalibrationFile deletes one file with its fits.
func (p *Project) RemoveCalibrationFile(cal, filename string) error {
	return p.s.Update("remove_calibration_file", func(tx *container.Tx) error {
		g, err := openPath(tx, groupCalibrations, cal, filename)
		if err != nil {
			return err
		}
		return tx.Delete(g)
	})
}

// SetInverted records whether the file's peaks are dips.
func (p *Project) SetInverted(cal, filename string, inverted bool) error {
	return p.s.Update("set_inverted", func(tx *container.Tx) error {
		g, err := openPath(tx, groupCalibrations, cal, filename)
		if err != nil {
			return err
		}
		return tx.SetAttr(g, AttrInverted, container.Bool(inverted))
	})
}

// CalibrationSamples returns the integer spectrum of a calibration file.
func (p *Project) CalibrationSamples(cal, filename string) ([]int64, error) {
	a, err := p.readArray(ArrayOriginalData, groupCalibrations, cal, filename)
	if err != nil {
		return nil, err
	}
	samples, ok := a.Int64s()
	if !ok {
		return nil, fmt.Errorf("%s is %s: %w", ArrayOriginalData, a.DType(), ErrInvalidValue)
	}
	return samples, nil
}

// recompute derives nm and GHz per channel for file from both fit centers
// and the calibration's instrument values.
func (p *Project) recompute(tx *container.Tx, cal, file container.Node) error {
	calAttrs, err := tx.Attrs(cal)
	if err != nil {
		return err
	}
	centers := [2]float64{}
	for i, side := range []Side{SideLeft, SideRight} {
		slot, err := tx.OpenGroup(file, string(side))
		if err != nil {
			return err
		}
		v, err := tx.GetAttr(slot, AttrCenter)
		if err != nil {
			return err
		}
		c, ok := v.AsFloat()
		if !ok {
			c = math.NaN()
		}
		centers[i] = c
	}
	r := p.engine.Constants(calib.Inputs{
		LeftCenter:      centers[0],
		RightCenter:     centers[1],
		LaserWavelength: floatAttr(calAttrs, AttrLaserWavelength),
		MirrorSpacing:   floatAttr(calAttrs, AttrMirrorSpacing),
		ScatteringAngle: floatAttr(calAttrs, AttrScatteringAngle),
	})
	return tx.SetAttrs(file, map[string]container.Value{
		AttrNmPerChannel:  container.Float(r.NmPerChannel),
		AttrGHzPerChannel: container.Float(r.GHzPerChannel),
	})
}

// CalibrationSummary is the spread of the derived constants across the
// files of one calibration.
type CalibrationSummary struct {
	Calibration string        `json:"calibration"`
	Files       int           `json:"files"`
	Nm          calib.Summary `json:"nm_per_channel"`
	GHz         calib.Summary `json:"ghz_per_channel"`
}

// CalibrationSummary averages nm and GHz per channel over the files whose
// constants are computable. Statistics are NaN with fewer than two.
func (p *Project) CalibrationSummary(cal string) (CalibrationSummary, error) {
	files, err := p.CalibrationFiles(cal)
	if err != nil {
		return CalibrationSummary{}, err
	}
	nm := make([]float64, 0, len(files))
	ghz := make([]float64, 0, len(files))
	for _, f := range files {
		nm = append(nm, f.NmPerChannel)
		ghz = append(ghz, f.GHzPerChannel)
	}
	return CalibrationSummary{
		Calibration: cal,
		Files:       len(files),
		Nm:          calib.Summarize(nm),
		GHz:         calib.Summarize(ghz),
	}, nil
}
