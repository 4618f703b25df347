package entity

import (
	"fmt"
	"math"

	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/query"
	"github.com/banshee-data/brillouin/internal/stage"
)

// Measurement record attribute keys.
const (
	AttrPressure        = "pressure"
	AttrCrystal         = "crystal"
	AttrChiAngle        = "chi_angle"
	AttrPinhole         = "pinhole"
	AttrPower           = "power"
	AttrPolarization    = "polarization"
	AttrScans           = "scans"
	AttrCalibration     = "calibration"
	AttrLaserWavelength = "laser_wavelength"
	AttrMirrorSpacing   = "mirror_spacing"
	AttrScatteringAngle = "scattering_angle"
)

// Array names shared by measurement records and calibration files.
const (
	ArrayRawContent   = "raw_content"
	ArrayOriginalData = "original_data"
)

// Measurement is a sample spectrum and its acquisition conditions. Numeric
// fields are NaN until set; Crystal and Calibration are "" until set.
// Calibration names a calibration record but does not own it.
type Measurement struct {
	Filename        string  `json:"filename"`
	Pressure        float64 `json:"pressure"`
	Crystal         string  `json:"crystal"`
	ChiAngle        float64 `json:"chi_angle"`
	Pinhole         float64 `json:"pinhole"`
	Power           float64 `json:"power"`
	Polarization    float64 `json:"polarization"`
	Scans           float64 `json:"scans"`
	Calibration     string  `json:"calibration"`
	LaserWavelength float64 `json:"laser_wavelength"`
	MirrorSpacing   float64 `json:"mirror_spacing"`
	ScatteringAngle float64 `json:"scattering_angle"`
}

// MeasurementUpdate carries the fields to change; nil fields are left alone.
type MeasurementUpdate struct {
	Pressure        *float64
	Crystal         *string
	ChiAngle        *float64
	Pinhole         *float64
	Power           *float64
	Polarization    *float64
	Scans           *float64
	Calibration     *string
	LaserWavelength *float64
	MirrorSpacing   *float64
	ScatteringAngle *float64
}

func (u MeasurementUpdate) attrs() map[string]container.Value {
	m := map[string]container.Value{}
	setFloat(m, AttrPressure, u.Pressure)
	setString(m, AttrCrystal, u.Crystal)
	setFloat(m, AttrChiAngle, u.ChiAngle)
	setFloat(m, AttrPinhole, u.Pinhole)
	setFloat(m, AttrPower, u.Power)
	setFloat(m, AttrPolarization, u.Polarization)
	setFloat(m, AttrScans, u.Scans)
	setString(m, AttrCalibration, u.Calibration)
	setFloat(m, AttrLaserWavelength, u.LaserWavelength)
	setFloat(m, AttrMirrorSpacing, u.MirrorSpacing)
	setFloat(m, AttrScatteringAngle, u.ScatteringAngle)
	return m
}

func unsetMeasurementAttrs() map[string]container.Value {
	m := map[string]container.Value{
		AttrCrystal:     container.String(""),
		AttrCalibration: container.String(""),
	}
	for _, key := range []string{AttrPressure, AttrChiAngle, AttrPinhole, AttrPower, AttrPolarization,
		AttrScans, AttrLaserWavelength, AttrMirrorSpacing, AttrScatteringAngle} {
		m[key] = container.Float(math.NaN())
	}
	return m
}

func measurementFrom(name string, attrs map[string]container.Value) Measurement {
	return Measurement{
		Filename:        name,
		Pressure:        floatAttr(attrs, AttrPressure),
		Crystal:         stringAttr(attrs, AttrCrystal),
		ChiAngle:        floatAttr(attrs, AttrChiAngle),
		Pinhole:         floatAttr(attrs, AttrPinhole),
		Power:           floatAttr(attrs, AttrPower),
		Polarization:    floatAttr(attrs, AttrPolarization),
		Scans:           floatAttr(attrs, AttrScans),
		Calibration:     stringAttr(attrs, AttrCalibration),
		LaserWavelength: floatAttr(attrs, AttrLaserWavelength),
		MirrorSpacing:   floatAttr(attrs, AttrMirrorSpacing),
		ScatteringAngle: floatAttr(attrs, AttrScatteringAngle),
	}
}

// AddMeasurement stores a new record with every attribute unset and the
// capture kept verbatim.
func (p *Project) AddMeasurement(filename string, raw []byte, samples []int64) error {
	return p.s.Update("add_measurement", func(tx *container.Tx) error {
		return addMeasurement(tx, filename, raw, samples)
	})
}

func addMeasurement(tx *container.Tx, filename string, raw []byte, samples []int64) error {
	data, err := openPath(tx, stage.GroupData)
	if err != nil {
		return err
	}
	g, err := tx.CreateGroup(data, filename)
	if err != nil {
		return err
	}
	if err := tx.SetAttrs(g, unsetMeasurementAttrs()); err != nil {
		return err
	}
	if _, err := tx.CreateArray(g, ArrayRawContent, container.BytesArray(raw)); err != nil {
		return err
	}
	_, err = tx.CreateArray(g, ArrayOriginalData, container.Int64Array(samples))
	return err
}

// Capture is one ingested file.
type Capture struct {
	Name    string
	Raw     []byte
	Samples []int64
}

// AddMeasurements stores several captures in one transaction; if any name
// is taken none are added.
func (p *Project) AddMeasurements(captures []Capture) error {
	return p.s.Update("add_measurement", func(tx *container.Tx) error {
		for _, c := range captures {
			if err := addMeasurement(tx, c.Name, c.Raw, c.Samples); err != nil {
				return err
			}
		}
		return nil
	})
}

// Measurement reads one record.
func (p *Project) Measurement(filename string) (Measurement, error) {
	t, err := p.tree()
	if err != nil {
		return Measurement{}, err
	}
	g, err := openPath(t, stage.GroupData, filename)
	if err != nil {
		return Measurement{}, err
	}
	attrs, err := t.Attrs(g)
	if err != nil {
		return Measurement{}, err
	}
	return measurementFrom(filename, attrs), nil
}

// Measurements reads every record in filename order.
func (p *Project) Measurements() ([]Measurement, error) {
	t, err := p.tree()
	if err != nil {
		return nil, err
	}
	data, err := openPath(t, stage.GroupData)
	if err != nil {
		return nil, err
	}
	children, err := t.ListChildren(data)
	if err != nil {
		return nil, err
	}
	out := make([]Measurement, 0, len(children))
	for _, c := range children {
		attrs, err := t.Attrs(c)
		if err != nil {
			return nil, err
		}
		out = append(out, measurementFrom(c.Name, attrs))
	}
	return out, nil
}

// SetMeasurement writes the non-nil fields of u.
func (p *Project) SetMeasurement(filename string, u MeasurementUpdate) error {
	return p.s.Update("set_measurement", func(tx *container.Tx) error {
		g, err := openPath(tx, stage.GroupData, filename)
		if err != nil {
			return err
		}
		return tx.SetAttrs(g, u.attrs())
	})
}

// RemoveMeasurement deletes a record with its arrays.
func (p *Project) RemoveMeasurement(filename string) error {
	return p.s.Update("remove_measurement", func(tx *container.Tx) error {
		g, err := openPath(tx, stage.GroupData, filename)
		if err != nil {
			return err
		}
		return tx.Delete(g)
	})
}

// MeasurementSamples returns the integer spectrum stored at creation.
func (p *Project) MeasurementSamples(filename string) ([]int64, error) {
	a, err := p.readArray(ArrayOriginalData, stage.GroupData, filename)
	if err != nil {
		return nil, err
	}
	samples, ok := a.Int64s()
	if !ok {
		return nil, fmt.Errorf("%s is %s: %w", ArrayOriginalData, a.DType(), ErrInvalidValue)
	}
	return samples, nil
}

// MeasurementRaw returns the file content stored at creation.
func (p *Project) MeasurementRaw(filename string) ([]byte, error) {
	a, err := p.readArray(ArrayRawContent, stage.GroupData, filename)
	if err != nil {
		return nil, err
	}
	raw, ok := a.Bytes()
	if !ok {
		return nil, fmt.Errorf("%s is %s: %w", ArrayRawContent, a.DType(), ErrInvalidValue)
	}
	return raw, nil
}

func (p *Project) readArray(name string, groups ...string) (container.Array, error) {
	t, err := p.tree()
	if err != nil {
		return container.Array{}, err
	}
	g, err := openPath(t, groups...)
	if err != nil {
		return container.Array{}, err
	}
	return t.ReadArray(g, name)
}

// Criteria selects measurements by exact attribute equality. Nil fields
// are not constrained; a NaN pressure matches records with no pressure.
type Criteria struct {
	Pressure     *float64
	Crystal      *string
	Calibration  *string
	Polarization *float64
}

// FindMeasurements returns the filenames matching every set criterion, in
// filename order. Empty criteria match every record.
func (p *Project) FindMeasurements(c Criteria) ([]string, error) {
	t, err := p.tree()
	if err != nil {
		return nil, err
	}
	data, err := openPath(t, stage.GroupData)
	if err != nil {
		return nil, err
	}
	predicate := map[string]container.Value{}
	setFloat(predicate, AttrPressure, c.Pressure)
	setString(predicate, AttrCrystal, c.Crystal)
	setString(predicate, AttrCalibration, c.Calibration)
	setFloat(predicate, AttrPolarization, c.Polarization)
	return query.FindByAttributes(t, data, predicate)
}
