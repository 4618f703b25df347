package entity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/query"
	"github.com/banshee-data/brillouin/internal/stage"
)

// Label registries on the project root. Entries are unique and kept in
// insertion order. Removing a label leaves records that use it untouched.

func (p *Project) AddPressure(gpa float64) error {
	return p.addFloatLabel("add_pressure", stage.AttrPressures, gpa)
}

func (p *Project) RemovePressure(gpa float64) error {
	return p.removeFloatLabel("remove_pressure", stage.AttrPressures, gpa)
}

func (p *Project) Pressures() ([]float64, error) {
	return p.floatLabels(stage.AttrPressures)
}

func (p *Project) AddVelocity(v float64) error {
	return p.addFloatLabel("add_velocity", stage.AttrVelocities, v)
}

func (p *Project) RemoveVelocity(v float64) error {
	return p.removeFloatLabel("remove_velocity", stage.AttrVelocities, v)
}

func (p *Project) Velocities() ([]float64, error) {
	return p.floatLabels(stage.AttrVelocities)
}

func (p *Project) AddCrystal(name string) error {
	if name == "" {
		return fmt.Errorf("crystal label: %w", ErrInvalidValue)
	}
	return p.s.Update("add_crystal", func(tx *container.Tx) error {
		root := tx.Root()
		ok, err := query.RegistryContains(tx, root, stage.AttrCrystals, container.String(name))
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("crystal %q: %w", name, ErrAlreadyExists)
		}
		labels, err := stringList(tx, stage.AttrCrystals)
		if err != nil {
			return err
		}
		return tx.SetAttr(root, stage.AttrCrystals, container.Strings(append(labels, name)))
	})
}

func (p *Project) RemoveCrystal(name string) error {
	return p.s.Update("remove_crystal", func(tx *container.Tx) error {
		labels, err := stringList(tx, stage.AttrCrystals)
		if err != nil {
			return err
		}
		kept := labels[:0]
		for _, l := range labels {
			if l != name {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(labels) {
			return fmt.Errorf("crystal %q: %w", name, ErrNotFound)
		}
		return tx.SetAttr(tx.Root(), stage.AttrCrystals, container.Strings(kept))
	})
}

func (p *Project) Crystals() ([]string, error) {
	t, err := p.tree()
	if err != nil {
		return nil, err
	}
	return stringList(t, stage.AttrCrystals)
}

func (p *Project) addFloatLabel(op, key string, v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%s label NaN: %w", key, ErrInvalidValue)
	}
	v = positiveZero(v)
	return p.s.Update(op, func(tx *container.Tx) error {
		root := tx.Root()
		ok, err := query.RegistryContains(tx, root, key, container.Float(v))
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%s label %s: %w", key, formatLabel(v), ErrAlreadyExists)
		}
		labels, err := floatList(tx, key)
		if err != nil {
			return err
		}
		return tx.SetAttr(root, key, container.Floats(append(labels, v)))
	})
}

func (p *Project) removeFloatLabel(op, key string, v float64) error {
	v = positiveZero(v)
	return p.s.Update(op, func(tx *container.Tx) error {
		labels, err := floatList(tx, key)
		if err != nil {
			return err
		}
		kept := labels[:0]
		for _, l := range labels {
			if !container.Float(positiveZero(l)).Equal(container.Float(v)) {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(labels) {
			return fmt.Errorf("%s label %s: %w", key, formatLabel(v), ErrNotFound)
		}
		return tx.SetAttr(tx.Root(), key, container.Floats(kept))
	})
}

// positiveZero folds -0 into 0; labels are compared by bit pattern.
func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

func (p *Project) floatLabels(key string) ([]float64, error) {
	t, err := p.tree()
	if err != nil {
		return nil, err
	}
	return floatList(t, key)
}

func floatList(t container.Tree, key string) ([]float64, error) {
	v, err := t.GetAttr(t.Root(), key)
	if err != nil {
		return nil, err
	}
	fs, ok := v.AsFloats()
	if !ok {
		return nil, fmt.Errorf("%s is a %s attribute: %w", key, v.Kind(), ErrInvalidValue)
	}
	return fs, nil
}

func stringList(t container.Tree, key string) ([]string, error) {
	v, err := t.GetAttr(t.Root(), key)
	if err != nil {
		return nil, err
	}
	ss, ok := v.AsStrings()
	if !ok {
		return nil, fmt.Errorf("%s is a %s attribute: %w", key, v.Kind(), ErrInvalidValue)
	}
	return ss, nil
}

func formatLabel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
