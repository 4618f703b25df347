// Package entity is the typed domain model of a Brillouin project layered
// over a staged container.
//
// Every mutation runs as one working-copy transaction. Parents are looked up
// inside that transaction before anything is written, so a structural error
// never leaves a partial edit behind.
package entity

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/brillouin/internal/calib"
	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/stage"
	"github.com/banshee-data/brillouin/internal/timeutil"
)

var (
	ErrNotFound      = container.ErrNotFound
	ErrAlreadyExists = container.ErrAlreadyExists
	ErrNotGroup      = container.ErrNotGroup
	ErrInvalidName   = container.ErrInvalidName
	ErrClosed        = container.ErrClosed
	ErrIO            = container.ErrIO
	// ErrInvalidValue is returned for NaN registry labels and unknown sides.
	ErrInvalidValue = errors.New("invalid value")
)

// Project is the root entity.
type Project struct {
	s      *stage.Session
	engine calib.Engine
}

// New wraps an open session. engine computes calibration constants.
func New(s *stage.Session, engine calib.Engine) *Project {
	return &Project{s: s, engine: engine}
}

// Session returns the underlying staging session.
func (p *Project) Session() *stage.Session { return p.s }

// Info is the project's identity and timestamps.
type Info struct {
	Name     string    `json:"name"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Info reads the root attributes of the working copy.
func (p *Project) Info() (Info, error) {
	t, err := p.tree()
	if err != nil {
		return Info{}, err
	}
	attrs, err := t.Attrs(t.Root())
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Name: stringAttr(attrs, stage.AttrProjectName),
		ID:   stringAttr(attrs, stage.AttrProjectID),
	}
	if info.Created, err = timeutil.ParseStamp(stringAttr(attrs, stage.AttrCreationTime)); err != nil {
		return Info{}, fmt.Errorf("creation_time: %w", err)
	}
	if info.Modified, err = timeutil.ParseStamp(stringAttr(attrs, stage.AttrModificationTime)); err != nil {
		return Info{}, fmt.Errorf("modification_time: %w", err)
	}
	return info, nil
}

// Rename moves the project files to newName.
func (p *Project) Rename(newName string) error {
	return p.s.Rename(newName)
}

func (p *Project) tree() (container.Tree, error) {
	t := p.s.Tree()
	if t == nil {
		return nil, ErrClosed
	}
	return t, nil
}

// openPath walks group names from the root. Names are matched literally,
// so a name containing "/" is simply not found.
func openPath(t container.Tree, names ...string) (container.Node, error) {
	n := t.Root()
	for _, name := range names {
		next, err := t.OpenGroup(n, name)
		if err != nil {
			return container.Node{}, err
		}
		n = next
	}
	return n, nil
}

func floatAttr(attrs map[string]container.Value, key string) float64 {
	if f, ok := attrs[key].AsFloat(); ok {
		return f
	}
	return math.NaN()
}

func stringAttr(attrs map[string]container.Value, key string) string {
	s, _ := attrs[key].AsString()
	return s
}

func intAttr(attrs map[string]container.Value, key string) int {
	i, _ := attrs[key].AsInt()
	return int(i)
}

func boolAttr(attrs map[string]container.Value, key string) bool {
	b, _ := attrs[key].AsBool()
	return b
}

func setFloat(m map[string]container.Value, key string, v *float64) {
	if v != nil {
		m[key] = container.Float(*v)
	}
}

func setString(m map[string]container.Value, key string, v *string) {
	if v != nil {
		m[key] = container.String(*v)
	}
}
