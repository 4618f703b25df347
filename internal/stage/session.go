// Package stage manages a project's committed snapshot and its working copy.
//
// Every edit goes to the working copy and is committed to it immediately.
// Save replaces the snapshot with a fresh copy of the working tree through
// a single rename; Discard throws the working copy away.
package stage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/brillouin/internal/container"
	"github.com/banshee-data/brillouin/internal/monitoring"
	"github.com/banshee-data/brillouin/internal/security"
	"github.com/banshee-data/brillouin/internal/timeutil"
)

var (
	ErrNotFound      = container.ErrNotFound
	ErrAlreadyExists = container.ErrAlreadyExists
	ErrInvalidName   = container.ErrInvalidName
	ErrClosed        = container.ErrClosed
	ErrIO            = container.ErrIO
)

// Root attribute keys.
const (
	AttrCreationTime     = "creation_time"
	AttrModificationTime = "modification_time"
	AttrProjectName      = "project_name"
	AttrProjectID        = "project_id"
	AttrPressures        = "pressures"
	AttrCrystals         = "crystals"
	AttrVelocities       = "velocities"
)

// Top-level groups of the working copy.
const (
	GroupData         = "data"
	GroupCalibrations = "calibrations"
)

// Session is an open project: a committed snapshot on disk plus the working
// copy all edits go to. A Session is not safe for concurrent use.
type Session struct {
	location string
	name     string
	opts     options
	work     *container.File
}

func committedPath(location, name string, o options) string {
	return filepath.Join(location, name+"."+o.ext)
}

func workingPath(location, name string, o options) string {
	return filepath.Join(location, o.tempDir, name+"_temp."+o.ext)
}

// prepare validates the project name, resolves location and makes sure the
// working-copy directory exists.
func prepare(location, name string, o options) (string, error) {
	if err := security.ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", &container.IOError{Op: "resolve", Path: location, Err: err}
	}
	if err := o.fs.Writable(abs); err != nil {
		return "", &container.IOError{Op: "probe", Path: abs, Err: err}
	}
	if err := o.fs.MkdirAll(filepath.Join(abs, o.tempDir), 0o755); err != nil {
		return "", &container.IOError{Op: "mkdir", Path: filepath.Join(abs, o.tempDir), Err: err}
	}
	if err := security.ValidatePathWithinDirectory(workingPath(abs, name, o), abs); err != nil {
		return "", &container.IOError{Op: "validate", Path: workingPath(abs, name, o), Err: err}
	}
	return abs, nil
}

func rootAttrs(name string, clock timeutil.Clock) map[string]container.Value {
	stamp := timeutil.Stamp(clock)
	return map[string]container.Value{
		AttrCreationTime:     container.String(stamp),
		AttrModificationTime: container.String(stamp),
		AttrProjectName:      container.String(name),
		AttrProjectID:        container.String(uuid.NewString()),
		AttrPressures:        container.Floats(nil),
		AttrCrystals:         container.Strings(nil),
		AttrVelocities:       container.Floats(nil),
	}
}

// Create starts a new project called name in location. The committed
// snapshot holds only the root attributes; the working copy adds the empty
// data and calibrations groups. Nothing is left on disk if Create fails.
func Create(location, name string, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	abs, err := prepare(location, name, o)
	if err != nil {
		return nil, err
	}
	committed := committedPath(abs, name, o)
	if o.fs.Exists(committed) {
		return nil, fmt.Errorf("project %s: %w", committed, ErrAlreadyExists)
	}
	attrs := rootAttrs(name, o.clock)

	snap, err := container.Create(committed)
	if err != nil {
		return nil, err
	}
	err = snap.Update(func(tx *container.Tx) error {
		return tx.SetAttrs(tx.Root(), attrs)
	})
	if cerr := snap.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		o.fs.Remove(committed)
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	working := workingPath(abs, name, o)
	if o.fs.Exists(working) {
		if err := o.fs.Remove(working); err != nil {
			o.fs.Remove(committed)
			return nil, &container.IOError{Op: "remove", Path: working, Err: err}
		}
	}
	work, err := container.Create(working)
	if err != nil {
		o.fs.Remove(committed)
		return nil, err
	}
	err = work.Update(func(tx *container.Tx) error {
		if err := tx.SetAttrs(tx.Root(), attrs); err != nil {
			return err
		}
		if _, err := tx.CreateGroup(tx.Root(), GroupData); err != nil {
			return err
		}
		_, err := tx.CreateGroup(tx.Root(), GroupCalibrations)
		return err
	})
	if err == nil {
		err = work.Flush()
	}
	if err != nil {
		work.Close()
		o.fs.Remove(working)
		o.fs.Remove(committed)
		return nil, fmt.Errorf("failed to write working copy: %w", err)
	}

	monitoring.Eventf(name, "created %s", committed)
	return &Session{location: abs, name: name, opts: o, work: work}, nil
}

// Load opens the committed snapshot of name for editing by copying it over
// the working-copy path, replacing any stray working copy.
func Load(location, name string, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	abs, err := prepare(location, name, o)
	if err != nil {
		return nil, err
	}
	committed := committedPath(abs, name, o)
	if !o.fs.Exists(committed) {
		return nil, fmt.Errorf("project %s: %w", committed, ErrNotFound)
	}

	working := workingPath(abs, name, o)
	if err := o.fs.CopyFile(committed, working); err != nil {
		o.fs.Remove(working)
		return nil, &container.IOError{Op: "copy", Path: working, Err: err}
	}
	work, err := container.Open(working)
	if err != nil {
		o.fs.Remove(working)
		return nil, err
	}

	monitoring.Eventf(name, "loaded %s", committed)
	return &Session{location: abs, name: name, opts: o, work: work}, nil
}

// Resume reopens the working copy a previous process left behind with
// Suspend, keeping its unsaved edits. Without one it behaves like Load.
func Resume(location, name string, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	abs, err := prepare(location, name, o)
	if err != nil {
		return nil, err
	}
	committed := committedPath(abs, name, o)
	if !o.fs.Exists(committed) {
		return nil, fmt.Errorf("project %s: %w", committed, ErrNotFound)
	}
	working := workingPath(abs, name, o)
	if !o.fs.Exists(working) {
		return Load(location, name, opts...)
	}
	work, err := container.Open(working)
	if err != nil {
		return nil, err
	}
	monitoring.Eventf(name, "resumed %s", working)
	return &Session{location: abs, name: name, opts: o, work: work}, nil
}

// StrayWorkingCopies lists working copies in location's temp directory,
// e.g. after an unclean shutdown.
func StrayWorkingCopies(location string, opts ...Option) ([]string, error) {
	o := newOptions(opts)
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, &container.IOError{Op: "resolve", Path: location, Err: err}
	}
	matches, err := o.fs.Glob(filepath.Join(abs, o.tempDir, "*_temp."+o.ext))
	if err != nil {
		return nil, &container.IOError{Op: "glob", Path: abs, Err: err}
	}
	return matches, nil
}

func (s *Session) open() error {
	if s == nil || s.work == nil {
		return ErrClosed
	}
	return nil
}

// Name is the project name.
func (s *Session) Name() string { return s.name }

// Location is the absolute directory holding the committed snapshot.
func (s *Session) Location() string { return s.location }

// CommittedPath is the path of the committed snapshot.
func (s *Session) CommittedPath() string { return committedPath(s.location, s.name, s.opts) }

// WorkingPath is the path of the working copy.
func (s *Session) WorkingPath() string { return workingPath(s.location, s.name, s.opts) }

// Clock is the session clock.
func (s *Session) Clock() timeutil.Clock { return s.opts.clock }

// Tree gives read access to the working copy. It is nil once the session
// is closed.
func (s *Session) Tree() container.Tree {
	if s == nil || s.work == nil {
		return nil
	}
	return s.work
}

// Update runs fn as one working-copy transaction and flushes it. op labels
// the mutation in metrics. fn must only use the Tx it is given.
func (s *Session) Update(op string, fn func(*container.Tx) error) error {
	if err := s.open(); err != nil {
		return err
	}
	if err := s.work.Update(fn); err != nil {
		return err
	}
	if err := s.work.Flush(); err != nil {
		return err
	}
	monitoring.Mutations.WithLabelValues(op).Inc()
	return nil
}

// CheckDirty diffs the working copy against the committed snapshot.
func (s *Session) CheckDirty() (Diff, error) {
	if err := s.open(); err != nil {
		return Diff{}, err
	}
	defer monitoring.ObserveSince(monitoring.DirtyCheckDuration, time.Now())

	if err := s.work.Flush(); err != nil {
		return Diff{}, err
	}
	snap, err := container.OpenReadOnly(s.CommittedPath())
	if err != nil {
		return Diff{}, err
	}
	defer snap.Close()
	return Compare(s.work, snap)
}

// Dirty reports whether the working copy has unsaved changes.
func (s *Session) Dirty() (bool, error) {
	d, err := s.CheckDirty()
	if err != nil {
		return false, err
	}
	return !d.Empty(), nil
}

// Save stamps modification_time and replaces the committed snapshot with a
// copy of the working tree. On failure the old snapshot is left untouched.
func (s *Session) Save() (err error) {
	if err := s.open(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		if err != nil {
			monitoring.SaveFailures.Inc()
			monitoring.Eventf(s.name, "save failed: %v", err)
			return
		}
		monitoring.ObserveSince(monitoring.SaveDuration, start)
		monitoring.Eventf(s.name, "saved in %s", time.Since(start).Round(time.Millisecond))
	}()

	stamp := container.String(timeutil.Stamp(s.opts.clock))
	if err := s.work.Update(func(tx *container.Tx) error {
		return tx.SetAttr(tx.Root(), AttrModificationTime, stamp)
	}); err != nil {
		return err
	}
	if err := s.work.Flush(); err != nil {
		return err
	}

	committed := s.CommittedPath()
	tmp := fmt.Sprintf("%s.%s.tmp", committed, strings.SplitN(uuid.NewString(), "-", 2)[0])
	dst, err := container.Create(tmp)
	if err != nil {
		return err
	}
	err = dst.Update(func(tx *container.Tx) error {
		return CopyTree(s.work, tx)
	})
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.opts.fs.Remove(tmp)
		return fmt.Errorf("failed to write snapshot copy: %w", err)
	}
	if err := s.opts.fs.Rename(tmp, committed); err != nil {
		s.opts.fs.Remove(tmp)
		return &container.IOError{Op: "rename", Path: committed, Err: err}
	}
	return nil
}

// Suspend closes the working copy but keeps it on disk for Resume.
func (s *Session) Suspend() error {
	if s == nil || s.work == nil {
		return nil
	}
	err := s.work.Close()
	s.work = nil
	return err
}

// Discard closes and deletes the working copy, dropping unsaved edits. It
// is a no-op on a nil or already closed session.
func (s *Session) Discard() error {
	if s == nil || s.work == nil {
		return nil
	}
	working := s.WorkingPath()
	err := s.work.Close()
	s.work = nil
	if rerr := s.opts.fs.Remove(working); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
		err = &container.IOError{Op: "remove", Path: working, Err: rerr}
	}
	monitoring.Eventf(s.name, "discarded working copy")
	return err
}

// Close is Discard.
func (s *Session) Close() error { return s.Discard() }

// Delete discards the working copy and removes the committed snapshot.
func (s *Session) Delete() error {
	if err := s.open(); err != nil {
		return err
	}
	committed := s.CommittedPath()
	if err := s.Discard(); err != nil {
		return err
	}
	if err := s.opts.fs.Remove(committed); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &container.IOError{Op: "remove", Path: committed, Err: err}
	}
	monitoring.Eventf(s.name, "deleted %s", committed)
	return nil
}

// Rename moves the snapshot and working copy to newName and records the
// new project_name in the working copy. The target must not exist.
func (s *Session) Rename(newName string) error {
	if err := s.open(); err != nil {
		return err
	}
	if err := security.ValidateName(newName); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	if newName == s.name {
		return nil
	}
	oldCommitted, oldWorking := s.CommittedPath(), s.WorkingPath()
	newCommitted := committedPath(s.location, newName, s.opts)
	newWorking := workingPath(s.location, newName, s.opts)
	if s.opts.fs.Exists(newCommitted) || s.opts.fs.Exists(newWorking) {
		return fmt.Errorf("project %s: %w", newCommitted, ErrAlreadyExists)
	}

	if err := s.work.Close(); err != nil {
		return err
	}
	s.work = nil

	if err := s.opts.fs.Rename(oldCommitted, newCommitted); err != nil {
		return s.reopen(oldWorking, &container.IOError{Op: "rename", Path: oldCommitted, Err: err})
	}
	if err := s.opts.fs.Rename(oldWorking, newWorking); err != nil {
		s.opts.fs.Rename(newCommitted, oldCommitted)
		return s.reopen(oldWorking, &container.IOError{Op: "rename", Path: oldWorking, Err: err})
	}

	oldName := s.name
	s.name = newName
	if err := s.reopen(newWorking, nil); err != nil {
		return err
	}
	if err := s.Update("rename_project", func(tx *container.Tx) error {
		return tx.SetAttr(tx.Root(), AttrProjectName, container.String(newName))
	}); err != nil {
		return err
	}
	monitoring.Eventf(newName, "renamed from %s", oldName)
	return nil
}

// reopen restores s.work from path and returns cause, or the open error
// when there is no cause.
func (s *Session) reopen(path string, cause error) error {
	work, err := container.Open(path)
	if err != nil {
		if cause != nil {
			return fmt.Errorf("%w (reopen failed: %v)", cause, err)
		}
		return err
	}
	s.work = work
	return cause
}
