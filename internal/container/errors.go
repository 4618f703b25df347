package container

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a node, attribute or file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a node or file whose name is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotGroup is returned when a group operation targets an array node.
	ErrNotGroup = errors.New("not a group")
	// ErrNotArray is returned when an array read targets a group node.
	ErrNotArray = errors.New("not an array")
	// ErrInvalidName is returned for empty names or names containing a separator.
	ErrInvalidName = errors.New("invalid name")
	// ErrClosed is returned by operations on a closed file.
	ErrClosed = errors.New("container closed")
	// ErrReadOnly is returned by mutations on a file opened read-only.
	ErrReadOnly = errors.New("container is read-only")
	// ErrIO matches every *IOError via errors.Is.
	ErrIO = errors.New("i/o error")
)

// IOError wraps a failure of the underlying database or filesystem.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports ErrIO so callers can test the class without unwrapping.
func (e *IOError) Is(target error) bool { return target == ErrIO }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var existing *IOError
	if errors.As(err, &existing) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

func notFound(path string) error {
	return fmt.Errorf("%s: %w", path, ErrNotFound)
}
