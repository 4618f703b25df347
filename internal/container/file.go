package container

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// File is an open container. All reads and writes go straight to SQLite;
// nothing is cached, so every read sees the latest write of the session.
//
// A File holds a single connection. While an Update callback runs, only the
// *Tx passed to it may be used; calling methods on the File from inside the
// callback blocks.
type File struct {
	handle
	db       *sql.DB
	path     string
	readOnly bool
	closed   bool
}

// Create makes a new container at path. It fails with ErrAlreadyExists when
// anything already exists there.
func Create(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioErr("create", path, err)
	}
	if _, err := os.Stat(abs); err == nil {
		return nil, fmt.Errorf("%s: %w", abs, ErrAlreadyExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, ioErr("create", abs, err)
	}
	f, err := open(abs, "rwc")
	if err != nil {
		os.Remove(abs)
		return nil, err
	}
	return f, nil
}

// Open opens an existing container read/write, upgrading its schema if needed.
func Open(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioErr("open", path, err)
	}
	if err := mustExist(abs); err != nil {
		return nil, err
	}
	return open(abs, "rw")
}

// OpenReadOnly opens an existing container without write access. The schema
// is not migrated.
func OpenReadOnly(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioErr("open", path, err)
	}
	if err := mustExist(abs); err != nil {
		return nil, err
	}
	return open(abs, "ro")
}

func mustExist(abs string) error {
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(abs)
		}
		return ioErr("open", abs, err)
	}
	return nil
}

// dsn builds a sqlite URI. The rollback journal with synchronous=FULL keeps
// every committed transaction in the main file, so a closed container can
// be copied byte for byte.
func dsn(abs, mode string) string {
	q := url.Values{}
	q.Set("mode", mode)
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if mode != "ro" {
		q.Add("_pragma", "journal_mode(DELETE)")
		q.Add("_pragma", "synchronous(FULL)")
	}
	u := url.URL{Scheme: "file", Path: abs, RawQuery: q.Encode()}
	return u.String()
}

func open(abs, mode string) (*File, error) {
	db, err := sql.Open("sqlite", dsn(abs, mode))
	if err != nil {
		return nil, ioErr("open", abs, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ioErr("open", abs, err)
	}
	readOnly := mode == "ro"
	if !readOnly {
		if err := migrateUp(db); err != nil {
			db.Close()
			return nil, ioErr("migrate", abs, err)
		}
	}
	f := &File{db: db, path: abs, readOnly: readOnly}
	f.handle = handle{q: db, path: abs, readOnly: readOnly, live: f.alive}
	return f, nil
}

func (f *File) alive() error {
	if f == nil || f.closed {
		return ErrClosed
	}
	return nil
}

// Path returns the absolute path of the container file.
func (f *File) Path() string { return f.path }

// ReadOnly reports whether the file was opened with OpenReadOnly.
func (f *File) ReadOnly() bool { return f.readOnly }

// Close releases the connection. Closing twice is a no-op.
func (f *File) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	if err := f.db.Close(); err != nil {
		return ioErr("close", f.path, err)
	}
	return nil
}

// Flush checks that the file is still open and its connection usable.
// Committed transactions are already on stable storage: the file runs in
// rollback-journal mode with synchronous(FULL), so there is nothing to drain.
func (f *File) Flush() error {
	if err := f.alive(); err != nil {
		return err
	}
	if err := f.db.Ping(); err != nil {
		return ioErr("flush", f.path, err)
	}
	return nil
}

// Update runs fn inside a single transaction. Any error returned by fn, or a
// panic, rolls back every write it made.
func (f *File) Update(fn func(*Tx) error) (err error) {
	if err := f.alive(); err != nil {
		return err
	}
	if f.readOnly {
		return ErrReadOnly
	}
	sqlTx, err := f.db.Begin()
	if err != nil {
		return ioErr("begin", f.path, err)
	}
	tx := &Tx{tx: sqlTx}
	tx.handle = handle{q: sqlTx, path: f.path, live: tx.alive}

	committed := false
	defer func() {
		tx.done = true
		if !committed {
			sqlTx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return ioErr("commit", f.path, err)
	}
	committed = true
	return nil
}

// Tx is the tree handle passed to an Update callback. It is invalid once the
// callback returns.
type Tx struct {
	handle
	tx   *sql.Tx
	done bool
}

func (t *Tx) alive() error {
	if t.done {
		return ErrClosed
	}
	return nil
}
