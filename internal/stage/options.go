package stage

import (
	"github.com/banshee-data/brillouin/internal/config"
	"github.com/banshee-data/brillouin/internal/fsutil"
	"github.com/banshee-data/brillouin/internal/timeutil"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	ext     string
	tempDir string
	clock   timeutil.Clock
	fs      fsutil.FileSystem
}

func newOptions(opts []Option) options {
	cfg := config.EmptyStoreConfig()
	o := options{
		ext:     cfg.GetProjectExtension(),
		tempDir: cfg.GetTempDir(),
		clock:   timeutil.RealClock{},
		fs:      fsutil.OSFileSystem{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithExtension sets the committed file extension, without a dot.
func WithExtension(ext string) Option {
	return func(o *options) {
		if ext != "" {
			o.ext = ext
		}
	}
}

// WithTempDir sets the name of the working-copy directory under the
// project location.
func WithTempDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.tempDir = dir
		}
	}
}

// WithClock sets the clock used for creation and modification stamps.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithFileSystem sets the filesystem used for copies, renames and removals.
// Container files themselves are always opened through SQLite, so the
// implementation must operate on the real paths.
func WithFileSystem(fs fsutil.FileSystem) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithConfig applies the staging fields of a StoreConfig.
func WithConfig(cfg *config.StoreConfig) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		o.ext = cfg.GetProjectExtension()
		o.tempDir = cfg.GetTempDir()
	}
}
