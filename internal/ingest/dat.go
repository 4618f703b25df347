// Package ingest reads instrument spectrum files into captures the store can
// keep verbatim.
package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/brillouin/internal/entity"
	"github.com/banshee-data/brillouin/internal/fsutil"
	"github.com/banshee-data/brillouin/internal/monitoring"
)

// DefaultHeaderLines is the length of the .DAT header written by the
// spectrometer software.
const DefaultHeaderLines = 12

// ReadDAT loads one .DAT file. The capture is named after the file's base
// name and keeps the raw bytes. Samples are the lines after the header that
// hold only ASCII digits once surrounding whitespace is trimmed; any other
// line is skipped.
func ReadDAT(fs fsutil.FileSystem, path string, headerLines int) (entity.Capture, error) {
	raw, err := fs.ReadFile(path)
	if err != nil {
		return entity.Capture{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if headerLines < 0 {
		headerLines = 0
	}
	lines := bytes.Split(raw, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	samples := []int64{}
	skipped := 0
	for i, line := range lines {
		if i < headerLines {
			continue
		}
		line = bytes.TrimSpace(line)
		if !digits(line) {
			skipped++
			continue
		}
		v, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return entity.Capture{}, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		samples = append(samples, v)
	}
	if skipped > 0 {
		monitoring.Logf("[ingest] %s: skipped %d non-numeric lines", filepath.Base(path), skipped)
	}
	return entity.Capture{Name: filepath.Base(path), Raw: raw, Samples: samples}, nil
}

func digits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ReadAll reads every path with ReadDAT and stops at the first failure.
// Two paths with the same base name are rejected before anything is read.
func ReadAll(fs fsutil.FileSystem, paths []string, headerLines int) ([]entity.Capture, error) {
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		if prev, ok := seen[base]; ok {
			return nil, fmt.Errorf("%s and %s share the name %q: %w", prev, p, base, entity.ErrAlreadyExists)
		}
		seen[base] = p
	}
	out := make([]entity.Capture, 0, len(paths))
	for _, p := range paths {
		c, err := ReadDAT(fs, p, headerLines)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
