// Package storage provides the durable JSON collection files every assistant
// store is built on: atomic whole-file writes and tolerant reads.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsonx "iris/internal/shared/json"
	"iris/internal/shared/logging"
)

// renameFile is swapped in tests to simulate a crash between the temp write
// and the commit rename.
var renameFile = os.Rename

// WriteJSON writes v as indented JSON to path using a temp file in the same
// directory, an fsync, and a single rename. Readers never observe a partially
// written file: the rename is the only mutation visible under the final name.
// On any failure the temp file is removed and the previously committed
// content at path is left untouched.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create collection dir: %w", err)
	}

	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return cause
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := renameFile(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadJSON reads the collection at path into out. It returns false, leaving
// out at its zero value, when the file is missing, empty, unreadable, or does
// not decode into out's type. Every failure mode is logged and none is
// returned: callers always proceed with a usable default.
func LoadJSON(path string, out any, logger logging.Logger) bool {
	logger = logging.OrNop(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Cannot read %s: %v", filepath.Base(path), err)
		}
		return false
	}
	if len(data) == 0 {
		logger.Warn("Collection file %s is empty, using default", filepath.Base(path))
		return false
	}
	if err := jsonx.Unmarshal(data, out); err != nil {
		logger.Warn("Collection file %s has invalid JSON: %v", filepath.Base(path), err)
		return false
	}
	return true
}
