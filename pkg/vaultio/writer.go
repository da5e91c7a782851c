// Package vaultio implements the stepengine.Writer contract against the
// real filesystem: reads are vault-relative path lookups; writes are
// write-temp-then-rename so a crash mid-write never leaves a half-written
// workflow output behind (SPEC_FULL.md's "Atomic file writes"), grounded on
// the teacher's own temp-file-then-os.Rename pattern in
// pkg/cli/logs_download.go.
package vaultio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("vaultio:writer")

// FileWriter resolves vault-relative paths against a data root directory
// containing one subdirectory per vault (the layout pkg/vault.DiscoverVaults
// scans).
type FileWriter struct {
	DataRoot string
}

// New returns a FileWriter rooted at dataRoot.
func New(dataRoot string) *FileWriter {
	return &FileWriter{DataRoot: dataRoot}
}

func (w *FileWriter) fullPath(vault, relPath string) string {
	return filepath.Join(w.DataRoot, vault, relPath)
}

// Read returns the content at vault/relPath, or an error if it doesn't exist.
func (w *FileWriter) Read(vault, relPath string) (string, error) {
	data, err := os.ReadFile(w.fullPath(vault, relPath))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write atomically replaces (or creates) vault/relPath with content:
// written to a sibling temp file first, then renamed into place, so
// concurrent readers never observe a partial write.
func (w *FileWriter) Write(vault, relPath, content string) error {
	full := w.fullPath(vault, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("vaultio: creating %s: %w", filepath.Dir(full), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("vaultio: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("vaultio: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vaultio: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vaultio: renaming into place: %w", err)
	}
	log.Printf("wrote %s/%s (%d bytes)", vault, relPath, len(content))
	return nil
}
