// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// ArtifactWriter owns the artifact tree under its base directory. No other
// component writes there.
type ArtifactWriter struct {
	baseDir string
}

// NewArtifactWriter returns a writer rooted at baseDir.
func NewArtifactWriter(baseDir string) *ArtifactWriter {
	return &ArtifactWriter{baseDir: baseDir}
}

// Path returns the deterministic destination for rec.
func (w *ArtifactWriter) Path(rec types.PaperRecord) string {
	return ArtifactPath(w.baseDir, rec)
}

// Exists reports whether rec already has an artifact.
func (w *ArtifactWriter) Exists(rec types.PaperRecord) (string, bool) {
	path := w.Path(rec)
	_, err := os.Stat(path)
	return path, err == nil
}

// Write stores data at rec's destination. If a file is already there it
// returns the path with written=false and leaves the filesystem untouched.
//
// The body goes to a temp file in the destination directory first and is
// then hard-linked into place, which fails if the destination appeared in
// the meantime, so readers never see a partial file and two writers cannot
// both place the same artifact. Filesystems without hard links fall back
// to rename.
func (w *ArtifactWriter) Write(rec types.PaperRecord, data []byte) (path string, written bool, err error) {
	path, exists := w.Exists(rec)
	if exists {
		return path, false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return "", false, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	_, writeErr := tmpFile.Write(data)
	if writeErr == nil {
		writeErr = tmpFile.Sync()
	}
	closeErr := tmpFile.Close()
	if writeErr != nil {
		return "", false, fmt.Errorf("writing artifact: %w", writeErr)
	}
	if closeErr != nil {
		return "", false, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", false, fmt.Errorf("setting artifact mode: %w", err)
	}

	linkErr := os.Link(tmpPath, path)
	switch {
	case linkErr == nil:
		return path, true, nil
	case errors.Is(linkErr, os.ErrExist):
		return path, false, nil
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return "", false, fmt.Errorf("placing artifact: %w", err)
	}
	return path, true, nil
}
