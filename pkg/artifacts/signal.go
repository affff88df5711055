package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// BuildSignalContent is written into the sentinel file.
const BuildSignalContent = "failed"

// BuildSignal is a sentinel file created the first time a scenario exhausts
// its retries. CI reads it to fail the pipeline independently of the runner
// exit code.
type BuildSignal struct {
	path string
}

// NewBuildSignal creates an emitter for the sentinel at path.
func NewBuildSignal(path string) *BuildSignal {
	return &BuildSignal{path: path}
}

// Path returns the sentinel path.
func (s *BuildSignal) Path() string {
	return s.path
}

// Emit creates the sentinel unless it already exists. It reports whether
// this call created it. An existing file is never overwritten.
func (s *BuildSignal) Emit() (bool, error) {
	if s.Exists() {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create build signal directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create build signal: %w", err)
	}

	if _, err := f.WriteString(BuildSignalContent); err != nil {
		f.Close()
		return false, fmt.Errorf("failed to write build signal: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to close build signal: %w", err)
	}
	return true, nil
}

// Exists reports whether the sentinel is present.
func (s *BuildSignal) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Reset removes a sentinel left by a previous run.
func (s *BuildSignal) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove build signal: %w", err)
	}
	return nil
}
