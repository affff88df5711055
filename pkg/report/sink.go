package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/entrhq/bddrun/pkg/artifacts"
)

var (
	_ artifacts.Sink = (*DirSink)(nil)
	_ artifacts.Sink = (*MemorySink)(nil)
)

// DirSink stores attachments under <root>/attachments/<identity>/.
type DirSink struct {
	layout artifacts.Layout
}

// NewDirSink writes into the attachments directory of layout.
func NewDirSink(layout artifacts.Layout) *DirSink {
	return &DirSink{layout: layout}
}

// Attach writes data as <kind>-<name>.
func (s *DirSink) Attach(identity string, kind artifacts.Kind, name string, data []byte) error {
	dir := s.layout.AttachmentDir(identity)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create attachment directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s", kind, artifacts.PathSegment(name)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	return nil
}

// Attachment is one item recorded by a MemorySink.
type Attachment struct {
	Identity string
	Kind     artifacts.Kind
	Name     string
	Data     []byte
}

// MemorySink keeps attachments in memory.
type MemorySink struct {
	mu          sync.Mutex
	attachments []Attachment
}

// Attach records a copy of data.
func (s *MemorySink) Attach(identity string, kind artifacts.Kind, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, Attachment{
		Identity: identity,
		Kind:     kind,
		Name:     name,
		Data:     append([]byte(nil), data...),
	})
	return nil
}

// Attachments returns everything recorded so far.
func (s *MemorySink) Attachments() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attachment(nil), s.attachments...)
}
