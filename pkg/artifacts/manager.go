package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/entrhq/bddrun/pkg/scenario"
)

// Kind labels an attachment handed to a Sink.
type Kind string

const (
	KindScreenshot Kind = "screenshot"
	KindTrace      Kind = "trace"
	KindVideo      Kind = "video"
	KindDOM        Kind = "dom"
)

// Session is the part of an attempt's browser session the manager needs.
type Session interface {
	Screenshot(path string) ([]byte, error)
	VideoPath() (string, error)
	StopTrace(path string) error
	Close() error
}

// DOMSource is implemented by sessions that can snapshot the page markup.
// Failed attempts attach the snapshot.
type DOMSource interface {
	DOMSnapshot() ([]byte, error)
}

// Sink receives captured artifacts as they are produced.
type Sink interface {
	Attach(identity string, kind Kind, name string, data []byte) error
}

// Logger is the logging surface used while capturing.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// Outcome tells the manager how the attempt ended.
type Outcome struct {
	Identity scenario.Identity
	Passed   bool
	Final    bool
}

// Capture records what was produced for one attempt.
type Capture struct {
	Screenshot string
	Video      string
	Trace      string

	// SignalEmitted is true when this attempt created the build signal.
	SignalEmitted bool

	// Errors collects capture failures. They are informational only.
	Errors []error
}

// Manager captures end-of-attempt artifacts and releases the session.
type Manager struct {
	layout Layout
	signal *BuildSignal
	sink   Sink
}

// NewManager creates a manager. sink may be nil.
func NewManager(layout Layout, signal *BuildSignal, sink Sink) *Manager {
	return &Manager{
		layout: layout,
		signal: signal,
		sink:   sink,
	}
}

// Capture takes the screenshot, resolves the video (passed) or snapshots the
// page and fires the build signal on a final failure, stops the trace and closes the session.
// The session is closed on every path. Failures are logged and returned in
// Capture.Errors; they never abort the suite.
//
// s may be nil when the session could not be created; only the build signal
// is handled then.
func (m *Manager) Capture(s Session, o Outcome, log Logger) (c Capture) {
	id := o.Identity

	if s == nil {
		if !o.Passed && o.Final {
			m.emitSignal(log, &c)
		}
		return c
	}

	defer func() {
		if err := s.Close(); err != nil {
			c.Errors = append(c.Errors, fmt.Errorf("close session: %w", err))
			log.Warnf("Failed to close session for %s: %v", id.Name, err)
		}
	}()

	c.Screenshot = m.screenshot(s, id, log, &c)

	if o.Passed {
		video, err := s.VideoPath()
		if err != nil {
			c.Errors = append(c.Errors, fmt.Errorf("resolve video: %w", err))
			log.Warnf("Failed to resolve video for %s: %v", id.Name, err)
		} else {
			c.Video = video
			log.Infof("Video recorded at %s", video)
		}
	} else {
		m.domSnapshot(s, id, log, &c)
		if o.Final {
			m.emitSignal(log, &c)
		}
	}

	trace := m.layout.TraceFile(id.Name, id.Template)
	if err := os.MkdirAll(filepath.Dir(trace), 0755); err != nil {
		c.Errors = append(c.Errors, fmt.Errorf("create trace directory: %w", err))
		log.Warnf("Failed to create trace directory: %v", err)
	} else if err := s.StopTrace(trace); err != nil {
		c.Errors = append(c.Errors, fmt.Errorf("stop trace: %w", err))
		log.Warnf("Failed to stop trace for %s: %v", id.Name, err)
	} else {
		c.Trace = trace
		if !o.Passed {
			m.attachFile(id.Name, KindTrace, trace, log)
		}
	}

	return c
}

func (m *Manager) emitSignal(log Logger, c *Capture) {
	if m.signal == nil {
		return
	}
	created, err := m.signal.Emit()
	if err != nil {
		c.Errors = append(c.Errors, fmt.Errorf("emit build signal: %w", err))
		log.Warnf("Failed to emit build signal: %v", err)
	}
	c.SignalEmitted = created
	if created {
		log.Infof("Build signal written to %s", m.signal.Path())
	}
}

func (m *Manager) screenshot(s Session, id scenario.Identity, log Logger, c *Capture) string {
	path := m.layout.Screenshot(id.Template)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.Errors = append(c.Errors, fmt.Errorf("create screenshot directory: %w", err))
		log.Warnf("Failed to create screenshot directory: %v", err)
		return ""
	}

	data, err := s.Screenshot(path)
	if err != nil {
		c.Errors = append(c.Errors, fmt.Errorf("screenshot: %w", err))
		log.Warnf("Failed to capture screenshot for %s: %v", id.Name, err)
		return ""
	}

	m.attach(id.Name, KindScreenshot, filepath.Base(path), data, log)
	return path
}

func (m *Manager) domSnapshot(s Session, id scenario.Identity, log Logger, c *Capture) {
	src, ok := s.(DOMSource)
	if !ok || m.sink == nil {
		return
	}
	data, err := src.DOMSnapshot()
	if err != nil {
		c.Errors = append(c.Errors, fmt.Errorf("dom snapshot: %w", err))
		log.Warnf("Failed to snapshot page for %s: %v", id.Name, err)
		return
	}
	m.attach(id.Name, KindDOM, PathSegment(id.Template)+".html", data, log)
}

func (m *Manager) attachFile(identity string, kind Kind, path string, log Logger) {
	if m.sink == nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("Failed to read %s for attachment: %v", kind, err)
		return
	}
	m.attach(identity, kind, filepath.Base(path), data, log)
}

func (m *Manager) attach(identity string, kind Kind, name string, data []byte, log Logger) {
	if m.sink == nil || len(data) == 0 {
		return
	}
	if err := m.sink.Attach(identity, kind, name, data); err != nil {
		log.Warnf("Failed to attach %s: %v", kind, err)
	}
}
