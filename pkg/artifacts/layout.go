// Package artifacts files the by-products of a scenario attempt (logs,
// videos, traces, screenshots) under a results root and emits the build
// signal consumed by CI.
package artifacts

import (
	"path/filepath"
	"strings"
)

// Fixed names under the results root.
const (
	LogsDir           = "logs"
	VideosDir         = "videos"
	TracesDir         = "traces"
	ScreenshotsDir    = "screenshots"
	AttachmentsDir    = "attachments"
	FailedDir         = "failed"
	StateDir          = ".bddrun"
	LogFileName       = "log.log"
	PassedResultsFile = "passed-scenarios.json"
	BuildSignalFile   = "buildSignal.txt"
	StateFileName     = "state.json"
)

// Layout resolves artifact paths under a results root.
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

// LogDir is logs/<identity>.
func (l Layout) LogDir(identity string) string {
	return filepath.Join(l.Root, LogsDir, PathSegment(identity))
}

// LogFile is logs/<identity>/log.log.
func (l Layout) LogFile(identity string) string {
	return filepath.Join(l.LogDir(identity), LogFileName)
}

// VideoDir is videos/<identity>.
func (l Layout) VideoDir(identity string) string {
	return filepath.Join(l.Root, VideosDir, PathSegment(identity))
}

// TraceFile is traces/<identity>/<template>.
func (l Layout) TraceFile(identity, template string) string {
	return filepath.Join(l.Root, TracesDir, PathSegment(identity), PathSegment(template))
}

// Screenshot is screenshots/<template>.png. Scenarios sharing a template
// name overwrite each other's screenshot.
func (l Layout) Screenshot(template string) string {
	return filepath.Join(l.Root, ScreenshotsDir, PathSegment(template)+".png")
}

// AttachmentDir is attachments/<identity>.
func (l Layout) AttachmentDir(identity string) string {
	return filepath.Join(l.Root, AttachmentsDir, PathSegment(identity))
}

// PassedResults is passed-scenarios.json.
func (l Layout) PassedResults() string {
	return filepath.Join(l.Root, PassedResultsFile)
}

// FailedResultsDir is failed/.
func (l Layout) FailedResultsDir() string {
	return filepath.Join(l.Root, FailedDir)
}

// BuildSignal is buildSignal.txt.
func (l Layout) BuildSignal() string {
	return filepath.Join(l.Root, BuildSignalFile)
}

// StateFile holds the global data bag.
func (l Layout) StateFile() string {
	return filepath.Join(l.Root, StateDir, StateFileName)
}

// PathSegment makes name usable as a single path element. Separators are
// replaced and the relative names "." and ".." are neutralised; every other
// character is kept so directory names stay traceable to scenario names.
func PathSegment(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	switch name {
	case "", ".", "..":
		return strings.Repeat("_", len(name)+1)
	}
	return name
}
