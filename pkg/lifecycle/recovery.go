package lifecycle

import "os"

// recoverOrphan repairs the state left by an attempt that started but never
// reached OnScenarioEnd. Trace and screenshot directories are only written on
// the terminal path, so only the log and video directories are removed.
// Failures are logged; recovery never blocks the next attempt.
func (o *Orchestrator) recoverOrphan() {
	point, orphaned := o.state.Recovery()
	if !orphaned {
		return
	}

	o.log.Warnf("Previous attempt %q did not complete, repairing state", point.ArtifactDir)

	if point.ArtifactDir != "" {
		for _, dir := range []string{
			o.layout.LogDir(point.ArtifactDir),
			o.layout.VideoDir(point.ArtifactDir),
		} {
			if err := os.RemoveAll(dir); err != nil {
				o.log.Warnf("Failed to remove %s: %v", dir, err)
			}
		}
	}

	if point.RetryKey != "" {
		o.state.Decrement(point.RetryKey)
	}

	if err := o.state.ClearRecovery(); err != nil {
		o.log.Warnf("Failed to clear recovery flags: %v", err)
	}

	o.metrics.OrphanRecovered()
	o.narrator.OrphanRecovered(point)
}
