package lifecycle

import (
	"context"

	"github.com/entrhq/bddrun/pkg/artifacts"
	"github.com/entrhq/bddrun/pkg/scenario"
)

// Session is the isolated browsing context owned by one attempt.
type Session interface {
	artifacts.Session

	// Alive reports whether the browser and the session's context are still
	// usable.
	Alive() bool
}

// SessionRequest describes the session an attempt needs.
type SessionRequest struct {
	Identity scenario.Identity

	// IgnoreHTTPSErrors is set for scenarios tagged to accept invalid
	// certificates.
	IgnoreHTTPSErrors bool

	// VideoDir receives the recorded video.
	VideoDir string
}

// SessionFactory opens one session per attempt over a browser shared by the
// whole suite.
type SessionFactory interface {
	NewSession(ctx context.Context, req SessionRequest) (Session, error)

	// Close releases the shared browser.
	Close() error
}
