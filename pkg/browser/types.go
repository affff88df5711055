package browser

import (
	"fmt"
	"strconv"
	"strings"
)

// Engine names a Playwright browser engine.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebKit   Engine = "webkit"
)

// Default values for the factory.
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// ViewportScreen fits the page to the available screen instead of a
	// fixed size.
	ViewportScreen = "screen"
)

// Options configures the shared browser and the sessions opened on it.
type Options struct {
	// Engine selects the browser to launch
	Engine Engine

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport is "screen" or a fixed "WIDTHxHEIGHT" size
	Viewport string

	// Timeout sets the default timeout for page operations (in milliseconds)
	Timeout float64

	// SkipInstall skips downloading the driver and browsers before launch
	SkipInstall bool
}

// Viewport represents the browser viewport dimensions. A zero value means
// the page follows the window size.
type Viewport struct {
	Width  int
	Height int
}

// Screen reports whether the viewport follows the screen.
func (v Viewport) Screen() bool {
	return v.Width == 0 && v.Height == 0
}

// ParseViewport parses "screen" or "WIDTHxHEIGHT". An empty string yields
// the default fixed size.
func ParseViewport(s string) (Viewport, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}, nil
	case ViewportScreen:
		return Viewport{}, nil
	}

	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Viewport{}, fmt.Errorf("invalid viewport %q: expected %q or WIDTHxHEIGHT", s, ViewportScreen)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport height %q", h)
	}
	return Viewport{Width: width, Height: height}, nil
}

// ParseEngine validates an engine name; empty selects chromium.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EngineChromium, nil
	case EngineChromium, EngineFirefox, EngineWebKit:
		return e, nil
	default:
		return "", fmt.Errorf("unsupported browser %q (want chromium, firefox or webkit)", s)
	}
}
