// Package lifecycle implements the window/tray state machine: one main window that
// hides on close, and a quitting flag that is the only way to let it really close.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// State is the visibility of the main window.
type State int

// Window states.
const (
	StateNone State = iota
	StateHidden
	StateVisible
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateHidden:
		return "hidden"
	case StateVisible:
		return "visible"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Window is the main window surface. Implementations must not call back into the
// Controller from these methods.
type Window interface {
	Show()
	Hide()
	Focus()
	Destroy()
}

// Factory creates the main window.
type Factory func() (Window, error)

// Options tunes platform behavior.
type Options struct {
	// QuitWhenAllWindowsClosed ends the process when the last window goes away instead
	// of staying in the tray.
	QuitWhenAllWindowsClosed bool
}

// ErrQuitting is returned when a window operation is requested during shutdown.
var ErrQuitting = errors.New("application is quitting")

// Controller owns the single main window and the quitting flag.
type Controller struct {
	window   Window
	factory  Factory
	onQuit   func()
	opts     Options
	state    State
	mu       sync.Mutex
	quitting bool
	quitOnce sync.Once
}

// New creates a controller. onQuit is invoked once, after the quitting flag is set.
func New(factory Factory, onQuit func(), opts Options) *Controller {
	return &Controller{factory: factory, onQuit: onQuit, opts: opts}
}

// Start creates the main window, visible unless startMinimized is set.
func (c *Controller) Start(startMinimized bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureWindowLocked(); err != nil {
		return err
	}
	if startMinimized {
		slog.Info("[WINDOW] Starting minimized to tray")
		c.window.Hide()
		c.state = StateHidden
		return nil
	}
	c.window.Show()
	c.state = StateVisible
	return nil
}

// HandleClose is called when the window is asked to close. Unless the app is quitting,
// the close is suppressed and the window hidden. It reports whether the close may proceed.
func (c *Controller) HandleClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.quitting {
		if c.window != nil {
			c.window.Hide()
			c.state = StateHidden
		}
		slog.Info("[WINDOW] Close suppressed, window hidden to tray")
		return false
	}

	c.destroyLocked()
	return true
}

// OpenDashboard shows and focuses the window, recreating it if it was destroyed.
func (c *Controller) OpenDashboard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showLocked()
}

// ToggleVisibility hides a visible window and shows a hidden or missing one.
func (c *Controller) ToggleVisibility() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateVisible {
		c.window.Hide()
		c.state = StateHidden
		slog.Debug("[WINDOW] Toggled to hidden")
		return nil
	}
	return c.showLocked()
}

// Hide minimizes the window to the tray.
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.window == nil {
		return
	}
	c.window.Hide()
	c.state = StateHidden
}

// AllWindowsClosed applies the configured policy once no window remains.
// By default the process keeps running in the tray.
func (c *Controller) AllWindowsClosed() {
	if c.opts.QuitWhenAllWindowsClosed {
		slog.Info("[WINDOW] All windows closed, quitting")
		c.Quit()
		return
	}
	slog.Debug("[WINDOW] All windows closed, staying in tray")
}

// Quit sets the quitting flag, lets the window close and invokes the quit hook.
func (c *Controller) Quit() {
	c.quitOnce.Do(func() {
		c.mu.Lock()
		c.quitting = true
		c.destroyLocked()
		c.mu.Unlock()

		slog.Info("[WINDOW] Quitting")
		if c.onQuit != nil {
			c.onQuit()
		}
	})
}

// State returns the current window visibility.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Quitting reports whether Quit has been called.
func (c *Controller) Quitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quitting
}

func (c *Controller) showLocked() error {
	if c.quitting {
		return ErrQuitting
	}
	if err := c.ensureWindowLocked(); err != nil {
		return err
	}
	c.window.Show()
	c.window.Focus()
	c.state = StateVisible
	return nil
}

func (c *Controller) ensureWindowLocked() error {
	if c.window != nil {
		return nil
	}
	w, err := c.factory()
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	c.window = w
	c.state = StateHidden
	slog.Debug("[WINDOW] Window created")
	return nil
}

func (c *Controller) destroyLocked() {
	if c.window == nil {
		return
	}
	c.window.Destroy()
	c.window = nil
	c.state = StateNone
	slog.Debug("[WINDOW] Window destroyed")
}
