// Package shell implements the privileged operations the view may invoke: reading and
// saving settings, showing notifications and minimizing to the tray.
package shell

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lifelog-system/desktop-viewer/pkg/ipc"
	"github.com/lifelog-system/desktop-viewer/pkg/settings"
)

// ErrNotificationUnsupported is returned by a Notifier on platforms without desktop notifications.
var ErrNotificationUnsupported = errors.New("notifications are not supported on this platform")

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// Timer is the refresh timer restarted on every save.
type Timer interface {
	Restart(interval time.Duration) error
}

// Minimizer hides the main window to the tray.
type Minimizer interface {
	Hide()
}

// Shell serves the view's requests.
type Shell struct {
	store    *settings.Store
	timer    Timer
	signals  *ipc.Signals
	notifier Notifier
	window   Minimizer
	mu       sync.Mutex
}

// New wires a Shell. window may be set later with SetWindow.
func New(store *settings.Store, timer Timer, signals *ipc.Signals, notifier Notifier) *Shell {
	return &Shell{store: store, timer: timer, signals: signals, notifier: notifier}
}

// SetWindow sets the window hidden by MinimizeToTray.
func (s *Shell) SetWindow(w Minimizer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = w
}

// GetSettings returns the stored settings.
func (s *Shell) GetSettings() settings.Settings {
	return s.store.Get()
}

// SaveSettings persists every field, restarts the refresh timer with the saved interval
// and announces the theme. The timer restart and the theme signal happen on every save,
// whether or not the values changed. Invalid settings are rejected before anything is written.
func (s *Shell) SaveSettings(_ context.Context, next settings.Settings) (ipc.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(next); err != nil {
		slog.Warn("[SHELL] Rejected settings save", "error", err)
		return ipc.Failed(err), err
	}
	s.applyLocked(next)
	return ipc.OK(), nil
}

// ApplyExternal applies settings that changed on disk outside the app, exactly as a save would.
func (s *Shell) ApplyExternal(next settings.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Info("[SHELL] Applying settings edited on disk")
	s.applyLocked(next)
}

func (s *Shell) applyLocked(next settings.Settings) {
	if err := s.timer.Restart(next.Interval()); err != nil {
		slog.Error("[SHELL] Failed to restart refresh timer", "interval", next.Interval(), "error", err)
	}
	s.signals.ThemeChanged.Publish(string(next.Theme))
}

// ShowNotification displays a desktop notification. Notifications are best effort:
// when disabled or unsupported the message is logged and dropped, never queued.
func (s *Shell) ShowNotification(title, body string) ipc.Result {
	if !s.store.Get().NotificationsEnabled {
		slog.Debug("[NOTIFY] Notifications disabled, dropping", "title", title, "body", body)
		return ipc.OK()
	}
	if s.notifier == nil {
		slog.Debug("[NOTIFY] No notifier configured, dropping", "title", title)
		return ipc.OK()
	}

	if err := s.notifier.Notify(title, body); err != nil {
		if errors.Is(err, ErrNotificationUnsupported) {
			slog.Debug("[NOTIFY] Notifications unsupported, dropping", "title", title, "body", body)
		} else {
			slog.Warn("[NOTIFY] Failed to show notification", "title", title, "error", err)
		}
		return ipc.OK()
	}
	slog.Debug("[NOTIFY] Shown", "title", title)
	return ipc.OK()
}

// MinimizeToTray hides the main window, if there is one.
func (s *Shell) MinimizeToTray() ipc.Result {
	s.mu.Lock()
	w := s.window
	s.mu.Unlock()

	if w != nil {
		w.Hide()
	}
	return ipc.OK()
}
