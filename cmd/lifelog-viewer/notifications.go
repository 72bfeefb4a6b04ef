package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gen2brain/beeep"

	"github.com/lifelog-system/desktop-viewer/pkg/shell"
)

// desktopNotifier shows notifications through the platform notification service.
type desktopNotifier struct {
	notify func(title, message string, icon any) error
	goos   string
}

func newDesktopNotifier() *desktopNotifier {
	return &desktopNotifier{notify: beeep.Notify, goos: runtime.GOOS}
}

// Notify implements shell.Notifier.
func (n *desktopNotifier) Notify(title, body string) error {
	switch n.goos {
	case "darwin", "linux", "freebsd", "netbsd", "openbsd", "windows":
	default:
		return shell.ErrNotificationUnsupported
	}

	slog.Debug("[NOTIFY] Sending desktop notification", "title", title)
	if err := n.notify(title, body, ""); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
