//go:build linux || freebsd || openbsd || netbsd || dragonfly || solaris || illumos || aix

// Package x11tray makes sure a StatusNotifierItem host is present on Unix desktops,
// starting the snixembed proxy for legacy X11 trays when it is not.
package x11tray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/godbus/dbus/v5"
)

const (
	statusNotifierWatcher = "org.kde.StatusNotifierWatcher"
	proxyBinary           = "snixembed"
	proxyWaitAttempts     = 10
	proxyWaitDelay        = 200 * time.Millisecond
)

// ErrNoTray is returned when no StatusNotifierWatcher is registered on the session bus.
var ErrNoTray = errors.New("no system tray host on the session bus")

func busNames() ([]string, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to D-Bus session bus: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("[TRAY] Failed to close D-Bus connection", "error", err)
		}
	}()

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("list D-Bus names: %w", err)
	}
	return names, nil
}

// HealthCheck returns nil when a tray host is available.
func HealthCheck() error {
	names, err := busNames()
	if err != nil {
		return err
	}
	if slices.Contains(names, statusNotifierWatcher) {
		return nil
	}
	return ErrNoTray
}

// ProxyProcess is a running snixembed.
type ProxyProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// Stop terminates the proxy.
func (p *ProxyProcess) Stop() error {
	if p == nil {
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	return nil
}

// TryProxy starts snixembed and waits for it to register the tray host.
func TryProxy(ctx context.Context) (*ProxyProcess, error) {
	path, err := exec.LookPath(proxyBinary)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH (install it with your package manager): %w", proxyBinary, err)
	}
	slog.Info("[TRAY] Starting tray proxy", "path", path)

	proxyCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(proxyCtx, path)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", proxyBinary, err)
	}
	proxy := &ProxyProcess{cmd: cmd, cancel: cancel}

	err = retry.Do(HealthCheck,
		retry.Attempts(proxyWaitAttempts),
		retry.Delay(proxyWaitDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
	)
	if err != nil {
		if stopErr := proxy.Stop(); stopErr != nil {
			slog.Debug("[TRAY] Failed to stop proxy", "error", stopErr)
		}
		return nil, fmt.Errorf("%s started but tray still unavailable: %w", proxyBinary, err)
	}

	slog.Info("[TRAY] Tray proxy ready")
	return proxy, nil
}

// EnsureTray returns nil, nil when a native tray host exists, otherwise starts the proxy.
// A returned proxy must be stopped on exit.
func EnsureTray(ctx context.Context) (*ProxyProcess, error) {
	if err := HealthCheck(); err == nil {
		slog.Debug("[TRAY] Native tray host available")
		return nil, nil //nolint:nilnil // no proxy needed
	}

	slog.Warn("[TRAY] No tray host found, trying proxy")
	proxy, err := TryProxy(ctx)
	if err != nil {
		return nil, fmt.Errorf("system tray unavailable: %w", err)
	}
	return proxy, nil
}

// ShowContextMenu asks our StatusNotifierItem to open its menu. On these platforms the
// systray click callbacks get no menu handle, so the menu has to be requested over D-Bus.
func ShowContextMenu() {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		slog.Warn("[TRAY] Failed to connect to session bus", "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("[TRAY] Failed to close D-Bus connection", "error", err)
		}
	}()

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		slog.Warn("[TRAY] Failed to list D-Bus names", "error", err)
		return
	}

	prefix := fmt.Sprintf("org.kde.StatusNotifierItem-%d-", os.Getpid())
	idx := slices.IndexFunc(names, func(n string) bool { return strings.HasPrefix(n, prefix) })
	if idx < 0 {
		slog.Warn("[TRAY] StatusNotifierItem not registered", "prefix", prefix)
		return
	}

	obj := conn.Object(names[idx], "/StatusNotifierItem")
	for _, method := range []string{"org.kde.StatusNotifierItem.ContextMenu", "org.kde.StatusNotifierItem.SecondaryActivate"} {
		call := obj.Call(method, 0, int32(0), int32(0))
		if call.Err == nil {
			slog.Debug("[TRAY] Context menu requested", "method", method)
			return
		}
		slog.Debug("[TRAY] Context menu method failed", "method", method, "error", call.Err)
	}
	slog.Warn("[TRAY] Could not open context menu over D-Bus; right-click still works")
}
