//go:build linux || freebsd || openbsd || netbsd || dragonfly || solaris || illumos || aix

package theme

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalRead      = "org.freedesktop.portal.Settings.Read"
	appearanceNS    = "org.freedesktop.appearance"
	colorSchemeKey  = "color-scheme"
	colorSchemeDark = 1
)

// systemPrefersDark asks the XDG desktop portal for the color-scheme preference.
func systemPrefersDark() (bool, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return false, fmt.Errorf("connect to D-Bus session bus: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("[THEME] Failed to close D-Bus connection", "error", err)
		}
	}()

	var reply dbus.Variant
	obj := conn.Object(portalService, dbus.ObjectPath(portalPath))
	if err := obj.Call(portalRead, 0, appearanceNS, colorSchemeKey).Store(&reply); err != nil {
		return false, fmt.Errorf("read %s.%s: %w", appearanceNS, colorSchemeKey, err)
	}
	return schemeIsDark(reply.Value())
}

// schemeIsDark decodes the portal reply, which arrives as a uint32 wrapped in one or two variants.
func schemeIsDark(v any) (bool, error) {
	for range 2 {
		inner, ok := v.(dbus.Variant)
		if !ok {
			break
		}
		v = inner.Value()
	}
	scheme, ok := v.(uint32)
	if !ok {
		return false, fmt.Errorf("unexpected color-scheme value %T", v)
	}
	return scheme == colorSchemeDark, nil
}
