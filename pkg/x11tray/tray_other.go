//go:build !linux && !freebsd && !openbsd && !netbsd && !dragonfly && !solaris && !illumos && !aix

// Package x11tray is a no-op outside Unix desktops, where the OS always provides a tray.
package x11tray

import "context"

// HealthCheck always succeeds.
func HealthCheck() error {
	return nil
}

// ProxyProcess is never started on this platform.
type ProxyProcess struct{}

// Stop does nothing.
func (*ProxyProcess) Stop() error {
	return nil
}

// TryProxy does nothing.
func TryProxy(context.Context) (*ProxyProcess, error) {
	return nil, nil //nolint:nilnil // no proxy on this platform
}

// EnsureTray does nothing.
func EnsureTray(context.Context) (*ProxyProcess, error) {
	return nil, nil //nolint:nilnil // no proxy on this platform
}

// ShowContextMenu does nothing; systray opens the menu natively here.
func ShowContextMenu() {}
