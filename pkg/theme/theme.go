// Package theme turns the theme setting into the light or dark scheme to draw with.
package theme

import (
	"log/slog"

	"github.com/lifelog-system/desktop-viewer/pkg/settings"
)

// Schemes.
const (
	Light = "light"
	Dark  = "dark"
)

// Resolve returns Light or Dark. The system setting follows the desktop preference and
// falls back to Light when it cannot be read.
func Resolve(t settings.Theme) string {
	switch t {
	case settings.ThemeDark:
		return Dark
	case settings.ThemeLight:
		return Light
	default:
		dark, err := systemPrefersDark()
		if err != nil {
			slog.Debug("[THEME] Could not read system color scheme", "error", err)
			return Light
		}
		if dark {
			return Dark
		}
		return Light
	}
}
