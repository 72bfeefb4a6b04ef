package main

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/energye/systray"

	"github.com/lifelog-system/desktop-viewer/pkg/icon"
	"github.com/lifelog-system/desktop-viewer/pkg/view"
	"github.com/lifelog-system/desktop-viewer/pkg/x11tray"
)

// Tray menu labels, top to bottom.
const (
	menuOpenDashboard = "Open dashboard"
	menuRefresh       = "Refresh now"
	menuSettings      = "Settings"
	menuQuit          = "Quit"
)

const trayTitle = "Lifelog Viewer"

// setupTray installs the menu, click handlers and the initial icon.
func (app *App) setupTray() {
	app.buildMenu()

	app.systrayInterface.SetOnClick(func(menu systray.IMenu) {
		slog.Debug("[TRAY] Icon clicked")
		app.showMenu(menu)
	})
	app.systrayInterface.SetOnRClick(func(menu systray.IMenu) {
		slog.Debug("[TRAY] Right click detected")
		app.showMenu(menu)
	})
	app.systrayInterface.SetOnDClick(func(systray.IMenu) {
		slog.Debug("[TRAY] Double click, toggling window")
		_ = safeExecute("toggle window", app.window.ToggleVisibility) //nolint:errcheck // logged by safeExecute
	})

	app.setStatus(icon.Idle, "", nil)
}

// buildMenu builds the fixed tray menu.
func (app *App) buildMenu() {
	st := app.systrayInterface
	st.ResetMenu()

	st.AddMenuItem(menuOpenDashboard, "Show the viewer window").Click(func() {
		slog.Info("[TRAY] Open dashboard clicked")
		_ = safeExecute("open dashboard", app.window.OpenDashboard) //nolint:errcheck // logged by safeExecute
	})

	st.AddMenuItem(menuRefresh, "Reload the current page").Click(func() {
		slog.Info("[TRAY] Refresh clicked")
		_ = safeExecute("refresh now", func() error { //nolint:errcheck // logged by safeExecute
			app.refreshNow()
			return nil
		})
	})

	st.AddMenuItem(menuSettings, "Open the settings page").Click(func() {
		slog.Info("[TRAY] Settings clicked")
		_ = safeExecute("open settings", app.openSettings) //nolint:errcheck // logged by safeExecute
	})

	st.AddSeparator()

	st.AddMenuItem(menuQuit, "Quit Lifelog Viewer").Click(func() {
		slog.Info("[TRAY] Quit clicked")
		_ = safeExecute("quit", func() error { //nolint:errcheck // logged by safeExecute
			app.window.Quit()
			return nil
		})
	})
}

// showMenu opens the context menu. On Linux the click callbacks get no menu handle
// and the menu is requested from the tray host instead.
func (app *App) showMenu(menu systray.IMenu) {
	if menu != nil {
		if err := menu.ShowMenu(); err != nil {
			slog.Error("[TRAY] Failed to show menu", "error", err)
		}
		return
	}
	if runtime.GOOS == "linux" {
		x11tray.ShowContextMenu()
	}
}

// refreshNow forces a reload of the visible page and tells the user about it.
func (app *App) refreshNow() {
	app.signals.ForceRefresh.Publish(struct{}{})
	app.shell.ShowNotification("Updating", "Refreshing data...")
}

// openSettings shows the window and switches it to the settings page.
func (app *App) openSettings() error {
	if err := app.window.OpenDashboard(); err != nil {
		return err
	}
	app.signals.NavigateTo.Publish(string(view.PageSettings))
	return nil
}

// setStatus updates the tray icon and tooltip for the outcome of a page load.
func (app *App) setStatus(status icon.Status, page view.Page, err error) {
	iconBytes, iconErr := app.icons.Get(status)
	if iconErr != nil {
		slog.Warn("[TRAY] Failed to render status icon", "status", status, "error", iconErr)
	} else {
		app.systrayInterface.SetIcon(iconBytes)
	}
	app.systrayInterface.SetTooltip(app.tooltip(status, page, err))
}

func (app *App) tooltip(status icon.Status, page view.Page, err error) string {
	last := "--"
	if t := app.router.Document().LastUpdated(); !t.IsZero() {
		last = view.FormatTime(t)
	}
	switch status {
	case icon.Loading:
		return fmt.Sprintf("%s - Refreshing %s...", trayTitle, strings.ToLower(page.Title()))
	case icon.Error:
		slog.Debug("[TRAY] Showing load failure", "page", page, "error", err)
		return fmt.Sprintf("%s - Failed to load %s (last updated %s)", trayTitle, strings.ToLower(page.Title()), last)
	case icon.OK:
		return fmt.Sprintf("%s - Last updated %s", trayTitle, last)
	default:
		return trayTitle
	}
}
