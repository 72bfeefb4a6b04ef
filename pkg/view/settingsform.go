package view

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"strings"

	"github.com/lifelog-system/desktop-viewer/pkg/settings"
)

// Message kinds shown under the settings form.
const (
	kindSuccess = "success"
	kindError   = "error"
)

// SettingsForm drives the settings page.
type SettingsForm struct {
	api     API
	bridge  Bridge
	doc     *Document
	render  *renderer
	resolve func(settings.Theme) string
}

type settingsData struct {
	Message     string
	Kind        string
	Form        settings.Form
	Themes      []settings.Theme
	MinInterval int
	MaxInterval int
}

// Load returns the form filled from the stored settings.
func (f *SettingsForm) Load() settings.Form {
	return settings.FormFrom(f.bridge.GetSettings())
}

// Submit validates and saves the form. Invalid input is reported as a notification
// and nothing is saved. On success the client base URL and the theme are applied
// even when unchanged.
func (f *SettingsForm) Submit(ctx context.Context, form settings.Form) error {
	s, err := settings.ParseForm(form)
	if err != nil {
		var verr *settings.ValidationError
		msg := err.Error()
		if errors.As(err, &verr) {
			msg = verr.Message
		}
		slog.Info("[VIEW] Settings form rejected", "error", err)
		f.bridge.ShowNotification("Error", msg)
		f.show(form, msg, kindError)
		return err
	}

	result, err := f.bridge.SaveSettings(ctx, s)
	if err != nil || !result.Success {
		if err == nil {
			err = errors.New(result.Error)
		}
		slog.Error("[VIEW] Saving settings failed", "error", err)
		f.bridge.ShowNotification("Error", "Failed to save settings")
		f.show(form, "Failed to save settings", kindError)
		return err
	}

	f.api.SetBaseURL(s.APIEndpoint)
	f.bridge.ShowNotification("Success", "Settings saved")
	f.doc.SetTheme(f.resolve(s.Theme))
	f.show(settings.FormFrom(s), "Settings saved", kindSuccess)
	return nil
}

// TestConnection probes endpoint, the form's current value rather than the saved one.
// The client keeps its configured base URL whatever the outcome.
func (f *SettingsForm) TestConnection(ctx context.Context, endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		f.bridge.ShowNotification("Error", "Enter an API endpoint")
		return false
	}

	ok := f.api.Probe(ctx, endpoint)
	if ok {
		slog.Info("[VIEW] Connection test succeeded", "endpoint", endpoint)
		f.bridge.ShowNotification("Success", "API connection test succeeded")
	} else {
		slog.Info("[VIEW] Connection test failed", "endpoint", endpoint)
		f.bridge.ShowNotification("Error", "API connection test failed. Check the endpoint.")
	}
	return ok
}

func (f *SettingsForm) show(form settings.Form, message, kind string) {
	html, err := f.html(form, message, kind)
	if err != nil {
		slog.Error("[VIEW] Rendering settings form failed", "error", err)
		return
	}
	f.doc.SetContent(PageSettings, html)
}

func (f *SettingsForm) html(form settings.Form, message, kind string) (template.HTML, error) {
	return f.render.render("settings", settingsData{
		Form:        form,
		Message:     message,
		Kind:        kind,
		Themes:      []settings.Theme{settings.ThemeSystem, settings.ThemeLight, settings.ThemeDark},
		MinInterval: settings.MinUpdateIntervalSeconds,
		MaxInterval: settings.MaxUpdateIntervalSeconds,
	})
}
