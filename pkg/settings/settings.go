// Package settings provides the typed user configuration for the viewer along with
// its defaults, validation rules and on-disk store.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Theme selects the color scheme of the window.
type Theme string

// Supported themes.
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

const (
	// DefaultAPIEndpoint is the viewer service address used until the user changes it.
	DefaultAPIEndpoint = "http://localhost:8000"

	// DefaultUpdateInterval is the refresh cadence in milliseconds (5 minutes).
	DefaultUpdateInterval int64 = 300_000

	// MinUpdateIntervalSeconds is the smallest interval the settings form accepts.
	MinUpdateIntervalSeconds = 60

	// MinUpdateInterval is MinUpdateIntervalSeconds expressed in milliseconds.
	MinUpdateInterval = int64(MinUpdateIntervalSeconds * 1000)

	// MaxUpdateIntervalSeconds is the largest interval accepted (24 hours).
	MaxUpdateIntervalSeconds = 24 * 60 * 60

	// MaxUpdateInterval is MaxUpdateIntervalSeconds expressed in milliseconds.
	MaxUpdateInterval = int64(MaxUpdateIntervalSeconds * 1000)
)

func intervalError() *ValidationError {
	return &ValidationError{
		Field:   "updateInterval",
		Message: fmt.Sprintf("update interval must be between %d and %d seconds", MinUpdateIntervalSeconds, MaxUpdateIntervalSeconds),
	}
}

// Settings represents persistent user settings.
// UpdateInterval is stored in milliseconds but edited in whole seconds.
type Settings struct {
	APIEndpoint          string `json:"apiEndpoint"`
	Theme                Theme  `json:"theme"`
	UpdateInterval       int64  `json:"updateInterval"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	StartMinimized       bool   `json:"startMinimized"`
}

// Defaults returns the settings used when nothing has been persisted yet.
func Defaults() Settings {
	return Settings{
		APIEndpoint:          DefaultAPIEndpoint,
		UpdateInterval:       DefaultUpdateInterval,
		NotificationsEnabled: true,
		StartMinimized:       false,
		Theme:                ThemeSystem,
	}
}

// Interval returns the refresh cadence as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.UpdateInterval) * time.Millisecond
}

// IntervalSeconds returns the refresh cadence in whole seconds, as shown in the form.
func (s Settings) IntervalSeconds() int64 {
	return s.UpdateInterval / 1000
}

// Validate checks every field and returns a *ValidationError for the first bad one.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.APIEndpoint) == "" {
		return &ValidationError{Field: "apiEndpoint", Message: "API endpoint is required"}
	}
	if s.UpdateInterval < MinUpdateInterval || s.UpdateInterval > MaxUpdateInterval {
		return intervalError()
	}
	if !s.Theme.Valid() {
		return &ValidationError{Field: "theme", Message: fmt.Sprintf("unknown theme %q", s.Theme)}
	}
	return nil
}

// Valid reports whether t is one of the supported themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	default:
		return false
	}
}

// sanitize replaces invalid fields with their defaults and reports which fields were reset.
// Used when loading a file that was edited by hand.
func (s Settings) sanitize() (Settings, []string) {
	def := Defaults()
	var reset []string
	if strings.TrimSpace(s.APIEndpoint) == "" {
		s.APIEndpoint = def.APIEndpoint
		reset = append(reset, "apiEndpoint")
	}
	switch {
	case s.UpdateInterval < MinUpdateInterval:
		s.UpdateInterval = def.UpdateInterval
		reset = append(reset, "updateInterval")
	case s.UpdateInterval > MaxUpdateInterval:
		s.UpdateInterval = MaxUpdateInterval
		reset = append(reset, "updateInterval")
	}
	if !s.Theme.Valid() {
		s.Theme = def.Theme
		reset = append(reset, "theme")
	}
	s.APIEndpoint = strings.TrimSpace(s.APIEndpoint)
	return s, reset
}

// Form is the raw input of the settings page. The interval is entered in seconds.
type Form struct {
	APIEndpoint          string
	UpdateInterval       string
	Theme                string
	NotificationsEnabled bool
	StartMinimized       bool
}

// FormFrom fills a form from stored settings.
func FormFrom(s Settings) Form {
	return Form{
		APIEndpoint:          s.APIEndpoint,
		UpdateInterval:       strconv.FormatInt(s.IntervalSeconds(), 10),
		Theme:                string(s.Theme),
		NotificationsEnabled: s.NotificationsEnabled,
		StartMinimized:       s.StartMinimized,
	}
}

// ParseForm converts form input into Settings.
// Nothing is returned on a validation failure, so callers cannot save a partial object.
func ParseForm(f Form) (Settings, error) {
	endpoint := strings.TrimSpace(f.APIEndpoint)
	if endpoint == "" {
		return Settings{}, &ValidationError{Field: "apiEndpoint", Message: "API endpoint is required"}
	}

	seconds, err := strconv.ParseInt(strings.TrimSpace(f.UpdateInterval), 10, 64)
	// The upper bound also keeps seconds*1000 from overflowing.
	if err != nil || seconds < MinUpdateIntervalSeconds || seconds > MaxUpdateIntervalSeconds {
		return Settings{}, intervalError()
	}

	theme := Theme(strings.TrimSpace(f.Theme))
	if theme == "" {
		theme = ThemeSystem
	}

	s := Settings{
		APIEndpoint:          endpoint,
		UpdateInterval:       seconds * 1000,
		NotificationsEnabled: f.NotificationsEnabled,
		StartMinimized:       f.StartMinimized,
		Theme:                theme,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ValidationError reports settings input rejected before any persistence.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
