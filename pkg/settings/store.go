package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the name of the settings file inside the app config directory.
const FileName = "settings.json"

// DefaultPath returns the path to the settings file for the given application name.
func DefaultPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, FileName), nil
}

// Store persists Settings to a JSON file and keeps the current value in memory.
// Safe for concurrent use.
type Store struct {
	current Settings
	path    string
	mu      sync.RWMutex
}

// Open loads the settings file at path, falling back to defaults for a missing file
// or for keys that are absent or invalid.
func Open(path string) (*Store, error) {
	s := &Store{path: path, current: Defaults()}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the settings file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the file. It returns true if the in-memory settings changed.
func (s *Store) Reload() (bool, error) {
	loaded, err := readFile(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	changed := loaded != s.current
	s.current = loaded
	return changed, nil
}

// Save validates and persists settings. On error the previously stored settings are kept.
func (s *Store) Save(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFile(s.path, next); err != nil {
		return err
	}
	s.current = next

	slog.Info("[SETTINGS] Saved settings",
		"api_endpoint", next.APIEndpoint,
		"update_interval_ms", next.UpdateInterval,
		"notifications", next.NotificationsEnabled,
		"start_minimized", next.StartMinimized,
		"theme", next.Theme)
	return nil
}

func readFile(path string) (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("[SETTINGS] No settings file found, using defaults", "path", path)
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	// Unmarshal over the defaults so missing keys keep their default value.
	if err := json.Unmarshal(bytes.TrimSpace(data), &settings); err != nil {
		return Defaults(), fmt.Errorf("parse settings: %w", err)
	}

	sanitized, reset := settings.sanitize()
	if len(reset) > 0 {
		slog.Warn("[SETTINGS] Invalid values replaced with defaults", "path", path, "fields", reset)
	}
	return sanitized, nil
}

func writeFile(path string, settings Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck,gosec // chmod error takes precedence
		return fmt.Errorf("chmod settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
