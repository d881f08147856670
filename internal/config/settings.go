package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Settings is the application settings file. It is read once at startup
// and handed to the services that need it.
type Settings struct {
	Version                  string `json:"version"`
	NewestVersionSettingsURL string `json:"newest_version_settings_url"`
	NewestVersionURL         string `json:"newest_version_url"`
	LicenseAgreedTo          bool   `json:"license_agreed_to"`
	AppMaxZoomScale          int    `json:"app_max_zoom_scale"`
	AskSaveBeforeExit        bool   `json:"ask_save_before_exit"`
	AllowKeyboardEvents      bool   `json:"allow_keyboard_events"`
	PubkeyStorageBase        string `json:"pubkey_storage_base"`
}

// DefaultSettings is used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		Version:             "1.0.0",
		AppMaxZoomScale:     4,
		AskSaveBeforeExit:   true,
		AllowKeyboardEvents: true,
		PubkeyStorageBase:   "key_files/",
	}
}

// LoadSettings reads the settings file at path. Fields missing from the
// file keep their defaults; a missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if settings.AppMaxZoomScale <= 0 {
		settings.AppMaxZoomScale = DefaultSettings().AppMaxZoomScale
	}
	return settings, nil
}
