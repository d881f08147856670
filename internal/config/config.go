package config

import (
	"os"
	"strconv"

	"pdf-workbench/internal/domain"
)

// Key store backends.
const (
	KeyStoreFile     = "file"
	KeyStoreSupabase = "supabase"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort            string
	KeyServerPort         string
	LogLevel              string
	SettingsPath          string
	WorkDir               string
	SaveDir               string
	KeyDir                string
	SignatureDir          string
	APIToken              string
	KeyStoreBackend       string
	KeyFilesDir           string
	SupabaseURL           string
	SupabaseKey           string
	NetworkTimeoutSeconds int64
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// PaaS hosts hand the port over in PORT; SERVER_PORT is for local runs.
		ServerPort:            getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		KeyServerPort:         getEnvOrDefault("KEYSERVER_PORT", "5000"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		SettingsPath:          getEnvOrDefault("SETTINGS_PATH", "settings.json"),
		WorkDir:               getEnvOrDefault("WORK_DIR", "temporary-files"),
		SaveDir:               getEnvOrDefault("SAVE_DIR", "."),
		KeyDir:                getEnvOrDefault("KEY_DIR", "."),
		SignatureDir:          getEnvOrDefault("SIGNATURE_DIR", "PDF Signatures"),
		APIToken:              getEnvOrDefault("API_TOKEN", ""),
		KeyStoreBackend:       getEnvOrDefault("KEY_STORE_BACKEND", KeyStoreFile),
		KeyFilesDir:           getEnvOrDefault("KEY_FILES_DIR", "key_files"),
		SupabaseURL:           getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:           getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		NetworkTimeoutSeconds: getEnvInt64OrDefault("NETWORK_TIMEOUT_SECONDS", 10),
	}
}

func (c *AppConfig) GetServerPort() string    { return c.ServerPort }
func (c *AppConfig) GetKeyServerPort() string { return c.KeyServerPort }
func (c *AppConfig) GetLogLevel() string      { return c.LogLevel }
func (c *AppConfig) GetSettingsPath() string  { return c.SettingsPath }

// GetWorkDir returns the directory for temporary copies and extractions
func (c *AppConfig) GetWorkDir() string { return c.WorkDir }

// GetSaveDir returns the directory saved documents are written to
func (c *AppConfig) GetSaveDir() string { return c.SaveDir }

// GetKeyDir returns the directory holding private keys
func (c *AppConfig) GetKeyDir() string { return c.KeyDir }

// GetSignatureDir returns the root of the signature artifact tree
func (c *AppConfig) GetSignatureDir() string { return c.SignatureDir }

// GetAPIToken returns the bearer token guarding the API. Empty disables it.
func (c *AppConfig) GetAPIToken() string { return c.APIToken }

func (c *AppConfig) GetKeyStoreBackend() string { return c.KeyStoreBackend }
func (c *AppConfig) GetKeyFilesDir() string     { return c.KeyFilesDir }

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetNetworkTimeoutSeconds returns the timeout for public key transfers
func (c *AppConfig) GetNetworkTimeoutSeconds() int64 {
	return c.NetworkTimeoutSeconds
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}
