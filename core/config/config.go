package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Overlay  OverlayConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
	Plugins  string
	Settings string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type OverlayConfig struct {
	// DebounceMs is the quiet period before buffered settings updates are
	// flushed to disk and reconciled against live windows.
	DebounceMs int
	// Assumed screen size used by the position preset calculator before the
	// native shell has reported real screen metrics.
	AssumedScreenWidth  float64
	AssumedScreenHeight float64
	// WindowManagerEndpoint is the HTTP endpoint of the native shell's
	// window manager. Empty means run against the in-memory manager.
	WindowManagerEndpoint  string
	WindowManagerTimeoutMs int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := false
	if v := os.Getenv("APP_DEBUG"); v == "true" || v == "1" || v == "on" {
		debug = true
	} else if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		debug = true
	}

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
		Plugins:  getEnv("PATH_PLUGINS", filepath.Join(baseDir, "plugins")),
		Settings: getEnv("PATH_SETTINGS", filepath.Join(baseDir, "settings")),
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            filepath.Join(pathsCfg.Storages, "app.db"),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azoverlay:"),
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		dbCfg.Name = v
	}

	overlayCfg := OverlayConfig{
		DebounceMs:             getEnvInt("OVERLAY_DEBOUNCE_MS", 400),
		AssumedScreenWidth:     float64(getEnvInt("OVERLAY_ASSUMED_SCREEN_WIDTH", 1920)),
		AssumedScreenHeight:    float64(getEnvInt("OVERLAY_ASSUMED_SCREEN_HEIGHT", 1080)),
		WindowManagerEndpoint:  getEnv("WINDOW_MANAGER_ENDPOINT", ""),
		WindowManagerTimeoutMs: getEnvInt("WINDOW_MANAGER_TIMEOUT_MS", 3000),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Overlay:  overlayCfg,
	}

	Global = cfg
	return cfg, nil
}
