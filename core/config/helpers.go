package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns a map of the dynamic settings currently loaded in
// memory, used by the health/status endpoint.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":           Global.App.Version,
		"app_debug":             Global.App.Debug,
		"overlay_debounce_ms":   Global.Overlay.DebounceMs,
		"assumed_screen_width":  Global.Overlay.AssumedScreenWidth,
		"assumed_screen_height": Global.Overlay.AssumedScreenHeight,
		"window_manager":        Global.Overlay.WindowManagerEndpoint,
		"valkey_enabled":        Global.Database.ValkeyEnabled,
		"plugins_path":          Global.Paths.Plugins,
		"settings_path":         Global.Paths.Settings,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
