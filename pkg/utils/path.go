package utils

import (
	"fmt"
	"os"
	"path/filepath"

	coreconfig "github.com/AzielCF/az-overlay/core/config"
)

// CreateFolder creates every listed directory, parents included.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", folder, err)
		}
	}
	return nil
}

// GetPluginStoragePath returns the storage path reserved for one plugin.
func GetPluginStoragePath(pluginID string) string {
	path := filepath.Join(coreconfig.Global.Paths.Storages, "plugins", pluginID)
	_ = os.MkdirAll(path, 0755)
	return path
}
