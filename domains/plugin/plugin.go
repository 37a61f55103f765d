package plugin

import (
	"context"
	"encoding/json"

	"github.com/AzielCF/az-overlay/domains/overlay"
	"github.com/AzielCF/az-overlay/domains/schema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OverlayDefinition is the static per-window declaration from a plugin
// manifest. It is immutable after load and seeds the persisted overlay
// settings defaults.
type OverlayDefinition struct {
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	X               *float64 `json:"x,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	DefaultPosition string   `json:"defaultPosition,omitempty"`
	ClickThrough    bool     `json:"clickThrough,omitempty"`
	Frameless       bool     `json:"frameless"`
	// Route selects the component rendered by this overlay; multiple
	// overlays from one plugin can share the same entry with different
	// routes. Defaults to "/".
	Route string `json:"route,omitempty"`
}

// UnmarshalJSON applies the manifest defaults: frameless is on and the
// position preset is center unless declared otherwise.
func (d *OverlayDefinition) UnmarshalJSON(data []byte) error {
	type alias OverlayDefinition
	a := alias{
		Frameless:       true,
		DefaultPosition: overlay.PresetCenter,
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = OverlayDefinition(a)
	return nil
}

// SettingsConfig declares a plugin's settings schema and, optionally, a
// custom settings component shipped with the plugin.
type SettingsConfig struct {
	Schema    *schema.Schema `json:"schema,omitempty"`
	Component string         `json:"component,omitempty"`
}

type DevConfig struct {
	Port int `json:"port"`
}

// Manifest describes one installed plugin.
type Manifest struct {
	ID          string                                             `json:"id"`
	Name        string                                             `json:"name"`
	Version     string                                             `json:"version"`
	Entry       string                                             `json:"entry"`
	Core        bool                                               `json:"core,omitempty"`
	Overlays    *orderedmap.OrderedMap[string, *OverlayDefinition] `json:"overlays,omitempty"`
	Permissions []string                                           `json:"permissions,omitempty"`
	Settings    *SettingsConfig                                    `json:"settings,omitempty"`
	Dev         *DevConfig                                         `json:"dev,omitempty"`
}

// AllowedCorePlugins lists plugin IDs that may claim the core flag. This
// prevents a third-party plugin from posing as a bundled one.
var AllowedCorePlugins = []string{
	"az-overlay-core-settings",
}

// IsValidCorePlugin reports whether the core flag is set AND the plugin id
// is in the allowlist.
func (m *Manifest) IsValidCorePlugin() bool {
	if !m.Core {
		return false
	}
	for _, id := range AllowedCorePlugins {
		if id == m.ID {
			return true
		}
	}
	return false
}

// Overlay returns the named overlay definition, if declared.
func (m *Manifest) Overlay(overlayID string) (*OverlayDefinition, bool) {
	if m.Overlays == nil {
		return nil, false
	}
	return m.Overlays.Get(overlayID)
}

// SettingsSchema returns the declared settings schema, or nil when the
// plugin has none.
func (m *Manifest) SettingsSchema() *schema.Schema {
	if m.Settings == nil {
		return nil
	}
	return m.Settings.Schema
}

// ParseManifest decodes a manifest.json document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Installed pairs a manifest with its location on disk.
type Installed struct {
	Manifest *Manifest `json:"manifest"`
	Path     string    `json:"path"`
	Symlink  bool      `json:"symlink,omitempty"`
}

type IPluginUsecase interface {
	// Scan re-reads the plugins directory and refreshes the registry.
	Scan(ctx context.Context) ([]*Installed, error)
	List(ctx context.Context) ([]*Installed, error)
	Get(ctx context.Context, id string) (*Installed, error)
	// InstallLocal installs a plugin from a local directory, copying it
	// (or symlinking it for development) into the plugins directory.
	InstallLocal(ctx context.Context, path string, symlink bool) (*Installed, error)
	Uninstall(ctx context.Context, id string) error
}
