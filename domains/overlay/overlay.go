package overlay

import (
	"context"
	"fmt"
)

// Settings is the mutable, persisted, per-window record. It is created on
// first load by merging the manifest's OverlayDefinition defaults with any
// stored overrides and mutated through the reconciliation pipeline.
type Settings struct {
	Enabled        bool    `json:"enabled"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	PositionPreset string  `json:"positionPreset,omitempty"`
	Opacity        float64 `json:"opacity"`
	ClickThrough   bool    `json:"clickThrough"`
	AlwaysOnTop    bool    `json:"alwaysOnTop"`
}

// SettingsPatch is a partial update. Nil members mean "unchanged"; the
// reconciler only issues window operations for members that are present.
type SettingsPatch struct {
	Enabled        *bool    `json:"enabled,omitempty"`
	Width          *float64 `json:"width,omitempty"`
	Height         *float64 `json:"height,omitempty"`
	X              *float64 `json:"x,omitempty"`
	Y              *float64 `json:"y,omitempty"`
	PositionPreset *string  `json:"positionPreset,omitempty"`
	Opacity        *float64 `json:"opacity,omitempty"`
	ClickThrough   *bool    `json:"clickThrough,omitempty"`
	AlwaysOnTop    *bool    `json:"alwaysOnTop,omitempty"`
}

// IsEmpty reports whether the patch carries no members at all.
func (p SettingsPatch) IsEmpty() bool {
	return p.Enabled == nil && p.Width == nil && p.Height == nil &&
		p.X == nil && p.Y == nil && p.PositionPreset == nil &&
		p.Opacity == nil && p.ClickThrough == nil && p.AlwaysOnTop == nil
}

// HasGeometry reports whether any of x, y, width, height is present.
func (p SettingsPatch) HasGeometry() bool {
	return p.X != nil || p.Y != nil || p.Width != nil || p.Height != nil
}

// Apply merges the patch into s, member by member.
func (p SettingsPatch) Apply(s *Settings) {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.Width != nil {
		s.Width = *p.Width
	}
	if p.Height != nil {
		s.Height = *p.Height
	}
	if p.X != nil {
		s.X = *p.X
	}
	if p.Y != nil {
		s.Y = *p.Y
	}
	if p.PositionPreset != nil {
		s.PositionPreset = *p.PositionPreset
	}
	if p.Opacity != nil {
		s.Opacity = *p.Opacity
	}
	if p.ClickThrough != nil {
		s.ClickThrough = *p.ClickThrough
	}
	if p.AlwaysOnTop != nil {
		s.AlwaysOnTop = *p.AlwaysOnTop
	}
}

// Config is the spawn configuration handed to the window manager when an
// overlay window is created.
type Config struct {
	ID           string  `json:"id"`
	PluginID     string  `json:"pluginId"`
	EntryPoint   string  `json:"entryPoint"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	ClickThrough bool    `json:"clickThrough"`
	Frameless    bool    `json:"frameless"`
}

// WindowManager is the invocation surface of the native shell. Creation,
// geometry enforcement and OS-level click-through live on the other side of
// this interface.
type WindowManager interface {
	Exists(ctx context.Context, id string) (bool, error)
	Spawn(ctx context.Context, config Config) error
	SetVisible(ctx context.Context, id string, visible bool) error
	UpdateGeometry(ctx context.Context, id string, x, y, width, height float64) error
	SetClickThrough(ctx context.Context, id string, enabled bool) error
	SetAlwaysOnTop(ctx context.Context, id string, enabled bool) error
	Close(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// WindowID builds the id used for window manager calls.
func WindowID(pluginID, overlayID string) string {
	return fmt.Sprintf("%s-%s", pluginID, overlayID)
}

// DocumentName builds the per-window settings document name. The format is
// load-bearing for compatibility with existing installations.
func DocumentName(pluginID, overlayID string) string {
	return fmt.Sprintf("%s-%s-overlay.json", pluginID, overlayID)
}

type IOverlayUsecase interface {
	// LoadSettings loads (creating from defaults if needed) the persisted
	// settings for an overlay and applies them to a live window if one
	// exists. Click-through is not re-applied on this path.
	LoadSettings(ctx context.Context, pluginID, overlayID string) (Settings, error)
	// UpdateSettings validates and buffers a partial update; the flush
	// persists the batch and reconciles the live window.
	UpdateSettings(ctx context.Context, pluginID, overlayID string, patch SettingsPatch) error
	GetSettings(ctx context.Context, pluginID, overlayID string) (Settings, error)
	// FlushNow cancels the pending debounce timer and flushes synchronously.
	FlushNow(pluginID, overlayID string)
	// Teardown flushes pending updates and releases per-window resources.
	Teardown(pluginID, overlayID string)

	// Window manager passthrough for the command surface.
	Exists(ctx context.Context, pluginID, overlayID string) (bool, error)
	Close(ctx context.Context, pluginID, overlayID string) error
	List(ctx context.Context) ([]string, error)
}
