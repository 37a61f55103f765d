package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	domainPlugin "github.com/AzielCF/az-overlay/domains/plugin"
	"github.com/AzielCF/az-overlay/pkg/debounce"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/AzielCF/az-overlay/pkg/store"
	"github.com/AzielCF/az-overlay/validations"
	"github.com/sirupsen/logrus"
)

// ManifestProvider resolves the manifest of an installed plugin.
type ManifestProvider func(pluginID string) (*domainPlugin.Manifest, bool)

// OverlayOptions carries the environment the reconciler runs against.
type OverlayOptions struct {
	Delay        time.Duration
	ScreenWidth  float64
	ScreenHeight float64
	BaseURL      string
}

type overlayConsumer struct {
	mu       sync.Mutex
	handle   *store.Handle
	debounce *debounce.Controller
	settings domainOverlay.Settings
	loaded   bool
}

type serviceOverlay struct {
	registry    *store.Registry
	wm          domainOverlay.WindowManager
	manifestFor ManifestProvider
	opts        OverlayOptions

	mu        sync.Mutex
	consumers map[string]*overlayConsumer
}

func NewOverlayService(registry *store.Registry, wm domainOverlay.WindowManager, manifestFor ManifestProvider, opts OverlayOptions) domainOverlay.IOverlayUsecase {
	if opts.ScreenWidth <= 0 {
		opts.ScreenWidth = domainOverlay.DefaultScreenWidth
	}
	if opts.ScreenHeight <= 0 {
		opts.ScreenHeight = domainOverlay.DefaultScreenHeight
	}
	return &serviceOverlay{
		registry:    registry,
		wm:          wm,
		manifestFor: manifestFor,
		opts:        opts,
		consumers:   make(map[string]*overlayConsumer),
	}
}

func (service *serviceOverlay) definition(pluginID, overlayID string) (*domainPlugin.Manifest, *domainPlugin.OverlayDefinition, error) {
	manifest, ok := service.manifestFor(pluginID)
	if !ok {
		return nil, nil, pkgError.NotFoundError(fmt.Sprintf("plugin %s is not installed", pluginID))
	}
	def, ok := manifest.Overlay(overlayID)
	if !ok {
		return nil, nil, pkgError.NotFoundError(fmt.Sprintf("plugin %s declares no overlay %s", pluginID, overlayID))
	}
	return manifest, def, nil
}

// defaultSettings seeds the persisted record from the manifest declaration.
func (service *serviceOverlay) defaultSettings(def *domainPlugin.OverlayDefinition) domainOverlay.Settings {
	s := domainOverlay.Settings{
		Enabled:        true,
		Width:          def.Width,
		Height:         def.Height,
		PositionPreset: def.DefaultPosition,
		Opacity:        100,
		ClickThrough:   def.ClickThrough,
		AlwaysOnTop:    true,
	}
	if def.X != nil && def.Y != nil {
		s.X = *def.X
		s.Y = *def.Y
		s.PositionPreset = ""
	} else {
		s.X, s.Y = domainOverlay.PresetToXY(s.PositionPreset, s.Width, s.Height, service.opts.ScreenWidth, service.opts.ScreenHeight)
	}
	return s
}

// entryPoint resolves the URL an overlay window loads. A dev server port on
// the manifest takes precedence over the installed bundle.
func (service *serviceOverlay) entryPoint(manifest *domainPlugin.Manifest, def *domainPlugin.OverlayDefinition) string {
	route := def.Route
	if route == "" {
		route = "/"
	}
	if manifest.Dev != nil && manifest.Dev.Port > 0 {
		return fmt.Sprintf("http://localhost:%d/#%s", manifest.Dev.Port, route)
	}
	base := strings.TrimSuffix(service.opts.BaseURL, "/")
	return fmt.Sprintf("%s/plugins/%s/%s#%s", base, manifest.ID, manifest.Entry, route)
}

func settingsToMap(s domainOverlay.Settings) map[string]any {
	raw, _ := json.Marshal(s)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}

func settingsFromMap(data map[string]any, into *domainOverlay.Settings) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

func (service *serviceOverlay) consumer(pluginID, overlayID string) (*overlayConsumer, error) {
	windowID := domainOverlay.WindowID(pluginID, overlayID)

	service.mu.Lock()
	defer service.mu.Unlock()

	if c, ok := service.consumers[windowID]; ok {
		return c, nil
	}

	_, def, err := service.definition(pluginID, overlayID)
	if err != nil {
		return nil, err
	}

	handle := service.registry.Load(domainOverlay.DocumentName(pluginID, overlayID))
	settings := service.defaultSettings(def)

	stored := handle.GetAll()
	if len(stored) > 0 {
		if err := settingsFromMap(stored, &settings); err != nil {
			logrus.Warnf("[OVERLAY] Corrupt settings for %s, starting from defaults: %v", windowID, err)
			settings = service.defaultSettings(def)
		}
	} else {
		// First run: materialize the defaults so the document exists.
		handle.SetAll(settingsToMap(settings))
		if err := handle.Save(); err != nil {
			logrus.Errorf("[OVERLAY] Failed to persist defaults for %s: %v", windowID, err)
		}
	}

	c := &overlayConsumer{
		handle:   handle,
		settings: settings,
	}
	c.debounce = debounce.New(service.opts.Delay, func(pending map[string]any) {
		service.flush(pluginID, overlayID, c, pending)
	})
	service.consumers[windowID] = c
	return c, nil
}

func (service *serviceOverlay) LoadSettings(ctx context.Context, pluginID, overlayID string) (domainOverlay.Settings, error) {
	c, err := service.consumer(pluginID, overlayID)
	if err != nil {
		return domainOverlay.Settings{}, err
	}

	c.mu.Lock()
	settings := c.settings
	firstLoad := !c.loaded
	c.loaded = true
	c.mu.Unlock()

	windowID := domainOverlay.WindowID(pluginID, overlayID)
	exists, err := service.wm.Exists(ctx, windowID)
	if err != nil {
		logrus.Errorf("[OVERLAY] Existence check failed for %s: %v", windowID, err)
		return settings, nil
	}
	if !exists {
		return settings, nil
	}

	// Re-assert persisted state on the live window. Click-through is skipped
	// on the very first load so a window that starts click-through can still
	// be reached until the user touches the setting.
	if err := service.wm.UpdateGeometry(ctx, windowID, settings.X, settings.Y, settings.Width, settings.Height); err != nil {
		logrus.Errorf("[OVERLAY] Failed to apply geometry to %s: %v", windowID, err)
	}
	if err := service.wm.SetVisible(ctx, windowID, settings.Enabled); err != nil {
		logrus.Errorf("[OVERLAY] Failed to apply visibility to %s: %v", windowID, err)
	}
	if err := service.wm.SetAlwaysOnTop(ctx, windowID, settings.AlwaysOnTop); err != nil {
		logrus.Errorf("[OVERLAY] Failed to apply always-on-top to %s: %v", windowID, err)
	}
	if !firstLoad {
		if err := service.wm.SetClickThrough(ctx, windowID, settings.ClickThrough); err != nil {
			logrus.Errorf("[OVERLAY] Failed to apply click-through to %s: %v", windowID, err)
		}
	}
	return settings, nil
}

func (service *serviceOverlay) GetSettings(ctx context.Context, pluginID, overlayID string) (domainOverlay.Settings, error) {
	c, err := service.consumer(pluginID, overlayID)
	if err != nil {
		return domainOverlay.Settings{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings, nil
}

func (service *serviceOverlay) UpdateSettings(ctx context.Context, pluginID, overlayID string, patch domainOverlay.SettingsPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if err := validations.ValidateSettingsPatch(patch); err != nil {
		return err
	}

	c, err := service.consumer(pluginID, overlayID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	patch.Apply(&c.settings)

	// A preset without explicit coordinates recomputes x and y, and the
	// recomputed pair rides along in the same batch.
	if patch.PositionPreset != nil && patch.X == nil && patch.Y == nil {
		x, y := domainOverlay.PresetToXY(*patch.PositionPreset, c.settings.Width, c.settings.Height, service.opts.ScreenWidth, service.opts.ScreenHeight)
		c.settings.X = x
		c.settings.Y = y
		patch.X = &x
		patch.Y = &y
	}
	c.mu.Unlock()

	c.debounce.ScheduleBatch(patchEntries(patch))
	return nil
}

// patchEntries flattens a patch into the field names used both as store keys
// and as debounce coalescing keys.
func patchEntries(patch domainOverlay.SettingsPatch) map[string]any {
	entries := map[string]any{}
	if patch.Enabled != nil {
		entries["enabled"] = *patch.Enabled
	}
	if patch.Width != nil {
		entries["width"] = *patch.Width
	}
	if patch.Height != nil {
		entries["height"] = *patch.Height
	}
	if patch.X != nil {
		entries["x"] = *patch.X
	}
	if patch.Y != nil {
		entries["y"] = *patch.Y
	}
	if patch.PositionPreset != nil {
		entries["positionPreset"] = *patch.PositionPreset
	}
	if patch.Opacity != nil {
		entries["opacity"] = *patch.Opacity
	}
	if patch.ClickThrough != nil {
		entries["clickThrough"] = *patch.ClickThrough
	}
	if patch.AlwaysOnTop != nil {
		entries["alwaysOnTop"] = *patch.AlwaysOnTop
	}
	return entries
}

// flush persists one coalesced batch and reconciles the live window. Window
// operations that fail are logged and never rolled back: the persisted state
// is the source of truth and the next reconcile converges again.
func (service *serviceOverlay) flush(pluginID, overlayID string, c *overlayConsumer, pending map[string]any) {
	windowID := domainOverlay.WindowID(pluginID, overlayID)

	c.mu.Lock()
	settings := c.settings
	c.mu.Unlock()

	c.handle.SetAll(settingsToMap(settings))
	if err := c.handle.Save(); err != nil {
		logrus.Errorf("[OVERLAY] Failed to persist settings for %s: %v", windowID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	service.reconcile(ctx, pluginID, overlayID, windowID, settings, pending)
}

func (service *serviceOverlay) reconcile(ctx context.Context, pluginID, overlayID, windowID string, settings domainOverlay.Settings, pending map[string]any) {
	exists, err := service.wm.Exists(ctx, windowID)
	if err != nil {
		logrus.Errorf("[OVERLAY] Existence check failed for %s: %v", windowID, err)
		return
	}

	_, hasEnabled := pending["enabled"]

	if !exists {
		// No window yet. Only an enable transition spawns one; everything
		// else stays persisted-only until the overlay is turned on.
		if !hasEnabled || !settings.Enabled {
			return
		}
		service.spawn(ctx, pluginID, overlayID, windowID, settings)
		return
	}

	if hasEnabled && !settings.Enabled {
		// Disable hides, never destroys: the window keeps its web content
		// alive and re-enabling is instant.
		if err := service.wm.SetVisible(ctx, windowID, false); err != nil {
			logrus.Errorf("[OVERLAY] Failed to hide %s: %v", windowID, err)
		}
		return
	}
	if hasEnabled && settings.Enabled {
		if err := service.wm.SetVisible(ctx, windowID, true); err != nil {
			logrus.Errorf("[OVERLAY] Failed to show %s: %v", windowID, err)
		}
	}

	if hasGeometryKey(pending) {
		if err := service.wm.UpdateGeometry(ctx, windowID, settings.X, settings.Y, settings.Width, settings.Height); err != nil {
			logrus.Errorf("[OVERLAY] Failed to update geometry of %s: %v", windowID, err)
		}
	}
	if _, ok := pending["clickThrough"]; ok {
		if err := service.wm.SetClickThrough(ctx, windowID, settings.ClickThrough); err != nil {
			logrus.Errorf("[OVERLAY] Failed to set click-through on %s: %v", windowID, err)
		}
	}
	if _, ok := pending["alwaysOnTop"]; ok {
		if err := service.wm.SetAlwaysOnTop(ctx, windowID, settings.AlwaysOnTop); err != nil {
			logrus.Errorf("[OVERLAY] Failed to set always-on-top on %s: %v", windowID, err)
		}
	}
	// Opacity is persisted and broadcast but has no window operation; the
	// overlay page applies it itself.
}

func hasGeometryKey(pending map[string]any) bool {
	for _, key := range []string{"x", "y", "width", "height"} {
		if _, ok := pending[key]; ok {
			return true
		}
	}
	return false
}

func (service *serviceOverlay) spawn(ctx context.Context, pluginID, overlayID, windowID string, settings domainOverlay.Settings) {
	manifest, def, err := service.definition(pluginID, overlayID)
	if err != nil {
		logrus.Errorf("[OVERLAY] Cannot spawn %s: %v", windowID, err)
		return
	}

	config := domainOverlay.Config{
		ID:           windowID,
		PluginID:     pluginID,
		EntryPoint:   service.entryPoint(manifest, def),
		Width:        settings.Width,
		Height:       settings.Height,
		X:            settings.X,
		Y:            settings.Y,
		ClickThrough: settings.ClickThrough,
		Frameless:    def.Frameless,
	}
	if err := service.wm.Spawn(ctx, config); err != nil {
		logrus.Errorf("[OVERLAY] Failed to spawn %s: %v", windowID, err)
		return
	}
	logrus.Infof("[OVERLAY] Spawned %s at (%.0f, %.0f) %gx%g", windowID, settings.X, settings.Y, settings.Width, settings.Height)

	if !settings.AlwaysOnTop {
		if err := service.wm.SetAlwaysOnTop(ctx, windowID, false); err != nil {
			logrus.Errorf("[OVERLAY] Failed to set always-on-top on %s: %v", windowID, err)
		}
	}
}

func (service *serviceOverlay) FlushNow(pluginID, overlayID string) {
	service.mu.Lock()
	c, ok := service.consumers[domainOverlay.WindowID(pluginID, overlayID)]
	service.mu.Unlock()
	if ok {
		c.debounce.FlushNow()
	}
}

func (service *serviceOverlay) Teardown(pluginID, overlayID string) {
	windowID := domainOverlay.WindowID(pluginID, overlayID)

	service.mu.Lock()
	c, ok := service.consumers[windowID]
	if ok {
		delete(service.consumers, windowID)
	}
	service.mu.Unlock()

	if !ok {
		return
	}
	c.debounce.FlushNow()
	c.handle.Release()
	logrus.Debugf("[OVERLAY] Released overlay consumer for %s", windowID)
}

func (service *serviceOverlay) Exists(ctx context.Context, pluginID, overlayID string) (bool, error) {
	return service.wm.Exists(ctx, domainOverlay.WindowID(pluginID, overlayID))
}

func (service *serviceOverlay) Close(ctx context.Context, pluginID, overlayID string) error {
	return service.wm.Close(ctx, domainOverlay.WindowID(pluginID, overlayID))
}

func (service *serviceOverlay) List(ctx context.Context) ([]string, error) {
	return service.wm.List(ctx)
}
