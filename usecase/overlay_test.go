package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	domainPlugin "github.com/AzielCF/az-overlay/domains/plugin"
	"github.com/AzielCF/az-overlay/infrastructure/windowmanager"
	"github.com/AzielCF/az-overlay/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// opRecorder wraps the in-memory manager and keeps an ordered log of every
// window operation, so tests can assert exactly which commands a flush
// produced.
type opRecorder struct {
	*windowmanager.MemoryManager
	mu  sync.Mutex
	ops []string
}

func newOpRecorder() *opRecorder {
	return &opRecorder{MemoryManager: windowmanager.NewMemoryManager()}
}

func (r *opRecorder) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *opRecorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *opRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

func (r *opRecorder) Spawn(ctx context.Context, config domainOverlay.Config) error {
	r.record("spawn:" + config.ID)
	return r.MemoryManager.Spawn(ctx, config)
}

func (r *opRecorder) SetVisible(ctx context.Context, id string, visible bool) error {
	r.record(fmt.Sprintf("setVisible:%s:%v", id, visible))
	return r.MemoryManager.SetVisible(ctx, id, visible)
}

func (r *opRecorder) UpdateGeometry(ctx context.Context, id string, x, y, width, height float64) error {
	r.record(fmt.Sprintf("updateGeometry:%s:%g,%g,%g,%g", id, x, y, width, height))
	return r.MemoryManager.UpdateGeometry(ctx, id, x, y, width, height)
}

func (r *opRecorder) SetClickThrough(ctx context.Context, id string, enabled bool) error {
	r.record(fmt.Sprintf("setClickThrough:%s:%v", id, enabled))
	return r.MemoryManager.SetClickThrough(ctx, id, enabled)
}

func (r *opRecorder) SetAlwaysOnTop(ctx context.Context, id string, enabled bool) error {
	r.record(fmt.Sprintf("setAlwaysOnTop:%s:%v", id, enabled))
	return r.MemoryManager.SetAlwaysOnTop(ctx, id, enabled)
}

func (r *opRecorder) Close(ctx context.Context, id string) error {
	r.record("close:" + id)
	return r.MemoryManager.Close(ctx, id)
}

func testManifest() *domainPlugin.Manifest {
	overlays := orderedmap.New[string, *domainPlugin.OverlayDefinition]()
	overlays.Set("hud", &domainPlugin.OverlayDefinition{
		Width:           300,
		Height:          200,
		DefaultPosition: domainOverlay.PresetCenter,
		Frameless:       true,
	})
	return &domainPlugin.Manifest{
		ID:       "demo",
		Name:     "Demo",
		Version:  "1.0.0",
		Entry:    "index.html",
		Overlays: overlays,
	}
}

func newTestOverlayService(t *testing.T, delay time.Duration) (domainOverlay.IOverlayUsecase, *opRecorder, string) {
	t.Helper()

	dir := t.TempDir()
	wm := newOpRecorder()
	manifest := testManifest()
	svc := NewOverlayService(store.NewRegistry(dir), wm, func(pluginID string) (*domainPlugin.Manifest, bool) {
		if pluginID == manifest.ID {
			return manifest, true
		}
		return nil, false
	}, OverlayOptions{
		Delay:        delay,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		BaseURL:      "http://localhost:3000",
	})
	return svc, wm, dir
}

func TestOverlayService_LoadSettingsSeedsDefaults(t *testing.T) {
	svc, _, dir := newTestOverlayService(t, 0)

	settings, err := svc.LoadSettings(context.Background(), "demo", "hud")
	require.NoError(t, err)

	assert.True(t, settings.Enabled)
	assert.Equal(t, float64(300), settings.Width)
	assert.Equal(t, float64(200), settings.Height)
	assert.Equal(t, float64(810), settings.X, "centered horizontally in 1920")
	assert.Equal(t, float64(440), settings.Y, "centered vertically in 1080")
	assert.Equal(t, float64(100), settings.Opacity)
	assert.True(t, settings.AlwaysOnTop)

	raw, err := os.ReadFile(filepath.Join(dir, "demo-hud-overlay.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, true, persisted["enabled"], "defaults are materialized on first load")
}

func TestOverlayService_UnknownOverlayFails(t *testing.T) {
	svc, _, _ := newTestOverlayService(t, 0)

	_, err := svc.LoadSettings(context.Background(), "demo", "nope")
	assert.Error(t, err)

	_, err = svc.LoadSettings(context.Background(), "ghost", "hud")
	assert.Error(t, err)
}

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }

func TestOverlayService_EnableSpawnsExactlyOnce(t *testing.T) {
	svc, wm, _ := newTestOverlayService(t, 0)
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	wm.Reset()

	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		Enabled: boolPtr(true),
	}))

	ops := wm.Ops()
	require.Len(t, ops, 1, "expected exactly one operation, got %v", ops)
	assert.Equal(t, "spawn:demo-hud", ops[0])

	config, visible, _, _, ok := wm.Window("demo-hud")
	require.True(t, ok)
	assert.True(t, visible)
	assert.Equal(t, float64(810), config.X)
	assert.Equal(t, float64(440), config.Y)
	assert.Equal(t, "http://localhost:3000/plugins/demo/index.html#/", config.EntryPoint)
}

func TestOverlayService_DisableHidesWithoutDestroying(t *testing.T) {
	svc, wm, _ := newTestOverlayService(t, 0)
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{Enabled: boolPtr(true)}))
	wm.Reset()

	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{Enabled: boolPtr(false)}))

	ops := wm.Ops()
	require.Len(t, ops, 1, "disable must issue exactly one operation, got %v", ops)
	assert.Equal(t, "setVisible:demo-hud:false", ops[0])

	_, visible, _, _, ok := wm.Window("demo-hud")
	require.True(t, ok, "the window must survive a disable")
	assert.False(t, visible)
}

func TestOverlayService_GeometryPatchIssuesOneFullRect(t *testing.T) {
	svc, wm, _ := newTestOverlayService(t, 0)
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{Enabled: boolPtr(true)}))
	wm.Reset()

	// Only the width changes; the issued rect still carries all four members.
	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		Width: floatPtr(500),
	}))

	ops := wm.Ops()
	require.Len(t, ops, 1, "got %v", ops)
	assert.Equal(t, "updateGeometry:demo-hud:810,440,500,200", ops[0])
}

func TestOverlayService_PresetRecomputesCoordinates(t *testing.T) {
	svc, wm, _ := newTestOverlayService(t, 0)
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{Enabled: boolPtr(true)}))
	wm.Reset()

	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		PositionPreset: stringPtr(domainOverlay.PresetBottomRight),
	}))

	settings, err := svc.GetSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	assert.Equal(t, float64(1620), settings.X)
	assert.Equal(t, float64(880), settings.Y)

	ops := wm.Ops()
	require.Len(t, ops, 1, "got %v", ops)
	assert.Equal(t, "updateGeometry:demo-hud:1620,880,300,200", ops[0])
}

func TestOverlayService_ChangesWhileUnspawnedOnlyPersist(t *testing.T) {
	svc, wm, dir := newTestOverlayService(t, 0)
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	wm.Reset()

	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		Width:  floatPtr(640),
		Height: floatPtr(480),
	}))

	assert.Empty(t, wm.Ops(), "no window exists, nothing to reconcile")

	raw, err := os.ReadFile(filepath.Join(dir, "demo-hud-overlay.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, float64(640), persisted["width"])
	assert.Equal(t, float64(480), persisted["height"])
}

func TestOverlayService_DebounceCoalescesWindowOps(t *testing.T) {
	svc, wm, _ := newTestOverlayService(t, 40*time.Millisecond)
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{Enabled: boolPtr(true)}))
	svc.FlushNow("demo", "hud")
	wm.Reset()

	// A drag produces a burst of geometry updates.
	for i := 0; i < 8; i++ {
		require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
			X: floatPtr(float64(100 + i*10)),
			Y: floatPtr(float64(50 + i*5)),
		}))
	}

	assert.Eventually(t, func() bool {
		return len(wm.Ops()) > 0
	}, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	ops := wm.Ops()
	require.Len(t, ops, 1, "a burst must coalesce into one geometry op, got %v", ops)
	assert.Equal(t, "updateGeometry:demo-hud:170,85,300,200", ops[0])
}

func TestOverlayService_ClickThroughNotAppliedOnFirstLoad(t *testing.T) {
	dir := t.TempDir()
	wm := newOpRecorder()
	manifest := testManifest()
	def, _ := manifest.Overlay("hud")
	def.ClickThrough = true

	svc := NewOverlayService(store.NewRegistry(dir), wm, func(string) (*domainPlugin.Manifest, bool) {
		return manifest, true
	}, OverlayOptions{Delay: 0, ScreenWidth: 1920, ScreenHeight: 1080, BaseURL: "http://localhost:3000"})
	ctx := context.Background()

	// Pre-existing window, as after a shell restart with state intact.
	require.NoError(t, wm.MemoryManager.Spawn(ctx, domainOverlay.Config{ID: "demo-hud", Width: 300, Height: 200}))
	wm.Reset()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)

	for _, op := range wm.Ops() {
		assert.NotContains(t, op, "setClickThrough", "first load must not lock the window out")
	}

	wm.Reset()
	_, err = svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	assert.Contains(t, wm.Ops(), "setClickThrough:demo-hud:true", "subsequent loads re-apply click-through")
}

func TestOverlayService_TeardownFlushesPendingWrites(t *testing.T) {
	svc, _, dir := newTestOverlayService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		Opacity: floatPtr(60),
	}))
	svc.Teardown("demo", "hud")

	raw, err := os.ReadFile(filepath.Join(dir, "demo-hud-overlay.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, float64(60), persisted["opacity"])
}

func TestOverlayService_InvalidPatchRejected(t *testing.T) {
	svc, _, _ := newTestOverlayService(t, 0)
	ctx := context.Background()

	assert.Error(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		Width: floatPtr(-10),
	}))
	assert.Error(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		Opacity: floatPtr(150),
	}))
	assert.Error(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{
		PositionPreset: stringPtr("somewhere"),
	}))
}

func TestOverlayService_DevServerEntryPoint(t *testing.T) {
	dir := t.TempDir()
	wm := newOpRecorder()
	manifest := testManifest()
	manifest.Dev = &domainPlugin.DevConfig{Port: 5173}

	svc := NewOverlayService(store.NewRegistry(dir), wm, func(string) (*domainPlugin.Manifest, bool) {
		return manifest, true
	}, OverlayOptions{Delay: 0, ScreenWidth: 1920, ScreenHeight: 1080, BaseURL: "http://localhost:3000"})
	ctx := context.Background()

	_, err := svc.LoadSettings(ctx, "demo", "hud")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateSettings(ctx, "demo", "hud", domainOverlay.SettingsPatch{Enabled: boolPtr(true)}))

	config, _, _, _, ok := wm.Window("demo-hud")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:5173/#/", config.EntryPoint)
}
