package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AzielCF/az-overlay/domains/schema"
	domainSettings "github.com/AzielCF/az-overlay/domains/settings"
	"github.com/AzielCF/az-overlay/pkg/eventbus"
	"github.com/AzielCF/az-overlay/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *schema.Schema {
	s := schema.New()
	s.Set("theme", &schema.Field{
		Type:    schema.KindSelect,
		Label:   "Theme",
		Default: "dark",
		Options: []schema.Option{{Value: "dark", Label: "Dark"}, {Value: "light", Label: "Light"}},
	})
	s.Set("volume", &schema.Field{Type: schema.KindNumber, Label: "Volume", Default: float64(50)})
	s.Set("muted", &schema.Field{Type: schema.KindBoolean, Label: "Muted", Default: false})
	return s
}

func newTestSettingsService(t *testing.T, delay time.Duration) (domainSettings.ISettingsUsecase, string, *eventbus.Bus) {
	t.Helper()

	dir := t.TempDir()
	bus := eventbus.New()
	svc := NewSettingsService(store.NewRegistry(dir), bus, func(pluginID string) *schema.Schema {
		if pluginID == "demo" {
			return testSchema()
		}
		return nil
	}, delay)
	return svc, dir, bus
}

func TestSettingsService_LoadReturnsDefaults(t *testing.T) {
	svc, _, _ := newTestSettingsService(t, 0)

	values, err := svc.Load(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "dark", values["theme"])
	assert.Equal(t, float64(50), values["volume"])
	assert.Equal(t, false, values["muted"])
}

func TestSettingsService_UpdateIsVisibleImmediately(t *testing.T) {
	svc, _, _ := newTestSettingsService(t, time.Hour) // flush never fires on its own
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "demo", "theme", "light"))

	v, err := svc.Get(ctx, "demo", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v, "in-memory state must reflect the update before the flush")
}

func TestSettingsService_UpdateValidation(t *testing.T) {
	svc, _, _ := newTestSettingsService(t, 0)
	ctx := context.Background()

	assert.Error(t, svc.Update(ctx, "demo", "theme", "neon"), "value outside the declared options")
	assert.Error(t, svc.Update(ctx, "demo", "volume", "loud"), "wrong kind")
	assert.Error(t, svc.Update(ctx, "demo", "nope", 1), "key not in the schema")
}

func TestSettingsService_DebounceCoalescesIntoOneBroadcast(t *testing.T) {
	svc, dir, _ := newTestSettingsService(t, 40*time.Millisecond)
	ctx := context.Background()

	events := make(chan domainSettings.ChangedEvent, 10)
	unsubscribe := svc.Subscribe("demo", func(e domainSettings.ChangedEvent) {
		events <- e
	})
	defer unsubscribe()

	for _, v := range []float64{10, 20, 30, 40, 99} {
		require.NoError(t, svc.Update(ctx, "demo", "volume", v))
	}

	select {
	case e := <-events:
		assert.Equal(t, "demo", e.PluginID)
		assert.Equal(t, float64(99), e.Values["volume"], "last write wins")
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast after the quiet period")
	}

	select {
	case <-events:
		t.Fatal("rapid updates must coalesce into a single broadcast")
	case <-time.After(120 * time.Millisecond):
	}

	raw, err := os.ReadFile(filepath.Join(dir, "demo-settings.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, float64(99), persisted["volume"])
}

func TestSettingsService_SetAllCancelsPendingDebounce(t *testing.T) {
	svc, _, _ := newTestSettingsService(t, 40*time.Millisecond)
	ctx := context.Background()

	events := make(chan domainSettings.ChangedEvent, 10)
	unsubscribe := svc.Subscribe("demo", func(e domainSettings.ChangedEvent) {
		events <- e
	})
	defer unsubscribe()

	require.NoError(t, svc.Update(ctx, "demo", "volume", float64(10)))
	require.NoError(t, svc.SetAll(ctx, "demo", schema.Values{"volume": float64(75)}))

	select {
	case e := <-events:
		assert.Equal(t, float64(75), e.Values["volume"])
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast from SetAll")
	}

	// The buffered update from before SetAll must never fire afterwards.
	select {
	case e := <-events:
		t.Fatalf("stale debounced write fired after SetAll: %v", e.Values)
	case <-time.After(120 * time.Millisecond):
	}

	v, err := svc.Get(ctx, "demo", "volume")
	require.NoError(t, err)
	assert.Equal(t, float64(75), v)
}

func TestSettingsService_LateSubscriberGetsNoReplay(t *testing.T) {
	svc, _, _ := newTestSettingsService(t, 0)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "demo", "theme", "light"))

	events := make(chan domainSettings.ChangedEvent, 1)
	unsubscribe := svc.Subscribe("demo", func(e domainSettings.ChangedEvent) {
		events <- e
	})
	defer unsubscribe()

	select {
	case <-events:
		t.Fatal("late subscriber must not receive a replay")
	case <-time.After(60 * time.Millisecond):
	}

	// Catching up is an explicit Load.
	values, err := svc.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "light", values["theme"])
}

func TestSettingsService_DeleteFallsBackToDefault(t *testing.T) {
	svc, _, _ := newTestSettingsService(t, 0)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "demo", "theme", "light"))

	existed, err := svc.Delete(ctx, "demo", "theme")
	require.NoError(t, err)
	assert.True(t, existed)

	v, err := svc.Get(ctx, "demo", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	existed, err = svc.Delete(ctx, "demo", "theme")
	require.NoError(t, err)
	assert.False(t, existed, "second delete finds nothing persisted")
}

func TestSettingsService_DeleteSurvivesPendingDebounce(t *testing.T) {
	svc, dir, _ := newTestSettingsService(t, 60*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "demo", "volume", float64(23)))

	existed, err := svc.Delete(ctx, "demo", "volume")
	require.NoError(t, err)
	assert.True(t, existed, "the buffered write lands before the delete")

	// Wait past the quiet period: the old timer must not resurrect the key.
	time.Sleep(200 * time.Millisecond)

	raw, err := os.ReadFile(filepath.Join(dir, "demo-settings.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.NotContains(t, persisted, "volume", "deleted key must stay deleted on disk")

	v, err := svc.Get(ctx, "demo", "volume")
	require.NoError(t, err)
	assert.Equal(t, float64(50), v, "in-memory state falls back to the schema default")
}

func TestSettingsService_ResetDefaults(t *testing.T) {
	svc, dir, _ := newTestSettingsService(t, 0)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "demo", "volume", float64(5)))
	require.NoError(t, svc.ResetDefaults(ctx, "demo"))

	values, err := svc.GetAll(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, float64(50), values["volume"])

	raw, err := os.ReadFile(filepath.Join(dir, "demo-settings.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, float64(50), persisted["volume"], "defaults are materialized on disk")
}

func TestSettingsService_SchemaLessPluginStoresAsIs(t *testing.T) {
	svc, _, _ := newTestSettingsService(t, 0)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "freeform", "anything", "goes"))

	v, err := svc.Get(ctx, "freeform", "anything")
	require.NoError(t, err)
	assert.Equal(t, "goes", v)
}

func TestSettingsService_TeardownFlushesPendingWrites(t *testing.T) {
	svc, dir, _ := newTestSettingsService(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "demo", "muted", true))
	svc.Teardown("demo")

	raw, err := os.ReadFile(filepath.Join(dir, "demo-settings.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, true, persisted["muted"], "teardown must flush the buffered batch")
}
