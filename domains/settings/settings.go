package settings

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-overlay/domains/schema"
)

// ChangedEvent is the payload broadcast after a successful persisted write.
// It carries the complete settings object, never a diff; subscribers must
// re-merge it against their own schema because a publisher may only know a
// subset of the fields.
type ChangedEvent struct {
	PluginID string        `json:"pluginId"`
	Values   schema.Values `json:"values"`
}

// ChangedTopic builds the broadcast topic for one plugin's settings.
func ChangedTopic(pluginID string) string {
	return fmt.Sprintf("settings-changed:%s", pluginID)
}

// DocumentName builds the plugin-wide settings document name. The format is
// load-bearing for compatibility with existing installations.
func DocumentName(pluginID string) string {
	return fmt.Sprintf("%s-settings.json", pluginID)
}

type ISettingsUsecase interface {
	// Load reads the persisted document and merges it with schema defaults.
	// A missing or corrupt document degrades to defaults.
	Load(ctx context.Context, pluginID string) (schema.Values, error)
	Get(ctx context.Context, pluginID, key string) (any, error)
	GetAll(ctx context.Context, pluginID string) (schema.Values, error)
	// Update validates the value, applies it to in-memory state immediately
	// and buffers the write behind the debounce timer.
	Update(ctx context.Context, pluginID, key string, value any) error
	// SetAll is the explicit commit path: it cancels any pending debounce,
	// persists synchronously and broadcasts the change.
	SetAll(ctx context.Context, pluginID string, values schema.Values) error
	Delete(ctx context.Context, pluginID, key string) (bool, error)
	Clear(ctx context.Context, pluginID string) error
	ResetDefaults(ctx context.Context, pluginID string) error
	// FlushNow flushes any buffered updates synchronously. Invoke it on
	// teardown so the last batch of rapid edits is not lost.
	FlushNow(pluginID string)
	Teardown(pluginID string)
	// Subscribe registers a handler for this plugin's change broadcasts.
	// Delivery is at-most-once with no replay: late subscribers must call
	// Load to catch up. The returned function unsubscribes.
	Subscribe(pluginID string, handler func(ChangedEvent)) func()
}
