package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-overlay/domains/schema"
	domainSettings "github.com/AzielCF/az-overlay/domains/settings"
	"github.com/AzielCF/az-overlay/pkg/debounce"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/AzielCF/az-overlay/pkg/eventbus"
	"github.com/AzielCF/az-overlay/pkg/store"
	"github.com/sirupsen/logrus"
)

// SchemaProvider resolves the declared settings schema for a plugin. A nil
// result means the plugin declares no schema; values are then stored as-is.
type SchemaProvider func(pluginID string) *schema.Schema

type settingsConsumer struct {
	mu       sync.Mutex
	handle   *store.Handle
	debounce *debounce.Controller
	values   schema.Values
}

type serviceSettings struct {
	registry  *store.Registry
	bus       *eventbus.Bus
	schemaFor SchemaProvider
	delay     time.Duration

	mu        sync.Mutex
	consumers map[string]*settingsConsumer
}

func NewSettingsService(registry *store.Registry, bus *eventbus.Bus, schemaFor SchemaProvider, delay time.Duration) domainSettings.ISettingsUsecase {
	if schemaFor == nil {
		schemaFor = func(string) *schema.Schema { return nil }
	}
	return &serviceSettings{
		registry:  registry,
		bus:       bus,
		schemaFor: schemaFor,
		delay:     delay,
		consumers: make(map[string]*settingsConsumer),
	}
}

// consumer returns the per-plugin state, opening the backing document and
// merging it with schema defaults on first use.
func (service *serviceSettings) consumer(pluginID string) *settingsConsumer {
	service.mu.Lock()
	defer service.mu.Unlock()

	if c, ok := service.consumers[pluginID]; ok {
		return c
	}

	c := &settingsConsumer{
		handle: service.registry.Load(domainSettings.DocumentName(pluginID)),
	}
	if s := service.schemaFor(pluginID); s != nil {
		c.values = schema.MergeWithDefaults(s, c.handle.GetAll())
	} else {
		// No declared schema: the stored document is the whole truth.
		c.values = c.handle.GetAll()
	}
	c.debounce = debounce.New(service.delay, func(pending map[string]any) {
		service.flush(pluginID, c, pending)
	})
	service.consumers[pluginID] = c
	return c
}

// flush persists one coalesced batch and broadcasts the resulting full
// settings object. A failed write is logged and the broadcast skipped: the
// in-memory state stays ahead of disk and the next flush retries the keys.
func (service *serviceSettings) flush(pluginID string, c *settingsConsumer, pending map[string]any) {
	for key, value := range pending {
		c.handle.Set(key, value)
	}
	if err := c.handle.Save(); err != nil {
		logrus.Errorf("[SETTINGS] Failed to persist %s: %v", c.handle.Name(), err)
		return
	}
	logrus.Debugf("[SETTINGS] Flushed %d update(s) for %s", len(pending), pluginID)
	service.publish(pluginID, c)
}

func (service *serviceSettings) publish(pluginID string, c *settingsConsumer) {
	c.mu.Lock()
	snapshot := make(schema.Values, len(c.values))
	for k, v := range c.values {
		snapshot[k] = v
	}
	c.mu.Unlock()

	service.bus.Publish(domainSettings.ChangedTopic(pluginID), domainSettings.ChangedEvent{
		PluginID: pluginID,
		Values:   snapshot,
	})
}

func (service *serviceSettings) Load(_ context.Context, pluginID string) (schema.Values, error) {
	c := service.consumer(pluginID)

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(schema.Values, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out, nil
}

func (service *serviceSettings) Get(_ context.Context, pluginID, key string) (any, error) {
	c := service.consumer(pluginID)

	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return nil, pkgError.NotFoundError(fmt.Sprintf("setting %s not found for plugin %s", key, pluginID))
	}
	return v, nil
}

func (service *serviceSettings) GetAll(ctx context.Context, pluginID string) (schema.Values, error) {
	return service.Load(ctx, pluginID)
}

func (service *serviceSettings) validate(pluginID, key string, value any) error {
	s := service.schemaFor(pluginID)
	if s == nil {
		return nil
	}
	field, ok := s.Get(key)
	if !ok {
		return pkgError.ValidationError(fmt.Sprintf("%s: not declared in the settings schema of %s.", key, pluginID))
	}
	return schema.ValidateValue(key, field, value)
}

func (service *serviceSettings) Update(_ context.Context, pluginID, key string, value any) error {
	if err := service.validate(pluginID, key, value); err != nil {
		return err
	}

	c := service.consumer(pluginID)
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()

	c.debounce.Schedule(key, value)
	return nil
}

func (service *serviceSettings) SetAll(_ context.Context, pluginID string, values schema.Values) error {
	for key, value := range values {
		if err := service.validate(pluginID, key, value); err != nil {
			return err
		}
	}

	c := service.consumer(pluginID)
	// An explicit commit supersedes anything sitting behind the timer.
	c.debounce.Cancel()

	c.mu.Lock()
	for k, v := range values {
		c.values[k] = v
	}
	c.mu.Unlock()

	c.handle.SetAll(values)
	if err := c.handle.Save(); err != nil {
		return pkgError.InternalServerError(fmt.Sprintf("failed to persist settings for %s: %v", pluginID, err))
	}
	service.publish(pluginID, c)
	return nil
}

func (service *serviceSettings) Delete(_ context.Context, pluginID, key string) (bool, error) {
	c := service.consumer(pluginID)
	// Pending debounced writes land first; a stale flush after the delete
	// would re-persist the removed key.
	c.debounce.FlushNow()

	existed := c.handle.Delete(key)
	if err := c.handle.Save(); err != nil {
		return existed, pkgError.InternalServerError(fmt.Sprintf("failed to persist settings for %s: %v", pluginID, err))
	}

	c.mu.Lock()
	if s := service.schemaFor(pluginID); s != nil {
		if field, ok := s.Get(key); ok {
			// The key falls back to its schema default rather than vanishing.
			c.values[key] = schema.ResolveDefault(field)
		} else {
			delete(c.values, key)
		}
	} else {
		delete(c.values, key)
	}
	c.mu.Unlock()

	service.publish(pluginID, c)
	return existed, nil
}

func (service *serviceSettings) Clear(_ context.Context, pluginID string) error {
	c := service.consumer(pluginID)
	c.debounce.Cancel()

	c.handle.Clear()
	if err := c.handle.Save(); err != nil {
		return pkgError.InternalServerError(fmt.Sprintf("failed to persist settings for %s: %v", pluginID, err))
	}

	c.mu.Lock()
	c.values = schema.MergeWithDefaults(service.schemaFor(pluginID), schema.Values{})
	c.mu.Unlock()

	service.publish(pluginID, c)
	return nil
}

func (service *serviceSettings) ResetDefaults(_ context.Context, pluginID string) error {
	c := service.consumer(pluginID)
	c.debounce.Cancel()

	defaults := schema.MergeWithDefaults(service.schemaFor(pluginID), schema.Values{})

	c.handle.Clear()
	c.handle.SetAll(defaults)
	if err := c.handle.Save(); err != nil {
		return pkgError.InternalServerError(fmt.Sprintf("failed to persist settings for %s: %v", pluginID, err))
	}

	c.mu.Lock()
	c.values = defaults
	c.mu.Unlock()

	service.publish(pluginID, c)
	return nil
}

func (service *serviceSettings) FlushNow(pluginID string) {
	service.mu.Lock()
	c, ok := service.consumers[pluginID]
	service.mu.Unlock()
	if ok {
		c.debounce.FlushNow()
	}
}

func (service *serviceSettings) Teardown(pluginID string) {
	service.mu.Lock()
	c, ok := service.consumers[pluginID]
	if ok {
		delete(service.consumers, pluginID)
	}
	service.mu.Unlock()

	if !ok {
		return
	}
	c.debounce.FlushNow()
	c.handle.Release()
	logrus.Debugf("[SETTINGS] Released settings consumer for %s", pluginID)
}

func (service *serviceSettings) Subscribe(pluginID string, handler func(domainSettings.ChangedEvent)) func() {
	sub := service.bus.Subscribe(domainSettings.ChangedTopic(pluginID), func(_ string, payload any) {
		if event, ok := payload.(domainSettings.ChangedEvent); ok {
			handler(event)
		}
	})
	return sub.Unsubscribe
}
