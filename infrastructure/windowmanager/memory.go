package windowmanager

import (
	"context"
	"sync"

	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/sirupsen/logrus"
)

type windowState struct {
	config       domainOverlay.Config
	visible      bool
	clickThrough bool
	alwaysOnTop  bool
}

// MemoryManager is an in-process window manager used for tests and headless
// runs. It tracks the same state the native shell would, without any OS
// windows behind it.
type MemoryManager struct {
	mu      sync.Mutex
	windows map[string]*windowState
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		windows: make(map[string]*windowState),
	}
}

func (m *MemoryManager) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.windows[id]
	return ok, nil
}

func (m *MemoryManager) Spawn(_ context.Context, config domainOverlay.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.windows[config.ID]; ok {
		return pkgError.ValidationError("window " + config.ID + " already exists")
	}

	m.windows[config.ID] = &windowState{
		config:       config,
		visible:      true,
		clickThrough: config.ClickThrough,
		alwaysOnTop:  true,
	}
	logrus.Debugf("[WM] Spawned window %s at (%v, %v)", config.ID, config.X, config.Y)
	return nil
}

func (m *MemoryManager) SetVisible(_ context.Context, id string, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[id]
	if !ok {
		return pkgError.NotFoundError("window " + id + " not found")
	}
	w.visible = visible
	return nil
}

func (m *MemoryManager) UpdateGeometry(_ context.Context, id string, x, y, width, height float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[id]
	if !ok {
		return pkgError.NotFoundError("window " + id + " not found")
	}
	w.config.X = x
	w.config.Y = y
	w.config.Width = width
	w.config.Height = height
	return nil
}

func (m *MemoryManager) SetClickThrough(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[id]
	if !ok {
		return pkgError.NotFoundError("window " + id + " not found")
	}
	w.clickThrough = enabled
	return nil
}

func (m *MemoryManager) SetAlwaysOnTop(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[id]
	if !ok {
		return pkgError.NotFoundError("window " + id + " not found")
	}
	w.alwaysOnTop = enabled
	return nil
}

func (m *MemoryManager) Close(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.windows[id]; !ok {
		return pkgError.NotFoundError("window " + id + " not found")
	}
	delete(m.windows, id)
	return nil
}

func (m *MemoryManager) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.windows))
	for id := range m.windows {
		ids = append(ids, id)
	}
	return ids, nil
}

// Window returns a snapshot of a window's state, used by tests.
func (m *MemoryManager) Window(id string) (config domainOverlay.Config, visible, clickThrough, alwaysOnTop bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, found := m.windows[id]
	if !found {
		return domainOverlay.Config{}, false, false, false, false
	}
	return w.config, w.visible, w.clickThrough, w.alwaysOnTop, true
}
