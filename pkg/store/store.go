// Package store persists settings documents as JSON files. Documents are
// plain key-value objects addressed by name; an explicit registry keeps one
// refcounted handle per open document so concurrent consumers of the same
// file share state instead of racing on it.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps document names to open handles. Handles are refcounted:
// Load increments, Handle.Release decrements, and the cache entry is dropped
// when the count reaches zero so handles never leak across window lifecycles.
type Registry struct {
	mu      sync.Mutex
	dir     string
	handles map[string]*Handle
}

func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:     dir,
		handles: make(map[string]*Handle),
	}
}

// Load opens the named document, creating an empty one in memory if the file
// is missing. A corrupt file degrades to an empty document: settings are
// low-stakes state and defaults are always a valid fallback.
func (r *Registry) Load(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[name]; ok {
		h.refs++
		return h
	}

	h := &Handle{
		registry: r,
		name:     name,
		path:     filepath.Join(r.dir, name),
		refs:     1,
		data:     map[string]any{},
	}

	raw, err := os.ReadFile(h.path)
	switch {
	case os.IsNotExist(err):
		// First open, the file is written on the first Save.
	case err != nil:
		logrus.Warnf("[STORE] Failed to read %s, starting from defaults: %v", name, err)
	default:
		if err := json.Unmarshal(raw, &h.data); err != nil {
			logrus.Warnf("[STORE] Corrupt document %s, starting from defaults: %v", name, err)
			h.data = map[string]any{}
		}
	}

	r.handles[name] = h
	return h
}

// OpenHandles returns the number of documents currently held open.
func (r *Registry) OpenHandles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// DiskUsage returns the total size in bytes of all persisted documents.
func (r *Registry) DiskUsage() int64 {
	var total int64
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		// Only finished documents count; temp files from interrupted saves
		// and unrelated files in the directory do not.
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if info, err := entry.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (r *Registry) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h.refs--
	if h.refs <= 0 {
		delete(r.handles, h.name)
	}
}

// Handle is an open settings document. Set does not persist anything; a
// batch of Set calls must always be paired with one Save.
type Handle struct {
	mu       sync.Mutex
	registry *Registry
	name     string
	path     string
	refs     int
	data     map[string]any
}

func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) Get(key string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.data[key]
	return v, ok
}

// GetAll returns a copy of the document's key-value pairs.
func (h *Handle) GetAll() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]any, len(h.data))
	for k, v := range h.data {
		out[k] = v
	}
	return out
}

func (h *Handle) Set(key string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[key] = value
}

func (h *Handle) SetAll(values map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, v := range values {
		h.data[k] = v
	}
}

// Delete removes a key and reports whether it existed.
func (h *Handle) Delete(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.data[key]
	delete(h.data, key)
	return ok
}

func (h *Handle) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = map[string]any{}
}

func (h *Handle) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.data))
	for k := range h.data {
		keys = append(keys, k)
	}
	return keys
}

// Save writes the document to disk. The write goes through a temp file plus
// rename so a crash mid-write never leaves a truncated document behind.
func (h *Handle) Save() error {
	h.mu.Lock()
	raw, err := json.MarshalIndent(h.data, "", "  ")
	h.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return err
	}

	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, h.path)
}

// Release drops this consumer's reference. The handle must not be used
// afterwards.
func (h *Handle) Release() {
	h.registry.release(h)
}
