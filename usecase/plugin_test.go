package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePluginDir(t *testing.T, root, id, manifest string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	return dir
}

const demoManifest = `{
	"id": "demo-counter",
	"name": "Demo Counter",
	"version": "1.0.0",
	"entry": "index.html",
	"overlays": {
		"main": {"width": 300, "height": 200, "defaultPosition": "top-right"}
	}
}`

func TestPluginService_ScanAndGet(t *testing.T) {
	dir := t.TempDir()
	writePluginDir(t, dir, "demo-counter", demoManifest)

	svc := NewPluginService(dir, nil)
	ctx := context.Background()

	list, err := svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "demo-counter", list[0].Manifest.ID)
	assert.False(t, list[0].Symlink)

	installed, err := svc.Get(ctx, "demo-counter")
	require.NoError(t, err)
	def, ok := installed.Manifest.Overlay("main")
	require.True(t, ok)
	assert.Equal(t, float64(300), def.Width)
	assert.Equal(t, "top-right", def.DefaultPosition)

	_, err = svc.Get(ctx, "ghost")
	assert.Error(t, err)
}

func TestPluginService_ScanSkipsBrokenPlugins(t *testing.T) {
	dir := t.TempDir()
	writePluginDir(t, dir, "demo-counter", demoManifest)
	writePluginDir(t, dir, "broken", `{"id": "broken"`)
	writePluginDir(t, dir, "incomplete", `{"id": "incomplete"}`)

	svc := NewPluginService(dir, nil)

	list, err := svc.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1, "broken and incomplete manifests must be skipped")
	assert.Equal(t, "demo-counter", list[0].Manifest.ID)
}

func TestPluginService_CoreFlagRequiresAllowlist(t *testing.T) {
	dir := t.TempDir()
	writePluginDir(t, dir, "impostor", `{
		"id": "impostor",
		"name": "Impostor",
		"version": "1.0.0",
		"entry": "index.html",
		"core": true
	}`)

	svc := NewPluginService(dir, nil)

	list, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "a non-bundled plugin claiming the core flag is rejected")
}

func TestPluginService_InstallLocalCopy(t *testing.T) {
	source := t.TempDir()
	writePluginDir(t, source, "demo-counter", demoManifest)

	pluginsDir := t.TempDir()
	svc := NewPluginService(pluginsDir, nil)
	ctx := context.Background()

	installed, err := svc.InstallLocal(ctx, filepath.Join(source, "demo-counter"), false)
	require.NoError(t, err)
	assert.Equal(t, "demo-counter", installed.Manifest.ID)
	assert.False(t, installed.Symlink)

	// The copy is independent of the source directory.
	_, err = os.Stat(filepath.Join(pluginsDir, "demo-counter", "index.html"))
	assert.NoError(t, err)

	_, err = svc.InstallLocal(ctx, filepath.Join(source, "demo-counter"), false)
	assert.Error(t, err, "double install must fail")
}

func TestPluginService_InstallLocalSymlink(t *testing.T) {
	source := t.TempDir()
	sourceDir := writePluginDir(t, source, "demo-counter", demoManifest)

	pluginsDir := t.TempDir()
	svc := NewPluginService(pluginsDir, nil)

	installed, err := svc.InstallLocal(context.Background(), sourceDir, true)
	require.NoError(t, err)
	assert.True(t, installed.Symlink)

	target, err := os.Readlink(filepath.Join(pluginsDir, "demo-counter"))
	require.NoError(t, err)
	assert.Equal(t, sourceDir, target)
}

func TestPluginService_Uninstall(t *testing.T) {
	dir := t.TempDir()
	writePluginDir(t, dir, "demo-counter", demoManifest)

	svc := NewPluginService(dir, nil)
	ctx := context.Background()

	_, err := svc.Scan(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Uninstall(ctx, "demo-counter"))

	_, err = svc.Get(ctx, "demo-counter")
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "demo-counter"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, svc.Uninstall(ctx, "demo-counter"), "uninstalling twice fails cleanly")
}
