package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	domainPlugin "github.com/AzielCF/az-overlay/domains/plugin"
	"github.com/AzielCF/az-overlay/infrastructure/plugindb"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/AzielCF/az-overlay/validations"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type servicePlugin struct {
	dir  string
	repo *plugindb.InstalledPluginGormRepository

	mu        sync.RWMutex
	installed map[string]*domainPlugin.Installed
}

// NewPluginService builds the plugin registry. The database is optional: a
// nil db keeps the registry purely filesystem-backed.
func NewPluginService(dir string, db *gorm.DB) domainPlugin.IPluginUsecase {
	service := &servicePlugin{
		dir:       dir,
		installed: make(map[string]*domainPlugin.Installed),
	}
	if db != nil {
		service.repo = plugindb.NewInstalledPluginGormRepository(db)
		if err := service.repo.InitSchema(context.Background()); err != nil {
			logrus.Errorf("[PLUGIN] Failed to init plugin registry schema: %v", err)
			service.repo = nil
		}
	}
	return service
}

// loadOne reads and validates a single plugin directory.
func (service *servicePlugin) loadOne(ctx context.Context, path string) (*domainPlugin.Installed, error) {
	raw, err := os.ReadFile(filepath.Join(path, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("missing manifest.json: %w", err)
	}

	manifest, err := domainPlugin.ParseManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest.json: %w", err)
	}
	if err := validations.ValidateManifest(ctx, manifest); err != nil {
		return nil, err
	}
	if manifest.Core && !manifest.IsValidCorePlugin() {
		return nil, pkgError.ValidationError(fmt.Sprintf("plugin %s claims the core flag but is not a bundled plugin", manifest.ID))
	}

	symlink := false
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		symlink = true
	}

	return &domainPlugin.Installed{
		Manifest: manifest,
		Path:     path,
		Symlink:  symlink,
	}, nil
}

func (service *servicePlugin) Scan(ctx context.Context) ([]*domainPlugin.Installed, error) {
	entries, err := os.ReadDir(service.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	found := make(map[string]*domainPlugin.Installed)
	for _, entry := range entries {
		path := filepath.Join(service.dir, entry.Name())
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}

		installed, err := service.loadOne(ctx, path)
		if err != nil {
			logrus.Warnf("[PLUGIN] Skipping %s: %v", entry.Name(), err)
			continue
		}
		if _, dup := found[installed.Manifest.ID]; dup {
			logrus.Warnf("[PLUGIN] Duplicate plugin id %s in %s, keeping the first one", installed.Manifest.ID, entry.Name())
			continue
		}
		found[installed.Manifest.ID] = installed
	}

	service.mu.Lock()
	service.installed = found
	service.mu.Unlock()

	service.syncDatabase(ctx, found)

	list := service.sorted(found)
	logrus.Infof("[PLUGIN] Scan found %d plugin(s) in %s", len(list), service.dir)
	return list, nil
}

// syncDatabase mirrors the scan result into the registry table, best-effort.
func (service *servicePlugin) syncDatabase(ctx context.Context, found map[string]*domainPlugin.Installed) {
	if service.repo == nil {
		return
	}

	rows, err := service.repo.List(ctx)
	if err != nil {
		logrus.Errorf("[PLUGIN] Failed to read plugin registry: %v", err)
		return
	}
	for _, row := range rows {
		if _, ok := found[row.ID]; !ok {
			if err := service.repo.Delete(ctx, row.ID); err != nil {
				logrus.Errorf("[PLUGIN] Failed to prune %s from registry: %v", row.ID, err)
			}
		}
	}

	for id, installed := range found {
		raw, err := json.Marshal(installed.Manifest)
		if err != nil {
			continue
		}
		model := &plugindb.InstalledPluginModel{
			ID:       id,
			Name:     installed.Manifest.Name,
			Version:  installed.Manifest.Version,
			Path:     installed.Path,
			Symlink:  installed.Symlink,
			Core:     installed.Manifest.Core,
			Manifest: string(raw),
		}
		if err := service.repo.Upsert(ctx, model); err != nil {
			logrus.Errorf("[PLUGIN] Failed to record %s in registry: %v", id, err)
		}
	}
}

func (service *servicePlugin) sorted(m map[string]*domainPlugin.Installed) []*domainPlugin.Installed {
	list := make([]*domainPlugin.Installed, 0, len(m))
	for _, installed := range m {
		list = append(list, installed)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Manifest.ID < list[j].Manifest.ID
	})
	return list
}

func (service *servicePlugin) List(ctx context.Context) ([]*domainPlugin.Installed, error) {
	service.mu.RLock()
	empty := len(service.installed) == 0
	service.mu.RUnlock()

	if empty {
		return service.Scan(ctx)
	}

	service.mu.RLock()
	defer service.mu.RUnlock()
	return service.sorted(service.installed), nil
}

func (service *servicePlugin) Get(_ context.Context, id string) (*domainPlugin.Installed, error) {
	service.mu.RLock()
	defer service.mu.RUnlock()

	installed, ok := service.installed[id]
	if !ok {
		return nil, pkgError.NotFoundError(fmt.Sprintf("plugin %s is not installed", id))
	}
	return installed, nil
}

func (service *servicePlugin) InstallLocal(ctx context.Context, path string, symlink bool) (*domainPlugin.Installed, error) {
	source, err := filepath.Abs(path)
	if err != nil {
		return nil, pkgError.ValidationError(fmt.Sprintf("invalid plugin path: %v", err))
	}

	candidate, err := service.loadOne(ctx, source)
	if err != nil {
		return nil, pkgError.ValidationError(fmt.Sprintf("not a valid plugin directory: %v", err))
	}

	if err := os.MkdirAll(service.dir, 0755); err != nil {
		return nil, err
	}

	target := filepath.Join(service.dir, candidate.Manifest.ID)
	if _, err := os.Lstat(target); err == nil {
		return nil, pkgError.ValidationError(fmt.Sprintf("plugin %s is already installed", candidate.Manifest.ID))
	}

	if symlink {
		if err := os.Symlink(source, target); err != nil {
			return nil, fmt.Errorf("failed to link plugin: %w", err)
		}
	} else {
		if err := copyDir(source, target); err != nil {
			os.RemoveAll(target)
			return nil, fmt.Errorf("failed to copy plugin: %w", err)
		}
	}

	installed, err := service.loadOne(ctx, target)
	if err != nil {
		os.RemoveAll(target)
		return nil, err
	}

	service.mu.Lock()
	service.installed[installed.Manifest.ID] = installed
	service.mu.Unlock()

	service.syncDatabase(ctx, map[string]*domainPlugin.Installed{installed.Manifest.ID: installed})
	logrus.Infof("[PLUGIN] Installed %s v%s (symlink=%v)", installed.Manifest.ID, installed.Manifest.Version, symlink)
	return installed, nil
}

func (service *servicePlugin) Uninstall(ctx context.Context, id string) error {
	installed, err := service.Get(ctx, id)
	if err != nil {
		return err
	}
	if installed.Manifest.IsValidCorePlugin() {
		return pkgError.ValidationError(fmt.Sprintf("plugin %s is a core plugin and cannot be uninstalled", id))
	}

	if installed.Symlink {
		err = os.Remove(installed.Path)
	} else {
		err = os.RemoveAll(installed.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to remove plugin files: %w", err)
	}

	service.mu.Lock()
	delete(service.installed, id)
	service.mu.Unlock()

	if service.repo != nil {
		if err := service.repo.Delete(ctx, id); err != nil {
			logrus.Errorf("[PLUGIN] Failed to prune %s from registry: %v", id, err)
		}
	}
	logrus.Infof("[PLUGIN] Uninstalled %s", id)
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()

		_, err = io.Copy(out, in)
		return err
	})
}
