package plugindb

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstalledPluginModel is the database row for one installed plugin. The raw
// manifest is kept alongside the extracted columns so the registry survives
// restarts without re-reading every plugin directory.
type InstalledPluginModel struct {
	ID          string `gorm:"primaryKey;column:id"`
	Name        string `gorm:"column:name"`
	Version     string `gorm:"column:version"`
	Path        string `gorm:"column:path"`
	Symlink     bool   `gorm:"column:symlink"`
	Core        bool   `gorm:"column:core"`
	Manifest    string `gorm:"column:manifest"`
	InstalledAt time.Time
	UpdatedAt   time.Time
}

func (InstalledPluginModel) TableName() string {
	return "installed_plugins"
}

type InstalledPluginGormRepository struct {
	db *gorm.DB
}

func NewInstalledPluginGormRepository(db *gorm.DB) *InstalledPluginGormRepository {
	return &InstalledPluginGormRepository{db: db}
}

func (r *InstalledPluginGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&InstalledPluginModel{})
}

func (r *InstalledPluginGormRepository) Upsert(ctx context.Context, m *InstalledPluginModel) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       m.Name,
			"version":    m.Version,
			"path":       m.Path,
			"symlink":    m.Symlink,
			"core":       m.Core,
			"manifest":   m.Manifest,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(m).Error
}

func (r *InstalledPluginGormRepository) Get(ctx context.Context, id string) (*InstalledPluginModel, error) {
	var m InstalledPluginModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *InstalledPluginGormRepository) List(ctx context.Context) ([]InstalledPluginModel, error) {
	var models []InstalledPluginModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

func (r *InstalledPluginGormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&InstalledPluginModel{}, "id = ?", id).Error
}
