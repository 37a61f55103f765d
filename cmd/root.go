package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/AzielCF/az-overlay/core/config"
	coreDB "github.com/AzielCF/az-overlay/core/database"
	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	domainPlugin "github.com/AzielCF/az-overlay/domains/plugin"
	"github.com/AzielCF/az-overlay/domains/schema"
	domainSettings "github.com/AzielCF/az-overlay/domains/settings"
	"github.com/AzielCF/az-overlay/infrastructure/valkey"
	"github.com/AzielCF/az-overlay/infrastructure/windowmanager"
	"github.com/AzielCF/az-overlay/pkg/eventbus"
	"github.com/AzielCF/az-overlay/pkg/store"
	"github.com/AzielCF/az-overlay/pkg/utils"
	"github.com/AzielCF/az-overlay/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	appDB    *gorm.DB
	vkClient *valkey.Client
	serverID string

	registry *store.Registry
	bus      *eventbus.Bus

	pluginUsecase   domainPlugin.IPluginUsecase
	settingsUsecase domainSettings.ISettingsUsecase
	overlayUsecase  domainOverlay.IOverlayUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-overlay",
	Short: "Plugin overlay engine",
	Long: `az-overlay manages plugin settings and their overlay windows:
typed settings schemas, debounced persistence, change broadcasts and
reconciliation of live windows against persisted state.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

var (
	flagPort       string
	flagDebug      bool
	flagBasePath   string
	flagPluginsDir string
)

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagBasePath,
		"base-path", "",
		"",
		`base path for subpath deployment --base-path <string> | example: --base-path="/overlay"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagPluginsDir,
		"plugins-dir", "",
		"",
		`plugins directory --plugins-dir <string> | example: --plugins-dir="./plugins"`,
	)
}

// initEnvConfig applies viper-provided environment overrides on top of the
// loaded configuration, then CLI flags on top of those.
func initEnvConfig() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	viper.AutomaticEnv()
	if envPort := viper.GetString("app_port"); envPort != "" {
		cfg.App.Port = envPort
	}
	if viper.IsSet("app_debug") && viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		cfg.App.BasePath = envBasePath
	}
	if envBasicAuth := viper.GetString("app_basic_auth"); envBasicAuth != "" {
		cfg.App.BasicAuth = strings.Split(envBasicAuth, ",")
	}

	if flagPort != "" {
		cfg.App.Port = flagPort
	}
	if flagDebug {
		cfg.App.Debug = true
	}
	if flagBasePath != "" {
		cfg.App.BasePath = flagBasePath
	}
	if flagPluginsDir != "" {
		cfg.Paths.Plugins = flagPluginsDir
	}
}

func initApp() {
	cfg := config.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(cfg.Paths.Storages, cfg.Paths.Plugins, cfg.Paths.Settings); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	var err error
	appDB, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}

	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Errorf("Valkey disabled, connection failed: %v", err)
			vkClient = nil
		}
	}
	serverID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	registry = store.NewRegistry(cfg.Paths.Settings)
	bus = eventbus.New()

	pluginUsecase = usecase.NewPluginService(cfg.Paths.Plugins, appDB)
	if _, err := pluginUsecase.Scan(ctx); err != nil {
		logrus.Errorf("Initial plugin scan failed: %v", err)
	}

	schemaFor := func(pluginID string) *schema.Schema {
		installed, err := pluginUsecase.Get(ctx, pluginID)
		if err != nil {
			return nil
		}
		return installed.Manifest.SettingsSchema()
	}
	settingsUsecase = usecase.NewSettingsService(registry, bus, schemaFor, debounceDelay(cfg))

	wm := buildWindowManager(cfg)
	overlayUsecase = usecase.NewOverlayService(registry, wm, func(pluginID string) (*domainPlugin.Manifest, bool) {
		installed, err := pluginUsecase.Get(ctx, pluginID)
		if err != nil {
			return nil, false
		}
		return installed.Manifest, true
	}, usecase.OverlayOptions{
		Delay:        debounceDelay(cfg),
		ScreenWidth:  cfg.Overlay.AssumedScreenWidth,
		ScreenHeight: cfg.Overlay.AssumedScreenHeight,
		BaseURL:      cfg.App.BaseUrl,
	})
}

func debounceDelay(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Overlay.DebounceMs) * time.Millisecond
}

func buildWindowManager(cfg *config.Config) domainOverlay.WindowManager {
	if cfg.Overlay.WindowManagerEndpoint == "" {
		logrus.Info("[WM] No window manager endpoint configured, using the in-memory manager")
		return windowmanager.NewMemoryManager()
	}
	timeout := time.Duration(cfg.Overlay.WindowManagerTimeoutMs) * time.Millisecond
	return windowmanager.NewShellClient(cfg.Overlay.WindowManagerEndpoint, timeout)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown: pending debounced writes are flushed
// before any connection closes.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if pluginUsecase != nil && settingsUsecase != nil && overlayUsecase != nil {
		ctx := context.Background()
		plugins, err := pluginUsecase.List(ctx)
		if err == nil {
			for _, installed := range plugins {
				settingsUsecase.Teardown(installed.Manifest.ID)
				if installed.Manifest.Overlays != nil {
					for pair := installed.Manifest.Overlays.Oldest(); pair != nil; pair = pair.Next() {
						overlayUsecase.Teardown(installed.Manifest.ID, pair.Key)
					}
				}
			}
		}
	}

	if vkClient != nil {
		vkClient.Close()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
