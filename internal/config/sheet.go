package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// SheetConfig tunes the spreadsheet collaborator: the webhook handling
// row-removal compensation and the export limits.
type SheetConfig struct {
	WebhookURL            string `mapstructure:"webhookUrl"`
	WebhookToken          string `mapstructure:"webhookToken"`
	RequestTimeoutSeconds int    `mapstructure:"requestTimeoutSeconds"`
	ExportMaxRows         int    `mapstructure:"exportMaxRows"`
}

func DefaultSheetConfig() SheetConfig {
	return SheetConfig{
		RequestTimeoutSeconds: 10,
		ExportMaxRows:         10_000,
	}
}

// SheetModule provides the hot-reloadable sheet configuration holder.
var SheetModule = fx.Provide(NewSheetConfigHolder)

// SheetConfigHolder hot-reloads sheet.yml so webhook rotation does not need
// a restart.
type SheetConfigHolder struct {
	current atomic.Value // holds SheetConfig
}

func NewSheetConfigHolder() (*SheetConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("sheet")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/revaudit/config")
	v.AddConfigPath("/etc/revaudit")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSheetConfig()
		v.SetDefault("sheet.webhookUrl", defaults.WebhookURL)
		v.SetDefault("sheet.webhookToken", defaults.WebhookToken)
		v.SetDefault("sheet.requestTimeoutSeconds", defaults.RequestTimeoutSeconds)
		v.SetDefault("sheet.exportMaxRows", defaults.ExportMaxRows)
	}

	var cfg SheetConfig
	if err := v.UnmarshalKey("sheet", &cfg); err != nil {
		return nil, err
	}
	if err := validateSheetConfig(cfg); err != nil {
		return nil, err
	}

	holder := &SheetConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SheetConfig
		if err := v.UnmarshalKey("sheet", &updated); err != nil {
			log.Printf("[sheet-config] reload failed: %v", err)
			return
		}
		if err := validateSheetConfig(updated); err != nil {
			log.Printf("[sheet-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[sheet-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *SheetConfigHolder) Get() SheetConfig {
	return h.current.Load().(SheetConfig)
}

func validateSheetConfig(cfg SheetConfig) error {
	if cfg.RequestTimeoutSeconds < 0 {
		return errors.New("sheet.requestTimeoutSeconds cannot be negative")
	}
	if cfg.ExportMaxRows < 0 {
		return errors.New("sheet.exportMaxRows cannot be negative")
	}
	return nil
}
