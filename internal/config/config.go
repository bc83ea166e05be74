package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"ecocal/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Provider ProviderConfig `mapstructure:"provider"`
	Detail   DetailConfig   `mapstructure:"detail"`
	Export   ExportConfig   `mapstructure:"export"`
	Database DatabaseConfig `mapstructure:"database"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Alerting AlertingConfig `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ProviderConfig covers the FXStreet calendar API.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Referer        string        `mapstructure:"referer"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	IDColumn       string        `mapstructure:"id_column"`
	DefaultStart   string        `mapstructure:"default_start"`
	DefaultEnd     string        `mapstructure:"default_end"`
}

// DetailConfig governs the batched detail fan-out.
type DetailConfig struct {
	BatchSize         int    `mapstructure:"batch_size"`
	MaxConcurrency    int    `mapstructure:"max_concurrency"`
	DropTrailingBatch bool   `mapstructure:"drop_trailing_batch"`
	OnMissing         string `mapstructure:"on_missing"`
}

// ExportConfig sets file export behaviour.
type ExportConfig struct {
	Dir          string `mapstructure:"dir"`
	WithDetails  bool   `mapstructure:"with_details"`
	DateColumn   string `mapstructure:"date_column"`
	ImpactColumn string `mapstructure:"impact_column"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for snapshot export.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WatchConfig governs the periodic refresh loop.
type WatchConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	LookaheadDays   int           `mapstructure:"lookahead_days"`
	WithDetails     bool          `mapstructure:"with_details"`
	ExportCSV       bool          `mapstructure:"export_csv"`
	PersistSnapshot bool          `mapstructure:"persist_snapshot"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// MetricsConfig exposes Prometheus collectors while watching.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// AlertingConfig defines which events trigger notifications.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Impacts  []string       `mapstructure:"impacts"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ECOCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ecocal")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("provider.base_url", "https://calendar-api.fxstreet.com/en/api/v1/eventDates")
	v.SetDefault("provider.referer", "https://www.fxstreet.com/")
	v.SetDefault("provider.user_agent", "EcoCal script")
	v.SetDefault("provider.request_timeout", "0s")
	v.SetDefault("provider.id_column", "Id")
	v.SetDefault("provider.default_start", "2023-10-08")
	v.SetDefault("provider.default_end", "2023-10-10")

	v.SetDefault("detail.batch_size", 10)
	v.SetDefault("detail.max_concurrency", 10)
	v.SetDefault("detail.drop_trailing_batch", true)
	v.SetDefault("detail.on_missing", "skip")

	v.SetDefault("export.dir", ".")
	v.SetDefault("export.with_details", false)
	v.SetDefault("export.date_column", "Start")
	v.SetDefault("export.impact_column", "Impact")

	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.align_to_bucket", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.lookahead_days", 7)
	v.SetDefault("watch.with_details", true)
	v.SetDefault("watch.export_csv", false)
	v.SetDefault("watch.persist_snapshot", true)
	v.SetDefault("watch.advisory_lock_key", int64(0x65636f63))

	v.SetDefault("metrics.listen_addr", "")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.impacts", []string{"HIGH"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.IDColumn) == "" {
		return fmt.Errorf("provider.id_column must not be empty")
	}
	if c.Provider.RequestTimeout < 0 {
		return fmt.Errorf("provider.request_timeout cannot be negative")
	}
	if c.Detail.BatchSize <= 0 {
		return fmt.Errorf("detail.batch_size must be greater than zero")
	}
	if c.Detail.MaxConcurrency <= 0 {
		return fmt.Errorf("detail.max_concurrency must be greater than zero")
	}
	switch c.Detail.OnMissing {
	case "skip", "fail":
	default:
		return fmt.Errorf("detail.on_missing must be skip or fail, got %q", c.Detail.OnMissing)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Watch.LookaheadDays < 0 {
		return fmt.Errorf("watch.lookahead_days cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveExportDir returns either the CLI override or config default.
func (c *Config) ResolveExportDir(override string) string {
	if override != "" {
		return override
	}
	if c.Export.Dir == "" {
		return "."
	}
	return c.Export.Dir
}
