package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"orderdesk/internal/dal"
	"orderdesk/internal/notify"
	"orderdesk/internal/service"
	"orderdesk/pkg/logger"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config flag is given.
const DefaultFile = "orderdesk.yaml"

type Config struct {
	Server        ServerConfig         `yaml:"server"`
	Database      dal.Config           `yaml:"database"`
	Log           logger.Config        `yaml:"log"`
	Reaper        service.ReaperConfig `yaml:"reaper"`
	Notifications NotificationsConfig  `yaml:"notifications"`
	Menu          MenuConfig           `yaml:"menu"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type NotificationsConfig struct {
	notify.DispatcherConfig `yaml:",inline"`

	// WebhookURL switches delivery from the log to an HTTP POST.
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
}

type MenuConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func Default() Config {
	log := logger.DefaultConfig()
	log.Component = "orderdesk"

	return Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: dal.DefaultConfig(),
		Log:      log,
		Reaper: service.ReaperConfig{
			TTL:       service.DefaultPendingTTL,
			Interval:  service.DefaultReaperInterval,
			BatchSize: service.DefaultReaperBatch,
		},
		Notifications: NotificationsConfig{
			DispatcherConfig: notify.DispatcherConfig{
				PollInterval: notify.DefaultPollInterval,
				BatchSize:    notify.DefaultBatchSize,
				Workers:      notify.DefaultWorkers,
				MaxAttempts:  notify.DefaultMaxAttempts,
				BaseBackoff:  notify.DefaultBaseBackoff,
				MaxBackoff:   notify.DefaultMaxBackoff,
			},
			WebhookTimeout: 10 * time.Second,
		},
		Menu: MenuConfig{CacheTTL: 30 * time.Second},
	}
}

// Load reads defaults, then the YAML file at path, then environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

type envBinding struct {
	key   string
	apply func(raw string) error
}

func stringVar(dst *string) func(string) error {
	return func(raw string) error { *dst = raw; return nil }
}

func intVar(dst *int) func(string) error {
	return func(raw string) error {
		v, err := cast.ToIntE(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func durationVar(dst *time.Duration) func(string) error {
	return func(raw string) error {
		v, err := cast.ToDurationE(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func applyEnv(cfg *Config) error {
	bindings := []envBinding{
		{"PORT", intVar(&cfg.Server.Port)},
		{"ORDERDESK_HOST", stringVar(&cfg.Server.Host)},

		{"DB_DRIVER", func(raw string) error { cfg.Database.Driver = dal.Dialect(strings.ToLower(raw)); return nil }},
		{"DB_PATH", stringVar(&cfg.Database.Path)},
		{"DB_HOST", stringVar(&cfg.Database.Host)},
		{"DB_PORT", intVar(&cfg.Database.Port)},
		{"DB_USER", stringVar(&cfg.Database.User)},
		{"DB_PASSWORD", stringVar(&cfg.Database.Password)},
		{"DB_NAME", stringVar(&cfg.Database.DBName)},
		{"DB_SSL_MODE", stringVar(&cfg.Database.SSLMode)},
		{"DB_MAX_OPEN_CONNS", intVar(&cfg.Database.MaxOpenConns)},
		{"DB_MAX_IDLE_CONNS", intVar(&cfg.Database.MaxIdleConns)},
		{"DB_CONN_MAX_LIFETIME", durationVar(&cfg.Database.ConnMaxLifetime)},

		{"LOG_LEVEL", func(raw string) error { cfg.Log.Level = logger.ParseLevel(raw); return nil }},
		{"LOG_FORMAT", stringVar(&cfg.Log.Format)},
		{"LOG_OUTPUT", stringVar(&cfg.Log.Output)},
		{"ORDERDESK_ENV", stringVar(&cfg.Log.Environment)},

		{"ORDERDESK_PENDING_TTL", durationVar(&cfg.Reaper.TTL)},
		{"ORDERDESK_REAPER_INTERVAL", durationVar(&cfg.Reaper.Interval)},
		{"ORDERDESK_WEBHOOK_URL", stringVar(&cfg.Notifications.WebhookURL)},
		{"ORDERDESK_NOTIFY_WORKERS", intVar(&cfg.Notifications.Workers)},
		{"ORDERDESK_MENU_CACHE_TTL", durationVar(&cfg.Menu.CacheTTL)},
	}

	for _, b := range bindings {
		raw, ok := getEnv(b.key)
		if !ok {
			continue
		}
		if err := b.apply(raw); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", b.key, raw, err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.Reaper.TTL <= 0 {
		return fmt.Errorf("reaper pending_ttl must be positive")
	}
	if c.Reaper.Interval <= 0 {
		return fmt.Errorf("reaper interval must be positive")
	}
	if c.Notifications.Workers < 0 || c.Notifications.MaxAttempts < 0 {
		return fmt.Errorf("notification workers and max_attempts must not be negative")
	}
	if c.Menu.CacheTTL < 0 {
		return fmt.Errorf("menu cache_ttl must not be negative")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
