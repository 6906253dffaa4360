package cli

import (
	"context"
	"fmt"
	"os"

	"orderdesk/internal/config"
	"orderdesk/internal/dal"
	"orderdesk/internal/notify"
	"orderdesk/internal/service"
	"orderdesk/pkg/logger"
)

// app holds the wiring shared by every command that touches the database.
type app struct {
	config  config.Config
	logger  *logger.Logger
	db      *dal.DB
	store   dal.Store
	outbox  *notify.Outbox
	orders  service.OrderService
	menu    service.MenuService
	reports service.ReportService
	reaper  *service.Reaper
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultFile
	} else if _, err := os.Stat(path); err != nil {
		return config.Config{}, fmt.Errorf("config file: %w", err)
	}
	return config.Load(path)
}

// newApp loads config, connects and migrates. logOverride lets commands that own
// stdout move logs elsewhere.
func newApp(ctx context.Context, opts *rootOptions, logOverride func(*logger.Config)) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if logOverride != nil {
		logOverride(&cfg.Log)
	}
	log := logger.New(cfg.Log)

	db, err := dal.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	a := &app{config: cfg, logger: log, db: db, store: db.Store()}
	a.outbox = notify.NewOutbox(a.store, log)
	a.orders = service.NewOrderService(a.store, a.outbox, log)
	a.menu = service.NewMenuService(a.store, cfg.Menu.CacheTTL, log)
	a.reports = service.NewReportService(a.store)
	a.reaper = service.NewReaper(a.store, a.orders, cfg.Reaper, log)
	return a, nil
}

func (a *app) deliverer() notify.Deliverer {
	if a.config.Notifications.WebhookURL != "" {
		return notify.NewWebhookDeliverer(a.config.Notifications.WebhookURL, a.config.Notifications.WebhookTimeout)
	}
	return notify.NewLogDeliverer(a.logger)
}

func (a *app) Close() error {
	return a.db.Close()
}

// quietLogs keeps command output readable: logs go to stderr, warnings and up.
func quietLogs(cfg *logger.Config) {
	cfg.Output = "stderr"
	if cfg.Level == logger.LevelDebug || cfg.Level == logger.LevelInfo {
		cfg.Level = logger.LevelWarn
	}
}
