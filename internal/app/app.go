package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"svitlobot/internal/config"
	"svitlobot/internal/monitor"
	"svitlobot/internal/notify"
	"svitlobot/internal/observability"
	"svitlobot/internal/schedule"
	"svitlobot/internal/source"
	"svitlobot/internal/storage"
	"svitlobot/internal/transport/telegram"
	"svitlobot/pkg/logx"
)

// App wires the pipeline together: config, logging, storage, the telegram
// transport, the dispatcher and the ingestion loop.
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store    *storage.Store
	adapter  *telegram.Adapter
	notifier *notify.Service
	mon      *monitor.Service
	debug    *observability.DebugServer

	watchWG     sync.WaitGroup
	watchCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	boot := logx.NewConsole("info")

	cfgMgr := config.NewManager(cfgPath, boot)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logxConfig(cfg))
	cfgMgr.SetLogger(log)

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: config.DurationOrDefault(cfg.Storage.BusyTimeout, 0),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	token := strings.TrimSpace(cfg.Telegram.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       token,
		PollTimeout: config.DurationOrDefault(cfg.Telegram.PollTimeout, 10*time.Second),
	}, store, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logSvc.SetSender(adapter)

	notifier := notify.New(notifyConfig(cfg), adapter, store, log)
	detector := schedule.NewDetector(store, log)
	fetcher := source.NewClient(source.Config{
		URL:      cfg.Source.URL,
		Timezone: cfg.Source.Timezone,
		Timeout:  config.DurationOrDefault(cfg.Source.FetchTimeout, 30*time.Second),
	}, log)
	mon := monitor.New(monitor.Config{
		PollInterval: config.DurationOrDefault(cfg.Monitor.PollInterval, 3*time.Minute),
		FetchTimeout: config.DurationOrDefault(cfg.Source.FetchTimeout, 2*time.Minute),
	}, fetcher, detector, notifier, log)

	debug := observability.NewDebugServer(observability.Config{
		Enabled: cfg.Debug.Enabled,
		Addr:    cfg.Debug.Addr,
		Token:   cfg.Debug.Token,
	}, log)

	return &App{
		cfgMgr:   cfgMgr,
		logSvc:   logSvc,
		log:      log,
		store:    store,
		adapter:  adapter,
		notifier: notifier,
		mon:      mon,
		debug:    debug,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	if err := a.debug.Start(); err != nil {
		return fmt.Errorf("debug server: %w", err)
	}
	a.adapter.Start(ctx)
	a.notifier.Start(ctx)
	if err := a.mon.Start(ctx); err != nil {
		return err
	}

	// Live reload: logging and dispatch knobs apply in place; everything
	// else (token, storage path, poll interval) needs a restart.
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	updates := a.cfgMgr.Subscribe(1)
	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		if err := a.cfgMgr.Watch(wctx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		defer a.watchWG.Done()
		for {
			select {
			case <-wctx.Done():
				return
			case cfg := <-updates:
				if cfg == nil {
					continue
				}
				a.logSvc.Apply(logxConfig(cfg))
				a.notifier.Apply(notifyConfig(cfg))
				a.log.Info("runtime config applied")
			}
		}
	}()

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	// Shutdown order mirrors the data flow: stop producing, drain the
	// dispatcher, then tear down the transports.
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchWG.Wait()
	}
	a.mon.Stop()
	a.notifier.Stop(ctx)
	a.adapter.Stop()
	a.debug.Stop(ctx)
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logSvc.Close()
}

func logxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func notifyConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		QueueSize:    cfg.Notifier.QueueSize,
		MaxPerMinute: cfg.Notifier.MaxPerMinute,
		SendTimeout:  config.DurationOrDefault(cfg.Notifier.SendTimeout, 15*time.Second),
		SendDelay:    config.DurationOrDefault(cfg.Notifier.SendDelay, 100*time.Millisecond),
	}
}
