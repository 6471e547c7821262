package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"StockLens/internal/cache"
	"StockLens/internal/catalog"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/logging"
	"StockLens/internal/recorder"
	"StockLens/internal/stock"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *cache.Registry
	catalog  *catalog.Catalog
	recorder recorder.Recorder
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, catalog: cat}
	a.recorder = a.openRecorder()

	store, err := a.openStore(ctx)
	if err != nil {
		a.recorder.Close()
		return nil, err
	}

	fetcher := a.newFetcher()
	logger.WithField("provider", fetcher.Name()).Info("data source selected")

	a.registry = cache.NewRegistry(cache.Config{
		Fetcher: fetcher,
		Options: stock.Options{
			LookbackYears:   cfg.Provider.LookbackYears,
			MaxFallbackDays: cfg.Growth.MaxFallbackDays,
			Location:        cfg.Location(),
		},
		Store:       store,
		Concurrency: cfg.Schedule.RefreshConcurrency,
		OnBuild:     a.recordProfile,
		Logger:      logger,
	})
	return a, nil
}

func (a *app) newFetcher() collector.Fetcher {
	if a.cfg.Provider.Name == "mock" {
		return &collector.MockFetcher{Price: 30}
	}
	p := a.cfg.Provider
	return collector.NewYahooFetcher(collector.YahooOptions{
		BaseURL:   p.BaseURL,
		CookieURL: p.CookieURL,
		Proxy:     a.cfg.Proxy,
		Timeout:   p.Timeout,
		Limiter:   rate.NewLimiter(rate.Limit(p.RequestsPerSecond), p.Burst),
		Location:  a.cfg.Location(),
		Logger:    logging.WithComponent(a.logger, "yahoo"),
	})
}

// openRecorder falls back to the noop recorder when SQLite is unset or fails.
func (a *app) openRecorder() recorder.Recorder {
	path := a.cfg.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path, logging.WithComponent(a.logger, "recorder"))
	if err != nil {
		a.logger.WithError(err).Warn("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func (a *app) openStore(ctx context.Context) (cache.Store, error) {
	c := a.cfg.Cache
	if c.RedisAddr == "" {
		return cache.NoopStore{}, nil
	}
	store, err := cache.NewRedisStore(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB, c.TTL, logging.WithComponent(a.logger, "redis"))
	if err != nil {
		return nil, fmt.Errorf("init redis store: %w", err)
	}
	return store, nil
}

func (a *app) recordProfile(s *stock.Stock) {
	if err := a.recorder.RecordProfile(recorder.NewProfileSnapshot(s)); err != nil {
		a.logger.WithError(err).WithField("symbol", s.Symbol).Error("record profile")
	}
}

func (a *app) symbol(ticker string) string {
	return stock.ProviderSymbol(ticker, a.cfg.Provider.SymbolSuffix)
}

func (a *app) close() {
	if err := a.registry.Close(); err != nil {
		a.logger.WithError(err).Warn("close snapshot store")
	}
	if err := a.recorder.Close(); err != nil {
		a.logger.WithError(err).Warn("close recorder")
	}
}
