package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"StockLens/internal/dashboard"
	"StockLens/internal/logging"
	"StockLens/internal/notifier"
	"StockLens/internal/scheduler"
)

var (
	serveAddr     string
	digestOnStart bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API and scheduled jobs",
	Long: `Start the dashboard API together with the optional cron jobs.

Examples:
  stocklens serve                      # listen on dashboard.addr
  stocklens serve --addr :9090         # custom listen address
  stocklens serve --digest-on-start    # send the watchlist digest right away`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides dashboard.addr")
	serveCmd.Flags().BoolVar(&digestOnStart, "digest-on-start", false, "run the watchlist digest once at startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg
	if serveAddr != "" {
		cfg.Dashboard.Addr = serveAddr
	}

	var sender scheduler.Sender
	if cfg.Telegram.BotToken != "" {
		sender = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logging.WithComponent(a.logger, "telegram"))
	}

	sched := scheduler.NewScheduler(ctx, a.registry, a.catalog, sender, a.recorder, cfg.Location(), logging.WithComponent(a.logger, "scheduler"))
	sched.Watchlist = cfg.Watchlist
	sched.Suffix = cfg.Provider.SymbolSuffix
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.DigestCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if digestOnStart {
		go func() {
			if _, err := sched.RunDigest(ctx); err != nil {
				a.logger.WithError(err).Error("startup digest")
			}
		}()
	}

	srv := dashboard.NewServer(dashboard.Options{
		Addr:           cfg.Dashboard.Addr,
		DefaultStart:   cfg.Dashboard.DefaultStart,
		SymbolSuffix:   cfg.Provider.SymbolSuffix,
		Location:       cfg.Location(),
		AllowedOrigins: cfg.Dashboard.AllowedOrigins,
	}, a.registry, a.catalog, a.recorder, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		a.logger.WithField("signal", sig.String()).Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return srv.Stop(shutdownCtx)
}
