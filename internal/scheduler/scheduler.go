package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"StockLens/internal/cache"
	"StockLens/internal/catalog"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
	"StockLens/internal/stock"
)

// Sender delivers a formatted digest.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Registry  *cache.Registry
	Catalog   *catalog.Catalog
	Notifier  Sender
	Recorder  recorder.Recorder
	Watchlist []string
	Suffix    string
	Ctx       context.Context
	Now       func() time.Time

	log *logrus.Entry
}

// NewScheduler creates a new Scheduler. Cron specs carry a seconds field and
// run in loc.
func NewScheduler(ctx context.Context, reg *cache.Registry, cat *catalog.Catalog, n Sender, rec recorder.Recorder, loc *time.Location, log *logrus.Entry) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Registry: reg,
		Catalog:  cat,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		Now:      time.Now,
		log:      log,
	}
}

// RegisterAll registers the refresh and digest tasks. An empty spec leaves
// that task unscheduled.
func (s *Scheduler) RegisterAll(refreshCron, digestCron string) error {
	if refreshCron != "" {
		if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
			return fmt.Errorf("register refresh task: %w", err)
		}
	}
	if digestCron != "" {
		if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
			return fmt.Errorf("register digest task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.WithField("jobs", len(s.Cron.Entries())).Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	s.log.Info("running refresh task")
	if err := s.Registry.RefreshAll(s.Ctx); err != nil {
		s.log.WithError(err).Error("refresh task")
	}
}

func (s *Scheduler) digestTask() {
	s.log.Info("running digest task")
	if _, err := s.RunDigest(s.Ctx); err != nil {
		s.log.WithError(err).Error("digest task")
	}
}

// RunDigest computes the growth panel for every watchlist ticker, records
// each reading and sends the digest when a notifier is set. It returns the
// rendered digest.
func (s *Scheduler) RunDigest(ctx context.Context) (string, error) {
	if len(s.Watchlist) == 0 {
		return "", nil
	}
	now := s.Now()
	lines := make([]notifier.DigestLine, 0, len(s.Watchlist))
	for _, ticker := range s.Watchlist {
		lines = append(lines, s.digestLine(ctx, ticker, now))
	}

	text := notifier.FormatDigest(now, lines)
	if s.Notifier == nil {
		s.log.Debug("no notifier configured, digest not sent")
		return text, nil
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		return text, fmt.Errorf("send digest: %w", err)
	}
	return text, nil
}

func (s *Scheduler) digestLine(ctx context.Context, ticker string, now time.Time) notifier.DigestLine {
	symbol := stock.ProviderSymbol(ticker, s.Suffix)
	line := notifier.DigestLine{Ticker: stock.BareTicker(symbol, s.Suffix)}
	if s.Catalog != nil {
		line.Company, _ = s.Catalog.Name(line.Ticker)
	}

	st, err := s.Registry.Get(ctx, symbol)
	if err != nil {
		s.log.WithError(err).WithField("symbol", symbol).Warn("digest load failed")
		line.Err = err
		return line
	}
	if line.Company == "" && st.Profile.LongName != nil {
		line.Company = *st.Profile.LongName
	}
	line.Type = st.Profile.Type
	if last, ok := st.Data().Last(); ok {
		line.LastClose = last.Close
	}
	line.Panel = st.GrowthPanel()
	if err := recorder.RecordGrowthPanel(s.Recorder, symbol, line.Panel, now); err != nil {
		s.log.WithError(err).WithField("symbol", symbol).Error("record growth panel")
	}
	return line
}
