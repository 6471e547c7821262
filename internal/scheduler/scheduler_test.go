package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"StockLens/internal/cache"
	"StockLens/internal/catalog"
	"StockLens/internal/collector"
	"StockLens/internal/logging"
	"StockLens/internal/model"
	"StockLens/internal/recorder"
	"StockLens/internal/stock"
)

type captureSender struct {
	texts []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.texts = append(c.texts, text)
	return nil
}

type countingRecorder struct {
	recorder.NoopRecorder
	growth []*recorder.GrowthReading
}

func (c *countingRecorder) RecordGrowth(g *recorder.GrowthReading) error {
	c.growth = append(c.growth, g)
	return nil
}

func newTestScheduler(t *testing.T, sender Sender, rec recorder.Recorder) *Scheduler {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 2, 3, 18, 0, 0, 0, time.UTC) }
	var bars []model.OHLCV
	for i, c := range []float64{10, 10, 11, 12} {
		bars = append(bars, model.OHLCV{Time: time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC), Close: c})
	}
	reg := cache.NewRegistry(cache.Config{
		Fetcher: &collector.MockFetcher{Bars: bars, Info: map[string]any{"shortName": "PETROBRAS PN"}},
		Options: stock.Options{MaxFallbackDays: 7, Now: now},
	})
	cat, err := catalog.Load()
	if err != nil {
		t.Fatal(err)
	}
	log := logging.WithComponent(logging.Discard(), "scheduler")
	s := NewScheduler(context.Background(), reg, cat, sender, rec, time.UTC, log)
	s.Watchlist = []string{"PETR4"}
	s.Suffix = ".SA"
	s.Now = now
	return s
}

func TestRunDigest(t *testing.T) {
	sender := &captureSender{}
	rec := &countingRecorder{}
	s := newTestScheduler(t, sender, rec)

	text, err := s.RunDigest(context.Background())
	if err != nil {
		t.Fatalf("RunDigest failed: %v", err)
	}
	if len(sender.texts) != 1 || sender.texts[0] != text {
		t.Fatalf("expected the digest to be sent once, got %d", len(sender.texts))
	}
	for _, want := range []string{"PETR4 (Petróleo Brasileiro", "🟢 1M: +9.09%", "🔴 3M: n/d"} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}
	if len(rec.growth) != 3 {
		t.Errorf("expected 3 growth readings recorded, got %d", len(rec.growth))
	}
	if rec.growth[0].Symbol != "PETR4.SA" {
		t.Errorf("readings should use the provider symbol, got %s", rec.growth[0].Symbol)
	}
}

func TestRunDigest_NoNotifier(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	text, err := s.RunDigest(context.Background())
	if err != nil || text == "" {
		t.Fatalf("expected rendered digest without sending, got %q %v", text, err)
	}
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	if err := s.RegisterAll("0 0 19 * * 1-5", ""); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 1 {
		t.Errorf("expected 1 job, got %d", n)
	}
	if err := s.RegisterAll("not a spec", ""); err == nil {
		t.Error("expected error for invalid spec")
	}
}
