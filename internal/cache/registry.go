// Package cache memoizes stock data objects per ticker for the life of the
// process, optionally backed by a shared snapshot store.
package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"StockLens/internal/collector"
	"StockLens/internal/logging"
	"StockLens/internal/stock"
)

// Config wires a Registry.
type Config struct {
	Fetcher collector.Fetcher
	Options stock.Options
	// Store is consulted on a memory miss before the provider. Nil disables it.
	Store Store
	// Concurrency bounds RefreshAll. Defaults to 4.
	Concurrency int
	// OnBuild is called after every construction from the provider.
	OnBuild func(*stock.Stock)
	Logger  *logrus.Logger
}

// Registry holds one Stock per ticker. It is safe for concurrent use.
type Registry struct {
	fetcher     collector.Fetcher
	opts        stock.Options
	store       Store
	concurrency int
	onBuild     func(*stock.Stock)
	log         *logrus.Entry

	mu    sync.RWMutex
	items map[string]*stock.Stock
	group singleflight.Group
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Store == nil {
		cfg.Store = NoopStore{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Registry{
		fetcher:     cfg.Fetcher,
		opts:        cfg.Options,
		store:       cfg.Store,
		concurrency: cfg.Concurrency,
		onBuild:     cfg.OnBuild,
		log:         logging.WithComponent(cfg.Logger, "cache"),
		items:       make(map[string]*stock.Stock),
	}
}

// Get returns the cached Stock for symbol, constructing it on first use.
// Concurrent callers for the same missing symbol share one construction.
func (r *Registry) Get(ctx context.Context, symbol string) (*stock.Stock, error) {
	if s, ok := r.cached(symbol); ok {
		return s, nil
	}
	return r.load(ctx, symbol, true)
}

// Refresh drops symbol from both cache levels and rebuilds it from the provider.
func (r *Registry) Refresh(ctx context.Context, symbol string) (*stock.Stock, error) {
	r.Invalidate(ctx, symbol)
	return r.load(ctx, symbol, false)
}

// Invalidate drops symbol from both cache levels.
func (r *Registry) Invalidate(ctx context.Context, symbol string) {
	r.mu.Lock()
	delete(r.items, symbol)
	r.mu.Unlock()
	if err := r.store.Delete(ctx, symbol); err != nil {
		r.log.WithError(err).WithField("symbol", symbol).Warn("snapshot delete failed")
	}
}

// Symbols lists the cached tickers in order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for s := range r.items {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RefreshAll refreshes every cached ticker with bounded parallelism and
// returns the joined errors.
func (r *Registry) RefreshAll(ctx context.Context) error {
	symbols := r.Symbols()
	if len(symbols) == 0 {
		return nil
	}
	p := pool.New().WithContext(ctx).WithMaxGoroutines(r.concurrency)
	for _, sym := range symbols {
		sym := sym
		p.Go(func(ctx context.Context) error {
			if _, err := r.Refresh(ctx, sym); err != nil {
				return fmt.Errorf("refresh %s: %w", sym, err)
			}
			return nil
		})
	}
	err := p.Wait()
	if err != nil {
		r.log.WithError(err).WithField("symbols", len(symbols)).Warn("refresh cycle finished with errors")
		return err
	}
	r.log.WithField("symbols", len(symbols)).Info("refresh cycle complete")
	return nil
}

// Close releases the snapshot store.
func (r *Registry) Close() error { return r.store.Close() }

func (r *Registry) cached(symbol string) (*stock.Stock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[symbol]
	return s, ok
}

func (r *Registry) load(ctx context.Context, symbol string, useStore bool) (*stock.Stock, error) {
	key := symbol
	if !useStore {
		key = "refresh:" + symbol
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		if useStore {
			if s, ok := r.cached(symbol); ok {
				return s, nil
			}
			if s, ok := r.fromStore(ctx, symbol); ok {
				r.put(s)
				return s, nil
			}
		}

		s, err := stock.New(ctx, r.fetcher, symbol, r.opts)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", symbol, err)
		}
		r.put(s)
		if err := r.store.Save(ctx, s.Snapshot()); err != nil {
			r.log.WithError(err).WithField("symbol", symbol).Warn("snapshot save failed")
		}
		r.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"rows":   s.Data().Len(),
			"type":   s.Profile.Type,
		}).Info("stock loaded from provider")
		if r.onBuild != nil {
			r.onBuild(s)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*stock.Stock), nil
}

func (r *Registry) fromStore(ctx context.Context, symbol string) (*stock.Stock, bool) {
	snap, ok, err := r.store.Load(ctx, symbol)
	if err != nil {
		r.log.WithError(err).WithField("symbol", symbol).Warn("snapshot load failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	r.log.WithField("symbol", symbol).Debug("stock restored from snapshot store")
	return stock.Restore(snap, r.opts), true
}

func (r *Registry) put(s *stock.Stock) {
	r.mu.Lock()
	r.items[s.Symbol] = s
	r.mu.Unlock()
}
