package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockLens/internal/collector"
	"StockLens/internal/model"
	"StockLens/internal/stock"
)

var testNow = func() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }

func testBars() []model.OHLCV {
	var bars []model.OHLCV
	for i, c := range []float64{10, 10, 11, 12} {
		bars = append(bars, model.OHLCV{Time: time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC), Close: c})
	}
	return bars
}

type memStore struct {
	mu    sync.Mutex
	snaps map[string]stock.Snapshot
	saves int
}

func newMemStore() *memStore { return &memStore{snaps: make(map[string]stock.Snapshot)} }

func (m *memStore) Load(_ context.Context, symbol string) (stock.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[symbol]
	return s, ok, nil
}

func (m *memStore) Save(_ context.Context, snap stock.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Symbol] = snap
	m.saves++
	return nil
}

func (m *memStore) Delete(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, symbol)
	return nil
}

func (m *memStore) Close() error { return nil }

// gateFetcher blocks FetchInfo until release is closed.
type gateFetcher struct {
	*collector.MockFetcher
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateFetcher) FetchInfo(ctx context.Context, symbol string) (map[string]any, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.MockFetcher.FetchInfo(ctx, symbol)
}

func TestRegistryGet_Memoizes(t *testing.T) {
	m := &collector.MockFetcher{Bars: testBars()}
	r := NewRegistry(Config{Fetcher: m, Options: stock.Options{Now: testNow}})

	a, err := r.Get(context.Background(), "PETR4.SA")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	b, err := r.Get(context.Background(), "PETR4.SA")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected the same instance on repeat Get")
	}
	if info, history := m.Calls(); info != 1 || history != 1 {
		t.Errorf("expected one provider round, got %d/%d", info, history)
	}
	if got := r.Symbols(); len(got) != 1 || got[0] != "PETR4.SA" {
		t.Errorf("unexpected symbols %v", got)
	}
}

func TestRegistryGet_Singleflight(t *testing.T) {
	g := &gateFetcher{
		MockFetcher: &collector.MockFetcher{Bars: testBars()},
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	r := NewRegistry(Config{Fetcher: g, Options: stock.Options{Now: testNow}})

	var wg sync.WaitGroup
	var failures atomic.Int32
	results := make([]*stock.Stock, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Get(context.Background(), "VALE3.SA")
			if err != nil {
				failures.Add(1)
				return
			}
			results[i] = s
		}()
	}

	<-g.started
	time.Sleep(20 * time.Millisecond)
	close(g.release)
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d callers failed", failures.Load())
	}
	for _, s := range results {
		if s != results[0] {
			t.Fatal("callers received different instances")
		}
	}
	if _, history := g.Calls(); history != 1 {
		t.Errorf("expected a single construction, got %d", history)
	}
}

func TestRegistryRefresh(t *testing.T) {
	m := &collector.MockFetcher{Bars: testBars()}
	store := newMemStore()
	r := NewRegistry(Config{Fetcher: m, Store: store, Options: stock.Options{Now: testNow}})

	a, err := r.Get(context.Background(), "ITUB4.SA")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Refresh(context.Background(), "ITUB4.SA")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("refresh should build a new instance")
	}
	if _, history := m.Calls(); history != 2 {
		t.Errorf("refresh should hit the provider again, got %d history calls", history)
	}
	if store.saves != 2 {
		t.Errorf("expected 2 snapshot saves, got %d", store.saves)
	}
}

func TestRegistryGet_FromStore(t *testing.T) {
	store := newMemStore()
	seed := stock.Build("BBAS3.SA", map[string]any{"shortName": "BRASIL ON"}, testBars(), stock.Options{Now: testNow})
	store.Save(context.Background(), seed.Snapshot())

	m := &collector.MockFetcher{}
	r := NewRegistry(Config{Fetcher: m, Store: store, Options: stock.Options{Now: testNow}})
	s, err := r.Get(context.Background(), "BBAS3.SA")
	if err != nil {
		t.Fatal(err)
	}
	if s.Data().Len() != 4 {
		t.Errorf("expected 4 rows from snapshot, got %d", s.Data().Len())
	}
	if info, history := m.Calls(); info != 0 || history != 0 {
		t.Errorf("provider should not be called on a store hit, got %d/%d", info, history)
	}
}

func TestRegistryGet_ProviderError(t *testing.T) {
	m := &collector.MockFetcher{Err: errors.New("unreachable")}
	r := NewRegistry(Config{Fetcher: m})
	if _, err := r.Get(context.Background(), "XXXX3.SA"); err == nil {
		t.Fatal("expected error")
	}
	if len(r.Symbols()) != 0 {
		t.Error("failed construction must not be cached")
	}
}

func TestRegistryRefreshAll(t *testing.T) {
	m := &collector.MockFetcher{Bars: testBars()}
	var built atomic.Int32
	r := NewRegistry(Config{
		Fetcher:     m,
		Options:     stock.Options{Now: testNow},
		Concurrency: 2,
		OnBuild:     func(*stock.Stock) { built.Add(1) },
	})
	for _, sym := range []string{"A.SA", "B.SA", "C.SA"} {
		if _, err := r.Get(context.Background(), sym); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	if built.Load() != 6 {
		t.Errorf("expected 6 constructions, got %d", built.Load())
	}
}
