package collector

import (
	"context"
	"sync/atomic"
	"time"

	"StockLens/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Info  map[string]any
	Bars  []model.OHLCV
	Price float64 // base price for generated bars when Bars is nil
	Err   error

	infoCalls    atomic.Int64
	historyCalls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchInfo(_ context.Context, symbol string) (map[string]any, error) {
	m.infoCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Info != nil {
		out := make(map[string]any, len(m.Info))
		for k, v := range m.Info {
			out[k] = v
		}
		return out, nil
	}
	return map[string]any{
		"shortName":     symbol,
		"longName":      symbol,
		"previousClose": m.Price,
	}, nil
}

func (m *MockFetcher) FetchHistory(_ context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	m.historyCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	src := m.Bars
	if src == nil {
		src = generateMockBars(symbol, m.Price, end, 300)
	}
	from := start.Format(model.DateLayout)
	to := end.Format(model.DateLayout)
	bars := make([]model.OHLCV, 0, len(src))
	for _, b := range src {
		if d := b.Date(); d >= from && d <= to {
			b.Symbol = symbol
			bars = append(bars, b)
		}
	}
	return bars, nil
}

// Calls reports how many info and history fetches were made.
func (m *MockFetcher) Calls() (info, history int64) {
	return m.infoCalls.Load(), m.historyCalls.Load()
}

// generateMockBars builds one bar per weekday ending at end.
func generateMockBars(symbol string, basePrice float64, end time.Time, count int) []model.OHLCV {
	bars := make([]model.OHLCV, 0, count)
	d := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for len(bars) < count {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			i := count - len(bars)
			p := basePrice * (1 + float64(count/2-i)*0.001)
			bars = append(bars, model.OHLCV{
				Time:     d,
				Open:     p * 0.999,
				High:     p * 1.005,
				Low:      p * 0.995,
				Close:    p,
				AdjClose: p,
				Volume:   1000000,
				Symbol:   symbol,
			})
		}
		d = d.AddDate(0, 0, -1)
	}
	// built newest first
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars
}
