package collector

import (
	"context"
	"errors"
	"time"

	"StockLens/internal/model"
)

// ErrNoData is returned when the provider answers but has nothing for the symbol.
var ErrNoData = errors.New("no data returned")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchInfo returns the loosely-typed metadata blob for a symbol. Numeric
	// values are int64 or float64, depending on how the provider encoded them.
	FetchInfo(ctx context.Context, symbol string) (map[string]any, error)
	// FetchHistory returns daily bars in [start, end], oldest first.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
