package recorder

import (
	"time"

	"StockLens/internal/stock"
)

// ProfileSnapshot records a stock as it was constructed from the provider.
type ProfileSnapshot struct {
	Symbol    string
	Profile   stock.Profile
	Rows      int
	FirstDate string
	LastDate  string
	LastClose float64
	FetchedAt time.Time
}

// GrowthReading records one percentage-growth computation. Growth is nil when
// the lookup failed, with the reason in Err.
type GrowthReading struct {
	Symbol    string    `json:"symbol"`
	Months    int       `json:"months"`
	Growth    *float64  `json:"growth"`
	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewProfileSnapshot summarizes s for recording.
func NewProfileSnapshot(s *stock.Stock) *ProfileSnapshot {
	snap := &ProfileSnapshot{
		Symbol:    s.Symbol,
		Profile:   s.Profile,
		Rows:      s.Data().Len(),
		FetchedAt: s.FetchedAt,
	}
	if first, ok := s.Data().First(); ok {
		snap.FirstDate = first.Date()
	}
	if last, ok := s.Data().Last(); ok {
		snap.LastDate = last.Date()
		snap.LastClose = last.Close
	}
	return snap
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordProfile(snap *ProfileSnapshot) error
	RecordGrowth(r *GrowthReading) error
	// GrowthHistory returns the latest readings for symbol, newest first.
	GrowthHistory(symbol string, limit int) ([]GrowthReading, error)
	Close() error
}

// RecordGrowthPanel writes every reading of a growth panel and returns the
// first write error.
func RecordGrowthPanel(rec Recorder, symbol string, panel []stock.Growth, at time.Time) error {
	var first error
	for _, g := range panel {
		r := &GrowthReading{Symbol: symbol, Months: g.Months, Growth: g.Value, Timestamp: at}
		if g.Err != nil {
			r.Err = g.Err.Error()
		}
		if err := rec.RecordGrowth(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
