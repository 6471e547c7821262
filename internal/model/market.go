package model

import (
	"sort"
	"time"
)

// DateLayout is the key format of the price table's date index.
const DateLayout = "2006-01-02"

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   float64   `json:"volume"`
	Symbol   string    `json:"stock_code"`
}

// Date returns the bar's index key.
func (b OHLCV) Date() string { return b.Time.Format(DateLayout) }

// PriceTable is a date-indexed, chronologically ordered sequence of daily bars.
// It is never mutated after construction; slicing returns a new table.
type PriceTable struct {
	Symbol string
	bars   []OHLCV
	index  map[string]int
}

// NewPriceTable sorts bars by date and builds the date index. When two bars
// share a date the later one wins.
func NewPriceTable(symbol string, bars []OHLCV) *PriceTable {
	sorted := make([]OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	t := &PriceTable{Symbol: symbol, index: make(map[string]int, len(sorted))}
	for _, b := range sorted {
		key := b.Date()
		if i, ok := t.index[key]; ok {
			t.bars[i] = b
			continue
		}
		t.index[key] = len(t.bars)
		t.bars = append(t.bars, b)
	}
	return t
}

// Len returns the number of rows.
func (t *PriceTable) Len() int { return len(t.bars) }

// Bars returns a copy of the rows in date order.
func (t *PriceTable) Bars() []OHLCV {
	out := make([]OHLCV, len(t.bars))
	copy(out, t.bars)
	return out
}

// Lookup returns the row for an exact date key (YYYY-MM-DD).
func (t *PriceTable) Lookup(date string) (OHLCV, bool) {
	i, ok := t.index[date]
	if !ok {
		return OHLCV{}, false
	}
	return t.bars[i], true
}

// First returns the row with the earliest date.
func (t *PriceTable) First() (OHLCV, bool) {
	if len(t.bars) == 0 {
		return OHLCV{}, false
	}
	return t.bars[0], true
}

// Last returns the row with the latest date.
func (t *PriceTable) Last() (OHLCV, bool) {
	if len(t.bars) == 0 {
		return OHLCV{}, false
	}
	return t.bars[len(t.bars)-1], true
}

// Between returns the rows whose date falls in [start, end], comparing calendar
// dates only. A start after end yields an empty table.
func (t *PriceTable) Between(start, end time.Time) *PriceTable {
	from := start.Format(DateLayout)
	to := end.Format(DateLayout)
	var out []OHLCV
	if from <= to {
		for _, b := range t.bars {
			d := b.Date()
			if d >= from && d <= to {
				out = append(out, b)
			}
		}
	}
	return NewPriceTable(t.Symbol, out)
}

// Closes returns the close column.
func (t *PriceTable) Closes() []float64 {
	closes := make([]float64, len(t.bars))
	for i, b := range t.bars {
		closes[i] = b.Close
	}
	return closes
}
