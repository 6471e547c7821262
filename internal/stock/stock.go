// Package stock holds the per-ticker data object: the metadata blob, the
// profile derived from it and the historical price table.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockLens/internal/collector"
	"StockLens/internal/model"
)

var (
	// ErrEmptyTable is returned by growth calculations on a table with no rows.
	ErrEmptyTable = errors.New("price table is empty")
	// ErrNoDataInRange is returned when the date fallback runs out of steps.
	ErrNoDataInRange = errors.New("no price data in range")
	// ErrInvalidMonths is returned for a negative month count.
	ErrInvalidMonths = errors.New("months must not be negative")
)

// InstrumentType classifies a ticker.
type InstrumentType string

const (
	TypeFund       InstrumentType = "fund"
	TypeEnterprise InstrumentType = "enterprise"
)

// fundMarker in the short name marks a real-estate investment fund.
const fundMarker = "FII"

// Profile is the fixed set of attributes derived from the metadata once, at
// construction. Nil means the provider did not report the field.
type Profile struct {
	Type              InstrumentType `json:"type"`
	PreviousClose     *float64       `json:"previous_close"`
	DividendRate      *float64       `json:"dividend_rate"`
	Volume            *float64       `json:"volume"`
	DividendYield     *float64       `json:"dividend_yield"`
	EbitdaMargins     *float64       `json:"ebitda_margins"`
	PL                *float64       `json:"pl"`
	PriceVP           *float64       `json:"price_vp"`
	EVEbitda          *float64       `json:"ev_ebitda"`
	GrossMargins      *float64       `json:"gross_margins"`
	OperatingCashFlow *float64       `json:"operating_cash_flow"`
	LastDividendValue *float64       `json:"last_dividend_value"`
	LastDividendDate  *string        `json:"last_dividend_date"`
	LongName          *string        `json:"long_name"`
	AvgVolume10Days   *float64       `json:"day_trade_volume_avg_10_days"`
}

// NewProfile extracts the profile from a metadata blob through the Fields
// allow-list. It never fails.
func NewProfile(info Info) Profile {
	return Profile{
		Type:              classify(info),
		PreviousClose:     info.Float(KeyPreviousClose),
		DividendRate:      info.Float(KeyDividendRate),
		Volume:            info.Float(KeyVolume),
		DividendYield:     info.Float(KeyDividendYield),
		EbitdaMargins:     info.Float(KeyEbitdaMargins),
		PL:                info.Float(KeyTrailingPE),
		PriceVP:           info.Float(KeyPriceToBook),
		EVEbitda:          info.Float(KeyEnterpriseEbitda),
		GrossMargins:      info.Float(KeyGrossMargins),
		OperatingCashFlow: info.Float(KeyOperatingCash),
		LastDividendValue: info.Float(KeyLastDivValue),
		LastDividendDate:  info.String(KeyLastDivDate),
		LongName:          info.String(KeyLongName),
		AvgVolume10Days:   info.Float(KeyAvgVolume10Day),
	}
}

func classify(info Info) InstrumentType {
	if name := info.String(KeyShortName); name != nil && strings.Contains(*name, fundMarker) {
		return TypeFund
	}
	return TypeEnterprise
}

// Options control construction and growth lookups.
type Options struct {
	// LookbackYears is the history window ending today.
	LookbackYears int
	// MaxFallbackDays bounds how many extra days the growth lookup steps back
	// after a miss. Zero means DefaultMaxFallbackDays; negative walks back
	// until the table's first row.
	MaxFallbackDays int
	Location        *time.Location
	Now             func() time.Time
}

// DefaultMaxFallbackDays covers a long weekend plus a holiday.
const DefaultMaxFallbackDays = 7

func (o Options) withDefaults() Options {
	if o.LookbackYears <= 0 {
		o.LookbackYears = 30
	}
	if o.MaxFallbackDays == 0 {
		o.MaxFallbackDays = DefaultMaxFallbackDays
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stock is the immutable data object for one ticker.
type Stock struct {
	Symbol    string
	Info      Info
	Profile   Profile
	FetchedAt time.Time

	data *model.PriceTable
	opts Options
}

// New fetches the metadata and then the price history for symbol. Provider
// errors propagate unchanged apart from wrapping; there is no retry.
func New(ctx context.Context, f collector.Fetcher, symbol string, opts Options) (*Stock, error) {
	opts = opts.withDefaults()

	info, err := f.FetchInfo(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch info: %w", err)
	}

	now := opts.Now().In(opts.Location)
	start := now.AddDate(-opts.LookbackYears, 0, 0)
	bars, err := f.FetchHistory(ctx, symbol, start, now)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	s := Build(symbol, info, bars, opts)
	s.FetchedAt = now
	return s, nil
}

// Build assembles a Stock from data already in hand. Every row is tagged with
// symbol.
func Build(symbol string, info map[string]any, bars []model.OHLCV, opts Options) *Stock {
	opts = opts.withDefaults()
	tagged := make([]model.OHLCV, len(bars))
	for i, b := range bars {
		b.Symbol = symbol
		tagged[i] = b
	}
	return &Stock{
		Symbol:    symbol,
		Info:      Info(info),
		Profile:   NewProfile(Info(info)),
		FetchedAt: opts.Now().In(opts.Location),
		data:      model.NewPriceTable(symbol, tagged),
		opts:      opts,
	}
}

// Data returns the full price table.
func (s *Stock) Data() *model.PriceTable { return s.data }

// Range returns the rows between start and end inclusive.
func (s *Stock) Range(start, end time.Time) *model.PriceTable { return s.data.Between(start, end) }

// PercentageGrowth returns the close-to-close change, in percent rounded to
// two places, from 30*months days before today to the latest row.
//
// A date with no row (weekend, holiday) or a zero close is skipped by stepping
// one more day into the past, up to MaxFallbackDays extra steps.
func (s *Stock) PercentageGrowth(months int) (float64, error) {
	if months < 0 {
		return 0, ErrInvalidMonths
	}
	end, ok := s.data.Last()
	if !ok {
		return 0, ErrEmptyTable
	}
	head, _ := s.data.First()
	first := head.Date()

	today := s.opts.Now().In(s.opts.Location)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	for extra := 0; s.opts.MaxFallbackDays < 0 || extra <= s.opts.MaxFallbackDays; extra++ {
		key := today.AddDate(0, 0, -(30*months + extra)).Format(model.DateLayout)
		if key < first {
			break
		}
		start, ok := s.data.Lookup(key)
		if !ok || start.Close == 0 {
			continue
		}
		return Round2((end.Close - start.Close) / start.Close * 100), nil
	}
	return 0, fmt.Errorf("%w: %d months before %s", ErrNoDataInRange, months, today.Format(model.DateLayout))
}

// PanelMonths are the horizons shown in the growth panel.
var PanelMonths = []int{1, 3, 12}

// Growth is one growth panel reading. Value is nil when the lookup failed.
type Growth struct {
	Months int
	Value  *float64
	Err    error
}

// Positive reports whether the reading exists and is above zero.
func (g Growth) Positive() bool { return g.Value != nil && *g.Value > 0 }

// GrowthPanel computes PercentageGrowth for each horizon. Failures are kept
// per reading and never abort the panel.
func (s *Stock) GrowthPanel(months ...int) []Growth {
	if len(months) == 0 {
		months = PanelMonths
	}
	out := make([]Growth, 0, len(months))
	for _, m := range months {
		g := Growth{Months: m}
		if v, err := s.PercentageGrowth(m); err != nil {
			g.Err = err
		} else {
			g.Value = &v
		}
		out = append(out, g)
	}
	return out
}

// ProviderSymbol appends the exchange suffix to a bare ticker unless it is
// already present.
func ProviderSymbol(ticker, suffix string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if suffix == "" || strings.HasSuffix(ticker, strings.ToUpper(suffix)) {
		return ticker
	}
	return ticker + strings.ToUpper(suffix)
}

// BareTicker strips the exchange suffix from a provider symbol.
func BareTicker(symbol, suffix string) string {
	return strings.TrimSuffix(strings.ToUpper(symbol), strings.ToUpper(suffix))
}
