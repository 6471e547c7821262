package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"StockLens/internal/calculator"
	"StockLens/internal/export"
	"StockLens/internal/model"
	"StockLens/internal/stock"
)

// WarnStartAfterEnd is shown when the requested range is inverted.
const WarnStartAfterEnd = "A data fim deve ser maior que a data início"

const (
	colorGreen = "green"
	colorRed   = "red"

	// maxPriceToBook is the highest P/VP still shown in green.
	maxPriceToBook = 1.1
)

// ViewRequest is the parsed query of a stock view or export.
type ViewRequest struct {
	Start   time.Time
	End     time.Time
	Columns []string
	Volume  bool
	SMA     bool
	BB      bool
	RSI     bool
	Params  calculator.Params
}

func parseViewRequest(q url.Values, defaultStart string, today time.Time) (ViewRequest, error) {
	req := ViewRequest{Params: calculator.DefaultParams()}
	var err error

	start := q.Get("start")
	if start == "" {
		start = defaultStart
	}
	if req.Start, err = time.Parse(model.DateLayout, start); err != nil {
		return req, fmt.Errorf("start: expected YYYY-MM-DD, got %q", start)
	}
	req.End = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if end := q.Get("end"); end != "" {
		if req.End, err = time.Parse(model.DateLayout, end); err != nil {
			return req, fmt.Errorf("end: expected YYYY-MM-DD, got %q", end)
		}
	}

	if req.Columns, err = export.ParseColumns(q.Get("columns")); err != nil {
		return req, err
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"volume", &req.Volume},
		{"sma", &req.SMA},
		{"bb", &req.BB},
		{"rsi", &req.RSI},
	}
	for _, f := range flags {
		if v := q.Get(f.name); v != "" {
			if *f.dst, err = strconv.ParseBool(v); err != nil {
				return req, fmt.Errorf("%s: expected a boolean, got %q", f.name, v)
			}
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"sma_periods", &req.Params.SMAPeriods},
		{"bb_periods", &req.Params.BBPeriods},
		{"rsi_periods", &req.Params.RSIPeriods},
		{"rsi_upper", &req.Params.RSIUpper},
		{"rsi_lower", &req.Params.RSILower},
	}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			if *p.dst, err = strconv.Atoi(v); err != nil {
				return req, fmt.Errorf("%s: expected an integer, got %q", p.name, v)
			}
		}
	}
	if v := q.Get("bb_std"); v != "" {
		if req.Params.BBStd, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("bb_std: expected a number, got %q", v)
		}
	}
	return req, req.Params.Validate()
}

// Warnings lists non-fatal problems with the request.
func (r ViewRequest) Warnings() []string {
	var out []string
	if r.Start.After(r.End) {
		out = append(out, WarnStartAfterEnd)
	}
	return out
}

// StockView is the dashboard payload for one ticker.
type StockView struct {
	Ticker     string           `json:"ticker"`
	Symbol     string           `json:"symbol"`
	Title      string           `json:"title"`
	Start      string           `json:"start"`
	End        string           `json:"end"`
	Columns    []string         `json:"columns"`
	Profile    stock.Profile    `json:"profile"`
	Info       map[string]any   `json:"info"`
	Rows       []map[string]any `json:"rows"`
	Overlays   Overlays         `json:"overlays"`
	Range      *PriceRange      `json:"range"`
	Growth     []GrowthCell     `json:"growth"`
	Indicators []IndicatorCell  `json:"indicators"`
	Warnings   []string         `json:"warnings"`
	FetchedAt  time.Time        `json:"fetched_at"`
}

// Overlays are the chart series, aligned with Dates.
type Overlays struct {
	Dates     []string          `json:"dates"`
	Volume    []float64         `json:"volume,omitempty"`
	SMA       calculator.Series `json:"sma,omitempty"`
	Bollinger *calculator.Bands `json:"bollinger,omitempty"`
	RSI       *RSIOverlay       `json:"rsi,omitempty"`
	Params    calculator.Params `json:"params"`
}

// PriceRange is the high/low band of the selected rows and where the latest
// close sits inside it, from 0 at the low to 1 at the high.
type PriceRange struct {
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	LastClose float64 `json:"last_close"`
	Position  float64 `json:"position"`
}

func buildRange(bars []model.OHLCV) *PriceRange {
	high, low, err := calculator.Range(bars, 0)
	if err != nil {
		return nil
	}
	last := bars[len(bars)-1].Close
	pos, err := calculator.Position(last, high, low)
	if err != nil {
		return nil
	}
	return &PriceRange{High: high, Low: low, LastClose: last, Position: stock.Round2(pos)}
}

// RSIOverlay carries the RSI series and its guide bands.
type RSIOverlay struct {
	Values calculator.Series `json:"values"`
	Upper  int               `json:"upper"`
	Lower  int               `json:"lower"`
}

// GrowthCell is one entry of the growth panel.
type GrowthCell struct {
	Months int      `json:"months"`
	Label  string   `json:"label"`
	Value  *float64 `json:"value"`
	Color  string   `json:"color"`
	Error  string   `json:"error,omitempty"`
}

// IndicatorCell is one entry of the valuation panel.
type IndicatorCell struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Value *float64 `json:"value"`
	Color string   `json:"color"`
}

func growthLabel(months int) string {
	switch months {
	case 1:
		return "Último mês"
	case 3:
		return "Últimos 3 Meses"
	case 12:
		return "Último Ano"
	default:
		return fmt.Sprintf("Últimos %d meses", months)
	}
}

func colorIf(ok bool) string {
	if ok {
		return colorGreen
	}
	return colorRed
}

func positive(v *float64) bool { return v != nil && *v > 0 }

// buildView assembles the payload. Rows and overlays cover the requested
// range; the growth and valuation panels use the whole history.
func buildView(ticker, title string, st *stock.Stock, req ViewRequest, panel []stock.Growth) (StockView, error) {
	table := st.Range(req.Start, req.End)
	bars := table.Bars()

	v := StockView{
		Ticker:    ticker,
		Symbol:    st.Symbol,
		Title:     fmt.Sprintf("Preço das ações da empresa %s", title),
		Start:     req.Start.Format(model.DateLayout),
		End:       req.End.Format(model.DateLayout),
		Columns:   req.Columns,
		Profile:   st.Profile,
		Info:      st.Info.Recognized(),
		Rows:      make([]map[string]any, 0, len(bars)),
		Warnings:  req.Warnings(),
		FetchedAt: st.FetchedAt,
	}
	if v.Warnings == nil {
		v.Warnings = []string{}
	}

	for _, b := range bars {
		row := map[string]any{export.ColDate: b.Date()}
		for _, c := range req.Columns {
			row[c] = export.Value(b, c)
		}
		v.Rows = append(v.Rows, row)
	}

	overlays, err := buildOverlays(bars, table.Closes(), req)
	if err != nil {
		return StockView{}, err
	}
	v.Overlays = overlays
	v.Range = buildRange(bars)

	for _, g := range panel {
		cell := GrowthCell{Months: g.Months, Label: growthLabel(g.Months), Value: g.Value, Color: colorIf(g.Positive())}
		if g.Err != nil {
			cell.Error = g.Err.Error()
		}
		v.Growth = append(v.Growth, cell)
	}

	p := st.Profile
	v.Indicators = []IndicatorCell{
		{Key: "dividend_yield", Label: "Dividend Yield", Value: p.DividendYield, Color: colorIf(positive(p.DividendYield))},
		{Key: "ebitda_margins", Label: "EBITDA Margins", Value: p.EbitdaMargins, Color: colorIf(positive(p.EbitdaMargins))},
		{Key: "pl", Label: "P/L (Preço/Lucro)", Value: p.PL, Color: colorIf(positive(p.PL))},
		{Key: "price_vp", Label: "P/VP", Value: p.PriceVP, Color: colorIf(p.PriceVP != nil && *p.PriceVP <= maxPriceToBook)},
	}
	return v, nil
}

func buildOverlays(bars []model.OHLCV, closes []float64, req ViewRequest) (Overlays, error) {
	o := Overlays{Dates: make([]string, len(bars)), Params: req.Params}
	for i, b := range bars {
		o.Dates[i] = b.Date()
	}
	if req.Volume {
		o.Volume = make([]float64, len(bars))
		for i, b := range bars {
			o.Volume[i] = b.Volume
		}
	}
	if req.SMA {
		sma, err := calculator.SMASeries(closes, req.Params.SMAPeriods)
		if err != nil {
			return o, err
		}
		o.SMA = sma
	}
	if req.BB {
		bands, err := calculator.BollingerBands(closes, req.Params.BBPeriods, req.Params.BBStd)
		if err != nil {
			return o, err
		}
		o.Bollinger = &bands
	}
	if req.RSI {
		rsi, err := calculator.RSISeries(bars, req.Params.RSIPeriods)
		if err != nil {
			return o, err
		}
		o.RSI = &RSIOverlay{Values: rsi, Upper: req.Params.RSIUpper, Lower: req.Params.RSILower}
	}
	return o, nil
}
