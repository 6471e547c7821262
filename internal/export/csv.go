// Package export writes and reads the price table as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"StockLens/internal/model"
)

// Column names, in display order. The date index is always written first.
const (
	ColDate      = "Date"
	ColOpen      = "Open"
	ColHigh      = "High"
	ColLow       = "Low"
	ColClose     = "Close"
	ColAdjClose  = "Adj Close"
	ColVolume    = "Volume"
	ColStockCode = "StockCode"
)

// Columns lists every selectable column.
var Columns = []string{ColOpen, ColHigh, ColLow, ColClose, ColAdjClose, ColVolume, ColStockCode}

// Filename returns the download name for a ticker's export.
func Filename(ticker string) string {
	return fmt.Sprintf("%s_stock_prices.csv", ticker)
}

// ParseColumns splits a comma list and checks every name. An empty list
// selects all columns. Date is the index and always written, so it is skipped.
func ParseColumns(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return Columns, nil
	}
	var out []string
	for _, c := range strings.Split(list, ",") {
		c = strings.TrimSpace(c)
		if c == "" || c == ColDate {
			continue
		}
		if !known(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		out = append(out, c)
	}
	return out, nil
}

func known(col string) bool {
	for _, c := range Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Value returns one column of a bar: a float64 for price and volume
// columns, the ticker string for StockCode.
func Value(b model.OHLCV, col string) any {
	switch col {
	case ColOpen:
		return b.Open
	case ColHigh:
		return b.High
	case ColLow:
		return b.Low
	case ColClose:
		return b.Close
	case ColAdjClose:
		return b.AdjClose
	case ColVolume:
		return b.Volume
	case ColStockCode:
		return b.Symbol
	}
	return nil
}

// Cell renders one column of a bar as CSV text.
func Cell(b model.OHLCV, col string) string {
	switch v := Value(b, col).(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	}
	return ""
}

// WriteCSV writes the Date column followed by the selected columns.
func WriteCSV(w io.Writer, t *model.PriceTable, columns []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{ColDate}, columns...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range t.Bars() {
		row := make([]string, 0, len(columns)+1)
		row = append(row, b.Date())
		for _, c := range columns {
			row = append(row, Cell(b, c))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", b.Date(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV, returning the table and the
// columns it carried.
func ReadCSV(r io.Reader) (*model.PriceTable, []string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("read csv: missing header")
	}
	header := records[0]
	if header[0] != ColDate {
		return nil, nil, fmt.Errorf("read csv: first column is %q, want %q", header[0], ColDate)
	}
	columns := header[1:]
	for _, c := range columns {
		if !known(c) {
			return nil, nil, fmt.Errorf("read csv: unknown column %q", c)
		}
	}

	symbol := ""
	bars := make([]model.OHLCV, 0, len(records)-1)
	for n, rec := range records[1:] {
		d, err := time.Parse(model.DateLayout, rec[0])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		b := model.OHLCV{Time: d}
		for i, c := range columns {
			if err := setCell(&b, c, rec[i+1]); err != nil {
				return nil, nil, fmt.Errorf("row %d column %s: %w", n+1, c, err)
			}
		}
		symbol = b.Symbol
		bars = append(bars, b)
	}
	return model.NewPriceTable(symbol, bars), columns, nil
}

func setCell(b *model.OHLCV, col, v string) error {
	if col == ColStockCode {
		b.Symbol = v
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	switch col {
	case ColOpen:
		b.Open = f
	case ColHigh:
		b.High = f
	case ColLow:
		b.Low = f
	case ColClose:
		b.Close = f
	case ColAdjClose:
		b.AdjClose = f
	case ColVolume:
		b.Volume = f
	}
	return nil
}
