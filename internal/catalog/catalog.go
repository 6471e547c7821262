// Package catalog lists the B3 tickers offered for selection.
package catalog

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

//go:embed b3.csv
var b3CSV string

// Entry is one listed ticker.
type Entry struct {
	Ticker  string `json:"ticker"`
	Company string `json:"company"`
}

// Catalog maps tickers to company names.
type Catalog struct {
	entries []Entry
	byCode  map[string]string
}

// Load parses the embedded B3 list.
func Load() (*Catalog, error) {
	return Parse(strings.NewReader(b3CSV))
}

// Parse reads a Ticker,Company CSV with a header row. Later duplicates win.
func Parse(r io.Reader) (*Catalog, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse catalog: empty input")
	}

	c := &Catalog{byCode: make(map[string]string, len(records))}
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(rec[0]))
		if code == "" {
			continue
		}
		c.byCode[code] = strings.TrimSpace(rec[1])
	}
	for code, name := range c.byCode {
		c.entries = append(c.entries, Entry{Ticker: code, Company: name})
	}
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].Ticker < c.entries[j].Ticker })
	return c, nil
}

// Tickers returns every entry sorted by ticker.
func (c *Catalog) Tickers() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Name returns the company name for a bare ticker code.
func (c *Catalog) Name(ticker string) (string, bool) {
	name, ok := c.byCode[strings.ToUpper(ticker)]
	return name, ok
}
