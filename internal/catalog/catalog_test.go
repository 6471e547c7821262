package catalog

import (
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	name, ok := c.Name("PETR4")
	if !ok || !strings.Contains(name, "Petrobras") {
		t.Errorf("PETR4: got %q, %v", name, ok)
	}
	if _, ok := c.Name("petr4"); !ok {
		t.Error("lookup should be case insensitive")
	}
	if _, ok := c.Name("ZZZZ9"); ok {
		t.Error("unknown ticker should miss")
	}

	entries := c.Tickers()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Ticker >= entries[i].Ticker {
			t.Fatalf("entries not sorted at %d: %s >= %s", i, entries[i-1].Ticker, entries[i].Ticker)
		}
	}
}

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader("Ticker,Company\nAAA3, Alpha \nBBB4,Beta\nAAA3,Alpha New\n,Nameless\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(c.Tickers()); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}
	if name, _ := c.Name("AAA3"); name != "Alpha New" {
		t.Errorf("later duplicate should win, got %q", name)
	}
}
