package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"StockLens/internal/model"
)

func sampleTable() *model.PriceTable {
	return model.NewPriceTable("PETR4.SA", []model.OHLCV{
		{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 37.1, High: 37.9, Low: 36.8, Close: 37.52, AdjClose: 35.01, Volume: 41234500, Symbol: "PETR4.SA"},
		{Time: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 37.5, High: 38.2, Low: 37.3, Close: 38.04, AdjClose: 35.5, Volume: 39876000, Symbol: "PETR4.SA"},
	})
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename("PETR4"))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteCSV(f, sampleTable(), Columns); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	f.Close()

	f, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, cols, err := ReadCSV(f)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if strings.Join(cols, ",") != strings.Join(Columns, ",") {
		t.Errorf("columns changed: %v", cols)
	}
	want := sampleTable().Bars()
	if got.Len() != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), got.Len())
	}
	for i, b := range got.Bars() {
		if !b.Time.Equal(want[i].Time) {
			t.Errorf("row %d: date %v, want %v", i, b.Time, want[i].Time)
		}
		b.Time = want[i].Time
		if b != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, b, want[i])
		}
	}
}

func TestWriteCSV_ColumnSubset(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTable(), []string{ColClose, ColStockCode}); err != nil {
		t.Fatal(err)
	}
	want := "Date,Close,StockCode\n2024-01-02,37.52,PETR4.SA\n2024-01-03,38.04,PETR4.SA\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestParseColumns(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", len(Columns), false},
		{"Close, Adj Close", 2, false},
		{"Close,Bogus", 0, true},
		{"Date,Close", 1, false},
		{"Date", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseColumns(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("%q: got %d columns, want %d", tt.in, len(got), tt.want)
		}
	}
}

func TestReadCSV_BadHeader(t *testing.T) {
	if _, _, err := ReadCSV(strings.NewReader("When,Close\n2024-01-02,1\n")); err == nil {
		t.Error("expected header error")
	}
}
