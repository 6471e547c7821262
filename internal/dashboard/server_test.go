package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"StockLens/internal/cache"
	"StockLens/internal/catalog"
	"StockLens/internal/collector"
	"StockLens/internal/logging"
	"StockLens/internal/model"
	"StockLens/internal/recorder"
	"StockLens/internal/stock"
)

var testNow = func() time.Time { return time.Date(2024, 2, 3, 15, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T, fetcher collector.Fetcher) *httptest.Server {
	t.Helper()
	return newRecordingServer(t, fetcher, nil)
}

func newRecordingServer(t *testing.T, fetcher collector.Fetcher, rec recorder.Recorder) *httptest.Server {
	t.Helper()
	reg := cache.NewRegistry(cache.Config{
		Fetcher: fetcher,
		Options: stock.Options{MaxFallbackDays: 7, Now: testNow},
	})
	cat, err := catalog.Load()
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(Options{SymbolSuffix: ".SA", Now: testNow}, reg, cat, rec, logging.Discard())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func petrobras() *collector.MockFetcher {
	var bars []model.OHLCV
	for i, c := range []float64{10, 10, 11, 12} {
		bars = append(bars, model.OHLCV{Time: time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC), Open: c, High: c, Low: c, Close: c, AdjClose: c, Volume: 1000})
	}
	return &collector.MockFetcher{
		Bars: bars,
		Info: map[string]any{
			"shortName":     "PETROBRAS PN",
			"longName":      "Petróleo Brasileiro S.A. - Petrobras",
			"dividendYield": 0.0523,
			"priceToBook":   1.0812,
			"marketCap":     int64(500000000000),
		},
	}
}

func getView(t *testing.T, url string) (StockView, *http.Response) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var v StockView
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			t.Fatalf("decode view: %v", err)
		}
	}
	return v, resp
}

func TestHandleStock(t *testing.T) {
	srv := newTestServer(t, petrobras())
	v, resp := getView(t, srv.URL+"/api/v1/stocks/petr4?start=2024-01-01&end=2024-01-31&columns=Close,StockCode&sma=true&sma_periods=2&rsi=true&rsi_periods=2&volume=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}

	if v.Ticker != "PETR4" || v.Symbol != "PETR4.SA" {
		t.Errorf("ticker/symbol: %s %s", v.Ticker, v.Symbol)
	}
	if !strings.Contains(v.Title, "Petrobras") {
		t.Errorf("title: %s", v.Title)
	}
	if len(v.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(v.Rows))
	}
	if v.Rows[0]["Date"] != "2024-01-02" || v.Rows[0]["Close"] != 10.0 || v.Rows[0]["StockCode"] != "PETR4.SA" {
		t.Errorf("first row: %v", v.Rows[0])
	}
	if _, ok := v.Rows[0]["Open"]; ok {
		t.Error("unselected column should be omitted")
	}
	if len(v.Overlays.SMA) != 4 || v.Overlays.SMA[0] != nil || *v.Overlays.SMA[1] != 10 {
		t.Errorf("sma overlay: %v", v.Overlays.SMA)
	}
	if v.Overlays.RSI == nil || v.Overlays.RSI.Upper != 70 || len(v.Overlays.RSI.Values) != 4 {
		t.Errorf("rsi overlay: %+v", v.Overlays.RSI)
	}
	if len(v.Overlays.Volume) != 4 || v.Overlays.Bollinger != nil {
		t.Errorf("volume/bollinger overlays: %v %v", v.Overlays.Volume, v.Overlays.Bollinger)
	}

	if len(v.Growth) != 3 {
		t.Fatalf("expected 3 growth cells, got %d", len(v.Growth))
	}
	if g := v.Growth[0]; g.Value == nil || *g.Value != 9.09 || g.Color != colorGreen || g.Label != "Último mês" {
		t.Errorf("1 month cell: %+v", g)
	}
	if g := v.Growth[2]; g.Value != nil || g.Color != colorRed || g.Error == "" {
		t.Errorf("12 month cell: %+v", g)
	}

	colors := map[string]string{}
	for _, c := range v.Indicators {
		colors[c.Key] = c.Color
	}
	want := map[string]string{"dividend_yield": colorGreen, "ebitda_margins": colorRed, "pl": colorRed, "price_vp": colorGreen}
	for k, c := range want {
		if colors[k] != c {
			t.Errorf("%s: color %s, want %s", k, colors[k], c)
		}
	}
	if v.Profile.PL != nil || v.Profile.DividendYield == nil || *v.Profile.DividendYield != 0.05 {
		t.Errorf("profile: %+v", v.Profile)
	}
	if v.Info["dividendYield"] != 0.05 || v.Info["shortName"] != "PETROBRAS PN" {
		t.Errorf("info: %v", v.Info)
	}
	if _, ok := v.Info["marketCap"]; ok {
		t.Error("keys outside the allow-list should not be exposed")
	}
	if r := v.Range; r == nil || r.High != 12 || r.Low != 10 || r.LastClose != 12 || r.Position != 1 {
		t.Errorf("range: %+v", v.Range)
	}
}

func TestHandleStock_DateColumn(t *testing.T) {
	srv := newTestServer(t, petrobras())
	v, resp := getView(t, srv.URL+"/api/v1/stocks/PETR4?start=2024-01-01&end=2024-01-31&columns=Date,Close")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(v.Columns) != 1 || v.Columns[0] != "Close" {
		t.Errorf("columns: %v", v.Columns)
	}
	if v.Rows[0]["Date"] != "2024-01-02" {
		t.Errorf("first row: %v", v.Rows[0])
	}
}

func TestHandleStock_EmptyRangeHasNoPriceRange(t *testing.T) {
	srv := newTestServer(t, petrobras())
	v, resp := getView(t, srv.URL+"/api/v1/stocks/PETR4?start=2023-01-01&end=2023-01-31")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if v.Range != nil {
		t.Errorf("expected no range for empty rows, got %+v", v.Range)
	}
}

func TestHandleGrowthHistory(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "stocklens.db"), logging.WithComponent(logging.Discard(), "recorder"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })
	srv := newRecordingServer(t, petrobras(), rec)

	if _, resp := getView(t, srv.URL+"/api/v1/stocks/PETR4"); resp.StatusCode != http.StatusOK {
		t.Fatalf("view status %d", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/v1/stocks/petr4/growth/history?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body struct {
		Symbol   string                   `json:"symbol"`
		Readings []recorder.GrowthReading `json:"readings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Symbol != "PETR4.SA" || len(body.Readings) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if r := body.Readings[0]; r.Months != 12 || r.Growth != nil || r.Err == "" {
		t.Errorf("newest reading: %+v", r)
	}
	if r := body.Readings[1]; r.Months != 3 {
		t.Errorf("second reading: %+v", r)
	}

	for _, q := range []string{"limit=0", "limit=abc", "limit=5000"} {
		resp, err := http.Get(srv.URL + "/api/v1/stocks/PETR4/growth/history?" + q)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestHandleStock_StartAfterEnd(t *testing.T) {
	srv := newTestServer(t, petrobras())
	v, resp := getView(t, srv.URL+"/api/v1/stocks/PETR4?start=2024-01-31&end=2024-01-01")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(v.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(v.Rows))
	}
	if len(v.Warnings) != 1 || v.Warnings[0] != WarnStartAfterEnd {
		t.Errorf("warnings: %v", v.Warnings)
	}
}

func TestHandleStock_BadParams(t *testing.T) {
	srv := newTestServer(t, petrobras())
	for _, q := range []string{"sma_periods=80", "bb_std=9", "rsi_lower=5", "start=yesterday", "columns=Bogus", "sma=maybe"} {
		_, resp := getView(t, srv.URL+"/api/v1/stocks/PETR4?"+q)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestHandleStock_ProviderError(t *testing.T) {
	srv := newTestServer(t, &collector.MockFetcher{Err: errors.New("yahoo: status 404")})
	resp, err := http.Get(srv.URL + "/api/v1/stocks/NOPE3")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var body errorBody
	json.NewDecoder(resp.Body).Decode(&body)
	if !strings.Contains(body.Error, "status 404") || body.RequestID == "" {
		t.Errorf("error body: %+v", body)
	}
}

func TestHandleCSV(t *testing.T) {
	srv := newTestServer(t, petrobras())
	resp, err := http.Get(srv.URL + "/api/v1/stocks/PETR4/csv?start=2024-01-03&end=2024-01-04&columns=Close")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "PETR4_stock_prices.csv") {
		t.Errorf("content disposition: %s", cd)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	if want := "Date,Close\n2024-01-03,10\n2024-01-04,11\n"; buf.String() != want {
		t.Errorf("body:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestHandleRefresh(t *testing.T) {
	m := petrobras()
	srv := newTestServer(t, m)
	if _, resp := getView(t, srv.URL+"/api/v1/stocks/PETR4"); resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	resp, err := http.Post(srv.URL+"/api/v1/stocks/PETR4/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status %d", resp.StatusCode)
	}
	if _, history := m.Calls(); history != 2 {
		t.Errorf("expected 2 provider fetches, got %d", history)
	}
}

func TestHandleTickersAndHealth(t *testing.T) {
	srv := newTestServer(t, petrobras())

	resp, err := http.Get(srv.URL + "/api/v1/tickers")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Tickers []catalog.Entry `json:"tickers"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	found := false
	for _, e := range body.Tickers {
		if e.Ticker == "PETR4" {
			found = true
		}
	}
	if !found {
		t.Error("PETR4 missing from tickers")
	}

	resp, err = http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status %d", resp.StatusCode)
	}
}
