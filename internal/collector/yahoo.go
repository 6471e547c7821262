package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"StockLens/internal/model"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// infoModules are the quoteSummary modules merged into the info blob.
var infoModules = []string{"price", "summaryDetail", "defaultKeyStatistics", "financialData", "quoteType"}

// YahooOptions configures a YahooFetcher.
type YahooOptions struct {
	BaseURL string
	// CookieURL is visited once before the crumb request to obtain session
	// cookies. Empty skips the visit.
	CookieURL string
	Proxy     string
	Timeout   time.Duration
	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter
	// Location is the exchange timezone used to turn bar timestamps into dates.
	Location *time.Location
	Logger   *logrus.Entry
}

// YahooFetcher implements Fetcher using the Yahoo Finance public API.
type YahooFetcher struct {
	Client  *http.Client
	baseURL string
	cookie  string
	limiter *rate.Limiter
	loc     *time.Location
	log     *logrus.Entry

	mu    sync.Mutex
	crumb string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts YahooOptions) *YahooFetcher {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			Jar:       jar,
		},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		cookie:  opts.CookieURL,
		limiter: opts.Limiter,
		loc:     loc,
		log:     log,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the v8 chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// yahooSummary is the response structure from the v10 quoteSummary API.
// Module fields are either {raw, fmt} objects or plain scalars.
type yahooSummary struct {
	QuoteSummary struct {
		Result []map[string]map[string]json.RawMessage `json:"result"`
		Error  *yahooError                             `json:"error"`
	} `json:"quoteSummary"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(vals []interface{}, i int) interface{} {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// FetchInfo merges the quoteSummary modules into one flat map.
func (f *YahooFetcher) FetchInfo(ctx context.Context, symbol string) (map[string]any, error) {
	q := url.Values{}
	q.Set("modules", strings.Join(infoModules, ","))
	body, err := f.get(ctx, fmt.Sprintf("%s/v10/finance/quoteSummary/%s", f.baseURL, url.PathEscape(symbol)), q)
	if err != nil {
		return nil, fmt.Errorf("yahoo info %s: %w", symbol, err)
	}

	var summary yahooSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("yahoo info decode: %w", err)
	}
	if e := summary.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("yahoo api error: %s", e.Description)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo info %s: %w", symbol, ErrNoData)
	}

	info := make(map[string]any)
	for _, name := range infoModules {
		module, ok := summary.QuoteSummary.Result[0][name]
		if !ok {
			continue
		}
		for key, raw := range module {
			if v, ok := flattenValue(raw); ok {
				info[key] = v
			}
		}
	}
	return info, nil
}

// flattenValue unwraps {raw, fmt} objects and keeps integers distinct from
// floats. Empty objects, nulls and nested structures are dropped.
func flattenValue(raw json.RawMessage) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if obj, ok := v.(map[string]any); ok {
		r, ok := obj["raw"]
		if !ok {
			return nil, false
		}
		v = r
	}
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil && !strings.ContainsAny(x.String(), ".eE") {
			return n, true
		}
		fv, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return fv, true
	case string, bool:
		return x, true
	default:
		return nil, false
	}
}

// FetchHistory returns daily bars between start and end, tagged with symbol.
func (f *YahooFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	body, err := f.get(ctx, fmt.Sprintf("%s/v8/finance/chart/%s", f.baseURL, url.PathEscape(symbol)), q)
	if err != nil {
		return nil, fmt.Errorf("yahoo history %s: %w", symbol, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo history %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []interface{}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := toFloat(at(quote.Open, i))
		h := toFloat(at(quote.High, i))
		l := toFloat(at(quote.Low, i))
		c := toFloat(at(quote.Close, i))
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		ac := toFloat(at(adj, i))
		if ac == 0 {
			ac = c
		}
		local := time.Unix(ts, 0).In(f.loc)
		bars = append(bars, model.OHLCV{
			Time:     time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			AdjClose: ac,
			Volume:   toFloat(at(quote.Volume, i)),
			Symbol:   symbol,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// get performs a rate-limited GET with the session crumb attached.
func (f *YahooFetcher) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	if crumb := f.ensureCrumb(ctx); crumb != "" {
		q.Set("crumb", crumb)
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Stale crumb; the next call negotiates a new one.
		f.mu.Lock()
		f.crumb = ""
		f.mu.Unlock()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

// ensureCrumb negotiates a crumb once per session. Failure is not fatal: some
// endpoints answer without one.
func (f *YahooFetcher) ensureCrumb(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb
	}

	if f.cookie != "" {
		if req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cookie, nil); err == nil {
			req.Header.Set("User-Agent", userAgent)
			if resp, err := f.Client.Do(req); err == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}
	}

	if err := f.wait(ctx); err != nil {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.Client.Do(req)
	if err != nil {
		f.log.WithError(err).Warn("crumb request failed")
		return ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	crumb := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || crumb == "" || strings.Contains(crumb, "<") {
		f.log.WithField("status", resp.StatusCode).Warn("no crumb obtained, continuing without")
		return ""
	}
	f.crumb = crumb
	f.log.Debug("yahoo session crumb obtained")
	return crumb
}

func (f *YahooFetcher) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
