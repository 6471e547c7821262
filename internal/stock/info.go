package stock

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the coercion rule applied to a recognized metadata key.
type Kind int

const (
	// KindPassthrough returns the value as stored, rounding floats to 2 places.
	KindPassthrough Kind = iota
	// KindTimestamp turns Unix seconds into a dd/mm/yyyy string.
	KindTimestamp
)

// Metadata keys read into the profile.
const (
	KeyShortName        = "shortName"
	KeyLongName         = "longName"
	KeyPreviousClose    = "previousClose"
	KeyDividendRate     = "dividendRate"
	KeyVolume           = "volume"
	KeyDividendYield    = "dividendYield"
	KeyEbitdaMargins    = "ebitdaMargins"
	KeyTrailingPE       = "trailingPE"
	KeyPriceToBook      = "priceToBook"
	KeyEnterpriseEbitda = "enterpriseToEbitda"
	KeyGrossMargins     = "grossMargins"
	KeyOperatingCash    = "operatingCashflow"
	KeyLastDivValue     = "lastDividendValue"
	KeyLastDivDate      = "lastDividendDate"
	KeyAvgVolume10Day   = "averageDailyVolume10Day"
)

// Fields is the allow-list of metadata keys and their coercion rules.
var Fields = map[string]Kind{
	KeyShortName:        KindPassthrough,
	KeyLongName:         KindPassthrough,
	KeyPreviousClose:    KindPassthrough,
	KeyDividendRate:     KindPassthrough,
	KeyVolume:           KindPassthrough,
	KeyDividendYield:    KindPassthrough,
	KeyEbitdaMargins:    KindPassthrough,
	KeyTrailingPE:       KindPassthrough,
	KeyPriceToBook:      KindPassthrough,
	KeyEnterpriseEbitda: KindPassthrough,
	KeyGrossMargins:     KindPassthrough,
	KeyOperatingCash:    KindPassthrough,
	KeyLastDivValue:     KindPassthrough,
	KeyLastDivDate:      KindTimestamp,
	KeyAvgVolume10Day:   KindPassthrough,
}

// DividendDateLayout is the display format for the last dividend date.
const DividendDateLayout = "02/01/2006"

// Info is the loosely-typed metadata blob returned by the provider.
type Info map[string]any

// Feature returns the value stored under key. Floats come back rounded to two
// decimal places; every other type is returned unchanged. A missing key is a
// normal outcome and reports false, and so does a NaN or infinite float.
func (i Info) Feature(key string) (any, bool) {
	v, ok := i[key]
	if !ok || v == nil {
		return nil, false
	}
	switch x := v.(type) {
	case float64:
		if !finite(x) {
			return nil, false
		}
		return Round2(x), true
	case float32:
		if !finite(float64(x)) {
			return nil, false
		}
		return Round2(float64(x)), true
	default:
		return v, true
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Value applies the coercion rule registered in Fields. Keys outside the
// allow-list report false.
func (i Info) Value(key string) (any, bool) {
	kind, ok := Fields[key]
	if !ok {
		return nil, false
	}
	v, ok := i.Feature(key)
	if !ok {
		return nil, false
	}
	if kind == KindTimestamp {
		return formatTimestamp(v)
	}
	return v, true
}

func formatTimestamp(v any) (string, bool) {
	var sec int64
	switch x := v.(type) {
	case int64:
		sec = x
	case int:
		sec = int64(x)
	case float64:
		sec = int64(x)
	default:
		return "", false
	}
	return time.Unix(sec, 0).UTC().Format(DividendDateLayout), true
}

// Recognized returns every allow-listed key present in the blob, coerced.
func (i Info) Recognized() map[string]any {
	out := make(map[string]any, len(Fields))
	for key := range Fields {
		if v, ok := i.Value(key); ok {
			out[key] = v
		}
	}
	return out
}

// Float returns an allow-listed numeric value as float64.
func (i Info) Float(key string) *float64 {
	v, ok := i.Value(key)
	if !ok {
		return nil
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	default:
		return nil
	}
	return &f
}

// String returns an allow-listed value when it is a string. Timestamp keys
// come back formatted as dd/mm/yyyy in UTC.
func (i Info) String(key string) *string {
	v, ok := i.Value(key)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// Round2 rounds half away from zero to two decimal places. NaN and infinities
// are returned unchanged.
func Round2(v float64) float64 {
	if !finite(v) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
