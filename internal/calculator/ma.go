package calculator

import (
	"errors"
	"math"
)

var ErrPeriod = errors.New("period must be positive")

// Series is an indicator aligned index-for-index with its input. Leading
// points without a full window are nil.
type Series []*float64

// SMASeries computes the rolling simple moving average over every window.
func SMASeries(prices []float64, period int) (Series, error) {
	if period <= 0 {
		return nil, ErrPeriod
	}
	out := make(Series, len(prices))
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			v := sum / float64(period)
			out[i] = &v
		}
	}
	return out, nil
}

// Bands holds Bollinger band series.
type Bands struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// BollingerBands returns SMA ± k rolling sample standard deviations. A window
// of one has no sample deviation, so its bands stay nil.
func BollingerBands(prices []float64, period int, k float64) (Bands, error) {
	middle, err := SMASeries(prices, period)
	if err != nil {
		return Bands{}, err
	}
	b := Bands{
		Upper:  make(Series, len(prices)),
		Middle: middle,
		Lower:  make(Series, len(prices)),
	}
	if period < 2 {
		return b, nil
	}
	for i := period - 1; i < len(prices); i++ {
		mean := *middle[i]
		var ss float64
		for _, p := range prices[i-period+1 : i+1] {
			ss += (p - mean) * (p - mean)
		}
		sd := math.Sqrt(ss / float64(period-1))
		up, lo := mean+k*sd, mean-k*sd
		b.Upper[i] = &up
		b.Lower[i] = &lo
	}
	return b, nil
}
