package calculator

import (
	"StockLens/internal/model"
)

// RSISeries computes the Wilder-smoothed RSI for every bar. The first period
// points are nil.
func RSISeries(bars []model.OHLCV, period int) (Series, error) {
	if period <= 0 {
		return nil, ErrPeriod
	}
	out := make(Series, len(bars))
	if len(bars) < period+1 {
		return out, nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	// Seed with the plain average of the first period changes.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) *float64 {
	v := 100.0
	if avgLoss != 0 {
		v = 100.0 - 100.0/(1.0+avgGain/avgLoss)
	}
	return &v
}
