package backtest

import "math"

const tradingDaysPerYear = 252

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func computeMetrics(daily []DailyPosition, trades []TradeRecord, capital float64) Metrics {
	var m Metrics
	for _, t := range trades {
		if t.Action == ActionBuy {
			m.TotalTrades++
		}
	}
	profits := roundTripProfits(trades)
	var gain, loss float64
	for _, p := range profits {
		if p > 0 {
			m.WinTrades++
			gain += p
		} else {
			loss += -p
		}
	}
	m.LossTrades = m.TotalTrades - m.WinTrades
	if m.TotalTrades > 0 {
		m.WinRate = round2(float64(m.WinTrades) / float64(m.TotalTrades) * 100)
	}
	if loss > 0 {
		m.ProfitLossRatio = round2(gain / loss)
	}
	if len(daily) == 0 || capital <= 0 {
		return m
	}
	final := daily[len(daily)-1].TotalValue
	m.TotalReturn = round2((final - capital) / capital * 100)
	if len(daily) >= 2 {
		years := float64(len(daily)) / tradingDaysPerYear
		m.AnnualReturn = round2((math.Pow(final/capital, 1/years) - 1) * 100)
		m.SharpeRatio = round2(sharpe(daily, 0.03))
	}
	m.MaxDrawdown = round2(maxDrawdown(daily))
	return m
}

// roundTripProfits pairs each sell with the oldest open buy (FIFO).
func roundTripProfits(trades []TradeRecord) []float64 {
	var open []TradeRecord
	var out []float64
	for _, t := range trades {
		switch t.Action {
		case ActionBuy:
			open = append(open, t)
		case ActionSell:
			if len(open) == 0 {
				continue
			}
			buy := open[0]
			open = open[1:]
			out = append(out, (t.Price-buy.Price)*float64(t.Shares)-t.Commission-buy.Commission)
		}
	}
	return out
}

func maxDrawdown(daily []DailyPosition) float64 {
	peak := daily[0].TotalValue
	var dd float64
	for _, d := range daily {
		if d.TotalValue > peak {
			peak = d.TotalValue
		}
		if peak > 0 {
			dd = math.Max(dd, (peak-d.TotalValue)/peak*100)
		}
	}
	return dd
}

func sharpe(daily []DailyPosition, riskFree float64) float64 {
	returns := make([]float64, 0, len(daily)-1)
	for i := 1; i < len(daily); i++ {
		prev := daily[i-1].TotalValue
		if prev == 0 {
			continue
		}
		returns = append(returns, (daily[i].TotalValue-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return (mean - riskFree/tradingDaysPerYear) / std * math.Sqrt(tradingDaysPerYear)
}
