package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/kline"
)

func rampBars(n int) []kline.Bar {
	bars := make([]kline.Bar, n)
	for i := 0; i < n; i++ {
		c := decimal.NewFromInt(int64(10 + i))
		bars[i] = kline.Bar{
			Date:  decimal.NewFromInt(int64(i)).String(),
			Open:  c,
			Close: c,
			High:  c.Add(decimal.NewFromInt(1)),
			Low:   c.Sub(decimal.NewFromInt(1)),
		}
	}
	return bars
}

func TestMAWarmupAndValue(t *testing.T) {
	line := MA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, line, 5)
	assert.Nil(t, line[0])
	assert.Nil(t, line[1])
	v, ok := Value(line, 2)
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)
	v, _ = Value(line, 4)
	assert.InDelta(t, 4.0, v, 1e-9)
}

func TestShortInputYieldsGaps(t *testing.T) {
	assert.Equal(t, kline.Line{nil, nil}, MA([]float64{1, 2}, 5))
	assert.Len(t, RSI([]float64{1, 2}, 14), 2)
	m := MACD([]float64{1, 2, 3}, MACDSettings{})
	assert.Len(t, m.DIF, 3)
	assert.Nil(t, m.MACD[2])
}

func TestComputeOnlyRequested(t *testing.T) {
	set, _ := kline.ParseIndicators("ma", "kdj")
	data, err := Compute(rampBars(30), set, Settings{MAPeriods: []int{5}})
	require.NoError(t, err)
	assert.Contains(t, data.MA, "ma5")
	require.NotNil(t, data.KDJ)
	assert.Len(t, data.KDJ.K, 30)
	assert.Nil(t, data.MACD)
	assert.Nil(t, data.BOLL)
	assert.Nil(t, data.RSI)
}

func TestKDJRampStaysHigh(t *testing.T) {
	bars := rampBars(40)
	set, _ := kline.ParseIndicators("kdj")
	data, err := Compute(bars, set, Settings{})
	require.NoError(t, err)
	k, ok := Value(data.KDJ.K, 39)
	require.True(t, ok)
	assert.Greater(t, k, 80.0)
}

func TestBOLLOrdering(t *testing.T) {
	closes := Closes(rampBars(30))
	b := BOLL(closes, BOLLSettings{N: 20, K: 2})
	up, ok := Value(b.Upper, 29)
	require.True(t, ok)
	mid, _ := Value(b.Mid, 29)
	low, _ := Value(b.Lower, 29)
	assert.Greater(t, up, mid)
	assert.Greater(t, mid, low)
	assert.Nil(t, b.Mid[18])
}

func TestComputeRejectsEmpty(t *testing.T) {
	_, err := Compute(nil, kline.IndicatorSet{}, Settings{})
	assert.Error(t, err)
}
