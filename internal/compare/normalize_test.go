package compare

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinedash/internal/kline"
)

func seriesOf(code string, dates []string, closes ...float64) *kline.BarSeries {
	bars := make([]kline.Bar, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		bars[i] = kline.Bar{Date: dates[i], Open: d, Close: d, High: d, Low: d}
	}
	s := kline.NewBarSeries(code, kline.PeriodDay, kline.AdjNone, bars)
	return &s
}

var days = []string{"2024-01-02", "2024-01-03", "2024-01-04"}

func TestNormalizeChangeMode(t *testing.T) {
	out := Normalize([]Input{{
		Stock:  kline.StockInfo{Code: "600000.SH", Name: "浦发银行"},
		Series: seriesOf("600000.SH", days, 100, 110, 90),
	}}, ModeChange)
	require.Len(t, out, 1)
	assert.InDeltaSlice(t, []float64{0, 10, -10}, out[0].Values(), 1e-9)
	assert.Equal(t, "浦发银行", out[0].Name)
	assert.Equal(t, days[0], out[0].Points[0].Date)
}

func TestNormalizePriceModeIsIdentity(t *testing.T) {
	out := Normalize([]Input{{
		Stock:  kline.StockInfo{Code: "A"},
		Series: seriesOf("A", days, 100, 110, 90),
	}}, ModePrice)
	require.Len(t, out, 1)
	assert.Equal(t, []float64{100, 110, 90}, out[0].Values())
}

func TestNormalizeDropsFailedAndEmpty(t *testing.T) {
	empty := kline.NewBarSeries("B", kline.PeriodDay, kline.AdjNone, nil)
	out := Normalize([]Input{
		{Stock: kline.StockInfo{Code: "A"}, Err: errors.New("boom")},
		{Stock: kline.StockInfo{Code: "B"}, Series: &empty},
		{Stock: kline.StockInfo{Code: "C"}, Series: seriesOf("C", days, 5, 6, 7)},
	}, ModeChange)
	require.Len(t, out, 1)
	assert.Equal(t, "C", out[0].Code)
}

func TestNormalizeAllExcludedIsEmptyNotNil(t *testing.T) {
	out := Normalize([]Input{{Stock: kline.StockInfo{Code: "A"}, Err: errors.New("x")}}, ModeChange)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Empty(t, Normalize(nil, ModePrice))
}

func TestNormalizeSkipsZeroBaseInChangeMode(t *testing.T) {
	in := []Input{{Stock: kline.StockInfo{Code: "Z"}, Series: seriesOf("Z", days, 0, 1, 2)}}
	assert.Empty(t, Normalize(in, ModeChange))
	assert.Len(t, Normalize(in, ModePrice), 1)
}

func TestNormalizeKeepsSelectionOrder(t *testing.T) {
	out := Normalize([]Input{
		{Stock: kline.StockInfo{Code: "LOW"}, Series: seriesOf("LOW", days, 10, 9, 8)},
		{Stock: kline.StockInfo{Code: "HIGH"}, Series: seriesOf("HIGH", days, 10, 20, 30)},
	}, ModeChange)
	require.Len(t, out, 2)
	assert.Equal(t, "LOW", out[0].Code)
	assert.Equal(t, "HIGH", out[1].Code)
}

func TestAxisComesFromFirstSeries(t *testing.T) {
	short := []string{"2024-01-03", "2024-01-04"}
	out := Normalize([]Input{
		{Stock: kline.StockInfo{Code: "A"}, Series: seriesOf("A", short, 1, 2)},
		{Stock: kline.StockInfo{Code: "B"}, Series: seriesOf("B", days, 1, 2, 3)},
	}, ModePrice)
	assert.Equal(t, short, Axis(out))
	assert.False(t, Aligned(out))
	assert.Nil(t, Axis(nil))
	assert.True(t, Aligned(out[1:]))
}

func TestAlignedToleratesEmptyAndSingle(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, Aligned(nil))
		assert.True(t, Aligned([]Series{}))
		assert.True(t, Aligned(Normalize(nil, ModeChange)))
	})
	one := Normalize([]Input{{Stock: kline.StockInfo{Code: "A"}, Series: seriesOf("A", days, 1, 2, 3)}}, ModeChange)
	assert.True(t, Aligned(one))

	same := Normalize([]Input{
		{Stock: kline.StockInfo{Code: "A"}, Series: seriesOf("A", days, 1, 2, 3)},
		{Stock: kline.StockInfo{Code: "B"}, Series: seriesOf("B", days, 4, 5, 6)},
	}, ModePrice)
	assert.True(t, Aligned(same))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("change_pct")
	require.NoError(t, err)
	assert.Equal(t, ModeChange, m)
	m, err = ParseMode("PRICE")
	require.NoError(t, err)
	assert.Equal(t, "price", m.ServerMode())
	_, err = ParseMode("log")
	assert.Error(t, err)
}
