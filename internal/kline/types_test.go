package kline

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(date string, closePrice int64) Bar {
	c := decimal.NewFromInt(closePrice)
	return Bar{Date: date, Open: c, Close: c, High: c, Low: c}
}

func TestNewBarSeriesSortsAndDedupes(t *testing.T) {
	s := NewBarSeries("600000.SH", PeriodDay, AdjNone, []Bar{
		bar("2024-01-03", 3),
		bar("2024-01-01", 1),
		bar("2024-01-02", 2),
		bar("2024-01-03", 33),
	})
	require.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, s.Dates())
	assert.True(t, s.Bars[2].Close.Equal(decimal.NewFromInt(33)))
	assert.Equal(t, "2024-01-01", s.First())
	assert.Equal(t, "2024-01-03", s.Last())

	empty := NewBarSeries("x", PeriodDay, AdjNone, nil)
	assert.True(t, empty.Empty())
	assert.Equal(t, "", empty.First())
}

func TestBarUnmarshalAcceptsFloatVolume(t *testing.T) {
	var b Bar
	raw := `{"date":"2024-01-02","open":10.5,"close":10.8,"high":11,"low":10.1,"volume":123456.0,"amount":1333333.33}`
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	assert.Equal(t, int64(123456), b.Volume)
	assert.Equal(t, "10.8", b.Close.String())
	assert.Equal(t, "1333333.33", b.Amount.String())

	require.NoError(t, json.Unmarshal([]byte(`{"date":"d","open":1,"close":1,"high":1,"low":1,"volume":42}`), &b))
	assert.Equal(t, int64(42), b.Volume)
	assert.True(t, b.Amount.IsZero())
}

func TestIndicatorPayloadVerbatim(t *testing.T) {
	raw := `{"stock_info":{"code":"600000.SH","name":"浦发银行"},"klines":[],"count":0,
		"indicators":{"ma":{"ma5":[null,1.5]},"macd":{"dif":[0.1],"dea":[0.2],"macd":[-0.2]}}}`
	var data klineData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.True(t, data.Indicators.Has(IndicatorMA))
	assert.True(t, data.Indicators.Has(IndicatorMACD))
	assert.False(t, data.Indicators.Has(IndicatorKDJ))
	assert.JSONEq(t, `{"ma":{"ma5":[null,1.5]},"macd":{"dif":[0.1],"dea":[0.2],"macd":[-0.2]}}`, string(data.Indicators))

	decoded, err := data.Indicators.Decode()
	require.NoError(t, err)
	require.Len(t, decoded.MA["ma5"], 2)
	assert.Nil(t, decoded.MA["ma5"][0])
	assert.InDelta(t, 1.5, *decoded.MA["ma5"][1], 1e-9)
	require.NotNil(t, decoded.MACD)
	assert.InDelta(t, -0.2, *decoded.MACD.MACD[0], 1e-9)
	assert.Nil(t, decoded.KDJ)

	var none klineData
	require.NoError(t, json.Unmarshal([]byte(`{"klines":[],"indicators":null}`), &none))
	assert.True(t, none.Indicators.Empty())
}
