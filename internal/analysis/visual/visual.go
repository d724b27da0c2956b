// Package visual renders dashboard charts to standalone HTML with go-echarts
// and screenshots them to PNG through headless Chrome.
package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"klinedash/internal/backtest"
	"klinedash/internal/compare"
	"klinedash/internal/kline"
)

const (
	colorBackground    = "#ffffff"
	colorTextPrimary   = "#1f2937"
	colorTextSecondary = "#6b7280"
	colorUp            = "#ef5350" // up is red
	colorDown          = "#26a69a" // down is green
	colorDIF           = "#3b82f6"
	colorDEA           = "#f59e0b"
	colorBenchmark     = "#9ca3af"

	defaultWidthPx  = 1600
	defaultHeightPx = 900
	panelHeightPx   = 240
)

var linePalette = []string{"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de", "#3ba272", "#fc8452"}

// Options controls the output size. Zero values give 1600x900.
type Options struct {
	Width  int
	Height int
	Title  string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = defaultWidthPx
	}
	if o.Height <= 0 {
		o.Height = defaultHeightPx
	}
	return o
}

func (o Options) initOpts(height int) opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", o.Width),
		Height:          fmt.Sprintf("%dpx", height),
		BackgroundColor: colorBackground,
	}
}

func titleOpts(title, subtitle string) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "left",
		TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 16},
		SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
	})
}

func splitLine() *opts.SplitLine {
	return &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}}
}

// KLineHTML renders candlesticks with volume, MA/BOLL overlays and one panel
// per MACD/KDJ/RSI block present in the indicator payload.
func KLineHTML(res kline.Result, o Options) ([]byte, error) {
	o = o.withDefaults()
	bars := res.Series.Bars
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to render for %s", res.Stock.Code)
	}
	ind, err := res.Indicators.Decode()
	if err != nil {
		return nil, err
	}
	xAxis := res.Series.Dates()
	panels := 1
	if ind.MACD != nil {
		panels++
	}
	if ind.KDJ != nil {
		panels++
	}
	if len(ind.RSI) > 0 {
		panels++
	}
	priceHeight := o.Height - panels*panelHeightPx
	if priceHeight < 360 {
		priceHeight = 360
	}

	title := o.Title
	if title == "" {
		title = res.Stock.Label()
	}
	minPrice, maxPrice := priceBounds(bars)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(0.01, math.Abs(maxPrice)*0.01)
	}

	k := charts.NewKLine()
	k.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts(priceHeight)),
		titleOpts(title, fmt.Sprintf("%s | 复权: %s | %d 根", res.Series.Period, res.Series.AdjType, len(bars))),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			Min:       round(minPrice-padding, 2),
			Max:       round(maxPrice+padding, 2),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: splitLine(),
		}),
	)
	k.SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{
		Color: colorUp, Color0: colorDown, BorderColor: colorUp, BorderColor0: colorDown,
	}))
	k.SetXAxis(xAxis)
	k.AddSeries("K线", buildKlineSeries(bars))
	if overlay := buildOverlay(ind, xAxis); overlay != nil {
		k.Overlap(overlay)
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(k, buildVolumeChart(o, xAxis, bars))
	if ind.MACD != nil {
		page.AddCharts(buildMACDChart(o, xAxis, *ind.MACD))
	}
	if ind.KDJ != nil {
		page.AddCharts(buildLinesChart(o, "KDJ", xAxis, map[string]kline.Line{"K": ind.KDJ.K, "D": ind.KDJ.D, "J": ind.KDJ.J}))
	}
	if len(ind.RSI) > 0 {
		page.AddCharts(buildLinesChart(o, "RSI", xAxis, ind.RSI))
	}
	return renderPage(page)
}

func buildKlineSeries(bars []kline.Bar) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(bars))
	for _, b := range bars {
		data = append(data, opts.KlineData{Value: [4]float64{
			b.Open.InexactFloat64(), b.Close.InexactFloat64(), b.Low.InexactFloat64(), b.High.InexactFloat64(),
		}})
	}
	return data
}

// buildOverlay draws MA lines and BOLL bands on the price axis.
func buildOverlay(ind kline.IndicatorData, xAxis []string) *charts.Line {
	lines := map[string]kline.Line{}
	for name, l := range ind.MA {
		lines[strings.ToUpper(name)] = l
	}
	if ind.BOLL != nil {
		lines["BOLL"] = ind.BOLL.Mid
		lines["UPPER"] = ind.BOLL.Upper
		lines["LOWER"] = ind.BOLL.Lower
	}
	if len(lines) == 0 {
		return nil
	}
	line := charts.NewLine()
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.SetXAxis(xAxis)
	for i, name := range sortedKeys(lines) {
		line.AddSeries(name, toLineData(lines[name], len(xAxis)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: linePalette[i%len(linePalette)], Width: 1}))
	}
	return line
}

func buildVolumeChart(o Options, xAxis []string, bars []kline.Bar) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts(panelHeightPx)),
		titleOpts("成交量", ""),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary}, SplitLine: splitLine()}),
	)
	vols := make([]opts.BarData, len(bars))
	for i, b := range bars {
		color := colorDown
		if b.Close.GreaterThanOrEqual(b.Open) {
			color = colorUp
		}
		vols[i] = opts.BarData{Value: b.Volume, ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.7)}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("成交量", vols)
	return bar
}

func buildMACDChart(o Options, xAxis []string, m kline.MACDData) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts(panelHeightPx)),
		titleOpts("MACD", ""),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary}, SplitLine: splitLine()}),
	)
	hist := make([]opts.BarData, len(xAxis))
	for i := range hist {
		if i >= len(m.MACD) || m.MACD[i] == nil {
			hist[i] = opts.BarData{Value: nil}
			continue
		}
		v := *m.MACD[i]
		color := colorDown
		if v >= 0 {
			color = colorUp
		}
		hist[i] = opts.BarData{Value: v, ItemStyle: &opts.ItemStyle{Color: color}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("MACD", hist)

	line := charts.NewLine()
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.SetXAxis(xAxis)
	line.AddSeries("DIF", toLineData(m.DIF, len(xAxis)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorDIF, Width: 1}))
	line.AddSeries("DEA", toLineData(m.DEA, len(xAxis)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorDEA, Width: 1}))
	bar.Overlap(line)
	return bar
}

func buildLinesChart(o Options, title string, xAxis []string, lines map[string]kline.Line) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts(panelHeightPx)),
		titleOpts(title, ""),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary}, SplitLine: splitLine()}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.SetXAxis(xAxis)
	for i, name := range sortedKeys(lines) {
		line.AddSeries(strings.ToUpper(name), toLineData(lines[name], len(xAxis)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: linePalette[i%len(linePalette)], Width: 1}))
	}
	return line
}

// CompareHTML draws one line per series on the dates of compare.Axis.
func CompareHTML(series []compare.Series, mode compare.Mode, o Options) ([]byte, error) {
	o = o.withDefaults()
	if len(series) == 0 {
		return nil, fmt.Errorf("no series to compare")
	}
	xAxis := compare.Axis(series)
	title := o.Title
	if title == "" {
		title = "多股对比"
	}
	subtitle := "收盘价"
	yName := "价格"
	if mode == compare.ModeChange {
		subtitle = "相对首日涨跌幅(%)"
		yName = "%"
	}
	if !compare.Aligned(series) {
		subtitle += " | 日期未对齐，按首只股票日期绘制"
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts(o.Height)),
		titleOpts(title, subtitle),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true), AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}, SplitLine: splitLine()}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.SetXAxis(xAxis)
	for i, s := range series {
		name := s.Name
		if name == "" {
			name = s.Code
		}
		data := make([]opts.LineData, len(xAxis))
		for j := range data {
			if j < len(s.Points) {
				data[j] = opts.LineData{Value: round(s.Points[j].Value, 4)}
			} else {
				data[j] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(name, data, charts.WithLineStyleOpts(opts.LineStyle{Color: linePalette[i%len(linePalette)], Width: 2}))
	}
	return renderChart(line)
}

// EquityHTML plots the strategy equity curve against buy-and-hold.
func EquityHTML(res backtest.Result, o Options) ([]byte, error) {
	o = o.withDefaults()
	if len(res.EquityCurve) == 0 {
		return nil, fmt.Errorf("empty equity curve")
	}
	title := o.Title
	if title == "" {
		title = fmt.Sprintf("%s %s 回测", res.StockName, res.StrategyName)
	}
	subtitle := fmt.Sprintf("总收益 %.2f%% | 最大回撤 %.2f%% | 夏普 %.2f | 交易 %d 次",
		res.Metrics.TotalReturn, res.Metrics.MaxDrawdown, res.Metrics.SharpeRatio, res.Metrics.TotalTrades)
	xAxis := make([]string, len(res.EquityCurve))
	equity := make([]opts.LineData, len(res.EquityCurve))
	for i, p := range res.EquityCurve {
		xAxis[i] = p.Date
		equity[i] = opts.LineData{Value: round(p.Value, 2)}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts(o.Height)),
		titleOpts(title, subtitle),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true), AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}, SplitLine: splitLine()}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.SetXAxis(xAxis)
	line.AddSeries("策略净值", equity, charts.WithLineStyleOpts(opts.LineStyle{Color: colorUp, Width: 2}))
	if len(res.BuyHoldCurve) > 0 {
		hold := make([]opts.LineData, len(xAxis))
		for i := range hold {
			if i < len(res.BuyHoldCurve) {
				hold[i] = opts.LineData{Value: round(res.BuyHoldCurve[i].Value, 2)}
			} else {
				hold[i] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries("买入持有", hold, charts.WithLineStyleOpts(opts.LineStyle{Color: colorBenchmark, Width: 1}))
	}
	return renderChart(line)
}

func renderChart(c interface{ Render(w io.Writer) error }) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPage(page *components.Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toLineData(series kline.Line, length int) []opts.LineData {
	out := make([]opts.LineData, length)
	for i := range out {
		if i < len(series) && series[i] != nil {
			out[i] = opts.LineData{Value: round(*series[i], 4)}
		} else {
			out[i] = opts.LineData{Value: nil}
		}
	}
	return out
}

func sortedKeys(m map[string]kline.Line) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func priceBounds(bars []kline.Bar) (minVal, maxVal float64) {
	if len(bars) == 0 {
		return 0, 0
	}
	minVal = bars[0].Low.InexactFloat64()
	maxVal = bars[0].High.InexactFloat64()
	for _, b := range bars {
		minVal = math.Min(minVal, b.Low.InexactFloat64())
		maxVal = math.Max(maxVal, b.High.InexactFloat64())
	}
	return minVal, maxVal
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes for a Chrome binary once per process.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		parent, cancel := chromedp.NewContext(ctx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// PNG screenshots html at the given viewport.
func PNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	if width <= 0 {
		width = defaultWidthPx
	}
	if height <= 0 {
		height = defaultHeightPx
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
