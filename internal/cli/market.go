package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"klinedash/internal/analysis/visual"
	"klinedash/internal/compare"
	"klinedash/internal/dashboard"
	"klinedash/internal/kline"
	"klinedash/internal/stock"
)

func newStocksCmd(env *Env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stocks [keyword]",
		Short: "Search stocks by code or name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}
			page, err := env.App.Catalog.List(cmd.Context(), keyword, limit)
			if err != nil {
				return err
			}
			return NewOutput(cmd).Render(page, func(w *tabwriter.Writer) {
				row(w, "CODE", "NAME", "RECORDS")
				for _, s := range page.Items {
					row(w, s.Code, s.Name, s.Records)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", stock.DefaultLimit, "max results (capped at 100)")
	return cmd
}

func newRangeCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "range <code>",
		Short: "Show the available date range of a stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dr, err := env.App.Catalog.DateRange(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return NewOutput(cmd).Render(dr, func(w *tabwriter.Writer) {
				row(w, "CODE", "START", "END")
				row(w, strings.ToUpper(args[0]), dr.StartDate, dr.EndDate)
			})
		},
	}
}

type chartFlags struct {
	html   string
	png    string
	width  int
	height int
}

func (c *chartFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.html, "html", "", "write the chart as HTML to this file (- for stdout)")
	cmd.Flags().StringVar(&c.png, "png", "", "write a PNG screenshot of the chart (needs Chrome)")
	cmd.Flags().IntVar(&c.width, "width", 0, "chart width in px (default from config)")
	cmd.Flags().IntVar(&c.height, "height", 0, "chart height in px (default from config)")
}

func (c *chartFlags) wanted() bool { return c.html != "" || c.png != "" }

func (c *chartFlags) options(env *Env, title string) visual.Options {
	o := visual.Options{Width: env.Config.Chart.Width, Height: env.Config.Chart.Height, Title: title}
	if c.width > 0 {
		o.Width = c.width
	}
	if c.height > 0 {
		o.Height = c.height
	}
	return o
}

func (c *chartFlags) write(ctx context.Context, cmd *cobra.Command, o visual.Options, html []byte) error {
	if c.html != "" {
		if err := writeFile(cmd, c.html, html); err != nil {
			return err
		}
	}
	if c.png != "" {
		if err := visual.EnsureHeadlessAvailable(ctx); err != nil {
			return err
		}
		img, err := visual.PNG(ctx, html, o.Width, o.Height)
		if err != nil {
			return err
		}
		if err := writeFile(cmd, c.png, img); err != nil {
			return err
		}
	}
	return nil
}

type barRow struct {
	Date   string  `json:"date" yaml:"date"`
	Open   float64 `json:"open" yaml:"open"`
	High   float64 `json:"high" yaml:"high"`
	Low    float64 `json:"low" yaml:"low"`
	Close  float64 `json:"close" yaml:"close"`
	Volume int64   `json:"volume" yaml:"volume"`
}

type klineView struct {
	Stock      kline.StockInfo      `json:"stock" yaml:"stock"`
	Period     kline.Period         `json:"period" yaml:"period"`
	AdjType    kline.AdjType        `json:"adj_type" yaml:"adj_type"`
	Count      int                  `json:"count" yaml:"count"`
	Bars       []barRow             `json:"bars" yaml:"bars"`
	Indicators *kline.IndicatorData `json:"indicators,omitempty" yaml:"indicators,omitempty"`
}

func newKlineCmd(env *Env) *cobra.Command {
	var (
		start, end, adj, period, tradeDate string
		indicators                         []string
		tail                               int
		chart                              chartFlags
	)
	cmd := &cobra.Command{
		Use:   "kline <code>",
		Short: "Load K-line bars with optional indicator overlays",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			page := env.App.KLine
			if err := configureKLine(ctx, page, period, adj, start, end, tradeDate, indicators); err != nil {
				return err
			}
			if _, err := loadKLine(ctx, page, kline.StockInfo{Code: strings.ToUpper(args[0])}); err != nil {
				return err
			}
			snap := page.Snapshot()
			if snap.Series == nil {
				return fmt.Errorf("no data loaded")
			}
			res := kline.Result{Stock: snap.Stock, Series: *snap.Series, Indicators: snap.Indicators}
			view, err := newKlineView(res, tail)
			if err != nil {
				return err
			}
			if chart.wanted() {
				o := chart.options(env, res.Stock.Label())
				html, err := visual.KLineHTML(res, o)
				if err != nil {
					return err
				}
				if err := chart.write(ctx, cmd, o, html); err != nil {
					return err
				}
			}
			return NewOutput(cmd).Render(view, func(w *tabwriter.Writer) {
				row(w, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
				for _, b := range view.Bars {
					row(w, b.Date, fmtFloat(b.Open), fmtFloat(b.High), fmtFloat(b.Low), fmtFloat(b.Close), b.Volume)
				}
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (default from config)")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&adj, "adj", "", "adjustment: none, before, after")
	cmd.Flags().StringVar(&period, "period", "", "1min,5min,15min,30min,60min,day,week,month,year")
	cmd.Flags().StringVar(&tradeDate, "trade-date", "", "trade date for minute periods (default today)")
	cmd.Flags().StringSliceVar(&indicators, "indicators", nil, "ma,macd,kdj,rsi,boll")
	cmd.Flags().IntVar(&tail, "tail", 20, "table rows to print, 0 for all")
	chart.bind(cmd)
	return cmd
}

// configureKLine sets params before a stock is selected, so Load makes no request.
func configureKLine(ctx context.Context, page *dashboard.KLinePage, period, adj, start, end, tradeDate string, indicators []string) error {
	if period != "" {
		p, err := kline.ParsePeriod(period)
		if err != nil {
			return err
		}
		if _, err := page.SetPeriod(ctx, p); err != nil {
			return err
		}
	}
	if adj != "" {
		a, err := kline.ParseAdjType(adj)
		if err != nil {
			return err
		}
		if _, err := page.SetAdjType(ctx, a); err != nil {
			return err
		}
	}
	if start != "" || end != "" {
		if _, err := page.SetDateRange(ctx, start, end); err != nil {
			return err
		}
	}
	if tradeDate != "" {
		if _, err := page.SetTradeDate(ctx, tradeDate); err != nil {
			return err
		}
	}
	if len(indicators) > 0 {
		set, err := kline.ParseIndicators(indicators...)
		if err != nil {
			return err
		}
		if _, err := page.SetIndicators(ctx, set); err != nil {
			return err
		}
	}
	return nil
}

// loadKLine selects the stock and follows a deferred minute load once.
func loadKLine(ctx context.Context, page *dashboard.KLinePage, info kline.StockInfo) (dashboard.Outcome, error) {
	o, err := page.SelectStock(ctx, info)
	if err == nil && o == dashboard.OutcomeDeferred {
		o, err = page.Load(ctx)
	}
	return o, err
}

func newKlineView(res kline.Result, tail int) (klineView, error) {
	bars := res.Series.Bars
	if tail > 0 && len(bars) > tail {
		bars = bars[len(bars)-tail:]
	}
	view := klineView{
		Stock:   res.Stock,
		Period:  res.Series.Period,
		AdjType: res.Series.AdjType,
		Count:   res.Series.Len(),
		Bars:    make([]barRow, len(bars)),
	}
	for i, b := range bars {
		view.Bars[i] = barRow{
			Date:   b.Date,
			Open:   b.Open.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Close:  b.Close.InexactFloat64(),
			Volume: b.Volume,
		}
	}
	if !res.Indicators.Empty() {
		data, err := res.Indicators.Decode()
		if err != nil {
			return klineView{}, err
		}
		view.Indicators = &data
	}
	return view, nil
}

type compareView struct {
	Mode   compare.Mode      `json:"mode" yaml:"mode"`
	Dates  []string          `json:"dates" yaml:"dates"`
	Series []compare.Series  `json:"series" yaml:"series"`
	Failed map[string]string `json:"failed,omitempty" yaml:"failed,omitempty"`
	Status string            `json:"status" yaml:"status"`
}

func newCompareCmd(env *Env) *cobra.Command {
	var (
		start, end, period, mode string
		chart                    chartFlags
	)
	cmd := &cobra.Command{
		Use:   "compare <code>...",
		Short: "Compare several stocks as price or percentage change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			page := env.App.Compare
			if mode != "" {
				m, err := compare.ParseMode(mode)
				if err != nil {
					return err
				}
				page.SetMode(m)
			}
			if period != "" {
				p, err := kline.ParsePeriod(period)
				if err != nil {
					return err
				}
				if _, err := page.SetPeriod(ctx, p); err != nil {
					return err
				}
			}
			if start != "" || end != "" {
				if _, err := page.SetDateRange(ctx, start, end); err != nil {
					return err
				}
			}
			stocks := make([]kline.StockInfo, len(args))
			for i, code := range args {
				stocks[i] = kline.StockInfo{Code: strings.ToUpper(code)}
			}
			if _, err := page.SetStocks(ctx, stocks); err != nil {
				return err
			}
			snap := page.Snapshot()
			view := compareView{Mode: snap.Mode, Dates: compare.Axis(snap.Series), Series: snap.Series, Status: snap.Status.String()}
			if len(snap.Failed) > 0 {
				view.Failed = make(map[string]string, len(snap.Failed))
				for code, err := range snap.Failed {
					view.Failed[code] = err.Error()
				}
			}
			if chart.wanted() && len(snap.Series) > 0 {
				o := chart.options(env, "股票对比")
				html, err := visual.CompareHTML(snap.Series, snap.Mode, o)
				if err != nil {
					return err
				}
				if err := chart.write(ctx, cmd, o, html); err != nil {
					return err
				}
			}
			return NewOutput(cmd).Render(view, func(w *tabwriter.Writer) {
				row(w, "CODE", "NAME", "FIRST", "LAST", "POINTS", "START", "END")
				for _, s := range snap.Series {
					vals := s.Values()
					row(w, s.Code, s.Name, fmtFloat(vals[0]), fmtFloat(vals[len(vals)-1]), len(vals), s.Points[0].Date, s.Points[len(s.Points)-1].Date)
				}
				for code, err := range view.Failed {
					row(w, code, "-", "-", "-", 0, "failed:", err)
				}
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start date (default: lookback from config)")
	cmd.Flags().StringVar(&end, "end", "", "end date (default today)")
	cmd.Flags().StringVar(&period, "period", "", "day, week, month, year")
	cmd.Flags().StringVar(&mode, "mode", "", "change or price (default from config)")
	chart.bind(cmd)
	return cmd
}
