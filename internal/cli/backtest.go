package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"klinedash/internal/analysis/visual"
	"klinedash/internal/backtest"
	"klinedash/internal/dashboard"
)

func newStrategiesCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List backtest strategies and their parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := env.App.BacktestPage(false).LoadStrategies(cmd.Context())
			if err != nil {
				return err
			}
			return NewOutput(cmd).Render(defs, func(w *tabwriter.Writer) {
				row(w, "ID", "NAME", "PARAMS", "DESCRIPTION")
				for _, d := range defs {
					params := make([]string, len(d.Params))
					for i, p := range d.Params {
						params[i] = fmt.Sprintf("%s=%v", p.Name, p.Default)
					}
					row(w, d.ID, d.Name, strings.Join(params, " "), d.Description)
				}
			})
		},
	}
}

// parseParams splits --param k=v; numeric checks are left to the param schema.
func parseParams(raw []string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", kv)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

type backtestView struct {
	ArchiveID string          `json:"archive_id,omitempty" yaml:"archive_id,omitempty"`
	Result    backtest.Result `json:"result" yaml:"result"`
}

func newBacktestCmd(env *Env) *cobra.Command {
	var (
		strategyID, start, end string
		params                 []string
		capital, ratio         float64
		noArchive              bool
		chart                  chartFlags
	)
	cmd := &cobra.Command{
		Use:   "backtest <code>",
		Short: "Run a strategy backtest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			page := env.App.BacktestPage(!noArchive)
			if _, err := page.LoadStrategies(ctx); err != nil {
				return err
			}
			sp, err := parseParams(params)
			if err != nil {
				return err
			}
			code := strings.ToUpper(args[0])
			patch := backtest.ConfigPatch{Code: &code, StartDate: &start, EndDate: &end, StrategyID: &strategyID}
			if len(sp) > 0 {
				patch.StrategyParams = sp
			}
			if capital > 0 {
				patch.InitialCapital = &capital
			} else if env.Config.Backtest.InitialCapital > 0 {
				patch.InitialCapital = &env.Config.Backtest.InitialCapital
			}
			if ratio > 0 {
				patch.PositionRatio = &ratio
			} else if env.Config.Backtest.PositionRatio > 0 {
				patch.PositionRatio = &env.Config.Backtest.PositionRatio
			}
			page.Configure(patch)

			o, run, err := page.Run(ctx)
			if err != nil {
				return err
			}
			if o != dashboard.OutcomeApplied {
				return fmt.Errorf("backtest %s", o)
			}
			if chart.wanted() {
				opt := chart.options(env, run.Result.StockName+" "+run.Result.StrategyName)
				html, err := visual.EquityHTML(run.Result, opt)
				if err != nil {
					return err
				}
				if err := chart.write(ctx, cmd, opt, html); err != nil {
					return err
				}
			}
			view := backtestView{ArchiveID: run.ArchiveID, Result: run.Result}
			return NewOutput(cmd).Render(view, func(w *tabwriter.Writer) {
				printResult(w, run)
			})
		},
	}
	cmd.Flags().StringVar(&strategyID, "strategy", "ma_cross", "strategy id (see 'klinedash strategies')")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD")
	cmd.Flags().StringArrayVar(&params, "param", nil, "strategy parameter name=value, repeatable")
	cmd.Flags().Float64Var(&capital, "capital", 0, "initial capital (default from config)")
	cmd.Flags().Float64Var(&ratio, "ratio", 0, "position ratio in (0, 1] (default from config)")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "do not save the run")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	chart.bind(cmd)
	return cmd
}

func printResult(w *tabwriter.Writer, run dashboard.RunResult) {
	r, m := run.Result, run.Result.Metrics
	row(w, "股票", fmt.Sprintf("%s (%s)", r.StockName, r.StockCode))
	row(w, "策略", r.StrategyName)
	row(w, "区间", r.StartDate+" ~ "+r.EndDate)
	row(w, "初始资金", fmtFloat(r.InitialCapital))
	row(w, "最终资金", fmtFloat(r.FinalCapital))
	row(w, "总收益率%", fmtFloat(m.TotalReturn))
	row(w, "年化收益率%", fmtFloat(m.AnnualReturn))
	row(w, "最大回撤%", fmtFloat(m.MaxDrawdown))
	row(w, "夏普比率", fmtFloat(m.SharpeRatio))
	row(w, "胜率%", fmtFloat(m.WinRate))
	row(w, "盈亏比", fmtFloat(m.ProfitLossRatio))
	row(w, "交易次数", fmt.Sprintf("%d (盈 %d / 亏 %d)", m.TotalTrades, m.WinTrades, m.LossTrades))
	row(w, "买入持有%", fmtPtr(m.BuyHoldReturn))
	row(w, "超额收益%", fmtPtr(m.ExcessReturn))
	if run.ArchiveID != "" {
		row(w, "归档编号", run.ArchiveID)
	}
	if len(r.Trades) > 0 {
		row(w)
		row(w, "DATE", "ACTION", "PRICE", "SHARES", "AMOUNT", "FEE", "REASON")
		for _, t := range r.Trades {
			row(w, t.Date, t.Action, fmtFloat(t.Price), t.Shares, fmtFloat(t.Amount), fmtFloat(t.Commission), t.Reason)
		}
	}
}

func newRunsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse archived backtest runs",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := env.App.Archive()
			if err != nil {
				return err
			}
			runs, err := archive.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return NewOutput(cmd).Render(runs, func(w *tabwriter.Writer) {
				row(w, "ID", "CREATED", "STOCK", "STRATEGY", "RANGE", "RETURN%", "MAXDD%", "TRADES")
				for _, r := range runs {
					row(w, r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.StockCode, r.StrategyName,
						r.StartDate+"~"+r.EndDate, fmtFloat(r.TotalReturn), fmtFloat(r.MaxDrawdown), r.Trades)
				}
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "max runs")

	var chart chartFlags
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := env.App.Archive()
			if err != nil {
				return err
			}
			res, err := archive.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if chart.wanted() {
				opt := chart.options(env, res.StockName+" "+res.StrategyName)
				html, err := visual.EquityHTML(res, opt)
				if err != nil {
					return err
				}
				if err := chart.write(cmd.Context(), cmd, opt, html); err != nil {
					return err
				}
			}
			run := dashboard.RunResult{Result: res, ArchiveID: args[0]}
			return NewOutput(cmd).Render(backtestView{ArchiveID: args[0], Result: res}, func(w *tabwriter.Writer) {
				printResult(w, run)
			})
		},
	}
	chart.bind(show)
	cmd.AddCommand(list, show)
	return cmd
}
