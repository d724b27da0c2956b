package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"klinedash/internal/config"
)

type StartupSummary struct {
	Env     string
	API     string
	Timeout int
	Kline   config.KlineConfig
	Compare config.CompareConfig
	Archive string
	Mock    config.MockConfig
	Out     io.Writer
}

func newStartupSummary(cfg *config.Config) *StartupSummary {
	return &StartupSummary{
		Env:     cfg.App.Env,
		API:     cfg.API.BaseURL,
		Timeout: cfg.API.TimeoutSeconds,
		Kline:   cfg.Kline,
		Compare: cfg.Compare,
		Archive: cfg.Backtest.ArchivePath,
		Mock:    cfg.Mock,
	}
}

func (s *StartupSummary) Print() {
	w := s.Out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "%*s\n", 30+len("启动配置摘要")/2, "启动配置摘要")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintln(w, "[接口 (API)]")
	fmt.Fprintf(w, "  环境: %s\n", s.Env)
	fmt.Fprintf(w, "  地址: %s (超时 %ds)\n", s.API, s.Timeout)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[K线 (K-LINE)]")
	fmt.Fprintf(w, "  默认起始: %s\n", s.Kline.DefaultStart)
	fmt.Fprintf(w, "  默认复权: %s  默认周期: %s\n", s.Kline.DefaultAdjType, s.Kline.DefaultPeriod)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[对比 (COMPARE)]")
	fmt.Fprintf(w, "  最多股票: %d  默认模式: %s  回看: %d 个月\n", s.Compare.MaxStocks, s.Compare.DefaultMode, s.Compare.LookbackMonths)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[回测归档 (ARCHIVE)]")
	fmt.Fprintf(w, "  路径: %s\n", s.Archive)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[模拟后端 (MOCK)]")
	fmt.Fprintf(w, "  监听: %s  种子: %d\n", s.Mock.Addr, s.Mock.Seed)
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
