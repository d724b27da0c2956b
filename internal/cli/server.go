package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"klinedash/internal/config"
	"klinedash/internal/logger"
)

func newMockServerCmd(env *Env) *cobra.Command {
	var (
		addr string
		seed int64
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve the K-line API over generated data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := env.App.Config()
			if addr != "" {
				cfg.Mock.Addr = addr
			}
			if seed != 0 {
				cfg.Mock.Seed = seed
			}
			if env.ConfigPath != "" {
				err := config.Watch(env.ConfigPath, func(next *config.Config) {
					logger.SetLevel(next.App.LogLevel)
					logger.Infof("配置已重新加载: log_level=%s", next.App.LogLevel)
				}, func(err error) {
					logger.Warnf("配置重新加载失败，保留旧配置: %v", err)
				})
				if err != nil {
					logger.Warnf("配置热加载未启用: %v", err)
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return env.App.RunMockServer(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "data seed (default from config)")
	return cmd
}
