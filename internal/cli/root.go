// Package cli provides the klinedash command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"klinedash/internal/app"
	"klinedash/internal/config"
	"klinedash/internal/logger"
)

// Version information
const Version = "0.1.0"

// EnvConfigPath names the env var holding the config file path.
const EnvConfigPath = "KLINEDASH_CONFIG"

// Env holds what every command needs once the root pre-run finished.
type Env struct {
	App        *app.App
	Config     *config.Config
	ConfigPath string
	Panel      *logger.Panel

	newApp  func(*config.Config) (*app.App, error)
	closers []io.Closer
}

type Option func(*Env)

// WithAppFactory replaces app construction, used by tests.
func WithAppFactory(fn func(*config.Config) (*app.App, error)) Option {
	return func(e *Env) { e.newApp = fn }
}

// NewRootCmd creates the root command.
func NewRootCmd(opts ...Option) *cobra.Command {
	env := &Env{newApp: app.NewApp}
	for _, opt := range opts {
		if opt != nil {
			opt(env)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "klinedash",
		Short: "A-share K-line dashboard in the terminal",
		Long: `klinedash talks to the K-line API: stock search, daily and minute
K-lines with indicators, multi-stock comparison and strategy backtests.
Charts are written as HTML (and PNG with a local Chrome).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.teardown(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: $"+EnvConfigPath+")")
	rootCmd.PersistentFlags().StringP("output", "o", formatTable, "output format: table, json, yaml")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("log-panel", false, "print the session log panel after the command")

	rootCmd.AddCommand(
		newVersionCmd(),
		newStocksCmd(env),
		newRangeCmd(env),
		newKlineCmd(env),
		newCompareCmd(env),
		newStrategiesCmd(env),
		newBacktestCmd(env),
		newRunsCmd(env),
		newMockServerCmd(env),
	)
	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (e *Env) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	if _, err := parseFormat(cmd); err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("config")
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	e.Config, e.ConfigPath = cfg, path

	if err := e.setupLogging(cmd, cfg.App); err != nil {
		return err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logger.SetLevel("debug")
	}

	a, err := e.newApp(cfg)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	e.App = a
	e.closers = append(e.closers, a)
	return nil
}

// setupLogging writes logs to stderr so stdout carries only results. With
// log_path set, lines also go to a rotated file.
func (e *Env) setupLogging(cmd *cobra.Command, cfg config.AppConfig) error {
	logger.SetLevel(cfg.LogLevel)
	e.Panel = logger.NewPanel(cfg.PanelSize)
	logger.SetPanel(e.Panel)

	var out io.Writer = cmd.ErrOrStderr()
	if path := strings.TrimSpace(cfg.LogPath); path != "" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("初始化日志目录失败: %w", err)
			}
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
		e.closers = append(e.closers, rotator)
		out = io.MultiWriter(out, rotator)
	}
	logger.SetOutput(out)
	return nil
}

func (e *Env) teardown(cmd *cobra.Command) error {
	if show, _ := cmd.Flags().GetBool("log-panel"); show && e.Panel != nil {
		printPanel(cmd.ErrOrStderr(), e.Panel.Entries())
	}
	var firstErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.closers = nil
	return firstErr
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "klinedash %s\n", Version)
			return err
		},
	}
}
