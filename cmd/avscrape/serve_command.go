package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/avscrape/internal/app/run"
	"github.com/John-Robertt/avscrape/internal/config"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/server"
)

func newServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 控制面",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("读取当前目录失败：%w", err)
			}
			cfg, err := config.Load(cwd, config.CLIArgs{
				ConfigPath:  configPath,
				LogLevel:    logLevel,
				LogLevelSet: cmd.Flags().Changed("log-level"),
				Addr:        addr,
				AddrSet:     cmd.Flags().Changed("addr"),
			})
			if err != nil {
				return err
			}

			logger, closer, err := logging.NewFromConfig(cfg.Logging, cmd.ErrOrStderr(), cwd)
			if err != nil {
				return fmt.Errorf("初始化日志失败：%w", err)
			}
			defer func() { _ = closer.Close() }()

			runner, err := run.NewRunnerFromConfig(cfg, logger, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("配置已加载", slog.String("file", cfg.File), slog.String("addr", cfg.Server.Addr))
			if err := server.New(runner, cfg, logger).Run(ctx, cfg.Server.Addr); err != nil {
				return err
			}
			runner.Wait()
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	flags.StringVar(&addr, "addr", "", "监听地址（默认 "+config.DefaultServerAddr+"）")
	flags.StringVar(&logLevel, "log-level", "", "日志级别：debug|info|warn|error")
	return cmd
}
