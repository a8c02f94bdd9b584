package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/avscrape/internal/app/run"
	"github.com/John-Robertt/avscrape/internal/config"
	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/scan"
)

// lockFileName 位于 <root>/.avscrape/ 下，保证同一 root 同时只有一个 CLI run。
const lockFileName = "lock"

type runFlags struct {
	configPath string
	logLevel   string
	noNFO      bool
	noCover    bool
	noOrganize bool
	jsonOut    bool
}

func newRunCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "处理目录下的全部视频（默认当前目录）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			code := runCmd(cmd, path, f)
			if code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "配置文件路径（默认自动发现 ./avscrape.yaml|yml|json）")
	flags.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error")
	flags.BoolVar(&f.noNFO, "no-nfo", false, "不生成 movie.nfo")
	flags.BoolVar(&f.noCover, "no-cover", false, "不下载 fanart/poster/头像")
	flags.BoolVar(&f.noOrganize, "no-organize", false, "不移动视频文件")
	flags.BoolVar(&f.jsonOut, "json", false, "stdout 输出 RunReport JSON（非 TTY 时默认开启）")
	return cmd
}

func runCmd(cmd *cobra.Command, path string, f runFlags) int {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	jsonOut := f.jsonOut || !isTerminal(stdout)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	if path == "" {
		path = cwd
	}
	root, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(stderr, "解析路径失败：%v\n", err)
		return 1
	}

	cfg, err := config.Load(cwd, config.CLIArgs{
		ConfigPath:       f.configPath,
		LogLevel:         f.logLevel,
		LogLevelSet:      cmd.Flags().Changed("log-level"),
		CreateNFO:        !f.noNFO,
		CreateNFOSet:     f.noNFO,
		DownloadCover:    !f.noCover,
		DownloadCoverSet: f.noCover,
		OrganizeFiles:    !f.noOrganize,
		OrganizeFilesSet: f.noOrganize,
	})
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(root, err), jsonOut)
		return 1
	}

	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		fmt.Fprintf(stderr, "目录不存在：%s\n", root)
		return 1
	}

	stateDir := filepath.Join(root, scan.StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		fmt.Fprintf(stderr, "创建状态目录失败：%v\n", err)
		return 1
	}
	lock := flock.New(filepath.Join(stateDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		fmt.Fprintf(stderr, "获取目录锁失败：%v\n", err)
		return 1
	}
	if !locked {
		fmt.Fprintf(stderr, "另一个 avscrape 进程正在处理该目录：%s\n", root)
		return 1
	}
	defer func() { _ = lock.Unlock() }()

	progressW, interactive := pickProgressWriter(stdout, stderr, jsonOut)

	// 交互模式下控制台交给进度输出，日志只写文件。
	var console io.Writer
	if !interactive {
		console = stderr
	}
	logger, closer, err := logging.NewFromConfig(cfg.Logging, console, stateDir)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = closer.Close() }()
	logger.Info("配置已加载", slog.String("file", cfg.File), slog.String("root", root))

	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW, cfg)
		defer ui.Close()
		obs = ui
	}

	runner, err := run.NewRunnerFromConfig(cfg, logger, obs)
	if err != nil {
		fmt.Fprintf(stderr, "初始化失败：%v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := runner.Start(ctx, run.Request{Root: root, Settings: run.SettingsFromConfig(cfg)}); err != nil {
		fmt.Fprintf(stderr, "启动失败：%v\n", err)
		return 1
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if runner.Stop() {
				logger.Warn("收到中断信号，当前文件处理完后停止")
			}
		case <-done:
		}
	}()
	runner.Wait()
	close(done)

	rr := domain.NewRunReport(root, runner.Status())
	emitReport(stdout, stderr, rr, jsonOut)
	if rr.HasFailures() {
		return 1
	}
	return 0
}

// emitReport：jsonOut 时 stdout 只输出一个 RunReport JSON，摘要走 stderr；否则输出表格。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport, jsonOut bool) {
	summary := fmt.Sprintf("完成：processed=%d skipped=%d failed=%d cancelled=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Cancelled,
	)
	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rr)
		fmt.Fprint(stderr, summary)
		return
	}

	if len(rr.Items) > 0 {
		fmt.Fprintln(stdout, renderReportTable(rr))
	}
	if rr.Error != "" {
		fmt.Fprintf(stdout, "错误：%s\n", rr.Error)
	}
	fmt.Fprint(stdout, summary)
}

func reportForConfigError(root string, err error) domain.RunReport {
	now := time.Now()
	rr := domain.RunReport{
		Path:       root,
		State:      domain.JobFailed,
		Error:      err.Error(),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.FileResult{{
			Status: domain.StatusFailed,
			Error:  config.Code(err),
		}},
	}
	rr.Finalize()
	return rr
}

// pickProgressWriter 选择进度输出的位置：优先 stderr，避免污染 stdout 的 JSON。
func pickProgressWriter(stdout, stderr io.Writer, jsonOut bool) (io.Writer, bool) {
	if isTerminal(stderr) {
		return stderr, true
	}
	if !jsonOut && isTerminal(stdout) {
		return stdout, true
	}
	return nil, false
}
