// Package run 驱动一次完整的 run：扫描、逐个处理目标、维护任务状态。
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/avscrape/internal/app"
	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/scan"
)

// ErrAlreadyRunning 表示已有 run 在进行中。
var ErrAlreadyRunning = errors.New("job already running")

const (
	MsgNoFiles   = "No JAV files found in folder"
	MsgCancelled = "Job cancelled"
)

// Request 描述一次 run。
type Request struct {
	Root     string
	Settings Settings
}

// Options 是 Runner 的静态配置。
type Options struct {
	VideoExts   []string
	ExcludeDirs []string
	Observer    Observer
	Logger      *slog.Logger
}

// Runner 是任务状态机：Idle -> Running -> Completed|Failed|Cancelled。
//
// 同一时间只允许一个 run；状态只由 worker 写，读方通过 Status 拿快照。
type Runner struct {
	proc Processor
	opts Options

	mu     sync.RWMutex
	status domain.JobStatus
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(proc Processor, opts Options) *Runner {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	opts.Logger = logging.NewComponentLogger(opts.Logger, "runner")
	return &Runner{
		proc:   proc,
		opts:   opts,
		status: domain.JobStatus{State: domain.JobIdle, Results: []domain.FileResult{}},
	}
}

// Start 启动一次 run 并立即返回 run id。
//
// ctx 只用于携带值；run 的生命周期由 Stop 控制，不随 ctx 取消。
func (r *Runner) Start(ctx context.Context, req Request) (string, error) {
	root := strings.TrimSpace(req.Root)
	if root == "" {
		return "", errors.New("folder path 不能为空")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	req.Root = abs

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Running {
		return "", ErrAlreadyRunning
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	r.status = domain.JobStatus{
		RunID:     runID,
		State:     domain.JobRunning,
		Running:   true,
		Message:   "Starting job",
		Results:   []domain.FileResult{},
		StartedAt: time.Now(),
	}

	go r.work(runCtx, runID, req, r.done)
	return runID, nil
}

// Stop 请求取消当前 run。正在处理的文件会完成，之后的文件不再处理。
// 没有 run 在进行时返回 false。
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.Running || r.cancel == nil {
		return false
	}
	r.cancel()
	r.status.Message = "Stopping job"
	return true
}

// Status 返回当前状态的深拷贝。
func (r *Runner) Status() domain.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status.Clone()
}

// Wait 阻塞到当前 run 结束；没有 run 时立即返回。
func (r *Runner) Wait() {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (r *Runner) work(ctx context.Context, runID string, req Request, done chan struct{}) {
	logger := r.opts.Logger.With(slog.String(logging.FieldRunID, runID))
	obs := r.opts.Observer
	// 退出顺序：先定终态并通知 observer，再释放 Running，最后唤醒 Wait。
	// 终态写完之前新的 Start 一律被拒绝。
	defer close(done)
	defer r.release()
	defer func() {
		if v := recover(); v != nil {
			logger.Error("run 异常退出", slog.Any("panic", v))
			r.finish(domain.JobFailed, fmt.Sprintf("内部错误：%v", v), "")
		}
		st := r.Status()
		st.Running = false
		obs.OnFinish(st)
	}()

	files, err := scan.ScanVideos(req.Root, r.opts.VideoExts, r.opts.ExcludeDirs)
	if err != nil {
		logger.Error("扫描失败", slog.String("root", req.Root), logging.Error(err))
		r.finish(domain.JobFailed, fmt.Sprintf("扫描目录失败：%v", err), "")
		return
	}
	targets, skipped, err := app.ResolveTargets(files)
	if err != nil {
		r.finish(domain.JobFailed, err.Error(), "")
		return
	}
	r.update(func(s *domain.JobStatus) {
		s.TotalFiles = len(targets)
		s.Results = append(s.Results, skipped...)
	})
	if len(targets) == 0 {
		logger.Warn("没有可处理的视频", slog.String("root", req.Root), slog.Int("files", len(files)))
		r.finish(domain.JobFailed, MsgNoFiles, MsgNoFiles)
		return
	}

	total := len(targets)
	logger.Info("开始处理", slog.String("root", req.Root), slog.Int("total", total), slog.Int("skipped", len(skipped)))
	obs.OnStart(runID, req.Root, total, len(skipped))

	for i, t := range targets {
		if ctx.Err() != nil {
			r.update(func(s *domain.JobStatus) {
				for _, rest := range targets[i:] {
					s.Results = append(s.Results, domain.FileResult{
						Code:   string(rest.Code),
						Path:   rest.File.AbsPath,
						Status: domain.StatusCancelled,
					})
				}
			})
			logger.Info("run 已取消", slog.Int("processed", i), slog.Int("total", total))
			r.finish(domain.JobCancelled, "", MsgCancelled)
			return
		}

		r.update(func(s *domain.JobStatus) {
			s.CurrentFile = filepath.Base(t.File.AbsPath)
			s.ProcessedFiles = i
			s.Progress = i * 100 / total
			s.Message = fmt.Sprintf("Processing %s (%d/%d)", t.Code, i+1, total)
		})
		obs.OnFileStart(i+1, total, t)

		started := time.Now()
		res := r.processOne(context.WithoutCancel(ctx), req, t, func(msg string) {
			r.update(func(s *domain.JobStatus) { s.Message = msg })
			obs.OnStage(t.Code, msg)
		})
		dur := time.Since(started)
		if res.Status == domain.StatusFailed {
			logger.Warn("文件处理失败", slog.String(logging.FieldCode, res.Code), slog.String("error", res.Error))
		}

		r.update(func(s *domain.JobStatus) {
			s.Results = append(s.Results, res)
			s.ProcessedFiles = i + 1
			s.Progress = (i + 1) * 100 / total
		})
		obs.OnFileDone(i+1, total, res, dur)
	}

	r.update(func(s *domain.JobStatus) {
		s.Progress = 100
		s.ProcessedFiles = total
		s.CurrentFile = "Completed"
	})
	r.finish(domain.JobCompleted, "", fmt.Sprintf("Job completed! Processed %d files", total))
}

// processOne 调用 Processor，并把错误与 panic 转成失败条目。
func (r *Runner) processOne(ctx context.Context, req Request, t domain.Target, stage func(string)) (res domain.FileResult) {
	defer func() {
		if v := recover(); v != nil {
			res = domain.FileResult{
				Code:   string(t.Code),
				Path:   t.File.AbsPath,
				Status: domain.StatusFailed,
				Error:  fmt.Sprintf("内部错误：%v", v),
			}
		}
	}()

	res, err := r.proc.Process(ctx, req.Root, t, req.Settings, stage)
	if err != nil {
		if res.Code == "" {
			res.Code = string(t.Code)
		}
		if res.Path == "" {
			res.Path = t.File.AbsPath
		}
		res.Status = domain.StatusFailed
		res.Error = err.Error()
	}
	return res
}

func (r *Runner) update(fn func(s *domain.JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
}

// finish 写入终态；errMsg 非空时同时写入 Error 槽位。
func (r *Runner) finish(state domain.JobState, errMsg, message string) {
	r.update(func(s *domain.JobStatus) {
		s.State = state
		s.Error = errMsg
		if message == "" {
			message = errMsg
		}
		s.Message = message
		s.FinishedAt = time.Now()
	})
}

// release 在任何退出路径上把 Running 置为 false。
func (r *Runner) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = false
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
