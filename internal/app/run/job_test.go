package run

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/avscrape/internal/domain"
)

type blockingProc struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func newBlockingProc() *blockingProc {
	return &blockingProc{started: make(chan struct{}), release: make(chan struct{})}
}

func (p *blockingProc) Process(ctx context.Context, _ string, t domain.Target, _ Settings, _ func(string)) (domain.FileResult, error) {
	p.calls.Add(1)
	p.once.Do(func() { close(p.started) })
	<-p.release
	if err := ctx.Err(); err != nil {
		return domain.FileResult{}, err
	}
	return domain.FileResult{Code: string(t.Code), Path: t.File.AbsPath, Status: domain.StatusProcessed}, nil
}

type funcProc func(t domain.Target) (domain.FileResult, error)

func (f funcProc) Process(_ context.Context, _ string, t domain.Target, _ Settings, stage func(string)) (domain.FileResult, error) {
	stage("working on " + string(t.Code))
	return f(t)
}

type recordObserver struct {
	mu     sync.Mutex
	starts int
	stages []string
	done   []string
	final  domain.JobStatus
}

func (o *recordObserver) OnStart(string, string, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *recordObserver) OnFileStart(int, int, domain.Target) {}

func (o *recordObserver) OnStage(_ domain.Code, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, msg)
}

func (o *recordObserver) OnFileDone(_, _ int, res domain.FileResult, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done = append(o.done, res.Code)
}

func (o *recordObserver) OnFinish(st domain.JobStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.final = st
}

func TestRunner_RejectsConcurrentStartAndCancels(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, filepath.Join(root, "ABC-001.mp4"))
	writeVideo(t, filepath.Join(root, "ABC-002.mp4"))

	proc := newBlockingProc()
	r := NewRunner(proc, Options{})

	id, err := r.Start(context.Background(), Request{Root: root})
	if err != nil || id == "" {
		t.Fatalf("Start 失败：id=%q err=%v", id, err)
	}
	<-proc.started

	if _, err := r.Start(context.Background(), Request{Root: root}); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("运行中再次 Start 应返回 ErrAlreadyRunning，实际 %v", err)
	}
	if st := r.Status(); !st.Running || st.State != domain.JobRunning || st.Message != "Processing ABC-001 (1/2)" {
		t.Fatalf("运行中状态不正确：%+v", st)
	}

	if !r.Stop() {
		t.Fatalf("运行中 Stop 应返回 true")
	}
	close(proc.release)
	r.Wait()

	st := r.Status()
	if st.Running || st.State != domain.JobCancelled || st.RunID != id {
		t.Fatalf("期望 cancelled：%+v", st)
	}
	if proc.calls.Load() != 1 {
		t.Fatalf("取消后不应继续处理，实际调用 %d 次", proc.calls.Load())
	}
	if len(st.Results) != 2 || st.Results[0].Status != domain.StatusProcessed || st.Results[1].Status != domain.StatusCancelled {
		t.Fatalf("进行中的文件应完成，剩余文件记为 cancelled：%+v", st.Results)
	}
	if r.Stop() {
		t.Fatalf("结束后 Stop 应返回 false")
	}
}

func TestRunner_EmptyFolderFails(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, filepath.Join(root, "holiday.mp4"))

	obs := &recordObserver{}
	r := NewRunner(funcProc(func(domain.Target) (domain.FileResult, error) {
		t.Errorf("没有目标时不应调用 Process")
		return domain.FileResult{}, nil
	}), Options{Observer: obs})

	if _, err := r.Start(context.Background(), Request{Root: root}); err != nil {
		t.Fatalf("Start 失败：%v", err)
	}
	r.Wait()

	st := r.Status()
	if st.State != domain.JobFailed || st.Error != MsgNoFiles || st.Running {
		t.Fatalf("期望 failed + %q：%+v", MsgNoFiles, st)
	}
	if len(st.Results) != 1 || st.Results[0].Status != domain.StatusSkipped {
		t.Fatalf("未匹配的文件应记为 skipped：%+v", st.Results)
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.starts != 0 || obs.final.State != domain.JobFailed {
		t.Fatalf("observer 事件不正确：starts=%d final=%+v", obs.starts, obs.final)
	}
}

func TestRunner_FileErrorsDoNotStopRun(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, filepath.Join(root, "a", "ABC-001.mp4"))
	writeVideo(t, filepath.Join(root, "b", "ABC-002.mp4"))
	writeVideo(t, filepath.Join(root, "c", "ABC-003.mp4"))

	obs := &recordObserver{}
	r := NewRunner(funcProc(func(tg domain.Target) (domain.FileResult, error) {
		switch tg.Code {
		case "ABC-001":
			return domain.FileResult{}, errors.New("写入 NFO 失败")
		case "ABC-002":
			panic("boom")
		}
		return domain.FileResult{Code: string(tg.Code), Status: domain.StatusProcessed}, nil
	}), Options{Observer: obs})

	if _, err := r.Start(context.Background(), Request{Root: root}); err != nil {
		t.Fatalf("Start 失败：%v", err)
	}
	r.Wait()

	st := r.Status()
	if st.State != domain.JobCompleted || st.Progress != 100 || st.ProcessedFiles != 3 || st.TotalFiles != 3 {
		t.Fatalf("期望 completed：%+v", st)
	}
	if st.Message != "Job completed! Processed 3 files" || st.CurrentFile != "Completed" {
		t.Fatalf("完成消息不正确：%q %q", st.Message, st.CurrentFile)
	}
	if len(st.Results) != 3 {
		t.Fatalf("期望 3 条结果：%+v", st.Results)
	}
	if st.Results[0].Status != domain.StatusFailed || st.Results[0].Error != "写入 NFO 失败" || st.Results[0].Code != "ABC-001" {
		t.Fatalf("错误应记录在结果中：%+v", st.Results[0])
	}
	if st.Results[1].Status != domain.StatusFailed || st.Results[1].Code != "ABC-002" {
		t.Fatalf("panic 应记录为失败：%+v", st.Results[1])
	}
	if st.Results[2].Status != domain.StatusProcessed {
		t.Fatalf("后续文件应继续处理：%+v", st.Results[2])
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.starts != 1 || len(obs.done) != 3 || len(obs.stages) != 3 || obs.final.State != domain.JobCompleted {
		t.Fatalf("observer 事件不正确：%+v", obs)
	}
}

func TestRunner_StartRejectsEmptyPath(t *testing.T) {
	r := NewRunner(funcProc(nil), Options{})
	if _, err := r.Start(context.Background(), Request{Root: "  "}); err == nil {
		t.Fatalf("空路径应返回错误")
	}
	if st := r.Status(); st.State != domain.JobIdle || st.Running {
		t.Fatalf("未启动时应为 idle：%+v", st)
	}
	if r.Stop() {
		t.Fatalf("未启动时 Stop 应返回 false")
	}
	r.Wait()
}

// restartObserver 在 OnStart 中 panic，并在 OnFinish 里尝试立即开始下一次 run。
type restartObserver struct {
	nopObserver
	r         *Runner
	root      string
	final     domain.JobStatus
	restartID string
	restart   error
}

func (o *restartObserver) OnStart(string, string, int, int) { panic("observer 故障") }

func (o *restartObserver) OnFinish(st domain.JobStatus) {
	o.final = st
	o.restartID, o.restart = o.r.Start(context.Background(), Request{Root: o.root})
}

func TestRunner_FinalStateSettledBeforeNextStart(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, filepath.Join(root, "ABC-001.mp4"))

	obs := &restartObserver{root: root}
	r := NewRunner(funcProc(func(tg domain.Target) (domain.FileResult, error) {
		return domain.FileResult{Code: string(tg.Code), Status: domain.StatusProcessed}, nil
	}), Options{Observer: obs})
	obs.r = r

	runID, err := r.Start(context.Background(), Request{Root: root})
	if err != nil {
		t.Fatalf("Start 失败：%v", err)
	}
	r.Wait()

	if !errors.Is(obs.restart, ErrAlreadyRunning) || obs.restartID != "" {
		t.Fatalf("OnFinish 期间 run 尚未释放，新的 Start 应被拒绝：id=%q err=%v", obs.restartID, obs.restart)
	}
	if obs.final.RunID != runID || obs.final.State != domain.JobFailed || obs.final.Running {
		t.Fatalf("observer 收到的终态不正确：%+v", obs.final)
	}
	st := r.Status()
	if st.RunID != runID || st.State != domain.JobFailed || st.Running {
		t.Fatalf("panic 后应为 failed 且已释放：%+v", st)
	}
	if _, err := r.Start(context.Background(), Request{Root: root}); err != nil {
		t.Fatalf("run 结束后应能再次 Start：%v", err)
	}
	r.Wait()
}
