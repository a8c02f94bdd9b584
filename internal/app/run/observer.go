package run

import (
	"time"

	"github.com/John-Robertt/avscrape/internal/domain"
)

// Observer 用于把"运行进度/阶段/条目结果"从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件都来自 worker goroutine；实现仍需自行处理与 ticker 等其它 goroutine 的并发。
type Observer interface {
	// OnStart 在扫描完成、开始逐个处理前调用。
	OnStart(runID, root string, total, skipped int)
	// OnFileStart 在第 idx 个（从 1 开始）目标开始处理时调用。
	OnFileStart(idx, total int, t domain.Target)
	// OnStage 在单个文件的处理阶段变化时调用（与 JobStatus.Message 同步）。
	OnStage(code domain.Code, message string)
	// OnFileDone 在某个目标处理完成（成功或失败）时调用。
	OnFileDone(idx, total int, res domain.FileResult, dur time.Duration)
	// OnFinish 在 run 结束时调用，参数是最终状态快照。
	OnFinish(st domain.JobStatus)
}

type nopObserver struct{}

func (nopObserver) OnStart(string, string, int, int) {}
func (nopObserver) OnFileStart(int, int, domain.Target) {}
func (nopObserver) OnStage(domain.Code, string) {}
func (nopObserver) OnFileDone(int, int, domain.FileResult, time.Duration) {}
func (nopObserver) OnFinish(domain.JobStatus) {}
