package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/logging"
)

// 尝试阶段（Attempt.Phase）。
const (
	PhasePrimary   = "primary"
	PhaseFallback  = "fallback"
	PhaseSynthetic = "synthetic"
)

// 尝试结果（Attempt.Stage）。
const (
	StageOK          = "ok"
	StageFetch       = "fetch"
	StageMeaningless = "meaningless"
	StagePanic       = "panic"
	// StageSkipped 表示该站点本文件已在主站阶段尝试过，回退阶段不再重复请求。
	StageSkipped = "skipped"
)

// SourceBasic 是兜底记录使用的来源名。
const SourceBasic = "basic"

// Attempt 记录一次 adapter 尝试（用于解释回退原因）。
type Attempt struct {
	Provider string `json:"provider"`
	Phase    string `json:"phase"`
	Stage    string `json:"stage"`
	Err      error  `json:"-"`
}

// Message 返回错误文本（成功时为空），用于日志与 dump。
func (a Attempt) Message() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// Acquisition 是一次获取的结果：被采纳的记录（按采纳顺序）与完整的尝试链路。
type Acquisition struct {
	Code     domain.Code
	Accepted []domain.SourceRecord
	Attempts []Attempt
}

// Orchestrator 按"并发主站 -> 顺序回退 -> 合成兜底"的顺序获取记录。
//
// 任何 adapter 的失败都不会向上传播；Acquire 总能返回至少一条记录。
type Orchestrator struct {
	Registry Registry
	Env      Env

	Primary  []string // 并发查询的主站（配置顺序）
	Fallback []string // 顺序回退站点

	// Synthetic 为 nil 或失败时使用 BasicRecord。
	Synthetic Adapter

	Logger *slog.Logger
}

type slot struct {
	rec domain.SourceRecord
	err error
}

func (o Orchestrator) Acquire(ctx context.Context, code domain.Code) Acquisition {
	log := logging.OrNop(o.Logger).With(slog.String(logging.FieldCode, string(code)))
	acq := Acquisition{Code: code}

	// 1) 主站并发：每个 goroutine 只写自己的槽位，且总是返回 nil，避免一个失败取消其它站点。
	if len(o.Primary) > 0 {
		slots := make([]slot, len(o.Primary))
		var g errgroup.Group
		for i, name := range o.Primary {
			g.Go(func() error {
				slots[i].rec, slots[i].err = o.call(ctx, name, code)
				return nil
			})
		}
		_ = g.Wait()

		var ok []domain.SourceRecord
		anyMeaningful := false
		for i, name := range o.Primary {
			s := slots[i]
			if s.err != nil {
				acq.Attempts = append(acq.Attempts, attemptFromErr(name, PhasePrimary, s.err))
				continue
			}
			ok = append(ok, s.rec)
			if Meaningful(code, s.rec) {
				anyMeaningful = true
				acq.Attempts = append(acq.Attempts, Attempt{Provider: name, Phase: PhasePrimary, Stage: StageOK})
			} else {
				acq.Attempts = append(acq.Attempts, Attempt{Provider: name, Phase: PhasePrimary, Stage: StageMeaningless, Err: &Error{Provider: name, Stage: StageMeaningless, Err: errMeaningless}})
			}
		}
		if anyMeaningful {
			acq.Accepted = ok
			logAttempts(log, acq.Attempts)
			return acq
		}
	}

	// 2) 顺序回退：逐条判断，第一条有效记录单独被采纳。每个站点每个文件最多请求一次。
	tried := make(map[string]bool, len(o.Primary)+len(o.Fallback))
	for _, name := range o.Primary {
		tried[name] = true
	}
	for _, name := range o.Fallback {
		if tried[name] {
			acq.Attempts = append(acq.Attempts, Attempt{Provider: name, Phase: PhaseFallback, Stage: StageSkipped})
			continue
		}
		tried[name] = true
		rec, err := o.call(ctx, name, code)
		if err != nil {
			acq.Attempts = append(acq.Attempts, attemptFromErr(name, PhaseFallback, err))
			continue
		}
		if !Meaningful(code, rec) {
			acq.Attempts = append(acq.Attempts, Attempt{Provider: name, Phase: PhaseFallback, Stage: StageMeaningless, Err: &Error{Provider: name, Stage: StageMeaningless, Err: errMeaningless}})
			continue
		}
		acq.Attempts = append(acq.Attempts, Attempt{Provider: name, Phase: PhaseFallback, Stage: StageOK})
		acq.Accepted = []domain.SourceRecord{rec}
		logAttempts(log, acq.Attempts)
		return acq
	}

	// 3) 合成兜底：保证总有结果。
	rec := BasicRecord(code)
	name := SourceBasic
	if o.Synthetic != nil {
		name = o.Synthetic.Name()
		r, err := safeFetch(ctx, o.Synthetic, code, o.Env)
		if err != nil {
			acq.Attempts = append(acq.Attempts, attemptFromErr(name, PhaseSynthetic, err))
		} else {
			rec = r
			acq.Attempts = append(acq.Attempts, Attempt{Provider: name, Phase: PhaseSynthetic, Stage: StageOK})
		}
	}
	if rec.Source == "" {
		rec.Source = SourceBasic
	}
	acq.Accepted = []domain.SourceRecord{rec}
	logAttempts(log, acq.Attempts)
	return acq
}

// call 查找并调用一个 adapter；未注册视为 fetch 失败。
func (o Orchestrator) call(ctx context.Context, name string, code domain.Code) (domain.SourceRecord, error) {
	a, ok := o.Registry.Get(name)
	if !ok {
		return domain.SourceRecord{}, &Error{Provider: name, Stage: StageFetch, Err: fmt.Errorf("adapter 未注册：%q", name)}
	}
	rec, err := safeFetch(ctx, a, code, o.Env)
	if err != nil {
		return domain.SourceRecord{}, err
	}
	if rec.Source == "" {
		rec.Source = a.Name()
	}
	return rec, nil
}

// safeFetch 调用 adapter，并把 panic 转换为 StagePanic 错误。
func safeFetch(ctx context.Context, a Adapter, code domain.Code, env Env) (rec domain.SourceRecord, err error) {
	defer func() {
		if v := recover(); v != nil {
			rec = domain.SourceRecord{}
			err = &Error{Provider: a.Name(), Stage: StagePanic, Err: &PanicError{Value: v}}
		}
	}()
	rec, err = a.Fetch(ctx, code, env)
	if err != nil {
		return domain.SourceRecord{}, &Error{Provider: a.Name(), Stage: StageFetch, Err: err}
	}
	return rec, nil
}

func attemptFromErr(name, phase string, err error) Attempt {
	stage := StageFetch
	var pe *Error
	if errors.As(err, &pe) && pe.Stage != "" {
		stage = pe.Stage
	}
	return Attempt{Provider: name, Phase: phase, Stage: stage, Err: err}
}

func logAttempts(log *slog.Logger, attempts []Attempt) {
	for _, a := range attempts {
		if a.Stage == StageOK {
			log.Debug("adapter 成功", slog.String(logging.FieldAdapter, a.Provider), slog.String("phase", a.Phase))
			continue
		}
		if a.Stage == StageSkipped {
			log.Debug("adapter 已在主站阶段尝试，跳过", slog.String(logging.FieldAdapter, a.Provider))
			continue
		}
		log.Info("adapter 未采纳",
			slog.String(logging.FieldAdapter, a.Provider),
			slog.String("phase", a.Phase),
			slog.String(logging.FieldStage, a.Stage),
			slog.String("error", a.Message()),
		)
	}
}

// BasicRecord 是不依赖网络的最简记录：占位标题 + Unknown 演员/片商，无封面。
func BasicRecord(code domain.Code) domain.SourceRecord {
	return domain.SourceRecord{
		Source: SourceBasic,
		Title:  domain.PlaceholderTitle(code),
		Details: map[string]string{
			domain.KeyActor:       domain.UnknownValue,
			domain.KeyStudio:      domain.UnknownValue,
			domain.KeyGenre:       "Adult, JAV",
			domain.KeyPlot:        "JAV content with code " + string(code),
			domain.KeyRuntime:     "120",
			domain.KeyReleaseDate: "2024-01-01",
		},
	}
}
