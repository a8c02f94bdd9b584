package domain

import (
	"slices"
	"strings"
	"time"
)

// JobState 是一次 run 的状态机状态。
type JobState string

const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// move 结果（FileResult.Move）。
const (
	MoveNone          = ""
	MoveMoved         = "moved"
	MoveSkipped       = "move_skipped"
	MoveSourceMissing = "source_missing"
)

const (
	// ErrCodeUnmatchedCode 标记文件名中解析不出 CODE 的条目。
	ErrCodeUnmatchedCode = "unmatched_code"
	// ErrCodeTargetConflict 表示输出路径被其它类型占用（例如期望文件但实际是目录）。
	ErrCodeTargetConflict = "target_conflict"
)

// FileResult 是单个视频文件的处理结果（成功或失败都会有一条）。
type FileResult struct {
	Code   string `json:"jav_code"`
	Path   string `json:"file_path"`
	Status string `json:"status"`

	Source    string `json:"source,omitempty"`
	Title     string `json:"title,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`

	NFO      string `json:"nfo,omitempty"`
	Fanart   string `json:"fanart,omitempty"`
	Poster   string `json:"poster,omitempty"`
	Portrait string `json:"portrait,omitempty"`
	Move     string `json:"move,omitempty"`

	Notes []string `json:"notes,omitempty"`
	Error string   `json:"error,omitempty"`
}

// JobStatus 是对外（HTTP/CLI）暴露的任务状态。
//
// 只由 worker 写；读方通过 Clone 得到快照。
type JobStatus struct {
	RunID          string       `json:"run_id,omitempty"`
	State          JobState     `json:"state"`
	Running        bool         `json:"running"`
	Progress       int          `json:"progress"`
	TotalFiles     int          `json:"total_files"`
	ProcessedFiles int          `json:"processed_files"`
	CurrentFile    string       `json:"current_file"`
	Message        string       `json:"message"`
	Results        []FileResult `json:"results"`
	Error          string       `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Clone 深拷贝 Results（包括每条的 Notes）。
func (s JobStatus) Clone() JobStatus {
	c := s
	if s.Results != nil {
		c.Results = make([]FileResult, len(s.Results))
		for i, r := range s.Results {
			r.Notes = append([]string(nil), r.Notes...)
			c.Results[i] = r
		}
	}
	return c
}

// RunReport 是 CLI 的稳定输出（非 TTY stdout JSON）。
type RunReport struct {
	Path  string   `json:"path"`
	RunID string   `json:"run_id"`
	State JobState `json:"state"`
	Error string   `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []FileResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// NewRunReport 由一次 run 结束时的状态快照构造报告。
func NewRunReport(root string, st JobStatus) RunReport {
	st = st.Clone()
	r := RunReport{
		Path:       root,
		RunID:      st.RunID,
		State:      st.State,
		Error:      st.Error,
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
		Items:      st.Results,
	}
	if r.Items == nil {
		r.Items = []FileResult{}
	}
	r.Finalize()
	return r
}

// Finalize 规范化报告：时间转 UTC，条目按 CODE 稳定排序（无 CODE 的排最后），并重算汇总。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	slices.SortStableFunc(r.Items, compareByCode)
	r.Summary = tally(r.Items)
}

func compareByCode(x, y FileResult) int {
	switch {
	case x.Code == y.Code:
		return 0
	case x.Code == "":
		return 1
	case y.Code == "":
		return -1
	}
	return strings.Compare(x.Code, y.Code)
}

// tally 按状态计数。
func tally(items []FileResult) ReportSummary {
	var s ReportSummary
	for _, it := range items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// HasFailures 判断本次 run 是否应以非零退出码结束。
func (r RunReport) HasFailures() bool {
	return r.State == JobFailed || r.Summary.Failed > 0
}
