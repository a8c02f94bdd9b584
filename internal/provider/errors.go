package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 表示站点没有给出与 CODE（或演员名）匹配的结果。
var ErrNotFound = errors.New("未找到匹配结果")

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 表示请求被站点引导到了"验证/拦截"页面。
// 不尝试绕过，直接视为该站点失败，由编排器继续走后面的站点。
type BlockedError struct {
	URL    string
	Reason string // 例如 "driver-verify"
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}

// Error 是某个 adapter 在某个阶段的可追溯错误。
type Error struct {
	Provider string // adapter name（小写）
	Stage    string // StageFetch / StageMeaningless / StagePanic
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PanicError 是 adapter 内部 panic 被 recover 后的错误形态。
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// errMeaningless 是"抓到了，但没有有效信息"的统一错误。
var errMeaningless = errors.New("记录没有有效信息")
