// Package logging 构造本项目使用的 *slog.Logger。
//
// logger 由调用方显式传入各组件，不使用全局 logger。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/avscrape/internal/config"
)

// 统一的日志字段名。
const (
	FieldComponent = "component"
	FieldCode      = "code"
	FieldSource    = "source"
	FieldAdapter   = "adapter"
	FieldStage     = "stage"
	FieldRunID     = "run_id"
)

// Options 描述 logger 的构造参数。
type Options struct {
	Level       string
	Format      string
	OutputPaths []string

	// Writer 非空时直接写入它，忽略 OutputPaths（测试与嵌入场景使用）。
	Writer io.Writer
}

// New 按 Options 构造 logger。返回的 closer 负责关闭打开的日志文件。
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	if opts.Writer != nil {
		w = opts.Writer
	} else {
		ow, files, err := openWriters(opts.OutputPaths)
		if err != nil {
			return nil, nil, err
		}
		w = ow
		closer = files
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: jsonReplace})
	case "console":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: consoleReplace})
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("日志格式不支持：%q", opts.Format)
	}
	return slog.New(h), closer, nil
}

// NewFromConfig 用配置构造 logger：console 输出到 console（可为 nil 表示不输出），
// logging.file 非空时额外追加写入该文件（相对路径以 baseDir 为基准）。
func NewFromConfig(cfg config.LoggingConfig, console io.Writer, baseDir string) (*slog.Logger, io.Closer, error) {
	var paths []string
	if f := strings.TrimSpace(cfg.File); f != "" {
		if !filepath.IsAbs(f) && baseDir != "" {
			f = filepath.Join(baseDir, f)
		}
		paths = append(paths, f)
	}

	files, fileWriters, err := openFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	writers := fileWriters
	if console != nil {
		writers = append([]io.Writer{console}, writers...)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	logger, _, err := New(Options{Level: cfg.Level, Format: cfg.Format, Writer: w})
	if err != nil {
		_ = files.Close()
		return nil, nil, err
	}
	return logger, files, nil
}

// NewNop 返回丢弃一切输出的 logger。
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// OrNop 在 logger 为 nil 时返回 NewNop()。
func OrNop(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger
}

// NewComponentLogger 为 logger 附加统一的 component 字段。
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	return OrNop(logger).With(slog.String(FieldComponent, component))
}

// Error 是 error 字段的统一写法。
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func jsonReplace(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	}
	return attr
}

func consoleReplace(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime {
		attr.Value = slog.StringValue(attr.Value.Time().Format("15:04:05"))
	}
	return attr
}

func openWriters(paths []string) (io.Writer, io.Closer, error) {
	var writers []io.Writer
	var filePaths []string
	seen := map[string]struct{}{}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		switch p {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			filePaths = append(filePaths, p)
		}
	}

	files, fileWriters, err := openFiles(filePaths)
	if err != nil {
		return nil, nil, err
	}
	writers = append(writers, fileWriters...)

	switch len(writers) {
	case 0:
		return os.Stderr, files, nil
	case 1:
		return writers[0], files, nil
	default:
		return io.MultiWriter(writers...), files, nil
	}
}

func openFiles(paths []string) (multiCloser, []io.Writer, error) {
	var (
		files   multiCloser
		writers []io.Writer
	)
	for _, p := range paths {
		if dir := filepath.Dir(p); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				_ = files.Close()
				return nil, nil, fmt.Errorf("创建日志目录失败：%w", err)
			}
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = files.Close()
			return nil, nil, fmt.Errorf("打开日志文件 %s 失败：%w", p, err)
		}
		files = append(files, f)
		writers = append(writers, f)
	}
	return files, writers, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
