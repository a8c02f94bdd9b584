package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/avscrape/internal/config"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer closer.Close()

	logger.Info("不应出现")
	logger.Warn("应出现", slog.String(FieldCode, "ABC-123"))

	out := buf.String()
	if strings.Contains(out, "不应出现") {
		t.Fatalf("info 日志应被过滤：%s", out)
	}
	if !strings.Contains(out, "应出现") || !strings.Contains(out, "code=ABC-123") {
		t.Fatalf("warn 日志缺失或字段不正确：%s", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	logger.Debug("hello", slog.String(FieldStage, "fetch"))

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("输出不是 JSON：%v (%s)", err, buf.String())
	}
	if m["level"] != "debug" || m["stage"] != "fetch" || m["ts"] == nil {
		t.Fatalf("JSON 字段不正确：%v", m)
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	if _, _, err := New(Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatalf("期望错误")
	}
}

func TestNewFromConfig_AppendsToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LoggingConfig{Level: "info", Format: "console", File: "logs/avscrape.log"}

	for i := 0; i < 2; i++ {
		logger, closer, err := NewFromConfig(cfg, nil, dir)
		if err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
		logger.Info("line")
		if err := closer.Close(); err != nil {
			t.Fatalf("关闭失败：%v", err)
		}
	}

	b, err := os.ReadFile(filepath.Join(dir, "logs", "avscrape.log"))
	if err != nil {
		t.Fatalf("读取日志文件失败：%v", err)
	}
	if n := strings.Count(string(b), "msg=line"); n != 2 {
		t.Fatalf("日志文件应追加写入两行，实际 %d：%s", n, b)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v，期望 %v", in, got, want)
		}
	}
}
