package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/John-Robertt/avscrape/internal/app/run"
	"github.com/John-Robertt/avscrape/internal/config"
	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/scan"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return -1
}

func TestRun_ConfigNotFoundEmitsReportJSON(t *testing.T) {
	root := t.TempDir()

	stdout, stderr, err := execute(t, "run", root, "--config", filepath.Join(root, "missing.yaml"))
	if exitCode(err) != 1 {
		t.Fatalf("期望退出码 1，实际 err=%v", err)
	}

	var rr domain.RunReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\n%q", err, stdout)
	}
	if rr.State != domain.JobFailed || len(rr.Items) != 1 || rr.Items[0].Error != config.ErrCodeNotFound {
		t.Fatalf("配置错误报告不正确：%+v", rr)
	}
	if !strings.Contains(stderr, "完成：processed=0") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr)
	}
}

func TestRun_EmptyFolderFails(t *testing.T) {
	root := t.TempDir()

	stdout, _, err := execute(t, "run", root, "--no-organize")
	if exitCode(err) != 1 {
		t.Fatalf("没有视频时应以 1 退出，实际 err=%v", err)
	}
	var rr domain.RunReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\n%q", err, stdout)
	}
	if rr.State != domain.JobFailed || rr.Error != run.MsgNoFiles {
		t.Fatalf("期望 failed/%q，实际 %s/%q", run.MsgNoFiles, rr.State, rr.Error)
	}
	if _, err := os.Stat(filepath.Join(root, scan.StateDirName, lockFileName)); err != nil {
		t.Fatalf("应创建锁文件：%v", err)
	}
}

func TestRun_RootLockedByAnotherProcess(t *testing.T) {
	root := t.TempDir()
	stateDir := filepath.Join(root, scan.StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("创建状态目录失败：%v", err)
	}
	other := flock.New(filepath.Join(stateDir, lockFileName))
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("预先加锁失败：ok=%v err=%v", ok, err)
	}
	defer func() { _ = other.Unlock() }()

	_, stderr, err := execute(t, "run", root)
	if exitCode(err) != 1 {
		t.Fatalf("目录被锁定时应以 1 退出，实际 err=%v", err)
	}
	if !strings.Contains(stderr, "另一个 avscrape 进程") {
		t.Fatalf("stderr 应提示目录被占用：%q", stderr)
	}
}

func TestRenderReportTable(t *testing.T) {
	rr := domain.RunReport{
		Path: "/lib",
		Items: []domain.FileResult{
			{Code: "ABC-123", Status: domain.StatusProcessed, Source: "javguru", OutputDir: "/lib/videos/A/ABC-123"},
			{Path: "/lib/holiday.mp4", Status: domain.StatusSkipped, Error: domain.ErrCodeUnmatchedCode},
		},
	}
	out := renderReportTable(rr)
	for _, want := range []string{"CODE", "ABC-123", "javguru", filepath.Join("videos", "A", "ABC-123"), domain.ErrCodeUnmatchedCode} {
		if !strings.Contains(out, want) {
			t.Fatalf("表格缺少 %q：\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.HasPrefix(stdout, "avscrape ") {
		t.Fatalf("版本输出不正确：%q", stdout)
	}
}
