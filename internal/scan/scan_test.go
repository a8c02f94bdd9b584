package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanVideos_ExcludeStateDir(t *testing.T) {
	root := t.TempDir()

	// .avscrape 永久排除。
	touch(t, filepath.Join(root, StateDirName, "dump", "x.mp4"))

	touch(t, filepath.Join(root, "in", "CAWD-895.mp4"))
	touch(t, filepath.Join(root, "in", "ignore.txt"))

	got, err := ScanVideos(root, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个视频文件，实际 %d", len(got))
	}
	wantRel := filepath.Join("in", "CAWD-895.mp4")
	if got[0].RelPath != wantRel {
		t.Fatalf("期望 rel=%q，实际=%q", wantRel, got[0].RelPath)
	}
	if got[0].Dir != filepath.Join(root, "in") || got[0].Base != "CAWD-895" {
		t.Fatalf("Dir/Base 不正确：%+v", got[0])
	}
}

func TestScanVideos_ExcludeDirsFromConfig(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "temp", "A-01.mp4"))
	touch(t, filepath.Join(root, "ok", "B-02.mkv"))

	got, err := ScanVideos(root, nil, []string{"temp"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个视频文件，实际 %d", len(got))
	}
	wantRel := filepath.Join("ok", "B-02.mkv")
	if got[0].RelPath != wantRel {
		t.Fatalf("期望 rel=%q，实际=%q", wantRel, got[0].RelPath)
	}
}

func TestScanVideos_ExtCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "X.MP4"))

	got, err := ScanVideos(root, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个视频文件，实际 %d", len(got))
	}
	// 原始大小写保留，用于移动后的目标文件名。
	if got[0].Ext != ".MP4" {
		t.Fatalf("期望 ext=.MP4，实际=%q", got[0].Ext)
	}
}

func TestScanVideos_CustomExts(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.wmv"))
	touch(t, filepath.Join(root, "b.mp4"))

	got, err := ScanVideos(root, []string{"WMV"}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Base != "a" {
		t.Fatalf("只应接受 .wmv：%+v", got)
	}
}

func TestScanVideos_SortedByRelPath(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b", "B-02.mp4"))
	touch(t, filepath.Join(root, "a", "A-01.mp4"))
	touch(t, filepath.Join(root, "C-03.mp4"))

	got, err := ScanVideos(root, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 3 {
		t.Fatalf("期望 3 个文件，实际 %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].RelPath > got[i].RelPath {
			t.Fatalf("输出未按 RelPath 排序：%q > %q", got[i-1].RelPath, got[i].RelPath)
		}
	}
}

func TestScanVideos_SkipsDotFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "._ABC-123.mp4"))
	touch(t, filepath.Join(root, ".ABC-123.mp4.tmp-1.mp4"))
	touch(t, filepath.Join(root, "ABC-123.mp4"))

	got, err := ScanVideos(root, nil, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Base != "ABC-123" {
		t.Fatalf("以 '.' 开头的文件不应算作视频：%+v", got)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
