// Package scan 在 root 下查找待处理的视频文件。
package scan

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
)

// StateDirName 是 root 下工具自己的状态目录（锁文件、日志、调试 dump），扫描时永久排除。
const StateDirName = ".avscrape"

// DefaultVideoExts 是未配置时接受的视频扩展名。
var DefaultVideoExts = []string{".mp4", ".avi", ".mkv"}

// ScanVideos 递归扫描 root，按 RelPath 排序返回视频文件。
//
// exts 为空时使用 DefaultVideoExts，比较忽略大小写。excludeDirs 中的相对路径以 root 为基准。
// 以 '.' 开头的文件（例如 macOS 的 "._ABC-123.mp4"）不算视频。只做 stat，不读内容。
func ScanVideos(root string, exts []string, excludeDirs []string) ([]domain.VideoFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	f := newFilter(root, exts, excludeDirs)

	var files []domain.VideoFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && f.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !f.accept(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ext := filepath.Ext(d.Name())
		files = append(files, domain.VideoFile{
			AbsPath: path,
			RelPath: rel,
			Dir:     filepath.Dir(path),
			Base:    strings.TrimSuffix(d.Name(), ext),
			Ext:     ext,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b domain.VideoFile) int { return strings.Compare(a.RelPath, b.RelPath) })
	return files, nil
}

type filter struct {
	exts map[string]bool
	dirs []string
}

func newFilter(root string, exts, excludeDirs []string) filter {
	if len(exts) == 0 {
		exts = DefaultVideoExts
	}
	f := filter{exts: make(map[string]bool, len(exts))}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		f.exts[e] = true
	}

	f.dirs = append(f.dirs, filepath.Join(root, StateDirName))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if !filepath.IsAbs(x) {
			x = filepath.Join(root, x)
		}
		f.dirs = append(f.dirs, filepath.Clean(x))
	}
	return f
}

func (f filter) accept(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return f.exts[strings.ToLower(filepath.Ext(name))]
}

// excluded 判断目录 path 是否等于或位于某个排除目录之下。
func (f filter) excluded(path string) bool {
	for _, base := range f.dirs {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
