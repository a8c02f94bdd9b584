package fsx

import (
	"errors"
	"os"
	"path/filepath"
)

// Policy 决定目标文件已存在时 WriteFile 的行为。
type Policy int

const (
	// Keep 保留已有文件并返回 os.ErrExist。fanart/poster/头像使用它。
	Keep Policy = iota
	// Replace 覆盖已有文件。movie.nfo 与调试 dump 使用它。
	Replace
)

// WriteFile 把 data 写到 dir/name：先写同目录下的隐藏临时文件并 fsync，再 rename 到最终名字。
// dir 不存在时会被创建；任何失败都会清理临时文件。
func WriteFile(dir, name string, data []byte, policy Policy) error {
	dir = filepath.Clean(dir)
	dst := filepath.Join(dir, name)

	err := checkTarget(dst)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrExist) && policy == Replace:
	default:
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := Rename(tmpName, dst); err != nil {
		return err
	}
	committed = true

	syncDir(dir)
	return nil
}
