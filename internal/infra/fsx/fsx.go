// Package fsx 封装输出目录里的文件操作：不覆盖的移动、原子写入，以及对应的错误类型。
package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// 测试通过替换它模拟 EXDEV 等 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径被其它类型占用（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示源与目标不在同一文件系统。移动不会退化为 copy+delete。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘移动失败：%q -> %q；视频库与输出目录需在同一文件系统：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 是 os.Rename，EXDEV 会被包装为 *CrossDeviceError。
func Rename(src, dst string) error {
	err := renameFunc(src, dst)
	if err != nil && isEXDEV(err) {
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	return err
}

// MoveNoOverwrite 在同一文件系统内把 src 移到 dst，必要时创建 dst 的父目录。
//
//   - dst 是已存在的普通文件：os.ErrExist，不做任何改动
//   - dst 被目录等占用：*PathTypeConflictError
//   - src 不存在：包装了 os.ErrNotExist 的错误
//   - 跨盘：*CrossDeviceError
func MoveNoOverwrite(src, dst string) error {
	if err := checkTarget(dst); err != nil {
		return err
	}
	if _, err := os.Lstat(src); err != nil {
		return fmt.Errorf("源文件不可用 %q：%w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return Rename(src, dst)
}

// Exists 判断路径是否存在（任何类型）。
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// checkTarget 检查一个即将写入的文件路径：
// 不存在返回 nil；已是普通文件返回 os.ErrExist；其它类型返回 *PathTypeConflictError。
func checkTarget(dst string) error {
	fi, err := os.Lstat(dst)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return err
	case fi.IsDir():
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	case !fi.Mode().IsRegular():
		return &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
	default:
		return os.ErrExist
	}
}
