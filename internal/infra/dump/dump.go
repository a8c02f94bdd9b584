// Package dump 把每个 CODE 的最终合并结果写到 <root>/.avscrape/dump/，用于排查站点解析问题。
//
// 只写不读：任何一次 run 都不会把这里的内容当作输入。
package dump

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/infra/fsx"
)

// Store 提供 <root>/.avscrape/dump/ 下的写入。
type Store struct {
	Root string // 扫描根目录
}

func New(root string) Store {
	return Store{Root: filepath.Clean(strings.TrimSpace(root))}
}

// Dir 返回 dump 目录的绝对路径。
func (s Store) Dir() string {
	return filepath.Join(s.Root, ".avscrape", "dump")
}

// Path 返回 code 对应的 dump 文件路径。
func (s Store) Path(code domain.Code) (string, error) {
	if _, ok := domain.ParseCode(string(code)); !ok {
		return "", fmt.Errorf("非法 code：%q", code)
	}
	return filepath.Join(s.Dir(), string(code)+".json"), nil
}

// Write 以缩进 JSON 覆盖写入 v。
func (s Store) Write(code domain.Code, v any) error {
	path, err := s.Path(code)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFile(filepath.Dir(path), filepath.Base(path), b, fsx.Replace)
}
