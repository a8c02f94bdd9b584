package provider

import (
	"fmt"
	"strings"
)

// Registry 是 adapter 的只读注册表（按 name 索引）。
//
// 记录 adapter 与头像 adapter 分开索引：同一个站点（例如 javmost）可以同时提供两者。
type Registry struct {
	byName    map[string]Adapter
	portraits map[string]PortraitAdapter
}

func NewRegistry(adapters []Adapter, portraits []PortraitAdapter) (Registry, error) {
	byName := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		if a == nil {
			return Registry{}, fmt.Errorf("adapter 不能为空")
		}
		name, err := registryName(a.Name())
		if err != nil {
			return Registry{}, err
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 adapter：%q", name)
		}
		byName[name] = a
	}

	byPortrait := make(map[string]PortraitAdapter, len(portraits))
	for _, p := range portraits {
		if p == nil {
			return Registry{}, fmt.Errorf("portrait adapter 不能为空")
		}
		name, err := registryName(p.Name())
		if err != nil {
			return Registry{}, err
		}
		if _, ok := byPortrait[name]; ok {
			return Registry{}, fmt.Errorf("重复的 portrait adapter：%q", name)
		}
		byPortrait[name] = p
	}
	return Registry{byName: byName, portraits: byPortrait}, nil
}

func (r Registry) Get(name string) (Adapter, bool) {
	if r.byName == nil {
		return nil, false
	}
	a, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

func (r Registry) GetPortrait(name string) (PortraitAdapter, bool) {
	if r.portraits == nil {
		return nil, false
	}
	p, ok := r.portraits[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func registryName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("adapter.Name 不能为空")
	}
	return name, nil
}
