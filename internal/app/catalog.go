// Package app 把配置装配成可运行的组件：站点 registry、传输层、orchestrator 与 enricher。
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/John-Robertt/avscrape/internal/config"
	"github.com/John-Robertt/avscrape/internal/infra/browser"
	"github.com/John-Robertt/avscrape/internal/infra/httpx"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/javbus"
	"github.com/John-Robertt/avscrape/internal/provider/javdatabase"
	"github.com/John-Robertt/avscrape/internal/provider/javdb"
	"github.com/John-Robertt/avscrape/internal/provider/javguru"
	"github.com/John-Robertt/avscrape/internal/provider/javmost"
	"github.com/John-Robertt/avscrape/internal/provider/javtiful"
	"github.com/John-Robertt/avscrape/internal/provider/javtrailers"
	"github.com/John-Robertt/avscrape/internal/provider/synthetic"
)

// BuildRegistry 注册全部已知 adapter（是否启用由 orchestrator 的名单决定）。
func BuildRegistry(cfg config.Config) (provider.Registry, error) {
	return provider.NewRegistry(
		[]provider.Adapter{
			javguru.Adapter{},
			javtrailers.Adapter{},
			javdb.Adapter{BaseURL: cfg.Scraper.JavDBBaseURL},
			javmost.Adapter{},
			javbus.Adapter{BaseURL: cfg.Scraper.JavBusBaseURL},
		},
		[]provider.PortraitAdapter{
			javtiful.Portrait{},
			javmost.Portrait{},
			javdatabase.Portrait{},
		},
	)
}

// BuildEnv 构造共享的 HTTP client 与页面渲染器。
//
// browser.enabled=false 时渲染器退化为普通 HTTP（不执行 JS）。
func BuildEnv(cfg config.Config) (provider.Env, error) {
	timeout := time.Duration(cfg.Scraper.Timeout) * time.Second
	client, err := httpx.NewClient(httpx.Options{ProxyURL: cfg.Scraper.Proxy, Timeout: timeout})
	if err != nil {
		return provider.Env{}, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}

	env := provider.Env{HTTP: client}
	if cfg.Browser.Enabled {
		env.Browser = browser.Chrome{
			ExecPath:  cfg.Browser.ExecPath,
			Headless:  cfg.Browser.Headless,
			UserAgent: provider.ChromeUA,
			ProxyURL:  cfg.Scraper.Proxy,
			Timeout:   timeout,
		}
	} else {
		env.Browser = browser.HTTP{Client: client}
	}
	return env, nil
}

// NewOrchestrator 按配置中的站点顺序构造 orchestrator。
//
// scraper.synthetic=false 时兜底记录不带占位封面。
func NewOrchestrator(cfg config.Config, reg provider.Registry, env provider.Env, logger *slog.Logger) provider.Orchestrator {
	return provider.Orchestrator{
		Registry:  reg,
		Env:       env,
		Primary:   cfg.EnabledSites(),
		Fallback:  append([]string(nil), cfg.Scraper.Fallback...),
		Synthetic: synthetic.Adapter{WithoutCover: !cfg.Scraper.Synthetic},
		Logger:    logging.NewComponentLogger(logger, "acquire"),
	}
}

// NewEnricher 按配置中的头像站点顺序构造 enricher。
func NewEnricher(cfg config.Config, reg provider.Registry, env provider.Env, logger *slog.Logger) provider.Enricher {
	return provider.Enricher{
		Registry:  reg,
		Env:       env,
		Portraits: append([]string(nil), cfg.Scraper.Portrait...),
		Logger:    logging.NewComponentLogger(logger, "portrait"),
	}
}
