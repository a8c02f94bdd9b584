package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/John-Robertt/avscrape/internal/infra/httpx"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// EnvPrefix 是环境变量覆盖的前缀，例如 AVSCRAPE_SCRAPER_TIMEOUT。
	EnvPrefix = "AVSCRAPE"

	DefaultTimeoutSeconds = 30
	DefaultLogFile        = "avscrape.log"
	DefaultServerAddr     = "127.0.0.1:5000"
)

// 配置文件自动发现时按顺序尝试的文件名（位于 cwd）。
var discoverNames = []string{"avscrape.yaml", "avscrape.yml", "avscrape.json"}

// 已知的站点 adapter 名。校验 sites/fallback/portrait 时使用。
var (
	RecordAdapters   = []string{"javguru", "javtrailers", "javdb", "javmost", "javbus"}
	PortraitAdapters = []string{"javtiful", "javmost", "javdatabase"}
)

// CLIArgs 是 CLI 暴露的覆盖项，并保留"是否显式指定"的信息。
// 这能保证覆盖优先级可实现：例如 --no-nfo 必须能覆盖 run.create_nfo=true。
type CLIArgs struct {
	ConfigPath string

	LogLevel    string
	LogLevelSet bool

	CreateNFO    bool
	CreateNFOSet bool

	DownloadCover    bool
	DownloadCoverSet bool

	OrganizeFiles    bool
	OrganizeFilesSet bool

	Addr    string
	AddrSet bool
}

type SiteConfig struct {
	Name    string `mapstructure:"name" json:"name"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

type ScraperConfig struct {
	Timeout         int          `mapstructure:"timeout" json:"timeout"`
	VideoExtensions []string     `mapstructure:"video_extensions" json:"video_extensions"`
	Sites           []SiteConfig `mapstructure:"sites" json:"sites"`
	Fallback        []string     `mapstructure:"fallback" json:"fallback"`
	Portrait        []string     `mapstructure:"portrait" json:"portrait"`
	Synthetic       bool         `mapstructure:"synthetic" json:"synthetic"`
	Proxy           string       `mapstructure:"proxy" json:"proxy"`

	// 镜像域名（可选）：站点不可达/被阻断时切换。
	JavDBBaseURL  string `mapstructure:"javdb_base_url" json:"javdb_base_url"`
	JavBusBaseURL string `mapstructure:"javbus_base_url" json:"javbus_base_url"`
}

type BrowserConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	ExecPath string `mapstructure:"exec_path" json:"exec_path"`
	Headless bool   `mapstructure:"headless" json:"headless"`
}

type RunConfig struct {
	CreateNFO     bool     `mapstructure:"create_nfo" json:"create_nfo"`
	DownloadCover bool     `mapstructure:"download_cover" json:"download_cover"`
	OrganizeFiles bool     `mapstructure:"organize_files" json:"organize_files"`
	ExcludeDirs   []string `mapstructure:"exclude_dirs" json:"exclude_dirs"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	File   string `mapstructure:"file" json:"file"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

type DebugConfig struct {
	Dump bool `mapstructure:"dump" json:"dump"`
}

// Config 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`
	Browser BrowserConfig `mapstructure:"browser" json:"browser"`
	Run     RunConfig     `mapstructure:"run" json:"run"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	Server  ServerConfig  `mapstructure:"server" json:"server"`
	Debug   DebugConfig   `mapstructure:"debug" json:"debug"`

	// File 是实际读取的配置文件路径；为空表示只用了默认值与环境变量。
	File string `mapstructure:"-" json:"file"`
}

// EnabledSites 返回启用的主站点名（保持配置顺序）。
func (c Config) EnabledSites() []string {
	out := make([]string, 0, len(c.Scraper.Sites))
	for _, s := range c.Scraper.Sites {
		if s.Enabled {
			out = append(out, s.Name)
		}
	}
	return out
}

// Redacted 返回可对外展示的副本（代理中的账号密码被隐藏）。
func (c Config) Redacted() Config {
	out := c
	out.Scraper.Sites = append([]SiteConfig(nil), c.Scraper.Sites...)
	if p := strings.TrimSpace(c.Scraper.Proxy); p != "" {
		if u, err := url.Parse(p); err == nil && u.User != nil {
			u.User = url.User("***")
			out.Scraper.Proxy = u.String()
		}
	}
	return out
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load 发现并读取配置，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：该文件必须存在
// 2) 否则依次尝试 <cwd>/avscrape.yaml、.yml、.json（可选）
// 3) 都没有则只用默认值
//
// 覆盖优先级（固定）：CLI > 环境变量（AVSCRAPE_*）> 配置文件 > 默认值
func Load(cwd string, cli CLIArgs) (Config, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	vp := viper.New()
	setDefaults(vp)
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	cfgPath := ""
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		if _, err := os.Stat(cfgPath); err != nil {
			if os.IsNotExist(err) {
				return Config{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
			}
			return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	} else {
		for _, name := range discoverNames {
			p := filepath.Join(cwdAbs, name)
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
				break
			}
		}
	}

	if cfgPath != "" {
		vp.SetConfigFile(cfgPath)
		if err := vp.ReadInConfig(); err != nil {
			return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	var c Config
	if err := vp.Unmarshal(&c); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	c.File = cfgPath

	applyCLI(&c, cli)
	normalize(&c)
	if err := validate(c); err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return c, nil
}

// Default 返回只含默认值的配置（不读文件、不读环境变量）。
func Default() Config {
	vp := viper.New()
	setDefaults(vp)
	var c Config
	_ = vp.Unmarshal(&c)
	normalize(&c)
	return c
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("scraper.timeout", DefaultTimeoutSeconds)
	vp.SetDefault("scraper.video_extensions", []string{".mp4", ".avi", ".mkv"})
	vp.SetDefault("scraper.sites", []map[string]any{
		{"name": "javguru", "enabled": true},
		{"name": "javtrailers", "enabled": true},
		{"name": "javdb", "enabled": false},
	})
	vp.SetDefault("scraper.fallback", []string{"javmost", "javtrailers", "javbus"})
	vp.SetDefault("scraper.portrait", []string{"javtiful", "javmost", "javdatabase"})
	vp.SetDefault("scraper.synthetic", true)
	vp.SetDefault("scraper.proxy", "")
	vp.SetDefault("scraper.javdb_base_url", "")
	vp.SetDefault("scraper.javbus_base_url", "")

	vp.SetDefault("browser.enabled", true)
	vp.SetDefault("browser.exec_path", "")
	vp.SetDefault("browser.headless", true)

	vp.SetDefault("run.create_nfo", true)
	vp.SetDefault("run.download_cover", true)
	vp.SetDefault("run.organize_files", true)
	vp.SetDefault("run.exclude_dirs", []string{})

	vp.SetDefault("logging.level", "info")
	vp.SetDefault("logging.format", "console")
	vp.SetDefault("logging.file", DefaultLogFile)

	vp.SetDefault("server.addr", DefaultServerAddr)
	vp.SetDefault("debug.dump", false)
}

func applyCLI(c *Config, cli CLIArgs) {
	if cli.LogLevelSet {
		c.Logging.Level = cli.LogLevel
	}
	if cli.CreateNFOSet {
		c.Run.CreateNFO = cli.CreateNFO
	}
	if cli.DownloadCoverSet {
		c.Run.DownloadCover = cli.DownloadCover
	}
	if cli.OrganizeFilesSet {
		c.Run.OrganizeFiles = cli.OrganizeFiles
	}
	if cli.AddrSet {
		c.Server.Addr = cli.Addr
	}
}

func normalize(c *Config) {
	// 范围 [1, 300]；未指定或非正数回落到默认。
	if c.Scraper.Timeout <= 0 {
		c.Scraper.Timeout = DefaultTimeoutSeconds
	}
	if c.Scraper.Timeout > 300 {
		c.Scraper.Timeout = 300
	}

	exts := make([]string, 0, len(c.Scraper.VideoExtensions))
	for _, e := range c.Scraper.VideoExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	c.Scraper.VideoExtensions = exts

	for i := range c.Scraper.Sites {
		c.Scraper.Sites[i].Name = strings.ToLower(strings.TrimSpace(c.Scraper.Sites[i].Name))
	}
	c.Scraper.Fallback = lowerAll(c.Scraper.Fallback)
	c.Scraper.Portrait = lowerAll(c.Scraper.Portrait)
	c.Scraper.Proxy = strings.TrimSpace(c.Scraper.Proxy)
	c.Scraper.JavDBBaseURL = strings.TrimRight(strings.TrimSpace(c.Scraper.JavDBBaseURL), "/")
	c.Scraper.JavBusBaseURL = strings.TrimRight(strings.TrimSpace(c.Scraper.JavBusBaseURL), "/")

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
}

func validate(c Config) error {
	for _, s := range c.Scraper.Sites {
		if !known(RecordAdapters, s.Name) {
			return fmt.Errorf("scraper.sites 包含未知站点 %q", s.Name)
		}
	}
	for _, n := range c.Scraper.Fallback {
		if !known(RecordAdapters, n) {
			return fmt.Errorf("scraper.fallback 包含未知站点 %q", n)
		}
	}
	for _, n := range c.Scraper.Portrait {
		if !known(PortraitAdapters, n) {
			return fmt.Errorf("scraper.portrait 包含未知站点 %q", n)
		}
	}

	if c.Scraper.Proxy != "" {
		if _, err := httpx.ParseProxy(c.Scraper.Proxy); err != nil {
			return fmt.Errorf("scraper.proxy：%w", err)
		}
	}
	for key, raw := range map[string]string{
		"scraper.javdb_base_url":  c.Scraper.JavDBBaseURL,
		"scraper.javbus_base_url": c.Scraper.JavBusBaseURL,
	} {
		if err := validateBaseURL(key, raw); err != nil {
			return err
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format 只能是 console 或 json，实际是 %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level 无效：%q", c.Logging.Level)
	}
	return nil
}

func validateBaseURL(key, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", key, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", key, raw)
	}
	return nil
}

func known(names []string, n string) bool {
	for _, x := range names {
		if x == n {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
