package main

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/avscrape/internal/app/run"
	"github.com/John-Robertt/avscrape/internal/config"
	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/organize"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：单个文件长时间没有新输出时定期打印一行
type progressUI struct {
	w   io.Writer
	cfg config.Config

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total   int
	done    int
	ok      int
	fail    int
	skip    int
	current domain.Code
	stage   string

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, cfg config.Config) *progressUI {
	return &progressUI{
		w:                  w,
		cfg:                cfg,
		keepaliveThreshold: 8 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(runID, root string, total, skipped int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.total = total
	p.skip = skipped

	s := p.cfg.Scraper
	fmt.Fprintf(p.w, "[%s] avscrape run %s\n", now.Format("15:04:05"), runID)
	fmt.Fprintln(p.w, "配置（生效）:")
	if p.cfg.File != "" {
		fmt.Fprintf(p.w, "  file: %s\n", p.cfg.File)
	}
	fmt.Fprintf(p.w, "  path: %s\n", root)
	fmt.Fprintf(p.w, "  sites: %s\n", chain(p.cfg.EnabledSites()))
	fmt.Fprintf(p.w, "  fallback: %s\n", chain(s.Fallback))
	fmt.Fprintf(p.w, "  portrait: %s\n", chain(s.Portrait))
	fmt.Fprintf(p.w, "  synthetic: %s\n", onOff(s.Synthetic))
	fmt.Fprintf(p.w, "  browser: %s\n", onOff(p.cfg.Browser.Enabled))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(s.Proxy))
	fmt.Fprintf(p.w, "  timeout: %ds\n", s.Timeout)
	fmt.Fprintf(p.w, "  nfo=%s cover=%s organize=%s\n",
		onOff(p.cfg.Run.CreateNFO), onOff(p.cfg.Run.DownloadCover), onOff(p.cfg.Run.OrganizeFiles),
	)
	if p.cfg.Run.OrganizeFiles {
		fmt.Fprintf(p.w, "  out: %s\n", filepath.Join(root, organize.VideosDir))
	}
	fmt.Fprintf(p.w, "扫描: targets=%d unmatched=%d\n\n", total, skipped)

	if total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFileStart(idx, total int, t domain.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = t.Code
	p.stage = ""
	fmt.Fprintf(p.w, "[%d/%d] %s %s\n", idx, total, t.Code, truncate(t.File.RelPath, 100))
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnStage(code domain.Code, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = message
	fmt.Fprintf(p.w, "  · %s\n", truncate(message, 140))
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFileDone(idx, total int, res domain.FileResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total
	p.current = ""
	p.stage = ""

	switch res.Status {
	case domain.StatusProcessed:
		p.ok++
	case domain.StatusFailed:
		p.fail++
	case domain.StatusSkipped:
		p.skip++
	}

	fmt.Fprintf(p.w, "  %s (%s)\n", formatFileLine(res), formatShortDuration(dur))
	p.lastPrinted = time.Now()

	if p.tickerStarted && p.done >= p.total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) OnFinish(st domain.JobStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		p.stopTickerLocked()
	}
	elapsed := time.Duration(0)
	if !p.startedAt.IsZero() {
		elapsed = time.Since(p.startedAt)
	}
	msg := st.Message
	if st.Error != "" && st.Error != msg {
		msg = st.Error
	}
	fmt.Fprintf(p.w, "\n[%s] %s: %s (elapsed=%s)\n", time.Now().Format("15:04:05"), st.State, msg, formatElapsed(elapsed))
	p.lastPrinted = time.Now()
}

// Close 停止 keepalive ticker；可重复调用。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 8 * time.Second
	}

	stopCh := p.stopCh
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d skip=%d%s elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, p.skip, p.currentSuffixLocked(), formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *progressUI) currentSuffixLocked() string {
	if p.current == "" {
		return ""
	}
	s := " current=" + string(p.current)
	if p.stage != "" {
		s += " (" + truncate(p.stage, 60) + ")"
	}
	return s
}

// formatFileLine 是单个文件结束时的一行摘要。
func formatFileLine(res domain.FileResult) string {
	switch res.Status {
	case domain.StatusFailed:
		return "FAIL " + truncate(res.Error, 160)
	case domain.StatusSkipped:
		return "SKIP " + truncate(res.Error, 160)
	case domain.StatusCancelled:
		return "CANCELLED"
	}

	parts := []string{"OK"}
	if res.Source != "" {
		parts = append(parts, "source="+res.Source)
	}
	if res.Move != "" {
		parts = append(parts, "move="+res.Move)
	}
	if res.NFO != "" {
		parts = append(parts, "nfo="+res.NFO)
	}
	if res.Fanart != "" {
		parts = append(parts, "fanart="+res.Fanart)
	}
	if res.Poster != "" {
		parts = append(parts, "poster="+res.Poster)
	}
	if res.Portrait != "" {
		parts = append(parts, "portrait="+res.Portrait)
	}
	if len(res.Notes) > 0 {
		parts = append(parts, "notes="+truncate(strings.Join(res.Notes, ";"), 120))
	}
	return strings.Join(parts, " ")
}

func chain(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, " -> ")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
