package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/creditsync/internal/app/run"
	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：请求间隔较长时也会定期输出一行当前条目，降低等待焦虑
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total   int
	done    int
	ok      int
	fail    int
	skip    int
	current string

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 8 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] creditsync %s\n", now.Format("15:04:05"), eff.Command)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	switch eff.Command {
	case config.CommandVerify:
		fmt.Fprintf(p.w, "  person: %s\n", eff.PersonName)
		fmt.Fprintf(p.w, "  drop_unverified: %s\n", onOff(eff.Verify.DropUnverified))
	case config.CommandScrape:
		fmt.Fprintf(p.w, "  person_url: %s\n", truncate(eff.PersonURL, 120))
	}
	fmt.Fprintf(p.w, "  base_url: %s\n", eff.BaseURL)
	fmt.Fprintf(p.w, "  request_delay: %s  timeout: %s  retry_max: %d\n", eff.RequestDelay, eff.Timeout, eff.RetryMax)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", formatCache(eff.CacheDir, eff.CacheReadOnly))

	fmt.Fprintln(p.w, "文件:")
	in, out := ioPaths(eff)
	if in != "" {
		fmt.Fprintf(p.w, "  input: %s\n", in)
	}
	fmt.Fprintf(p.w, "  output: %s\n", out)
	if eff.Command == config.CommandScrape && eff.Scrape.Markdown != "" {
		fmt.Fprintf(p.w, "  markdown: %s\n", eff.Scrape.Markdown)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case run.PhaseRead:
		if _, ok := fields["entries"]; ok {
			fmt.Fprintf(p.w, "读取: entries=%d (%s)\n", intField(fields, "entries"), formatShortDuration(dur))
		} else {
			fmt.Fprintf(p.w, "读取: records=%d skipped_lines=%d (%s)\n",
				intField(fields, "records"), intField(fields, "skipped"), formatShortDuration(dur),
			)
		}
	case run.PhaseFilmography:
		fmt.Fprintf(p.w, "人物页: links=%d titles=%d (%s)\n",
			intField(fields, "links"), intField(fields, "titles"), formatShortDuration(dur),
		)
	case run.PhasePlan:
		fmt.Fprintf(p.w, "规划: entries=%d need_fetch=%d skip=%d (%s)\n",
			intField(fields, "entries"), intField(fields, "need_fetch"), intField(fields, "skip"), formatShortDuration(dur),
		)
	case run.PhaseExec:
		p.total = intField(fields, "total_items")
		fmt.Fprintf(p.w, "执行: total_items=%d（串行）\n\n", p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	case run.PhaseWrite:
		fmt.Fprintf(p.w, "\n写出: %s (%s)\n", formatFields(fields), formatShortDuration(dur))
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemStart(idx, total int, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = title
}

func (p *progressUI) OnItemDone(idx, total int, title string, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// idx/total 由 run 层给出；这里同时维护自己的计数，供 keepalive 使用。
	p.done = idx
	p.total = total
	p.current = ""

	switch {
	case res.Status == domain.StatusSkipped:
		p.skip++
	case res.Failed():
		p.fail++
	default:
		p.ok++
	}

	fmt.Fprintln(p.w, formatItemLine(idx, total, title, res, dur))
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

// Stop 停止 keepalive（致命错误提前结束时由 CLI 调用；可重复调用）。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *progressUI) stopTickerLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stopCh := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 8 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintln(p.w, p.keepaliveLineLocked())
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) keepaliveLineLocked() string {
	line := fmt.Sprintf("进度: done=%d/%d ok=%d fail=%d skip=%d elapsed=%s",
		p.done, p.total, p.ok, p.fail, p.skip, formatElapsed(time.Since(p.startedAt)),
	)
	if p.current != "" {
		line += fmt.Sprintf(" current=%q", truncate(p.current, 60))
	}
	return line
}

func formatItemLine(idx, total int, title string, res domain.ItemResult, dur time.Duration) string {
	if strings.TrimSpace(title) == "" {
		title = "<unknown>"
	}
	prefix := fmt.Sprintf("[%d/%d] %s", idx, total, title)
	if res.Year != "" {
		prefix += " (" + res.Year + ")"
	}

	switch res.Status {
	case domain.StatusVerified, domain.StatusProcessed:
		if res.URL != "" {
			return fmt.Sprintf("%s OK %s (%s)", prefix, res.URL, formatShortDuration(dur))
		}
		return fmt.Sprintf("%s OK (%s)", prefix, formatShortDuration(dur))
	case domain.StatusUnverified:
		return fmt.Sprintf("%s UNVERIFIED %s: %s (%s)", prefix, res.URL, truncate(res.ErrorMsg, 120), formatShortDuration(dur))
	case domain.StatusSkipped:
		return fmt.Sprintf("%s SKIP %s (%s)", prefix, res.ErrorMsg, formatShortDuration(dur))
	default:
		status := "FAIL"
		if res.Status == domain.StatusUnresolved {
			status = "UNRESOLVED"
		}
		return fmt.Sprintf("%s %s %s: %s (%s)", prefix, status, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur))
	}
}

func ioPaths(eff config.EffectiveConfig) (in, out string) {
	switch eff.Command {
	case config.CommandVerify:
		return eff.Verify.Input, eff.Verify.Output
	case config.CommandScrape:
		return "", eff.Scrape.Output
	default:
		return eff.Enrich.Input, eff.Enrich.Output
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatCache(dir string, readOnly bool) string {
	if strings.TrimSpace(dir) == "" {
		return "off"
	}
	if readOnly {
		return dir + " (read-only)"
	}
	return dir
}

// formatProxy 只展示 scheme://host，不回显账号密码。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (invalid)"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func formatFields(fields map[string]any) string {
	for _, k := range []string{"lines", "projects", "entries"} {
		if _, ok := fields[k]; ok {
			return fmt.Sprintf("%s=%d", k, intField(fields, k))
		}
	}
	return ""
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

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
