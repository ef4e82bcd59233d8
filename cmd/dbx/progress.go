package main

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/dramabox-extract/internal/app/run"
	"github.com/John-Robertt/dramabox-extract/internal/config"
	"github.com/John-Robertt/dramabox-extract/internal/domain"
)

var _ run.Observer = (*progressLog)(nil)

// progressLog 把批量执行的事件写成结构化日志（stderr），不碰 stdout。
type progressLog struct {
	log zerolog.Logger

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressLog(log zerolog.Logger) *progressLog {
	return &progressLog{log: log}
}

func (p *progressLog) OnStart(eff config.EffectiveConfig, total int) {
	p.mu.Lock()
	p.startedAt = time.Now()
	p.mu.Unlock()

	snap := eff.SnapshotDir
	if snap == "" {
		snap = "off"
	}
	p.log.Info().
		Int("urls", total).
		Str("site", eff.BaseURL+"/"+eff.Locale).
		Int("concurrency", eff.Concurrency).
		Str("proxy", formatProxy(eff.ProxyURL)).
		Str("dump", snap).
		Msg("开始批量抽取")
}

func (p *progressLog) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	ev := p.log.Debug().Str("phase", name).Str("took", formatShortDuration(dur))
	switch name {
	case "classify":
		ev = ev.Int("urls", intField(fields, "urls")).Int("unmatched", intField(fields, "unmatched"))
	case "exec":
		ev = ev.Int("workers", intField(fields, "workers")).Int("total_items", intField(fields, "total_items"))
	}
	ev.Msg("阶段完成")
}

func (p *progressLog) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	elapsed := time.Since(p.startedAt)
	p.mu.Unlock()

	lvl := zerolog.InfoLevel
	if res.Status == domain.StatusFailed {
		lvl = zerolog.WarnLevel
	}
	ev := p.log.WithLevel(lvl)
	if res.ErrorCode != "" {
		ev = ev.Str("error_code", res.ErrorCode).Str("error_msg", truncate(res.ErrorMsg, 160))
	}
	ev.Str("progress", fmt.Sprintf("%d/%d", idx, total)).
		Str("status", strings.ToUpper(res.Status)).
		Str("route", res.Route).
		Str("url", res.URL).
		Str("source", res.Source).
		Str("took", formatShortDuration(dur)).
		Str("elapsed", formatElapsed(elapsed)).
		Msg(itemNote(res))
}

func itemNote(res domain.ItemResult) string {
	switch {
	case res.Status == domain.StatusFailed:
		return "抽取失败"
	case res.Stream != nil && res.Stream.Locked:
		return "该集已锁定"
	case res.Stream != nil && res.Stream.URL != "":
		return "找到播放地址 (" + string(res.Stream.Format) + ")"
	case res.Episodes > 0:
		return fmt.Sprintf("%s：%d 集", truncate(res.Title, 60), res.Episodes)
	case res.Status == domain.StatusEmpty:
		return "没有找到内容"
	default:
		return "完成"
	}
}

// formatProxy 只展示 scheme/host 与是否带认证，不把密码打进日志。
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
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
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
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
