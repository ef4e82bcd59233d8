package run

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/dramabox-extract/internal/config"
	"github.com/John-Robertt/dramabox-extract/internal/domain"
	"github.com/John-Robertt/dramabox-extract/internal/infra/httpx"
	"github.com/John-Robertt/dramabox-extract/internal/provider"
	"github.com/John-Robertt/dramabox-extract/internal/route"
)

// Scraper 是批量模式需要的路由集合（*dramabox.Provider 实现它）。
type Scraper interface {
	Browse(ctx context.Context, genreID string, page int) (domain.CatalogPage, error)
	Search(ctx context.Context, query string) (domain.CatalogPage, error)
	Drama(ctx context.Context, pageURL string) (domain.DramaDetail, error)
	Episode(ctx context.Context, pageURL string) (domain.EpisodePage, error)
}

// Execute 对一批页面 URL 做抽取，并返回对外稳定的 RunReport。
// 单条失败只影响该条目；ctx 取消后未开始的条目记为 fetch_failed。
func Execute(ctx context.Context, eff config.EffectiveConfig, s Scraper, urls []string) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, s, urls, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, s Scraper, urls []string, obs Observer) domain.RunReport {
	rr := domain.RunReport{
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, len(urls)),
	}
	if obs != nil {
		obs.OnStart(eff, len(urls))
	}

	classifyStarted := time.Now()
	refs := make([]route.Ref, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}

		ref, err := route.Classify(raw)
		if err != nil {
			rr.Items = append(rr.Items, unmatchedItem(raw, err))
			continue
		}
		refs = append(refs, ref)
	}
	if obs != nil {
		obs.OnPhaseDone("classify", map[string]any{
			"urls":      len(seen),
			"unmatched": len(rr.Items),
		}, time.Since(classifyStarted))
	}

	// 执行阶段：按 URL 并发（worker pool）。
	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(refs),
		}, 0)
	}

	type execResult struct {
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan route.Ref)
	results := make(chan execResult, len(refs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				oneStarted := time.Now()
				r := execOne(ctx, s, ref)
				results <- execResult{res: r, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		for _, ref := range refs {
			jobs <- ref
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, len(refs), it.res, it.dur)
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func execOne(ctx context.Context, s Scraper, ref route.Ref) domain.ItemResult {
	item := domain.ItemResult{
		URL:    ref.URL,
		Route:  string(ref.Kind),
		Source: domain.SourceNone,
		Status: domain.StatusOK,
	}
	if err := ctx.Err(); err != nil {
		fillError(&item, &provider.Error{Route: string(ref.Kind), Stage: provider.StageFetch, Err: err})
		return item
	}

	switch ref.Kind {
	case route.KindDrama:
		d, err := s.Drama(ctx, ref.URL)
		if err != nil {
			fillError(&item, err)
			return item
		}
		item.Source, item.Title, item.Episodes = d.Source, d.Title, d.EpisodeCount
		if d.Source == domain.SourceNone {
			item.Status = domain.StatusEmpty
		}

	case route.KindVideo:
		e, err := s.Episode(ctx, ref.URL)
		if err != nil {
			fillError(&item, err)
			return item
		}
		st := e.Stream
		item.Source, item.Title, item.Stream = e.Source, e.Name, &st
		switch st.Status {
		case domain.StreamAvailable:
		case domain.StreamLocked:
			item.Status = domain.StatusLocked
		default:
			item.Status = domain.StatusEmpty
			item.ErrorMsg = streamHint(st.Status)
		}

	case route.KindBrowse, route.KindSearch:
		var (
			page domain.CatalogPage
			err  error
		)
		if ref.Kind == route.KindBrowse {
			n, _ := strconv.Atoi(ref.Page)
			page, err = s.Browse(ctx, ref.GenreID, n)
		} else {
			if strings.TrimSpace(ref.Query) == "" {
				fillError(&item, &route.UnmatchedError{URL: ref.URL, Reason: "缺少 searchValue"})
				return item
			}
			page, err = s.Search(ctx, ref.Query)
		}
		if err != nil {
			fillError(&item, err)
			return item
		}
		item.Source = page.Source
		if page.Count == 0 {
			item.Status = domain.StatusEmpty
		}
	}
	return item
}

func streamHint(st domain.StreamStatus) string {
	switch st {
	case domain.StreamNotFound:
		return "页面里没有找到该集的记录"
	case domain.StreamRegionOrSchemaMismatch:
		return "找到了该集的记录，但没有可用的播放地址（可能是地区限制或数据结构变化）"
	default:
		return ""
	}
}

func unmatchedItem(raw string, err error) domain.ItemResult {
	return domain.ItemResult{
		URL:       raw,
		Source:    domain.SourceNone,
		Status:    domain.StatusUnmatched,
		ErrorCode: domain.ErrCodeUnmatchedURL,
		ErrorMsg:  err.Error(),
	}
}

func fillError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed

	var ue *route.UnmatchedError
	if errors.As(err, &ue) {
		item.Status = domain.StatusUnmatched
		item.ErrorCode = domain.ErrCodeUnmatchedURL
		item.ErrorMsg = ue.Error()
		return
	}

	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Stage {
		case provider.StageParse:
			item.ErrorCode = domain.ErrCodeParseFailed
			item.ErrorMsg = fmt.Sprintf("%s 解析失败：%v", pe.Route, pe.Err)
		default:
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = humanizeFetchError(pe.Route, pe.Err)
		}
		return
	}

	item.ErrorCode = domain.ErrCodeFetchFailed
	item.ErrorMsg = err.Error()
}

func humanizeFetchError(routeName string, err error) string {
	if err == nil {
		return routeName + " 抓取失败"
	}

	var se *httpx.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Blocked:
			return fmt.Sprintf("%s 返回 HTTP %d（带 Referer 重试后仍被拦截）。建议降低并发、设置 http.rate_limit 或配置 http.proxy_url。", routeName, se.StatusCode)
		case se.StatusCode == 404:
			return fmt.Sprintf("%s 返回 HTTP 404（页面不存在或已下架）。", routeName)
		case se.StatusCode == 429:
			return fmt.Sprintf("%s 返回 HTTP 429（触发限流）。建议设置 http.rate_limit。", routeName)
		default:
			return fmt.Sprintf("%s 返回 HTTP %d。", routeName, se.StatusCode)
		}
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("%s 已取消。", routeName)
	}
	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s 抓取超时。建议检查网络/代理，或调大 http.timeout。", routeName)
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") {
		return fmt.Sprintf("%s 连接失败（TLS）。建议配置 http.proxy_url 或稍后重试。", routeName)
	}
	return fmt.Sprintf("%s 抓取失败：%v", routeName, err)
}
