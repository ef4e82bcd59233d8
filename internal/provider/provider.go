package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Fetcher 是抓取会话的最小接口（*httpx.Session 实现它）。
//
// 约束：
// - Fetch 自行负责预热、唯一一次 403 重试与限速，上层不再重试
// - 返回的错误即 FetchError 语义：致命，终止本次抽取
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, query url.Values) ([]byte, error)
}

// Error 是路由阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Route string // home / browse / search / genres / drama / episode
	Stage string // "fetch" 或 "parse"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("route=%s stage=%s: %v", e.Route, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsFetch 判断 err 是否为“连请求都没能完成”的失败（区别于“没找到内容”）。
func IsFetch(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Stage == StageFetch
}

// FetchParse 抓取 pageURL 并交给 parse；任一阶段失败都包装为 *Error。
//
// 返回值：
// - v：解析结果
// - html：抓取到的原始 HTML（用于快照）
//
// parse 必须是纯函数：相同输入 => 相同输出。
func FetchParse[T any](ctx context.Context, f Fetcher, route, pageURL string, query url.Values, parse func(html []byte) (T, error)) (v T, html []byte, err error) {
	if f == nil {
		return v, nil, &Error{Route: route, Stage: StageFetch, Err: errors.New("fetcher 不能为空")}
	}
	html, err = f.Fetch(ctx, pageURL, query)
	if err != nil {
		return v, nil, &Error{Route: route, Stage: StageFetch, Err: err}
	}
	v, err = parse(html)
	if err != nil {
		return v, html, &Error{Route: route, Stage: StageParse, Err: err}
	}
	return v, html, nil
}
