package httpx

import (
	"errors"
	"fmt"
)

// StatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// Blocked=true 表示被站点拦截（403），Session 会据此决定是否换 Referer 重试一次。
type StatusError struct {
	StatusCode int
	Blocked    bool
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	if e.Blocked {
		return fmt.Sprintf("HTTP %d（被拦截）", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// FetchError 是抓取阶段唯一的致命错误：网络错误、超时、取消，或重试后仍非 2xx。
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("抓取失败 url=%s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError 判断 err 链上是否有 FetchError。
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
