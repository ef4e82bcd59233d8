package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultWarmupTTL = 60 * time.Second

// never 表示从未预热过。
const never = math.MinInt64

// Options 是 Session 的构造参数；零值字段使用默认值。
type Options struct {
	// Origin 形如 https://www.dramabox.com，预热请求打到 Origin + "/"。
	Origin string

	Timeout   time.Duration
	WarmupTTL time.Duration

	// RateLimit 是每秒请求数上限（含预热），<=0 表示不限速。
	RateLimit float64
	Burst     int

	ProxyURL string
	Logger   zerolog.Logger
}

// Session 是进程内共享的抓取会话：cookie 状态 + 预热时间戳。
//
// 并发约束：预热的“是否过期”判断与时间戳更新通过一次 CAS 完成，
// 同一个 TTL 窗口内最多只有一个调用方发起预热，其它调用方不会读到写了一半的时间戳。
type Session struct {
	origin  string
	ttl     time.Duration
	client  *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	// clock 返回单调时钟读数（自 Session 创建起的时长）。
	clock      func() time.Duration
	lastWarmup atomic.Int64
}

func NewSession(opts Options) (*Session, error) {
	origin := strings.TrimRight(strings.TrimSpace(opts.Origin), "/")
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("origin 必须是 http(s) 绝对地址：%q", opts.Origin)
	}

	hc, err := NewClient(opts.ProxyURL, opts.Timeout)
	if err != nil {
		return nil, err
	}

	client := resty.NewWithClient(hc).
		SetLogger(restyLogger{opts.Logger}).
		// 同一会话保持同一个 UA，和 cookie 保持一致。
		SetHeader("User-Agent", globalUA.random())

	ttl := opts.WarmupTTL
	if ttl <= 0 {
		ttl = defaultWarmupTTL
	}

	s := &Session{
		origin: origin,
		ttl:    ttl,
		client: client,
		log:    opts.Logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	start := time.Now()
	s.clock = func() time.Duration { return time.Since(start) }
	s.lastWarmup.Store(never)
	return s, nil
}

// Origin 返回会话绑定的站点根地址（不带结尾 '/'）。
func (s *Session) Origin() string { return s.origin }

// Fetch 抓取一个页面并返回解压后的响应体。
//
// 规则：
// - 距上次预热超过 TTL 时，先 GET Origin + "/"；预热失败只记日志，不影响本次请求
// - 403：带 Referer=Origin+"/" 重试恰好一次
// - 其它非 2xx、网络错误、超时、取消：直接返回 *FetchError，不再重试
func (s *Session) Fetch(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	if s.claimWarmup() {
		s.warmup(ctx)
	}

	body, err := s.get(ctx, rawURL, query, "")
	var se *StatusError
	if errors.As(err, &se) && se.Blocked {
		s.log.Warn().Str("url", rawURL).Int("status", se.StatusCode).Msg("请求被拦截，带 Referer 重试一次")
		body, err = s.get(ctx, rawURL, query, s.origin+"/")
	}
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}

// claimWarmup 原子地判断并占用本轮预热；返回 true 的调用方负责执行预热。
func (s *Session) claimWarmup() bool {
	now := int64(s.clock())
	for {
		last := s.lastWarmup.Load()
		if last != never && now-last < int64(s.ttl) {
			return false
		}
		if s.lastWarmup.CompareAndSwap(last, now) {
			return true
		}
	}
}

func (s *Session) warmup(ctx context.Context) {
	_, err := s.get(ctx, s.origin+"/", nil, "")
	if err != nil {
		s.log.Debug().Err(err).Msg("预热失败（忽略）")
		return
	}
	s.log.Debug().Str("origin", s.origin).Msg("预热完成")
}

func (s *Session) get(ctx context.Context, rawURL string, query url.Values, referer string) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if referer != "" {
		req.SetHeader("Referer", referer)
	}

	resp, err := req.Get(rawURL)
	if resp != nil {
		if rc := resp.RawBody(); rc != nil {
			defer rc.Close()
		}
	}
	if err != nil {
		return nil, err
	}

	code := resp.StatusCode()
	if code < 200 || code > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.RawBody(), 64<<10))
		return nil, &StatusError{StatusCode: code, Blocked: code == http.StatusForbidden}
	}
	return readBody(resp.RawBody(), resp.Header().Get("Content-Encoding"))
}

// restyLogger 把 resty 的内部日志接到 zerolog。
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
