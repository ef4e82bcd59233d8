package httpx

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type site struct {
	srv       *httptest.Server
	rootHits  atomic.Int32
	pageHits  atomic.Int32
	rootFails atomic.Bool
	page      http.HandlerFunc
}

func newSite(t *testing.T, page http.HandlerFunc) *site {
	t.Helper()
	s := &site{page: page}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			s.rootHits.Add(1)
			if s.rootFails.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "warm", Path: "/"})
			return
		}
		s.pageHits.Add(1)
		s.page(w, r)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func newTestSession(t *testing.T, origin string) *Session {
	t.Helper()
	s, err := NewSession(Options{Origin: origin, Timeout: 5 * time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return s
}

func okPage(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }

func TestNewSession_RejectsBadOrigin(t *testing.T) {
	for _, o := range []string{"", "www.dramabox.com", "ftp://x"} {
		_, err := NewSession(Options{Origin: o})
		assert.Errorf(t, err, "origin=%q", o)
	}
}

func TestFetch_WarmupOncePerWindow(t *testing.T) {
	st := newSite(t, okPage)
	s := newTestSession(t, st.srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Fetch(context.Background(), st.srv.URL+"/page", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), st.rootHits.Load(), "并发调用在同一窗口内只应预热一次")
	assert.Equal(t, int32(16), st.pageHits.Load())
}

func TestFetch_WarmupAgainAfterTTL(t *testing.T) {
	st := newSite(t, okPage)
	s := newTestSession(t, st.srv.URL)

	var now atomic.Int64
	s.clock = func() time.Duration { return time.Duration(now.Load()) }

	_, err := s.Fetch(context.Background(), st.srv.URL+"/page", nil)
	require.NoError(t, err)
	now.Store(int64(30 * time.Second))
	_, err = s.Fetch(context.Background(), st.srv.URL+"/page", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), st.rootHits.Load())

	now.Store(int64(61 * time.Second))
	_, err = s.Fetch(context.Background(), st.srv.URL+"/page", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), st.rootHits.Load())
}

func TestFetch_WarmupCookieIsReused(t *testing.T) {
	st := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		if err != nil || c.Value != "warm" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	s := newTestSession(t, st.srv.URL)

	b, err := s.Fetch(context.Background(), st.srv.URL+"/page", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
}

func TestFetch_WarmupFailureIsSwallowed(t *testing.T) {
	st := newSite(t, okPage)
	st.rootFails.Store(true)
	s := newTestSession(t, st.srv.URL)

	b, err := s.Fetch(context.Background(), st.srv.URL+"/page", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
	assert.Equal(t, int32(1), st.rootHits.Load())
}

func TestFetch_403RetriesOnceWithReferer(t *testing.T) {
	var origin string
	st := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != origin+"/" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	origin = st.srv.URL
	s := newTestSession(t, origin)

	b, err := s.Fetch(context.Background(), origin+"/page", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
	assert.Equal(t, int32(2), st.pageHits.Load())
}

func TestFetch_403TwiceIsFetchError(t *testing.T) {
	st := newSite(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) })
	s := newTestSession(t, st.srv.URL)

	_, err := s.Fetch(context.Background(), st.srv.URL+"/page", nil)
	require.Error(t, err)
	assert.True(t, IsFetchError(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.True(t, se.Blocked)
	assert.Equal(t, int32(2), st.pageHits.Load(), "403 只重试一次")
}

func TestFetch_OtherStatusNoRetry(t *testing.T) {
	st := newSite(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) })
	s := newTestSession(t, st.srv.URL)

	_, err := s.Fetch(context.Background(), st.srv.URL+"/page", nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.StatusCode)
	assert.False(t, se.Blocked)
	assert.Equal(t, int32(1), st.pageHits.Load())
}

func TestFetch_QueryParams(t *testing.T) {
	st := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Query().Get("searchValue")))
	})
	s := newTestSession(t, st.srv.URL)

	b, err := s.Fetch(context.Background(), st.srv.URL+"/in/search", url.Values{"searchValue": {"love & moon"}})
	require.NoError(t, err)
	assert.Equal(t, "love & moon", string(b))
}

func TestFetch_DecodesCompressedBodies(t *testing.T) {
	const html = "<html><body>压缩内容</body></html>"
	st := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		switch r.URL.Path {
		case "/gz":
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write([]byte(html))
			_ = zw.Close()
			w.Header().Set("Content-Encoding", "gzip")
		case "/br":
			bw := brotli.NewWriter(&buf)
			_, _ = bw.Write([]byte(html))
			_ = bw.Close()
			w.Header().Set("Content-Encoding", "br")
		default:
			buf.WriteString(html)
		}
		_, _ = w.Write(buf.Bytes())
	})
	s := newTestSession(t, st.srv.URL)

	for _, p := range []string{"/gz", "/br", "/plain"} {
		b, err := s.Fetch(context.Background(), st.srv.URL+p, nil)
		require.NoErrorf(t, err, "path=%s", p)
		assert.Equalf(t, html, string(b), "path=%s", p)
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	st := newSite(t, okPage)
	s := newTestSession(t, st.srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Fetch(ctx, st.srv.URL+"/page", nil)
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetch_RateLimitRespectsContext(t *testing.T) {
	st := newSite(t, okPage)
	s, err := NewSession(Options{Origin: st.srv.URL, RateLimit: 0.001, Burst: 1, Logger: zerolog.Nop()})
	require.NoError(t, err)

	// 预热消耗了唯一的令牌，正式请求只能等待，直到 ctx 超时。
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Fetch(ctx, st.srv.URL+"/page", nil)
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.Equal(t, int32(0), st.pageHits.Load())
}
