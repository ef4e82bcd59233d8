package provider

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

type stubFetcher struct {
	html  []byte
	err   error
	calls int
	query url.Values
}

func (f *stubFetcher) Fetch(_ context.Context, _ string, q url.Values) ([]byte, error) {
	f.calls++
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return f.html, nil
}

func TestFetchParse_OK(t *testing.T) {
	f := &stubFetcher{html: []byte("<html/>")}
	v, html, err := FetchParse(context.Background(), f, "search", "https://x/in/search", url.Values{"searchValue": {"q"}}, func(b []byte) (int, error) {
		return len(b), nil
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if v != 7 || string(html) != "<html/>" {
		t.Fatalf("结果不一致：v=%d html=%q", v, html)
	}
	if f.query.Get("searchValue") != "q" {
		t.Fatalf("query 未透传：%v", f.query)
	}
}

func TestFetchParse_FetchFailIsFetchStage(t *testing.T) {
	cause := errors.New("boom")
	f := &stubFetcher{err: cause}
	parsed := false
	_, _, err := FetchParse(context.Background(), f, "drama", "https://x", nil, func([]byte) (string, error) {
		parsed = true
		return "", nil
	})
	if !IsFetch(err) {
		t.Fatalf("期望 fetch 阶段错误，实际：%v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("期望保留原始错误链")
	}
	if parsed {
		t.Fatalf("fetch 失败后不应调用 parse")
	}
}

func TestFetchParse_ParseFailIsNotFetch(t *testing.T) {
	f := &stubFetcher{html: []byte("x")}
	_, html, err := FetchParse(context.Background(), f, "episode", "https://x", nil, func([]byte) (string, error) {
		return "", errors.New("bad")
	})
	var pe *Error
	if !errors.As(err, &pe) || pe.Stage != StageParse || pe.Route != "episode" {
		t.Fatalf("期望 parse 阶段错误，实际：%v", err)
	}
	if IsFetch(err) {
		t.Fatalf("parse 失败不应被视为 fetch 失败")
	}
	if string(html) != "x" {
		t.Fatalf("parse 失败时仍应返回 html 以便快照")
	}
}

func TestFetchParse_NilFetcher(t *testing.T) {
	_, _, err := FetchParse(context.Background(), nil, "home", "https://x", nil, func([]byte) (int, error) { return 0, nil })
	if !IsFetch(err) {
		t.Fatalf("期望 fetch 阶段错误，实际：%v", err)
	}
}
