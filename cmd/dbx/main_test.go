package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/John-Robertt/dramabox-extract/internal/domain"
)

const (
	dramaPath = "/in/drama/41000102736/Love-In-The-Moonlight"
	videoPath = "/in/video/41000102736_Love-In-The-Moonlight/700002_Episode-2"
)

type testSite struct {
	srv   *httptest.Server
	pages atomic.Int32
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	read := func(name string) []byte {
		b, err := os.ReadFile(filepath.Join("..", "..", "internal", "provider", "dramabox", "testdata", name))
		if err != nil {
			t.Fatalf("读取 fixture 失败：%v", err)
		}
		return b
	}
	drama, episode := read("drama.html"), read("episode.html")

	s := &testSite{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			return
		}
		s.pages.Add(1)
		switch r.URL.Path {
		case dramaPath:
			_, _ = w.Write(drama)
		case videoPath:
			_, _ = w.Write(episode)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// newCwd 准备一个带 dbx.yaml 的工作目录，站点指向 base。
func newCwd(t *testing.T, base string) string {
	t.Helper()
	cwd := t.TempDir()
	cfg := "site:\n  base_url: " + base + "\nlog:\n  level: error\n  format: json\n"
	if err := os.WriteFile(filepath.Join(cwd, "dbx.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	return cwd
}

func runWith(t *testing.T, cwd, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runCLI(context.Background(), args, cliEnv{
		Cwd:    cwd,
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return code, stdout.String(), stderr.String()
}

func TestParseArgs(t *testing.T) {
	ca, err := parseArgs([]string{"--locale=en", "browse", "3", "2", "--dump", "out", "--config", "c.yaml"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ca.Command != "browse" || len(ca.Args) != 2 || ca.Args[0] != "3" || ca.Args[1] != "2" {
		t.Fatalf("命令/参数不符合预期：%+v", ca)
	}
	if !ca.LocaleSet || ca.Locale != "en" || !ca.DumpSet || ca.Dump != "out" || ca.ConfigFile != "c.yaml" {
		t.Fatalf("全局参数不符合预期：%+v", ca)
	}

	ca, err = parseArgs([]string{"batch", "-", "--dump="})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(ca.Args) != 1 || ca.Args[0] != "-" || !ca.DumpSet || ca.Dump != "" {
		t.Fatalf("batch - 解析不符合预期：%+v", ca)
	}

	bad := [][]string{
		{"fly"},
		{"drama"},
		{"drama", "a", "b"},
		{"home", "x"},
		{"browse", "1", "0"},
		{"browse", "1", "x"},
		{"genres", "--locale"},
		{"genres", "--verbose"},
		{"--config=", "home"},
		{"--locale", "en"},
	}
	for _, args := range bad {
		if _, err := parseArgs(args); err == nil {
			t.Fatalf("args=%q 期望报错", args)
		}
	}
}

func TestRunCLI_HelpAndUsage(t *testing.T) {
	cwd := t.TempDir()

	code, out, _ := runWith(t, cwd, "", "--help")
	if code != exitOK || !strings.Contains(out, "用法") {
		t.Fatalf("--help 期望退出码 0 且打印用法：code=%d out=%q", code, out)
	}
	code, out, _ = runWith(t, cwd, "", "drama", "-h")
	if code != exitOK || !strings.Contains(out, "用法") {
		t.Fatalf("子命令 -h 期望打印用法：code=%d", code)
	}

	code, out, errOut := runWith(t, cwd, "", "fly")
	if code != exitUsage || out != "" || !strings.Contains(errOut, "未知命令") {
		t.Fatalf("未知命令期望退出码 2 且 stdout 为空：code=%d out=%q err=%q", code, out, errOut)
	}
}

func TestRunCLI_ConfigNotFound(t *testing.T) {
	code, out, _ := runWith(t, t.TempDir(), "", "home", "--config", "nope.yaml")
	if code != exitFail {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	var e errorOutput
	if err := json.Unmarshal([]byte(out), &e); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%q", err, out)
	}
	if e.ErrorCode != domain.ErrCodeConfigNotFound || e.Command != "home" {
		t.Fatalf("错误输出不符合预期：%+v", e)
	}
}

func TestRunCLI_DramaOverHTTP(t *testing.T) {
	site := newTestSite(t)
	cwd := newCwd(t, site.srv.URL)

	code, out, errOut := runWith(t, cwd, "", "drama", site.srv.URL+dramaPath)
	if code != exitOK {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, errOut)
	}
	var d domain.DramaDetail
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("stdout 不是合法 DramaDetail JSON：%v\n%q", err, out)
	}
	if d.ID != "41000102736" || d.EpisodeCount != 3 || d.Source != domain.SourceJSON {
		t.Fatalf("详情结果不符合预期：%+v", d)
	}
	if !strings.HasPrefix(d.Episodes[0].VideoPageURL, site.srv.URL+"/in/video/") {
		t.Fatalf("剧集链接应以站点根为前缀：%q", d.Episodes[0].VideoPageURL)
	}
}

func TestRunCLI_EpisodeOverHTTP(t *testing.T) {
	site := newTestSite(t)
	cwd := newCwd(t, site.srv.URL)

	code, out, errOut := runWith(t, cwd, "", "episode", site.srv.URL+videoPath)
	if code != exitOK {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, errOut)
	}
	var e domain.EpisodePage
	if err := json.Unmarshal([]byte(out), &e); err != nil {
		t.Fatalf("stdout 不是合法 EpisodePage JSON：%v", err)
	}
	if e.Stream.Status != domain.StreamAvailable || e.Stream.Format != domain.FormatM3U8 {
		t.Fatalf("播放地址不符合预期：%+v", e.Stream)
	}
}

func TestRunCLI_ArgumentErrorsDoNotFetch(t *testing.T) {
	site := newTestSite(t)
	cwd := newCwd(t, site.srv.URL)

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"episode", site.srv.URL + dramaPath}, domain.ErrCodeUnmatchedURL},
		{[]string{"drama", "not-a-url"}, domain.ErrCodeUnmatchedURL},
		{[]string{"search", "  "}, domain.ErrCodeInvalidArgument},
		{[]string{"browse", "abc"}, domain.ErrCodeInvalidArgument},
	}
	for _, c := range cases {
		code, out, _ := runWith(t, cwd, "", c.args...)
		if code != exitUsage {
			t.Fatalf("args=%q 期望退出码 2，实际 %d", c.args, code)
		}
		var e errorOutput
		if err := json.Unmarshal([]byte(out), &e); err != nil || e.ErrorCode != c.want {
			t.Fatalf("args=%q 期望 %s，实际 %+v (err=%v)", c.args, c.want, e, err)
		}
	}
	if n := site.pages.Load(); n != 0 {
		t.Fatalf("参数错误不应发起页面请求：%d", n)
	}
}

func TestRunCLI_FetchFailureExitsOne(t *testing.T) {
	site := newTestSite(t)
	cwd := newCwd(t, site.srv.URL)

	code, out, _ := runWith(t, cwd, "", "drama", site.srv.URL+"/in/drama/1/missing")
	if code != exitFail {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	var e errorOutput
	if err := json.Unmarshal([]byte(out), &e); err != nil || e.ErrorCode != domain.ErrCodeFetchFailed {
		t.Fatalf("期望 fetch_failed，实际 %+v (err=%v)", e, err)
	}
}

func TestRunCLI_BatchFromStdinWithDump(t *testing.T) {
	site := newTestSite(t)
	cwd := newCwd(t, site.srv.URL)
	dump := filepath.Join(t.TempDir(), "dump")

	stdin := strings.Join([]string{
		"# 注释行",
		site.srv.URL + dramaPath,
		"",
		site.srv.URL + videoPath,
	}, "\n")
	code, out, errOut := runWith(t, cwd, stdin, "batch", "-", "--dump", dump)
	if code != exitOK {
		t.Fatalf("期望退出码 0，实际 %d\nstdout=%s\nstderr=%s", code, out, errOut)
	}

	var rr domain.RunReport
	if err := json.Unmarshal([]byte(out), &rr); err != nil {
		t.Fatalf("stdout 不是合法 RunReport JSON：%v\n%q", err, out)
	}
	if rr.Summary.OK != 2 || len(rr.Items) != 2 {
		t.Fatalf("report 不符合预期：%+v", rr)
	}
	if !strings.Contains(errOut, "完成：ok=2") {
		t.Fatalf("stderr 缺少完成摘要：%q", errOut)
	}

	for _, p := range []string{
		filepath.Join(dump, "report.json"),
		filepath.Join(dump, "drama", "41000102736.html"),
		filepath.Join(dump, "episode", "41000102736_700002.json"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("期望写出 %s：%v", p, err)
		}
	}
}

func TestRunCLI_BatchWithFailureExitsOne(t *testing.T) {
	site := newTestSite(t)
	cwd := newCwd(t, site.srv.URL)

	code, out, _ := runWith(t, cwd, "", "batch", site.srv.URL+dramaPath, site.srv.URL+"/in/about")
	if code != exitFail {
		t.Fatalf("含 unmatched 条目时期望退出码 1，实际 %d", code)
	}
	var rr domain.RunReport
	if err := json.Unmarshal([]byte(out), &rr); err != nil {
		t.Fatalf("stdout 不是合法 RunReport JSON：%v", err)
	}
	if rr.Summary.OK != 1 || rr.Summary.Unmatched != 1 {
		t.Fatalf("summary 不符合预期：%+v", rr.Summary)
	}
}
