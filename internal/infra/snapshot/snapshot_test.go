package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_WriteDocumentAndResult(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	if !s.Enabled() {
		t.Fatalf("期望 Enabled=true")
	}

	if err := s.WriteDocument("drama", "41", []byte("<html/>")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := s.WriteResult("drama", "41", map[string]any{"id": "41"}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(root, "drama", "41.html"))
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if string(b) != "<html/>" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	b, err = os.ReadFile(filepath.Join(root, "drama", "41.json"))
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if !strings.Contains(string(b), `"id": "41"`) {
		t.Fatalf("期望缩进 JSON，实际：%s", b)
	}
}

func TestStore_KeyIsSanitized(t *testing.T) {
	s := New(t.TempDir())
	p, err := s.Path("search", "../love & moon", ".html")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if filepath.Base(p) != "love_moon.html" {
		t.Fatalf("文件名=%q", filepath.Base(p))
	}
	if filepath.Dir(p) != filepath.Join(s.Root, "search") {
		t.Fatalf("目录=%q", filepath.Dir(p))
	}
}

func TestStore_RejectsBadRouteAndDisabled(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Path("../x", "1", ".html"); err == nil {
		t.Fatalf("期望非法 route 报错")
	}
	if _, err := s.Path("drama", "///", ".html"); err == nil {
		t.Fatalf("期望空 key 报错")
	}

	off := New("  ")
	if off.Enabled() {
		t.Fatalf("空目录应视为未启用")
	}
	if err := off.WriteDocument("drama", "1", nil); err == nil {
		t.Fatalf("未启用时写入应报错")
	}
}
