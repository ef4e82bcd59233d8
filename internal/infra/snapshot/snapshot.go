package snapshot

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/John-Robertt/dramabox-extract/internal/infra/fsx"
)

// Store 把抓到的页面与抽取结果落盘到 <Root>/<route>/<key>.html|.json，便于排查站点结构漂移。
//
// 约束：
// - 只写不读：这里不是缓存，每次请求都会重新抓取
// - Root 为空时 Enabled()=false，调用方应跳过写入
type Store struct {
	Root string
}

func New(root string) Store {
	root = strings.TrimSpace(root)
	if root == "" {
		return Store{}
	}
	return Store{Root: filepath.Clean(root)}
}

func (s Store) Enabled() bool { return s.Root != "" }

// WriteDocument 写入原始 HTML。
func (s Store) WriteDocument(route, key string, html []byte) error {
	dir, name, err := s.path(route, key, ".html")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, name, html)
}

// WriteResult 以缩进 JSON 写入抽取结果。
func (s Store) WriteResult(route, key string, v any) error {
	dir, name, err := s.path(route, key, ".json")
	if err != nil {
		return err
	}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, name, append(b, '\n'))
}

// Path 返回 route/key 对应文件的路径（ext 含 '.'）。
func (s Store) Path(route, key, ext string) (string, error) {
	dir, name, err := s.path(route, key, ext)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (s Store) path(route, key, ext string) (string, string, error) {
	if !s.Enabled() {
		return "", "", fmt.Errorf("snapshot 目录未配置")
	}
	r, err := cleanRoute(route)
	if err != nil {
		return "", "", err
	}
	k := cleanKey(key)
	if k == "" {
		return "", "", fmt.Errorf("key 不能为空")
	}
	return filepath.Join(s.Root, r), k + ext, nil
}

var (
	routeNameRE = regexp.MustCompile(`^[a-z0-9_]+$`)
	keyUnsafeRE = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

func cleanRoute(r string) (string, error) {
	r = strings.ToLower(strings.TrimSpace(r))
	if r == "" {
		return "", fmt.Errorf("route 不能为空")
	}
	// 最小约束：避免路径穿越；route 名称本身是枚举。
	if !routeNameRE.MatchString(r) {
		return "", fmt.Errorf("非法 route：%q", r)
	}
	return r, nil
}

// cleanKey 把任意 key（id、查询词、genre_page 等）压成安全的文件名。
func cleanKey(k string) string {
	k = keyUnsafeRE.ReplaceAllString(strings.TrimSpace(k), "_")
	k = strings.Trim(k, "_")
	if len(k) > 120 {
		k = k[:120]
	}
	return k
}
