package urlx

import (
	"net/url"
	"strings"
)

// Normalizer 把站点里出现的相对/代理链接还原为绝对 URL。
//
// Origin 形如 https://www.dramabox.com（只含 scheme + host，不带结尾 '/'）。
type Normalizer struct {
	Origin string
}

func NewNormalizer(origin string) Normalizer {
	return Normalizer{Origin: strings.TrimRight(strings.TrimSpace(origin), "/")}
}

// Normalize 规则：
// - 空串：失败
// - //host/...：补 https:
// - /path：拼接 Origin
// - 其他：原样返回
func (n Normalizer) Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "//") {
		return "https:" + s, true
	}
	if strings.HasPrefix(s, "/") {
		return n.Origin + s, true
	}
	return s, true
}

// NormalizeImage 先拆掉 Next.js 的图片代理包装（/_next/image?url=<编码后的目标>），再做 Normalize。
// 不拆的话输出的是与部署实例绑定、短期有效的代理地址，而不是源站图片。
//
// 结果必须是 http(s) 地址：data: 占位图、"default" 这类裸词一律视为没有图。
func (n Normalizer) NormalizeImage(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if inner, ok := unwrapImageProxy(s); ok {
		s = inner
	}
	u, ok := n.Normalize(s)
	if !ok || !IsHTTP(u) {
		return "", false
	}
	return u, true
}

// Resolve 把页面内的 href 解析为绝对 URL（去掉 fragment）。
// "//" 与 "/" 开头的链接走 Normalize；其余相对链接以 pageURL 为基准解析。
func (n Normalizer) Resolve(pageURL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}

	abs := href
	switch {
	case strings.HasPrefix(href, "//"), strings.HasPrefix(href, "/"):
		abs, _ = n.Normalize(href)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	default:
		bu, err := url.Parse(strings.TrimSpace(pageURL))
		if err != nil || bu.Scheme == "" {
			return "", false
		}
		ru, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		abs = bu.ResolveReference(ru).String()
	}

	u, err := url.Parse(abs)
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

func unwrapImageProxy(s string) (string, bool) {
	if !strings.Contains(s, "/_next/image") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if !strings.HasSuffix(u.Path, "/_next/image") {
		return "", false
	}
	// Query().Get 已经完成了百分号解码。
	target := strings.TrimSpace(u.Query().Get("url"))
	if target == "" {
		return "", false
	}
	return target, true
}

// IsHTTP 判断 s 是否以 http:// 或 https:// 开头（大小写不敏感）。
func IsHTTP(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
