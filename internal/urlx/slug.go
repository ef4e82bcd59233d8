package urlx

import (
	"regexp"
	"strings"
)

// SlugPlaceholder 是 slug 为空时使用的固定占位符。
const SlugPlaceholder = "untitled"

var hyphenRunRE = regexp.MustCompile(`-+`)

// Slugify 生成 URL 路径段：保留大小写；[A-Za-z0-9-] 以外的字符（含空白）一律变成 '-'，
// 连续 '-' 合并为一个，首尾 '-' 去掉；结果为空时返回 SlugPlaceholder。
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := hyphenRunRE.ReplaceAllString(b.String(), "-")
	out = strings.Trim(out, "-")
	if out == "" {
		return SlugPlaceholder
	}
	return out
}
