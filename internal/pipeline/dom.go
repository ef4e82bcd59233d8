package pipeline

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/dramabox-extract/internal/document"
)

// Link 是 DOM 层从一个 <a> 上得到的候选条目。
type Link struct {
	URL       string   // 绝对 URL（已去 fragment）
	Groups    []string // Route 在 URL path 上的子匹配（Groups[0] 为整体匹配）
	Title     string
	Thumbnail string
}

// 标题候选：按顺序取第一个有文本的后代元素。
var titleSelectors = []string{
	"h1, h2, h3, h4, h5, h6",
	"[class*='title']",
	"[class*='name']",
	"p",
	"span",
}

var imageAttrs = []string{"src", "data-src", "data-original"}

// ScanLinks 扫描页面上所有 path 匹配 route 的 <a href>。
//
// 约束：
// - 按绝对 URL 去重，先出现者保留（相对与绝对写法指向同一地址时只算一条）
// - 既没有标题也没有缩略图的条目直接丢弃，且不占用去重名额
func (p Pipeline) ScanLinks(doc *document.Document, pageURL string, route *regexp.Regexp) []Link {
	if doc == nil || doc.HTML == nil || route == nil {
		return nil
	}
	var out []Link
	seen := map[string]struct{}{}
	doc.HTML.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, ok := p.Norm.Resolve(pageURL, href)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		u, err := url.Parse(abs)
		if err != nil {
			return
		}
		groups := route.FindStringSubmatch(u.Path)
		if groups == nil {
			return
		}

		l := Link{URL: abs, Groups: groups, Title: anchorTitle(a), Thumbnail: p.anchorImage(a)}
		if l.Title == "" && l.Thumbnail == "" {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, l)
	})
	return out
}

func anchorTitle(a *goquery.Selection) string {
	for _, sel := range titleSelectors {
		var t string
		a.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t = collapse(s.Text())
			return t == ""
		})
		if t != "" {
			return t
		}
	}
	if alt, ok := a.Find("img[alt]").First().Attr("alt"); ok {
		if alt = collapse(alt); alt != "" {
			return alt
		}
	}
	if title, ok := a.Attr("title"); ok {
		if title = collapse(title); title != "" {
			return title
		}
	}
	return collapse(a.Text())
}

// anchorImage 取 <a> 内最近的图片；没有时看父元素（卡片布局常把图片放在链接旁边），但不越过 <body>。
func (p Pipeline) anchorImage(a *goquery.Selection) string {
	if u := p.imageOf(a.Find("img").First()); u != "" {
		return u
	}
	parent := a.Parent()
	switch goquery.NodeName(parent) {
	case "", "body", "html":
		return ""
	}
	return p.imageOf(parent.Find("img").First())
}

func (p Pipeline) imageOf(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range imageAttrs {
		v, ok := img.Attr(attr)
		if !ok {
			continue
		}
		if u, ok := p.Norm.NormalizeImage(v); ok {
			return u
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
