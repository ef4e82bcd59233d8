package route

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind 是站点的路由形态（有限枚举）。
type Kind string

const (
	KindDrama  Kind = "drama"
	KindVideo  Kind = "video"
	KindBrowse Kind = "browse"
	KindSearch Kind = "search"
)

// 路径形态（语言段可有可无，例如 /in/drama/...）：
//
//	/drama/{bookId}/{slug}
//	/video/{bookId}_{slug}/{chapterId}_{slug}
//	/browse/{genreId}/{page}
//	/search?searchValue=...
var (
	DramaPathRE  = regexp.MustCompile(`/drama/([0-9A-Za-z]+)(?:/([^/?#]*))?/?$`)
	VideoPathRE  = regexp.MustCompile(`/video/([0-9A-Za-z]+)(?:_[^/?#]*)?/([0-9A-Za-z]+)(?:_[^/?#]*)?/?$`)
	BrowsePathRE = regexp.MustCompile(`/browse/([0-9]+)(?:/([0-9]+))?/?$`)
	searchPathRE = regexp.MustCompile(`/search/?$`)
)

// Ref 是从 URL 中解析出的路由与标识。
type Ref struct {
	Kind Kind
	URL  string

	BookID    string // drama / video
	Slug      string // drama
	EpisodeID string // video
	GenreID   string // browse
	Page      string // browse
	Query     string // search
}

// UnmatchedError 表示 URL 不属于任何已知路由形态。
type UnmatchedError struct {
	URL    string
	Reason string
}

func (e *UnmatchedError) Error() string {
	if e.Reason != "" {
		return "无法识别的页面 URL：" + e.Reason + "：" + e.URL
	}
	return "无法识别的页面 URL：" + e.URL
}

// Classify 把绝对 URL 归类到已知路由，并提取其中的 id。
func Classify(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, &UnmatchedError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Ref{}, &UnmatchedError{URL: raw, Reason: "必须是 http/https 绝对地址"}
	}

	p := u.Path
	if m := VideoPathRE.FindStringSubmatch(p); m != nil {
		return Ref{Kind: KindVideo, URL: raw, BookID: m[1], EpisodeID: m[2]}, nil
	}
	if m := DramaPathRE.FindStringSubmatch(p); m != nil {
		return Ref{Kind: KindDrama, URL: raw, BookID: m[1], Slug: m[2]}, nil
	}
	if m := BrowsePathRE.FindStringSubmatch(p); m != nil {
		page := m[2]
		if page == "" {
			page = "1"
		}
		return Ref{Kind: KindBrowse, URL: raw, GenreID: m[1], Page: page}, nil
	}
	if searchPathRE.MatchString(p) {
		return Ref{Kind: KindSearch, URL: raw, Query: u.Query().Get("searchValue")}, nil
	}
	return Ref{}, &UnmatchedError{URL: raw}
}

// TitleFromSlug 把 URL 里的 slug 还原成可读标题（'-' -> 空格）。
func TitleFromSlug(slug string) string {
	s, err := url.PathUnescape(slug)
	if err != nil {
		s = slug
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "-", " ")), " ")
}
