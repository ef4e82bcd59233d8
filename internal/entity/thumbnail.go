package entity

import (
	"net/url"
	"path"
	"strings"

	"github.com/John-Robertt/dramabox-extract/internal/jsontree"
	"github.com/John-Robertt/dramabox-extract/internal/urlx"
)

// 已知的封面字段（按优先级）。
var thumbnailKeys = []string{
	"cover", "coverUrl", "coverWap", "bookCover", "bookCoverUrl",
	"poster", "posterUrl", "image", "imageUrl", "img",
	"imgUrl", "thumbnail", "thumbnailUrl", "thumb", "pic",
}

// 当封面字段本身是对象时，依次探测的子字段。
var nestedURLKeys = []string{"url", "src", "link", "path"}

var imageKeywords = []string{"cover", "poster", "thumb"}

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}, ".avif": {}, ".bmp": {},
}

// ThumbnailResolver 从一条记录里挑出最合适的一张图。
type ThumbnailResolver struct {
	Norm urlx.Normalizer
}

// Pick 三步走，先成功者胜出：
//  1. 已知字段（对象值则探测 url/src/link/path）
//  2. 所有字符串叶子里“像封面”（含 cover/poster/thumb 且是绝对或根相对地址）并带图片扩展名的
//  3. 任意带图片扩展名的 URL 形态叶子
func (r ThumbnailResolver) Pick(rec jsontree.Value) (string, bool) {
	if !rec.IsMap() {
		return "", false
	}

	for _, k := range thumbnailKeys {
		v, ok := rec.Get(k)
		if !ok {
			continue
		}
		if s, ok := v.Str(); ok {
			if u, ok := r.Norm.NormalizeImage(s); ok {
				return u, true
			}
			continue
		}
		if v.IsMap() {
			for _, sub := range nestedURLKeys {
				if s, ok := stringField(v, sub); ok {
					if u, ok := r.Norm.NormalizeImage(s); ok {
						return u, true
					}
				}
			}
		}
	}

	leaves := jsontree.Strings(rec)
	for _, s := range leaves {
		if !looksLikeURL(s) || !hasKeyword(s) {
			continue
		}
		if u, ok := r.imageURL(s); ok {
			return u, true
		}
	}
	for _, s := range leaves {
		if !looksLikeURL(s) {
			continue
		}
		if u, ok := r.imageURL(s); ok {
			return u, true
		}
	}
	return "", false
}

func (r ThumbnailResolver) imageURL(s string) (string, bool) {
	u, ok := r.Norm.NormalizeImage(s)
	if !ok || !HasImageExt(u) {
		return "", false
	}
	return u, true
}

func stringField(v jsontree.Value, key string) (string, bool) {
	f, ok := v.Get(key)
	if !ok {
		return "", false
	}
	s, ok := f.Str()
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func looksLikeURL(s string) bool {
	s = strings.TrimSpace(s)
	return urlx.IsHTTP(s) || strings.HasPrefix(s, "/")
}

func hasKeyword(s string) bool {
	l := strings.ToLower(s)
	for _, k := range imageKeywords {
		if strings.Contains(l, k) {
			return true
		}
	}
	return false
}

// HasImageExt 判断 URL 路径是否以常见图片扩展名结尾（忽略 query）。
func HasImageExt(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	_, ok := imageExts[strings.ToLower(path.Ext(p))]
	return ok
}
