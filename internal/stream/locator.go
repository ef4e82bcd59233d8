package stream

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/dramabox-extract/internal/domain"
	"github.com/John-Robertt/dramabox-extract/internal/entity"
	"github.com/John-Robertt/dramabox-extract/internal/jsontree"
	"github.com/John-Robertt/dramabox-extract/internal/urlx"
)

// 候选播放字段（按优先级）。
var candidateKeys = []string{"m3u8", "m3u8Url", "url", "videoUrl", "src"}

// 找不到 id 匹配的记录时，退回到键名含 chapterInfo/videoInfo 的第一条记录（也认 chapterInfoVo 这类变体）。
var singularKeyRE = regexp.MustCompile(`(?i)(chapterInfo|videoInfo)`)

// Locate 解析目标集的播放地址，同时返回定位到的记录（没有记录时为零值）。
//
// 约束：
// - 记录不存在：NotFound
// - isLocked=true：直接返回 Locked，且永远不输出 URL（即使记录里同时带了地址）
// - 候选字段里第一个 http(s) 字符串胜出；一个都没有：RegionOrSchemaMismatch（与 NotFound 区分）
func Locate(tree jsontree.Value, target string) (domain.StreamResult, jsontree.Value) {
	rec, ok := record(tree, target)
	if !ok {
		return NotFound(), jsontree.Value{}
	}
	return fromRecord(rec), rec
}

// record 先找 id 别名等于 target 的 Map；找不到再取单数键下的第一条记录。
func record(tree jsontree.Value, target string) (jsontree.Value, bool) {
	target = strings.TrimSpace(target)
	if target != "" {
		rec, ok := jsontree.Find(tree, func(_ string, v jsontree.Value) bool {
			return v.IsMap() && v.FirstText(entity.EpisodeIDKeys...) == target
		})
		if ok {
			return rec, true
		}
	}

	// 键名放宽之后，chapterInfoUrl 这类字符串字段也会命中，只认能给出记录的值。
	v, ok := jsontree.Find(tree, func(key string, v jsontree.Value) bool {
		if key == "" || !singularKeyRE.MatchString(key) {
			return false
		}
		_, ok := firstRecord(v)
		return ok
	})
	if !ok {
		return jsontree.Value{}, false
	}
	return firstRecord(v)
}

func firstRecord(v jsontree.Value) (jsontree.Value, bool) {
	if v.IsMap() {
		return v, true
	}
	if v.IsList() {
		for _, it := range v.List() {
			if it.IsMap() {
				return it, true
			}
		}
	}
	return jsontree.Value{}, false
}

func fromRecord(rec jsontree.Value) domain.StreamResult {
	if rec.FirstFlag(entity.LockedKeys...) {
		return domain.StreamResult{Format: domain.FormatNone, Locked: true, Status: domain.StreamLocked}
	}
	for _, k := range candidateKeys {
		f, ok := rec.Get(k)
		if !ok {
			continue
		}
		s, ok := f.Str()
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if !urlx.IsHTTP(s) {
			continue
		}
		return domain.StreamResult{URL: s, Format: Classify(s), Status: domain.StreamAvailable}
	}
	return domain.StreamResult{Format: domain.FormatNone, Status: domain.StreamRegionOrSchemaMismatch}
}

// NotFound 是“没有任何记录”的结果。
func NotFound() domain.StreamResult {
	return domain.StreamResult{Format: domain.FormatNone, Status: domain.StreamNotFound}
}

// Classify 按子串优先级判断格式：.m3u8 > .mp4 > unknown。
func Classify(u string) domain.StreamFormat {
	l := strings.ToLower(u)
	switch {
	case strings.Contains(l, ".m3u8"):
		return domain.FormatM3U8
	case strings.Contains(l, ".mp4"):
		return domain.FormatMP4
	default:
		return domain.FormatUnknown
	}
}
