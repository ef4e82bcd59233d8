package jsontree

import "regexp"

// sampleSize 是计算列表键集合时采样的元素个数。
const sampleSize = 10

// Signature 描述目标记录列表必须具备的键：外层为 AND，内层为 OR。
//
// 例如 Signature{{"id", "bookId"}, {"title", "bookName", "name"}} 表示
// (有 id 或 bookId) 且 (有 title 或 bookName 或 name)。
type Signature [][]string

// Match 判断键集合是否满足签名；空签名不匹配任何东西。
func (s Signature) Match(keys map[string]struct{}) bool {
	if len(s) == 0 {
		return false
	}
	for _, group := range s {
		hit := false
		for _, k := range group {
			if _, ok := keys[k]; ok {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// FindListBySignature 在整棵树里找出所有“元素全为 Map 且采样键集合满足签名”的列表，
// 返回元素最多的那个（并列时取先序位置更靠前者）。
//
// 页面里常同时存在“推荐”短列表和真正的结果列表，按规模挑选可以不依赖 schema 版本。
func FindListBySignature(root Value, sig Signature) ([]Value, bool) {
	var best []Value
	found := false
	Walk(root, func(_ string, v Value) Action {
		if v.kind != List || len(v.list) == 0 {
			return Continue
		}
		if !allMaps(v.list) {
			return Continue
		}
		if !sig.Match(sampleKeys(v.list)) {
			return Continue
		}
		if !found || len(v.list) > len(best) {
			best, found = v.list, true
		}
		return Continue
	})
	return best, found
}

// FindValueByKeyPattern 返回先序遍历中第一个“自身键匹配 pattern”的值（跳过 null）。
// pattern 的大小写敏感性由调用方在正则里决定（通常带 (?i)）。
func FindValueByKeyPattern(root Value, pattern *regexp.Regexp) (Value, bool) {
	return Find(root, func(key string, v Value) bool {
		return key != "" && !v.IsNull() && pattern.MatchString(key)
	})
}

// FindRecordByKeyPattern 与 FindValueByKeyPattern 相同，但只接受 Map 值。
func FindRecordByKeyPattern(root Value, pattern *regexp.Regexp) (Value, bool) {
	return Find(root, func(key string, v Value) bool {
		return key != "" && v.kind == Map && pattern.MatchString(key)
	})
}

// FindListByKeyPattern 返回第一个键匹配 pattern、且元素全为 Map 的非空列表。
func FindListByKeyPattern(root Value, pattern *regexp.Regexp) ([]Value, bool) {
	v, ok := Find(root, func(key string, v Value) bool {
		return key != "" && v.kind == List && len(v.list) > 0 && allMaps(v.list) && pattern.MatchString(key)
	})
	if !ok {
		return nil, false
	}
	return v.list, true
}

func allMaps(items []Value) bool {
	for _, it := range items {
		if it.kind != Map {
			return false
		}
	}
	return true
}

func sampleKeys(items []Value) map[string]struct{} {
	n := len(items)
	if n > sampleSize {
		n = sampleSize
	}
	keys := make(map[string]struct{}, 16)
	for _, it := range items[:n] {
		for _, m := range it.members {
			keys[m.Key] = struct{}{}
		}
	}
	return keys
}
