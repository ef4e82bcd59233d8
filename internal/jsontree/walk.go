package jsontree

// Action 控制 Walk 的下一步。
type Action uint8

const (
	// Continue 继续深入当前节点的子树。
	Continue Action = iota
	// SkipChildren 不深入当前节点，继续遍历兄弟节点。
	SkipChildren
	// Stop 立即结束整个遍历。
	Stop
)

// Visitor 在先序遍历中对每个节点调用一次。
// key 是节点在父 Map 中的键；根节点与 List 元素的 key 为空串。
type Visitor func(key string, v Value) Action

// Walk 以深度优先、先序的方式遍历 root。
// Map 成员按文档顺序访问，List 元素按下标顺序访问。
func Walk(root Value, visit Visitor) {
	walk("", root, visit)
}

func walk(key string, v Value, visit Visitor) bool {
	switch visit(key, v) {
	case Stop:
		return false
	case SkipChildren:
		return true
	}
	switch v.kind {
	case List:
		for _, item := range v.list {
			if !walk("", item, visit) {
				return false
			}
		}
	case Map:
		for _, m := range v.members {
			if !walk(m.Key, m.Value, visit) {
				return false
			}
		}
	}
	return true
}

// Find 返回先序遍历中第一个满足 pred 的节点。
func Find(root Value, pred func(key string, v Value) bool) (Value, bool) {
	var (
		found Value
		ok    bool
	)
	Walk(root, func(key string, v Value) Action {
		if pred(key, v) {
			found, ok = v, true
			return Stop
		}
		return Continue
	})
	return found, ok
}

// Strings 按先序收集所有字符串叶子。
func Strings(root Value) []string {
	out := make([]string, 0, 16)
	Walk(root, func(_ string, v Value) Action {
		if s, ok := v.Str(); ok {
			out = append(out, s)
		}
		return Continue
	})
	return out
}
