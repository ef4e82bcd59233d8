package jsontree

import "strings"

// Kind 是 Value 的类型标签。
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	List
	Map
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// Value 是来自站点的无 schema JSON 节点（tagged union）。
//
// 约束：
// - Map 保留文档中的键顺序（先序遍历的“第一个”依赖该顺序）
// - Number 保存原始字面量，不做 float64 转换（长整型 id 不能丢精度）
// - 零值是 Null
type Value struct {
	kind    Kind
	b       bool
	s       string
	list    []Value
	members []Member
	index   map[string]int
}

// Member 是 Map 中的一个键值对。
type Member struct {
	Key   string
	Value Value
}

func NullValue() Value             { return Value{} }
func BoolValue(b bool) Value       { return Value{kind: Bool, b: b} }
func NumberValue(lit string) Value { return Value{kind: Number, s: lit} }
func StringValue(s string) Value   { return Value{kind: String, s: s} }

func ListValue(items ...Value) Value {
	return Value{kind: List, list: items}
}

// MapValue 按给定顺序构造 Map；重复键保留首次出现的位置、采用最后一次的值（与 encoding/json 一致）。
func MapValue(members ...Member) Value {
	v := Value{kind: Map, members: make([]Member, 0, len(members)), index: make(map[string]int, len(members))}
	for _, m := range members {
		v.set(m.Key, m.Value)
	}
	return v
}

func (v *Value) set(key string, val Value) {
	if i, ok := v.index[key]; ok {
		v.members[i].Value = val
		return
	}
	v.index[key] = len(v.members)
	v.members = append(v.members, Member{Key: key, Value: val})
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == Null }
func (v Value) IsMap() bool   { return v.kind == Map }
func (v Value) IsList() bool  { return v.kind == List }
func (v Value) List() []Value { return v.list }

func (v Value) Members() []Member { return v.members }

// Len 返回 List 元素数或 Map 成员数；标量为 0。
func (v Value) Len() int {
	switch v.kind {
	case List:
		return len(v.list)
	case Map:
		return len(v.members)
	default:
		return 0
	}
}

// Get 读取 Map 的某个键；非 Map 永远返回 false。
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Map {
		return Value{}, false
	}
	i, ok := v.index[key]
	if !ok {
		return Value{}, false
	}
	return v.members[i].Value, true
}

func (v Value) Str() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.b, true
}

// Number 返回数字的原始字面量。
func (v Value) Number() (string, bool) {
	if v.kind != Number {
		return "", false
	}
	return v.s, true
}

// Text 把标量转成字符串（String 原样、Number 字面量、Bool 为 true/false）；容器与 Null 为空串。
func (v Value) Text() string {
	switch v.kind {
	case String, Number:
		return v.s
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// FirstText 按顺序尝试 keys，返回第一个非空（trim 后）的标量文本。
// 这是“字段别名”的唯一实现：顺序即优先级。
func (v Value) FirstText(keys ...string) string {
	for _, k := range keys {
		f, ok := v.Get(k)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(f.Text()); s != "" {
			return s
		}
	}
	return ""
}

// FirstFlag 按顺序读取布尔别名；接受 true、数字 1、字符串 "true"/"1"。缺失视为 false。
func (v Value) FirstFlag(keys ...string) bool {
	for _, k := range keys {
		f, ok := v.Get(k)
		if !ok || f.IsNull() {
			continue
		}
		switch f.kind {
		case Bool:
			return f.b
		case Number:
			return f.s == "1"
		case String:
			s := strings.ToLower(strings.TrimSpace(f.s))
			return s == "true" || s == "1"
		default:
			return false
		}
	}
	return false
}
