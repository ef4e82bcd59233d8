package jsontree

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// maxDepth 限制嵌套深度，避免恶意/异常页面把递归打爆。
const maxDepth = 512

// ParseError 表示内嵌 JSON 无法解析。
// 上层（document）会吸收该错误并回退到 DOM，不会向外传播。
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "内嵌 JSON 解析失败：" + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Parse 把 JSON 文本解析为保序的 Value 树。
//
// 使用 jsoniter 的流式 Iterator 逐 token 构造，而不是先 Unmarshal 到 map[string]any：
// 后者会丢失键顺序，先序遍历的结果将不再稳定。
func Parse(data []byte) (Value, error) {
	iter := jsoniter.ParseBytes(jsoniter.ConfigDefault, data)
	v := readValue(iter, 0)
	if err := iterErr(iter); err != nil {
		return Value{}, &ParseError{Err: err}
	}
	if iter.WhatIsNext() != jsoniter.InvalidValue {
		return Value{}, &ParseError{Err: errors.New("JSON 之后存在多余内容")}
	}
	return v, nil
}

func iterErr(iter *jsoniter.Iterator) error {
	if iter.Error == nil || errors.Is(iter.Error, io.EOF) {
		return nil
	}
	return iter.Error
}

func readValue(iter *jsoniter.Iterator, depth int) Value {
	if depth > maxDepth {
		iter.ReportError("readValue", fmt.Sprintf("嵌套深度超过 %d", maxDepth))
		return Value{}
	}

	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return NullValue()
	case jsoniter.BoolValue:
		return BoolValue(iter.ReadBool())
	case jsoniter.NumberValue:
		return NumberValue(string(iter.ReadNumber()))
	case jsoniter.StringValue:
		return StringValue(iter.ReadString())
	case jsoniter.ArrayValue:
		items := make([]Value, 0, 8)
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			items = append(items, readValue(it, depth+1))
			return iterErr(it) == nil
		})
		return ListValue(items...)
	case jsoniter.ObjectValue:
		obj := Value{kind: Map, index: make(map[string]int, 8)}
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			obj.set(field, readValue(it, depth+1))
			return iterErr(it) == nil
		})
		return obj
	default:
		iter.ReportError("readValue", "无法识别的 JSON token")
		return Value{}
	}
}
