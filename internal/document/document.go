package document

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/dramabox-extract/internal/jsontree"
)

// DataElementID 是内嵌数据 <script> 的稳定 id（按 id 定位，不按位置）。
const DataElementID = "__NEXT_DATA__"

// ErrNoData 表示页面没有内嵌数据元素，或元素内容为空。
var ErrNoData = errors.New("页面没有内嵌数据")

// Document 是一次解析的结果：元素树 + 可选的内嵌 JSON 树。
type Document struct {
	HTML *goquery.Document

	// Data 仅在 HasData=true 时有效。
	Data    jsontree.Value
	HasData bool

	// DataErr 记录内嵌 JSON 缺失/解析失败的原因，仅供诊断；它不是失败，只是 DOM 回退的触发条件。
	DataErr error
}

// Parse 把原始 HTML 解析为 Document。
// 只有 HTML 本身无法读取时才返回错误；内嵌 JSON 的问题一律吸收到 DataErr。
func Parse(html []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	d := &Document{HTML: doc}

	sel := doc.Find("script#" + DataElementID).First()
	if sel.Length() == 0 {
		d.DataErr = ErrNoData
		return d, nil
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		d.DataErr = ErrNoData
		return d, nil
	}

	v, err := jsontree.Parse([]byte(text))
	if err != nil {
		d.DataErr = err
		return d, nil
	}
	d.Data = v
	d.HasData = true
	return d, nil
}

// MetaContent 读取 <meta property|name=key content=...>，找不到时返回空串。
func (d *Document) MetaContent(key string) string {
	if d == nil || d.HTML == nil {
		return ""
	}
	for _, sel := range []string{"meta[property='" + key + "']", "meta[name='" + key + "']"} {
		if c, ok := d.HTML.Find(sel).First().Attr("content"); ok {
			if c = strings.TrimSpace(c); c != "" {
				return c
			}
		}
	}
	return ""
}
