package pipeline

import (
	"regexp"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/dramabox-extract/internal/document"
	"github.com/John-Robertt/dramabox-extract/internal/domain"
	"github.com/John-Robertt/dramabox-extract/internal/jsontree"
	"github.com/John-Robertt/dramabox-extract/internal/urlx"
)

// Attempt 记录一层抽取的结果（用于解释为什么落到了 DOM 层）。
// 注意：这是内部执行轨迹，不直接写入输出（由上层决定如何呈现）。
type Attempt struct {
	Tier  string // domain.SourceJSON / domain.SourceDOM
	Count int
	Err   error // 仅 JSON 层：内嵌数据缺失或解析失败的原因
}

// Plan 描述一种实体的两层抽取方式。
//
// JSON 层：Records 非 nil 时用它定位记录列表，否则按 Signature 找最大的匹配列表；
// 然后交给 FromRecords 映射。
// DOM 层：扫描路径匹配 Route 的 <a>，交给 FromLinks 映射。Route 为 nil 时不做 DOM 回退。
type Plan[T any] struct {
	Signature   jsontree.Signature
	Records     func(tree jsontree.Value) ([]jsontree.Value, bool)
	FromRecords func(records []jsontree.Value) []T

	Route     *regexp.Regexp
	FromLinks func(links []Link) []T
}

// Result 是一次抽取的产出。Source 为 json / dom / none。
type Result[T any] struct {
	Items    []T
	Source   string
	Attempts []Attempt
}

// Pipeline 持有两层共享的依赖。零值可用（此时相对链接无法补全 origin）。
type Pipeline struct {
	Norm urlx.Normalizer
	Log  zerolog.Logger
}

func New(origin string, log zerolog.Logger) Pipeline {
	return Pipeline{Norm: urlx.NewNormalizer(origin), Log: log}
}

// Extract 先走 JSON 层，结果非空即返回；否则（内嵌数据缺失/损坏/为空）才扫描 DOM。
// 层的顺序固定：JSON 存在且有结果时永远优先，即使页面上同时有可用的链接。
func Extract[T any](p Pipeline, doc *document.Document, pageURL string, plan Plan[T]) Result[T] {
	var res Result[T]
	if doc == nil {
		res.Source = domain.SourceNone
		return res
	}

	items, at := fromJSON(doc, plan)
	res.Attempts = append(res.Attempts, at)
	if len(items) > 0 {
		p.Log.Debug().Str("page", pageURL).Int("count", len(items)).Msg("JSON 层命中")
		res.Items = items
		res.Source = domain.SourceJSON
		return res
	}
	if at.Err != nil {
		p.Log.Debug().Str("page", pageURL).Err(at.Err).Msg("内嵌数据不可用，回退 DOM")
	}

	if plan.Route != nil && plan.FromLinks != nil && doc.HTML != nil {
		links := p.ScanLinks(doc, pageURL, plan.Route)
		items = plan.FromLinks(links)
		res.Attempts = append(res.Attempts, Attempt{Tier: domain.SourceDOM, Count: len(items)})
		if len(items) > 0 {
			p.Log.Debug().Str("page", pageURL).Int("count", len(items)).Msg("DOM 层命中")
			res.Items = items
			res.Source = domain.SourceDOM
			return res
		}
	}

	res.Source = domain.SourceNone
	return res
}

func fromJSON[T any](doc *document.Document, plan Plan[T]) ([]T, Attempt) {
	at := Attempt{Tier: domain.SourceJSON}
	if !doc.HasData {
		at.Err = doc.DataErr
		return nil, at
	}
	if plan.FromRecords == nil {
		return nil, at
	}

	var (
		records []jsontree.Value
		ok      bool
	)
	if plan.Records != nil {
		records, ok = plan.Records(doc.Data)
	} else if len(plan.Signature) > 0 {
		records, ok = jsontree.FindListBySignature(doc.Data, plan.Signature)
	}
	if !ok {
		return nil, at
	}
	items := plan.FromRecords(records)
	at.Count = len(items)
	return items, at
}
