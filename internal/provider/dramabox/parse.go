package dramabox

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/dramabox-extract/internal/document"
	"github.com/John-Robertt/dramabox-extract/internal/domain"
	"github.com/John-Robertt/dramabox-extract/internal/entity"
	"github.com/John-Robertt/dramabox-extract/internal/jsontree"
	"github.com/John-Robertt/dramabox-extract/internal/pipeline"
	"github.com/John-Robertt/dramabox-extract/internal/route"
	"github.com/John-Robertt/dramabox-extract/internal/stream"
	"github.com/John-Robertt/dramabox-extract/internal/urlx"
)

var (
	catalogSignature = jsontree.Signature{entity.CatalogIDKeys, entity.CatalogTitleKeys}
	genreSignature   = jsontree.Signature{{"genreId", "typeId"}, {"genreName", "typeName", "name"}}
	episodeSignature = jsontree.Signature{{"chapterId"}, {"chapterName", "name", "chapterIndex"}}

	// 键名在不同部署间会漂移（bookDetail、chapterListVo……），按包含匹配，值的形状由查找函数把关。
	genreListKeyRE   = regexp.MustCompile(`(?i)(genreList|typeList|categoryList)`)
	infoKeyRE        = regexp.MustCompile(`(?i)(bookInfo|dramaInfo|detail)`)
	episodeListKeyRE = regexp.MustCompile(`(?i)(chapterList|episodeList)`)
)

const unknownTitle = "Unknown"

// ParseCatalog 解析 browse/search 结果页。找不到任何条目不是错误：返回空列表，Source=none。
func (p *Provider) ParseCatalog(html []byte, pageURL string) (domain.CatalogPage, error) {
	doc, err := document.Parse(html)
	if err != nil {
		return domain.CatalogPage{}, err
	}

	m, links := p.mapper(), p.links()
	res := pipeline.Extract(p.extractor(), doc, pageURL, pipeline.Plan[domain.CatalogItem]{
		Signature:   catalogSignature,
		FromRecords: m.ToCatalogItems,
		Route:       route.DramaPathRE,
		FromLinks: func(ls []pipeline.Link) []domain.CatalogItem {
			return catalogFromLinks(links, ls)
		},
	})

	items := res.Items
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return domain.CatalogPage{
		PageURL: pageURL,
		Source:  res.Source,
		Count:   len(items),
		Items:   items,
	}, nil
}

// catalogFromLinks：标题缺失时用 URL slug 还原；仍为空则跳过。按规范链接去重。
func catalogFromLinks(links urlx.Links, ls []pipeline.Link) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(ls))
	seen := make(map[string]struct{}, len(ls))
	for _, l := range ls {
		id, title := l.Groups[1], l.Title
		if title == "" {
			title = route.TitleFromSlug(l.Groups[2])
		}
		if id == "" || title == "" {
			continue
		}
		canon := links.Drama(id, title)
		if _, ok := seen[canon]; ok {
			continue
		}
		seen[canon] = struct{}{}
		out = append(out, domain.CatalogItem{
			ID:           id,
			Title:        title,
			ThumbnailURL: l.Thumbnail,
			CanonicalURL: canon,
		})
	}
	return out
}

// ParseGenres 解析分类导航。结果首项永远是 All；一个分类都没找到时只有 All。
func (p *Provider) ParseGenres(html []byte, pageURL string) (domain.GenreList, error) {
	doc, err := document.Parse(html)
	if err != nil {
		return domain.GenreList{}, err
	}

	m := p.mapper()
	// ToGenres 总会带上 All；只有 All 时视为本层没有结果，才能触发回退。
	toGenres := func(recs []jsontree.Value) []domain.Genre {
		g := m.ToGenres(recs)
		if len(g) <= 1 {
			return nil
		}
		return g
	}

	res := pipeline.Extract(p.extractor(), doc, pageURL, pipeline.Plan[domain.Genre]{
		Records: func(tree jsontree.Value) ([]jsontree.Value, bool) {
			if l, ok := jsontree.FindListByKeyPattern(tree, genreListKeyRE); ok {
				return l, true
			}
			return jsontree.FindListBySignature(tree, genreSignature)
		},
		FromRecords: toGenres,
		Route:       route.BrowsePathRE,
		FromLinks: func(ls []pipeline.Link) []domain.Genre {
			recs := make([]jsontree.Value, 0, len(ls))
			for _, l := range ls {
				recs = append(recs, jsontree.MapValue(
					jsontree.Member{Key: "id", Value: jsontree.StringValue(l.Groups[1])},
					jsontree.Member{Key: "name", Value: jsontree.StringValue(l.Title)},
				))
			}
			return toGenres(recs)
		},
	})

	genres := res.Items
	if len(genres) == 0 {
		genres = []domain.Genre{{ID: domain.AllGenreID, Name: domain.AllGenreName}}
	}
	return domain.GenreList{PageURL: pageURL, Source: res.Source, Genres: genres}, nil
}

// ParseDrama 解析详情页。
//
// 规则：
// - 信息记录：键名匹配 bookInfo|dramaInfo|detail 的第一个 Map；缺失字段再看 <h1>/meta
// - 剧集：chapterList|episodeList 下的列表，否则按签名找最大的剧集列表，再否则扫描 /video/ 链接
// - 父 id：信息记录里的 id，否则取 URL 里的 bookId
func (p *Provider) ParseDrama(html []byte, pageURL string) (domain.DramaDetail, error) {
	ref, err := expect(pageURL, route.KindDrama)
	if err != nil {
		return domain.DramaDetail{}, err
	}
	doc, err := document.Parse(html)
	if err != nil {
		return domain.DramaDetail{}, err
	}

	m, links := p.mapper(), p.links()
	d := domain.DramaDetail{PageURL: pageURL}

	var (
		info    jsontree.Value
		hasInfo bool
		fromDOM bool
	)
	if doc.HasData {
		info, hasInfo = jsontree.FindRecordByKeyPattern(doc.Data, infoKeyRE)
	}
	if hasInfo {
		d.ID = info.FirstText(entity.CatalogIDKeys...)
		d.Title = info.FirstText(entity.CatalogTitleKeys...)
		d.Synopsis = info.FirstText(entity.SynopsisKeys...)
		d.ThumbnailURL, _ = m.Thumbs.Pick(info)
	}
	if d.ID == "" {
		d.ID = ref.BookID
	}
	if d.Title == "" {
		if t := domTitle(doc); t != "" {
			d.Title, fromDOM = t, true
		}
	}
	if d.Synopsis == "" {
		if s := firstMeta(doc, "og:description", "description"); s != "" {
			d.Synopsis, fromDOM = s, true
		}
	}
	if d.ThumbnailURL == "" {
		if u, ok := m.Thumbs.Norm.NormalizeImage(doc.MetaContent("og:image")); ok {
			d.ThumbnailURL, fromDOM = u, true
		}
	}
	if d.Title == "" {
		d.Title = route.TitleFromSlug(ref.Slug)
	}
	if d.Title == "" {
		d.Title = unknownTitle
	}

	res := pipeline.Extract(p.extractor(), doc, pageURL, pipeline.Plan[domain.Episode]{
		Records: func(tree jsontree.Value) ([]jsontree.Value, bool) {
			if l, ok := jsontree.FindListByKeyPattern(tree, episodeListKeyRE); ok {
				return l, true
			}
			return jsontree.FindListBySignature(tree, episodeSignature)
		},
		FromRecords: func(recs []jsontree.Value) []domain.Episode {
			return m.ToEpisodes(recs, d.ID, d.Title)
		},
		Route: route.VideoPathRE,
		FromLinks: func(ls []pipeline.Link) []domain.Episode {
			return episodesFromLinks(links, ls, d.ID, d.Title)
		},
	})

	d.Episodes = res.Items
	if d.Episodes == nil {
		d.Episodes = []domain.Episode{}
	}
	d.EpisodeCount = len(d.Episodes)
	d.CanonicalURL = links.Drama(d.ID, d.Title)
	switch {
	case hasInfo || res.Source == domain.SourceJSON:
		d.Source = domain.SourceJSON
	case fromDOM || res.Source == domain.SourceDOM:
		d.Source = domain.SourceDOM
	default:
		d.Source = domain.SourceNone
	}
	return d, nil
}

func episodesFromLinks(links urlx.Links, ls []pipeline.Link, parentID, parentTitle string) []domain.Episode {
	out := make([]domain.Episode, 0, len(ls))
	seen := make(map[string]struct{}, len(ls))
	for _, l := range ls {
		book, id := l.Groups[1], l.Groups[2]
		if book == "" {
			book = parentID
		}
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		name := l.Title
		if name == "" {
			name = "Episode " + strconv.Itoa(len(out)+1)
		}
		out = append(out, domain.Episode{
			ID:           id,
			Name:         name,
			VideoPageURL: links.Video(book, parentTitle, id, name),
		})
	}
	return out
}

// ParseEpisode 解析单集播放页：按 URL 里的 chapterId 定位记录，再交给 StreamLocator。
// 锁定的集照常返回（Stream.Locked=true，且没有 URL），不是错误。
func (p *Provider) ParseEpisode(html []byte, pageURL string) (domain.EpisodePage, error) {
	ref, err := expect(pageURL, route.KindVideo)
	if err != nil {
		return domain.EpisodePage{}, err
	}
	doc, err := document.Parse(html)
	if err != nil {
		return domain.EpisodePage{}, err
	}

	e := domain.EpisodePage{
		BookID:    ref.BookID,
		EpisodeID: ref.EpisodeID,
		PageURL:   pageURL,
		Source:    domain.SourceNone,
		Stream:    stream.NotFound(),
	}
	if doc.HasData {
		res, rec := stream.Locate(doc.Data, ref.EpisodeID)
		e.Stream = res
		if rec.IsMap() {
			e.Name = rec.FirstText(entity.EpisodeNameKeys...)
			e.Source = domain.SourceJSON
		}
	} else {
		p.Log.Debug().Err(doc.DataErr).Str("page", pageURL).Msg("播放页没有可用的内嵌数据")
	}
	if e.Name == "" {
		e.Name = domTitle(doc)
	}
	if e.Name == "" {
		e.Name = unknownTitle
	}
	p.Log.Debug().Str("page", pageURL).Str("status", string(e.Stream.Status)).Msg("播放地址定位完成")
	return e, nil
}

func domTitle(doc *document.Document) string {
	if t := strings.Join(strings.Fields(doc.HTML.Find("h1").First().Text()), " "); t != "" {
		return t
	}
	return doc.MetaContent("og:title")
}

func firstMeta(doc *document.Document, keys ...string) string {
	for _, k := range keys {
		if v := doc.MetaContent(k); v != "" {
			return v
		}
	}
	return ""
}
