package entity

import (
	"strconv"

	"github.com/John-Robertt/dramabox-extract/internal/domain"
	"github.com/John-Robertt/dramabox-extract/internal/jsontree"
	"github.com/John-Robertt/dramabox-extract/internal/urlx"
)

// 字段别名：顺序即优先级，第一个非空者胜出。
// 不同部署之间的字段漂移统一在这里吸收，不按版本分支。
var (
	CatalogIDKeys    = []string{"bookId", "id"}
	CatalogTitleKeys = []string{"bookName", "title", "name"}
	SynopsisKeys     = []string{"introduction", "desc", "summary"}

	EpisodeIDKeys   = []string{"chapterId", "id"}
	EpisodeNameKeys = []string{"chapterName", "name"}
	ParentIDKeys    = []string{"bookId"}
	LockedKeys      = []string{"isLocked"}

	GenreIDKeys   = []string{"genreId", "typeId", "id"}
	GenreNameKeys = []string{"genreName", "typeName", "name"}
)

// Mapper 把异构记录映射为规范实体。
type Mapper struct {
	Links  urlx.Links
	Thumbs ThumbnailResolver
}

func NewMapper(origin, locale string) Mapper {
	return Mapper{
		Links:  urlx.NewLinks(origin, locale),
		Thumbs: ThumbnailResolver{Norm: urlx.NewNormalizer(origin)},
	}
}

// ToCatalogItems：缺 id 或 title 的记录直接跳过（不是错误）；CanonicalURL 重复时保留先出现者。
func (m Mapper) ToCatalogItems(records []jsontree.Value) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if !rec.IsMap() {
			continue
		}
		id := rec.FirstText(CatalogIDKeys...)
		title := rec.FirstText(CatalogTitleKeys...)
		if id == "" || title == "" {
			continue
		}
		link := m.Links.Drama(id, title)
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}

		thumb, _ := m.Thumbs.Pick(rec)
		out = append(out, domain.CatalogItem{
			ID:           id,
			Title:        title,
			ThumbnailURL: thumb,
			CanonicalURL: link,
		})
	}
	return out
}

// ToEpisodes：缺 id 的记录跳过；父 id 优先取记录自身的 bookId，否则用 fallbackParentID
// （通常解析自请求 URL）；两者都没有时无法构造播放页链接，同样跳过。
// 没有名称的集按输出序号命名为 "Episode N"。
func (m Mapper) ToEpisodes(records []jsontree.Value, fallbackParentID, parentTitle string) []domain.Episode {
	out := make([]domain.Episode, 0, len(records))
	for _, rec := range records {
		if !rec.IsMap() {
			continue
		}
		id := rec.FirstText(EpisodeIDKeys...)
		if id == "" {
			continue
		}
		parent := rec.FirstText(ParentIDKeys...)
		if parent == "" {
			parent = fallbackParentID
		}
		if parent == "" {
			continue
		}
		name := rec.FirstText(EpisodeNameKeys...)
		if name == "" {
			name = "Episode " + strconv.Itoa(len(out)+1)
		}
		out = append(out, domain.Episode{
			ID:           id,
			Name:         name,
			VideoPageURL: m.Links.Video(parent, parentTitle, id, name),
			Locked:       rec.FirstFlag(LockedKeys...),
		})
	}
	return out
}

// ToGenres：结果首项永远是 All（id "0"）；id 重复时保留先出现者。
func (m Mapper) ToGenres(records []jsontree.Value) []domain.Genre {
	out := make([]domain.Genre, 0, len(records)+1)
	out = append(out, domain.Genre{ID: domain.AllGenreID, Name: domain.AllGenreName})
	seen := map[string]struct{}{domain.AllGenreID: {}}
	for _, rec := range records {
		if !rec.IsMap() {
			continue
		}
		id := rec.FirstText(GenreIDKeys...)
		name := rec.FirstText(GenreNameKeys...)
		if id == "" || name == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, domain.Genre{ID: id, Name: name})
	}
	return out
}
