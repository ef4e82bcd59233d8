package dramabox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/dramabox-extract/internal/domain"
	"github.com/John-Robertt/dramabox-extract/internal/entity"
	"github.com/John-Robertt/dramabox-extract/internal/infra/snapshot"
	"github.com/John-Robertt/dramabox-extract/internal/pipeline"
	"github.com/John-Robertt/dramabox-extract/internal/provider"
	"github.com/John-Robertt/dramabox-extract/internal/route"
	"github.com/John-Robertt/dramabox-extract/internal/urlx"
)

const (
	DefaultBaseURL = "https://www.dramabox.com"
	DefaultLocale  = "in"
)

// 路由名（也是快照子目录名）。
const (
	RouteHome    = "home"
	RouteBrowse  = "browse"
	RouteSearch  = "search"
	RouteGenres  = "genres"
	RouteDrama   = "drama"
	RouteEpisode = "episode"
)

var (
	ErrEmptyQuery   = errors.New("搜索词不能为空")
	ErrInvalidGenre = errors.New("非法分类 id")

	genreIDRE = regexp.MustCompile(`^[0-9]+$`)
)

// Provider 实现 DramaBox 页面的抓取与解析。
//
// 约束：
// - Fetch 不做缓存/重试/限速（由 Fetcher 统一控制）
// - Parse* 必须是纯函数（只依赖 html + pageURL + BaseURL/Locale）
// - 所有输出链接以 {BaseURL}/{Locale} 为根
type Provider struct {
	BaseURL string
	Locale  string

	Fetcher   provider.Fetcher
	Snapshots snapshot.Store
	Log       zerolog.Logger
}

func (p *Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (p *Provider) locale() string {
	l := strings.Trim(strings.TrimSpace(p.Locale), "/")
	if l == "" {
		return DefaultLocale
	}
	return l
}

func (p *Provider) links() urlx.Links { return urlx.NewLinks(p.baseURL(), p.locale()) }

func (p *Provider) mapper() entity.Mapper { return entity.NewMapper(p.baseURL(), p.locale()) }

func (p *Provider) extractor() pipeline.Pipeline { return pipeline.New(p.baseURL(), p.Log) }

// Home 是首页目录：等价于 All 分类第 1 页。
func (p *Provider) Home(ctx context.Context) (domain.CatalogPage, error) {
	pageURL := p.links().Browse(domain.AllGenreID, 1)
	page, err := fetchParse(ctx, p, RouteHome, RouteHome, pageURL, nil, func(html []byte) (domain.CatalogPage, error) {
		return p.ParseCatalog(html, pageURL)
	})
	if err != nil {
		return domain.CatalogPage{}, err
	}
	page.GenreID, page.Page = domain.AllGenreID, 1
	return page, nil
}

// Browse 抓取分类目录的某一页。genreID 为空时视为 All，page<1 时视为 1。
func (p *Provider) Browse(ctx context.Context, genreID string, page int) (domain.CatalogPage, error) {
	genreID = strings.TrimSpace(genreID)
	if genreID == "" {
		genreID = domain.AllGenreID
	}
	if !genreIDRE.MatchString(genreID) {
		return domain.CatalogPage{}, fmt.Errorf("%w：%q", ErrInvalidGenre, genreID)
	}
	if page < 1 {
		page = 1
	}

	pageURL := p.links().Browse(genreID, page)
	key := genreID + "_" + strconv.Itoa(page)
	res, err := fetchParse(ctx, p, RouteBrowse, key, pageURL, nil, func(html []byte) (domain.CatalogPage, error) {
		return p.ParseCatalog(html, pageURL)
	})
	if err != nil {
		return domain.CatalogPage{}, err
	}
	res.GenreID, res.Page = genreID, page
	return res, nil
}

// Search 按关键词搜索（GET {root}/search?searchValue=<q>）；空关键词不发请求。
func (p *Provider) Search(ctx context.Context, query string) (domain.CatalogPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.CatalogPage{}, ErrEmptyQuery
	}

	q := url.Values{"searchValue": {query}}
	base := p.links().Search()
	pageURL := base + "?" + q.Encode()
	res, err := fetchParse(ctx, p, RouteSearch, query, base, q, func(html []byte) (domain.CatalogPage, error) {
		return p.ParseCatalog(html, pageURL)
	})
	if err != nil {
		return domain.CatalogPage{}, err
	}
	res.Query = query
	return res, nil
}

// Genres 抓取分类列表（All 分类第 1 页上的导航）。
func (p *Provider) Genres(ctx context.Context) (domain.GenreList, error) {
	pageURL := p.links().Browse(domain.AllGenreID, 1)
	return fetchParse(ctx, p, RouteGenres, RouteGenres, pageURL, nil, func(html []byte) (domain.GenreList, error) {
		return p.ParseGenres(html, pageURL)
	})
}

// Drama 抓取详情页（含完整剧集列表）。pageURL 必须是 /drama/{bookId}/{slug} 形态。
func (p *Provider) Drama(ctx context.Context, pageURL string) (domain.DramaDetail, error) {
	ref, err := expect(pageURL, route.KindDrama)
	if err != nil {
		return domain.DramaDetail{}, err
	}
	return fetchParse(ctx, p, RouteDrama, ref.BookID, ref.URL, nil, func(html []byte) (domain.DramaDetail, error) {
		return p.ParseDrama(html, ref.URL)
	})
}

// Episode 抓取单集播放页并定位播放地址。pageURL 必须是 /video/{bookId}_{slug}/{chapterId}_{slug} 形态。
func (p *Provider) Episode(ctx context.Context, pageURL string) (domain.EpisodePage, error) {
	ref, err := expect(pageURL, route.KindVideo)
	if err != nil {
		return domain.EpisodePage{}, err
	}
	return fetchParse(ctx, p, RouteEpisode, ref.BookID+"_"+ref.EpisodeID, ref.URL, nil, func(html []byte) (domain.EpisodePage, error) {
		return p.ParseEpisode(html, ref.URL)
	})
}

func expect(pageURL string, kind route.Kind) (route.Ref, error) {
	ref, err := route.Classify(pageURL)
	if err != nil {
		return route.Ref{}, err
	}
	if ref.Kind != kind {
		return route.Ref{}, &route.UnmatchedError{URL: ref.URL, Reason: fmt.Sprintf("期望 %s 页面，实际 %s", kind, ref.Kind)}
	}
	return ref, nil
}

// fetchParse 在 provider.FetchParse 之上追加快照；快照写失败只记日志。
func fetchParse[T any](ctx context.Context, p *Provider, routeName, key, pageURL string, query url.Values, parse func([]byte) (T, error)) (T, error) {
	v, html, err := provider.FetchParse(ctx, p.Fetcher, routeName, pageURL, query, parse)
	if p.Snapshots.Enabled() && html != nil {
		if werr := p.Snapshots.WriteDocument(routeName, key, html); werr != nil {
			p.Log.Warn().Err(werr).Str("route", routeName).Msg("写入页面快照失败")
		}
		if err == nil {
			if werr := p.Snapshots.WriteResult(routeName, key, v); werr != nil {
				p.Log.Warn().Err(werr).Str("route", routeName).Msg("写入结果快照失败")
			}
		}
	}
	return v, err
}
