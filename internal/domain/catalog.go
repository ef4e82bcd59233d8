package domain

// Source 标记结果来自哪一层抽取。
const (
	SourceJSON = "json"
	SourceDOM  = "dom"
	SourceNone = "none"
)

// CatalogItem 是一个可列出的剧集条目。
//
// 约束：ID 与 Title 非空；同一结果集中 CanonicalURL 唯一（先出现者保留）。
type CatalogItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	CanonicalURL string `json:"url"`
}

// Episode 是剧集下的一集。
type Episode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	VideoPageURL string `json:"url"`
	Locked       bool   `json:"is_locked"`
}

// Genre 是分类；ID "0" 的 All 永远存在。
type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	AllGenreID   = "0"
	AllGenreName = "All"
)

// CatalogPage 是 browse/search/home 的结果。
type CatalogPage struct {
	PageURL string        `json:"page_url"`
	Query   string        `json:"query,omitempty"`
	GenreID string        `json:"genre_id,omitempty"`
	Page    int           `json:"page,omitempty"`
	Source  string        `json:"source"`
	Count   int           `json:"count"`
	Items   []CatalogItem `json:"data"`
}

// GenreList 是分类列表结果。
type GenreList struct {
	PageURL string  `json:"page_url"`
	Source  string  `json:"source"`
	Genres  []Genre `json:"data"`
}

// DramaDetail 是详情页结果（含完整剧集列表）。
type DramaDetail struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Synopsis     string    `json:"synopsis"`
	ThumbnailURL string    `json:"poster,omitempty"`
	CanonicalURL string    `json:"url"`
	PageURL      string    `json:"page_url"`
	Source       string    `json:"source"`
	EpisodeCount int       `json:"total_episodes_found"`
	Episodes     []Episode `json:"episodes"`
}

// EpisodePage 是单集播放页结果。
type EpisodePage struct {
	BookID    string       `json:"book_id"`
	EpisodeID string       `json:"episode_id"`
	Name      string       `json:"episode_title"`
	PageURL   string       `json:"page_url"`
	Source    string       `json:"source"`
	Stream    StreamResult `json:"stream"`
}
