package urlx

import (
	"strconv"
	"strings"
)

// Links 构造对外输出的规范链接。
//
// Root 是站点链接根（origin + 可选的语言段），例如 https://www.dramabox.com/in。
type Links struct {
	Root string
}

func NewLinks(origin, locale string) Links {
	root := strings.TrimRight(strings.TrimSpace(origin), "/")
	locale = strings.Trim(strings.TrimSpace(locale), "/")
	if locale != "" {
		root += "/" + locale
	}
	return Links{Root: root}
}

// Drama: {root}/drama/{id}/{slug(title)}
func (l Links) Drama(id, title string) string {
	return l.Root + "/drama/" + id + "/" + Slugify(title)
}

// Video: {root}/video/{bookId}_{slug(title)}/{episodeId}_{slug(episodeName)}
func (l Links) Video(bookID, title, episodeID, episodeName string) string {
	return l.Root + "/video/" + bookID + "_" + Slugify(title) + "/" + episodeID + "_" + Slugify(episodeName)
}

// Browse: {root}/browse/{genre}/{page}
func (l Links) Browse(genreID string, page int) string {
	return l.Root + "/browse/" + genreID + "/" + strconv.Itoa(page)
}

// Search: {root}/search（关键词走 query 参数）
func (l Links) Search() string {
	return l.Root + "/search"
}
