package route

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Drama(t *testing.T) {
	ref, err := Classify("https://www.dramabox.com/in/drama/41000102902/Love-In-The-Moonlight")
	require.NoError(t, err)
	assert.Equal(t, KindDrama, ref.Kind)
	assert.Equal(t, "41000102902", ref.BookID)
	assert.Equal(t, "Love-In-The-Moonlight", ref.Slug)
}

func TestClassify_Video(t *testing.T) {
	ref, err := Classify("https://www.dramabox.com/in/video/41000102902_Love-In-The-Moonlight/700012345_Episode-1")
	require.NoError(t, err)
	assert.Equal(t, KindVideo, ref.Kind)
	assert.Equal(t, "41000102902", ref.BookID)
	assert.Equal(t, "700012345", ref.EpisodeID)
}

func TestClassify_BrowseAndSearch(t *testing.T) {
	ref, err := Classify("https://www.dramabox.com/in/browse/12")
	require.NoError(t, err)
	assert.Equal(t, KindBrowse, ref.Kind)
	assert.Equal(t, "12", ref.GenreID)
	assert.Equal(t, "1", ref.Page)

	ref, err = Classify("https://www.dramabox.com/in/search?searchValue=ceo%20wife")
	require.NoError(t, err)
	assert.Equal(t, KindSearch, ref.Kind)
	assert.Equal(t, "ceo wife", ref.Query)
}

func TestClassify_Unmatched(t *testing.T) {
	for _, in := range []string{
		"https://www.dramabox.com/in/about",
		"/in/drama/1/x",
		"ftp://www.dramabox.com/in/drama/1/x",
	} {
		_, err := Classify(in)
		var ue *UnmatchedError
		assert.Truef(t, errors.As(err, &ue), "期望 UnmatchedError，输入 %q 实际 %v", in, err)
	}
}

func TestTitleFromSlug(t *testing.T) {
	assert.Equal(t, "Love In The Moonlight", TitleFromSlug("Love-In-The-Moonlight"))
	assert.Equal(t, "", TitleFromSlug(""))
}
