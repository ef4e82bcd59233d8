package urlx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const origin = "https://www.dramabox.com"

func TestNormalizeImage(t *testing.T) {
	n := NewNormalizer(origin + "/")

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"//cdn.x/a.jpg", "https://cdn.x/a.jpg", true},
		{"/img/a.jpg", origin + "/img/a.jpg", true},
		{origin + "/_next/image?url=https%3A%2F%2Fcdn.x%2Fa.jpg&w=200", "https://cdn.x/a.jpg", true},
		{"/_next/image?w=384&q=75&url=%2Fstatic%2Fcover.png", origin + "/static/cover.png", true},
		{"/_next/image?url=%2F%2Fcdn.x%2Fb.webp", "https://cdn.x/b.webp", true},
		{"https://cdn.x/c.jpg", "https://cdn.x/c.jpg", true},
		{"  ", "", false},
		{"", "", false},
		{"data:image/gif;base64,R0lGOD", "", false},
		{"default", "", false},
		{"/_next/image?url=data%3Aimage%2Fpng%3Bbase64%2CAAAA", "", false},
	}
	for _, c := range cases {
		got, ok := n.NormalizeImage(c.in)
		assert.Equalf(t, c.ok, ok, "输入 %q", c.in)
		assert.Equalf(t, c.want, got, "输入 %q", c.in)
	}
}

func TestNormalize_NoProxyUnwrap(t *testing.T) {
	n := NewNormalizer(origin)
	raw := "/_next/image?url=https%3A%2F%2Fcdn.x%2Fa.jpg"
	got, ok := n.Normalize(raw)
	assert.True(t, ok)
	assert.Equal(t, origin+raw, got)
}

func TestResolve(t *testing.T) {
	n := NewNormalizer(origin)
	page := origin + "/in/browse/0/1"

	got, ok := n.Resolve(page, "/in/drama/1/x#top")
	assert.True(t, ok)
	assert.Equal(t, origin+"/in/drama/1/x", got)

	got, ok = n.Resolve(page, "../../drama/2/y")
	assert.True(t, ok)
	assert.Equal(t, origin+"/in/drama/2/y", got)

	got, ok = n.Resolve(page, origin+"/in/drama/1/x")
	assert.True(t, ok)
	assert.Equal(t, origin+"/in/drama/1/x", got)

	for _, bad := range []string{"", "#", "javascript:void(0)", "mailto:a@b"} {
		_, ok := n.Resolve(page, bad)
		assert.Falsef(t, ok, "输入 %q", bad)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Love In The Moonlight!":     "Love-In-The-Moonlight",
		"  a   b\t c ":               "a-b-c",
		"Cinta & Dendam -- Part 2":   "Cinta-Dendam-Part-2",
		"---":                        SlugPlaceholder,
		"":                           SlugPlaceholder,
		"我的妻子":                       SlugPlaceholder,
		"CEO's Secret Wife (Dubbed)": "CEO-s-Secret-Wife-Dubbed",
	}
	for in, want := range cases {
		assert.Equalf(t, want, Slugify(in), "输入 %q", in)
	}
}

func TestLinks(t *testing.T) {
	l := NewLinks(origin+"/", "/in/")
	assert.Equal(t, origin+"/in/drama/41000102902/Love-In-The-Moonlight", l.Drama("41000102902", "Love In The Moonlight!"))
	assert.Equal(t, origin+"/in/video/41_My-Wife/700_Episode-1", l.Video("41", "My Wife", "700", "Episode 1"))
	assert.Equal(t, origin+"/in/browse/0/1", l.Browse("0", 1))
	assert.Equal(t, origin+"/in/search", l.Search())

	bare := NewLinks(origin, "")
	assert.Equal(t, origin+"/drama/1/x", bare.Drama("1", "x"))
}
