package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"로맨틱코미디", CategoryRomance},
		{"Romantic Comedy", CategoryRomance},
		{"코미디", CategoryComedy},
		{"  COMEDY ", CategoryComedy},
		{"공포/스릴러", CategoryHorrorThriller},
		{"Horror / Thriller", CategoryHorrorThriller},
		{"스릴러", CategoryHorrorThriller},
		{"추리", CategoryHorrorThriller},
		{"로맨스", CategoryRomance},
		{"드라마", CategoryDrama},
		{"비극", CategoryTragedy},
		{"뮤지컬", CategoryMusical},
		{"others", CategoryOthers},
		{"  전시  회 ", "전시 회"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCategoryIdempotent(t *testing.T) {
	inputs := []string{
		"로맨틱 코미디", "코미디", "공포 스릴러", "Horror/Thriller", "드라마", "비극",
		"뮤지컬", "Others", "아무거나", "  spaced   out  ", "Tragedy", "Musical", "Romance",
	}
	for _, in := range inputs {
		once := NormalizeCategory(in)
		assert.Equal(t, once, NormalizeCategory(once), "input %q", in)
	}
	for _, c := range Categories {
		assert.Equal(t, c, NormalizeCategory(c))
		assert.True(t, IsCanonicalCategory(c))
	}
	assert.False(t, IsCanonicalCategory("코미디"))
}

func TestExtractRightSideCategory(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Musical > Comedy", "Comedy"},
		{"뮤지컬ᐳ코미디", "코미디"},
		{"뮤지컬＞코미디", "코미디"},
		{"🗂️ 연극 > 코미디", "코미디"},
		{"연극 › 로맨스 › 로맨틱코미디", "로맨틱코미디"},
		{"• 연극 ▶ 공포/스릴러 | 대학로", "공포/스릴러"},
		{"대학로\n연극 〉 드라마\n15,000원", "드라마"},
		{"no breadcrumb here", ""},
		{"Roadshow > 코미디", ""},
		{"display > Comedy", ""},
		{"Playground > Drama", ""},
		{"Show > Comedy", "Comedy"},
		{"Theatre>Drama", "Drama"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractRightSideCategory(tt.in); got != tt.want {
			t.Errorf("ExtractRightSideCategory(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractThenNormalize(t *testing.T) {
	assert.Equal(t, CategoryComedy, NormalizeCategory(ExtractRightSideCategory("뮤지컬ᐳ코미디")))
	assert.Equal(t, CategoryComedy, NormalizeCategory(ExtractRightSideCategory("Musical > Comedy")))
	assert.Equal(t, CategoryHorrorThriller, NormalizeCategory(ExtractRightSideCategory("연극＞공포／스릴러")))
}
