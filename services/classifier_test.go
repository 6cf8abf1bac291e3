package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackCategoryFromTitle(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"뮤지컬 빨래", CategoryMusical},
		{"죽여주는 이야기: 살인 사건", CategoryHorrorThriller},
		{"옥탑방 고양이의 첫 사랑", CategoryRomance},
		{"빵 터지는 코믹극", CategoryComedy},
		{"Funny Business", CategoryComedy},
		{"가족 이야기", CategoryDrama},
		{"햄릿", CategoryOthers},
		{"", CategoryOthers},
	}
	for _, tt := range tests {
		if got := FallbackCategoryFromTitle(tt.title); got != tt.want {
			t.Errorf("FallbackCategoryFromTitle(%q) = %q; want %q", tt.title, got, tt.want)
		}
	}
}

func TestKeywordClassifierOrderAndCustomTable(t *testing.T) {
	c := NewKeywordClassifier([]KeywordSet{
		{CategoryTragedy, []string{"Sad Story"}},
		{CategoryComedy, []string{"story"}},
	})
	assert.Equal(t, CategoryTragedy, c.Classify("A   sad   STORY"))
	assert.Equal(t, CategoryComedy, c.Classify("another story"))
	assert.Equal(t, CategoryOthers, c.Classify("nothing"))
}

func TestKeywordClassifierAlwaysCanonical(t *testing.T) {
	for _, title := range []string{"뮤지컬", "x", "사랑과 공포", "  "} {
		assert.True(t, IsCanonicalCategory(FallbackCategoryFromTitle(title)))
	}
}
