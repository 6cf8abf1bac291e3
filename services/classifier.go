package services

import (
	"strings"
	"unicode"
)

// Classifier derives a canonical category from a play title.
type Classifier interface {
	Classify(title string) string
}

// KeywordSet binds one category to the keywords that imply it.
type KeywordSet struct {
	Category string
	Keywords []string
}

// KeywordClassifier checks each KeywordSet in order and returns the first
// category whose keyword occurs in the title. Titles and keywords are
// compared with whitespace removed and case folded.
type KeywordClassifier struct {
	sets []KeywordSet
}

// NewKeywordClassifier creates a classifier over the given ordered table.
func NewKeywordClassifier(sets []KeywordSet) *KeywordClassifier {
	normalized := make([]KeywordSet, 0, len(sets))
	for _, s := range sets {
		kws := make([]string, 0, len(s.Keywords))
		for _, k := range s.Keywords {
			if k = squash(k); k != "" {
				kws = append(kws, k)
			}
		}
		normalized = append(normalized, KeywordSet{Category: s.Category, Keywords: kws})
	}
	return &KeywordClassifier{sets: normalized}
}

// Classify returns the first matching category, or Others.
func (k *KeywordClassifier) Classify(title string) string {
	t := squash(title)
	if t == "" {
		return CategoryOthers
	}
	for _, s := range k.sets {
		for _, kw := range s.Keywords {
			if strings.Contains(t, kw) {
				return s.Category
			}
		}
	}
	return CategoryOthers
}

// DefaultKeywords is the curated title keyword table, checked top to bottom.
var DefaultKeywords = []KeywordSet{
	{CategoryMusical, []string{"뮤지컬", "musical"}},
	{CategoryHorrorThriller, []string{
		"공포", "호러", "스릴러", "살인", "귀신", "유령", "미스터리", "추리", "괴담", "좀비", "저주",
		"horror", "thriller", "mystery", "ghost", "murder",
	}},
	{CategoryRomance, []string{
		"사랑", "연애", "로맨스", "로맨틱", "러브", "키스", "고백", "첫사랑", "결혼", "썸",
		"love", "romance", "romantic", "kiss",
	}},
	{CategoryComedy, []string{
		"코미디", "코메디", "웃음", "개그", "유쾌", "빵터지는", "코믹", "웃긴", "폭소",
		"comedy", "funny", "comic",
	}},
	{CategoryTragedy, []string{"비극", "눈물", "이별", "죽음", "tragedy"}},
	{CategoryDrama, []string{"드라마", "가족", "인생", "감동", "휴먼", "drama", "family"}},
}

var defaultClassifier = NewKeywordClassifier(DefaultKeywords)

// FallbackCategoryFromTitle classifies title with DefaultKeywords.
func FallbackCategoryFromTitle(title string) string {
	return defaultClassifier.Classify(title)
}

func squash(s string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}
