package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Canonical categories. Every stored play carries one of these.
const (
	CategoryRomance        = "Romance"
	CategoryComedy         = "Comedy"
	CategoryDrama          = "Drama"
	CategoryHorrorThriller = "Horror/Thriller"
	CategoryTragedy        = "Tragedy"
	CategoryMusical        = "Musical"
	CategoryOthers         = "Others"
)

// Categories lists the closed taxonomy in display order.
var Categories = []string{
	CategoryRomance,
	CategoryComedy,
	CategoryDrama,
	CategoryHorrorThriller,
	CategoryTragedy,
	CategoryMusical,
	CategoryOthers,
}

type categoryRule struct {
	re       *regexp.Regexp
	category string
}

// Most specific first: the first matching rule wins.
var categoryRules = []categoryRule{
	{regexp.MustCompile(`로맨틱\s*코(미|메)디|romantic[\s-]*comed(y|ies)|rom-?com\b`), CategoryRomance},
	{regexp.MustCompile(`(공포|호러|horror)\s*[/&·,]?\s*(스릴러|thriller)`), CategoryHorrorThriller},
	{regexp.MustCompile(`로맨스|멜로|연애|romance|romantic|love\s*story`), CategoryRomance},
	{regexp.MustCompile(`공포|호러|스릴러|미스터리|추리|horror|thriller|mystery`), CategoryHorrorThriller},
	{regexp.MustCompile(`비극|tragedy|tragic`), CategoryTragedy},
	{regexp.MustCompile(`코미디|코메디|개그|희극|comedy|comic`), CategoryComedy},
	{regexp.MustCompile(`뮤지컬|musical`), CategoryMusical},
	{regexp.MustCompile(`드라마|감동|휴먼|drama`), CategoryDrama},
}

// NormalizeCategory maps free text onto the canonical taxonomy. When nothing
// matches the cleaned input is returned unchanged so the caller can apply a
// further fallback.
func NormalizeCategory(raw string) string {
	cleaned := CleanText(raw)
	lower := strings.ToLower(cleaned)
	for _, rule := range categoryRules {
		if rule.re.MatchString(lower) {
			return rule.category
		}
	}
	if strings.EqualFold(cleaned, CategoryOthers) {
		return CategoryOthers
	}
	return cleaned
}

// IsCanonicalCategory reports whether s is one of Categories.
func IsCanonicalCategory(s string) bool {
	for _, c := range Categories {
		if s == c {
			return true
		}
	}
	return false
}

var separatorReplacer = strings.NewReplacer(
	"\u1433", ">", "\u203a", ">", "\u3009", ">", "\u300b", ">", "\u232a", ">", "\u27e9", ">", "\u276f", ">",
	"▶", ">", "►", ">", "▸", ">", "→", ">", "»", ">",
	"∕", "/", "⁄", "/", "⧸", "/",
	"•", " ", "·", " ", "∙", " ", "●", " ", "◦", " ", "▪", " ", "ㆍ", " ",
)

// rootGenreRe matches one of the site's top-level genre labels followed by ">".
// English labels must be whole words so "Roadshow >" is not a breadcrumb.
var rootGenreRe = regexp.MustCompile(
	`(?i)(연극|뮤지컬|공연|콘서트|전시|클래식|무용|오페라|국악|아동|가족|\b(?:play|musical|theat(?:er|re)|concert|exhibition|show)\b)\s*>`)

// ExtractRightSideCategory finds a "<root genre> > <sub genre>" breadcrumb in
// text and returns the segment to the right of its last ">" separator.
// Visually equivalent separators are folded to ASCII first. It returns ""
// when no breadcrumb is present.
func ExtractRightSideCategory(text string) string {
	s := norm.NFKC.String(text)
	s = separatorReplacer.Replace(s)
	s = stripDecorations(s)

	for _, line := range strings.Split(s, "\n") {
		loc := rootGenreRe.FindStringIndex(line)
		if loc == nil {
			continue
		}
		rest := line[loc[1]:]
		if i := strings.LastIndex(rest, ">"); i >= 0 {
			rest = rest[i+1:]
		}
		if i := strings.IndexAny(rest, "|\t"); i >= 0 {
			rest = rest[:i]
		}
		if i := strings.Index(rest, "  "); i >= 0 {
			rest = rest[:i]
		}
		if out := CleanText(rest); out != "" {
			return out
		}
	}
	return ""
}

// stripDecorations drops emoji, pictographs and the invisible joiners and
// variation selectors that travel with them.
func stripDecorations(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\ufe0e':
			return -1
		case unicode.Is(unicode.So, r) || unicode.Is(unicode.Sk, r):
			return -1
		case unicode.Is(unicode.Cs, r) || unicode.Is(unicode.Co, r):
			return -1
		}
		return r
	}, s)
}
