package timeticket

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/utils"
)

const base = "https://timeticket.co.kr"

func testExtractorConfig() ExtractorConfig {
	cfg := DefaultExtractorConfig(base)
	cfg.NavTimeout = time.Second
	cfg.LabelTimeout = 50 * time.Millisecond
	cfg.SnapshotTimeout = time.Second
	cfg.TabSettle = 0
	return cfg
}

func newTestExtractor(strategies []LabelStrategy) *Extractor {
	return NewExtractor(testExtractorConfig(), strategies, utils.NewNopLogger())
}

func TestExtractInlineLabels(t *testing.T) {
	url := base + "/product/101"
	page := newFakePage()
	page.pages[url] = `<html><head><title>[대학로] 옥탑방 고양이 - 타임티켓</title>
		<meta property="og:image" content="/upload/101.jpg"></head><body>
		<div class="genre">연극 > 코미디</div>
		<ul class="info"><li>공연장 : 대학로 아트홀</li><li>주소: 서울 종로구 대학로 12길 3</li></ul>
		<script>var map = new kakao.maps.Map(el, {center: new kakao.maps.LatLng(37.5823, 127.0019)});</script>
		</body></html>`

	ext, err := newTestExtractor(nil).Extract(context.Background(), page, models.Seed{DetailURL: url})
	require.NoError(t, err)

	assert.Equal(t, url, ext.DetailURL)
	assert.Equal(t, "옥탑방 고양이", ext.Title)
	assert.Equal(t, "Comedy", ext.Category)
	assert.Equal(t, base+"/upload/101.jpg", ext.PosterURL)
	assert.Equal(t, "대학로 아트홀", ext.VenueName)
	assert.Equal(t, "서울 종로구 대학로 12길 3", ext.Address)
	require.NotNil(t, ext.Lat)
	require.NotNil(t, ext.Lng)
	assert.InDelta(t, 37.5823, *ext.Lat, 1e-9)
	assert.InDelta(t, 127.0019, *ext.Lng, 1e-9)
	assert.Empty(t, page.clicks, "no tab click when labels resolve")
}

func TestExtractTermPairsAndSeedPrecedence(t *testing.T) {
	url := base + "/product/102"
	page := newFakePage()
	page.pages[url] = `<html><head><title>다른 제목</title>
		<meta property="og:image" content="https://cdn.example.com/og.jpg"></head><body>
		<dl><dt>장르</dt><dd>연극 > 공포</dd><dt>장소</dt><dd>두산아트센터 연강홀</dd></dl>
		<table><tr><th>주소</th><td>서울 종로구 종로33길 15</td></tr></table>
		<div id="map" data-lat="37.5707" data-lng="127.0056"></div>
		</body></html>`

	seed := models.Seed{
		DetailURL: url,
		Title:     "[오픈런] 스위니 토드",
		Category:  "Musical",
		PosterURL: base + "/seed.jpg",
		Sale:      "30%",
		Price:     "14,000원",
		Stars:     "4.8",
	}

	ext, err := newTestExtractor(nil).Extract(context.Background(), page, seed)
	require.NoError(t, err)
	assert.Equal(t, "스위니 토드", ext.Title)
	assert.Equal(t, "30%", ext.Sale, "listing badges carry through")
	assert.Equal(t, "14,000원", ext.Price)
	assert.Equal(t, "4.8", ext.Stars)
	assert.Equal(t, "Musical", ext.Category, "seed category wins over the page genre")
	assert.Equal(t, "https://cdn.example.com/og.jpg", ext.PosterURL)
	assert.Equal(t, "두산아트센터 연강홀", ext.VenueName)
	assert.Equal(t, "서울 종로구 종로33길 15", ext.Address)
	require.NotNil(t, ext.Lat)
	assert.InDelta(t, 37.5707, *ext.Lat, 1e-9)

	cfg := testExtractorConfig()
	cfg.PreferSeedPoster = true
	ext, err = NewExtractor(cfg, nil, utils.NewNopLogger()).Extract(context.Background(), page, seed)
	require.NoError(t, err)
	assert.Equal(t, base+"/seed.jpg", ext.PosterURL)

	seed.Category = ""
	ext, err = newTestExtractor(nil).Extract(context.Background(), page, seed)
	require.NoError(t, err)
	assert.Equal(t, "Horror/Thriller", ext.Category, "labelled genre is used without a seed category")
}

func TestExtractOpensLocationTab(t *testing.T) {
	url := base + "/product/103"
	page := newFakePage()
	page.pages[url] = `<html><head><title>햄릿</title></head><body>
		<div class="tabs"><a>상세정보</a><a>장소</a></div>
		<div class="tag">비극</div>
		<p>공연 소개</p></body></html>`
	page.afterTab[url] = `<html><head><title>장소 안내</title></head><body>
		<ul><li>장소: 예술의전당 CJ 토월극장</li><li>주소: 서울 서초구 남부순환로 2406</li></ul>
		<script>var pos = {lat: 37.4786, lng: 127.0115};</script></body></html>`

	ext, err := newTestExtractor(nil).Extract(context.Background(), page, models.Seed{DetailURL: url})
	require.NoError(t, err)

	assert.Equal(t, []string{"장소"}, page.clicks)
	assert.Equal(t, "햄릿", ext.Title, "title is read before the click")
	assert.Equal(t, "Tragedy", ext.Category, "category is read before the click")
	assert.Equal(t, "예술의전당 CJ 토월극장", ext.VenueName)
	assert.Equal(t, "서울 서초구 남부순환로 2406", ext.Address)
	require.NotNil(t, ext.Lat)
	assert.InDelta(t, 37.4786, *ext.Lat, 1e-9)
	assert.InDelta(t, 127.0115, *ext.Lng, 1e-9)
}

func TestExtractCSSFallbacksAndPartialCoordinates(t *testing.T) {
	url := base + "/product/104"
	page := newFakePage()
	page.pages[url] = `<html><head></head><body>
		<h1>  라면  </h1>
		<div class="poster"><img data-original="/img/104.jpg" src="/blank.gif"></div>
		<span class="place">대학로 자유극장</span>
		<p class="addr">서울 종로구 동숭길 123</p>
		<div data-lat="37.5"></div>
		<script>var pos = {lat: 37.5};</script></body></html>`

	ext, err := newTestExtractor(nil).Extract(context.Background(), page, models.Seed{DetailURL: url})
	require.NoError(t, err)

	assert.Equal(t, "라면", ext.Title)
	assert.Empty(t, ext.Category)
	assert.Equal(t, base+"/img/104.jpg", ext.PosterURL)
	assert.Equal(t, "대학로 자유극장", ext.VenueName)
	assert.Equal(t, "서울 종로구 동숭길 123", ext.Address)
	assert.Nil(t, ext.Lat, "a lone latitude is discarded")
	assert.Nil(t, ext.Lng)
}

func TestExtractNavigationError(t *testing.T) {
	url := base + "/product/105"
	page := newFakePage()
	page.navErr[url] = errors.New("net::ERR_CONNECTION_RESET")

	_, err := newTestExtractor(nil).Extract(context.Background(), page, models.Seed{DetailURL: url})
	require.Error(t, err)
	assert.Contains(t, err.Error(), url)
}

// An unresponsive venue lookup must not stall the page: the extractor moves
// on and still fills every other field.
func TestExtractSurvivesUnresponsiveVenueLookup(t *testing.T) {
	url := base + "/product/106"
	page := newFakePage()
	page.pages[url] = `<html><head><title>셜록홈즈</title></head><body>
		<ul><li>공연장: 절대 안 나오는 극장</li><li>주소: 서울 종로구 대학로8가길 85</li></ul>
		<script>new kakao.maps.LatLng(37.583, 127.003)</script></body></html>`

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	venueLabels := DefaultExtractorConfig(base).VenueLabels
	hang := func(ctx context.Context, p Page, label string) (string, error) {
		if slices.Contains(venueLabels, label) {
			<-release
			return "too late", nil
		}
		return DocumentStrategy(ListItemValue)(ctx, p, label)
	}

	start := time.Now()
	ext, err := newTestExtractor([]LabelStrategy{hang}).Extract(context.Background(), page, models.Seed{DetailURL: url})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Empty(t, ext.VenueName)
	assert.Equal(t, "셜록홈즈", ext.Title)
	assert.Equal(t, "서울 종로구 대학로8가길 85", ext.Address)
	require.NotNil(t, ext.Lat)
	assert.InDelta(t, 37.583, *ext.Lat, 1e-9)
}
