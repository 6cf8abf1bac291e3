package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/services"
	"github.com/Re-Local/Backend/storage"
	"github.com/Re-Local/Backend/utils"
)

func seededStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for i, p := range []models.Play{
		{Title: "[대학로] 라면 - 타임티켓", Category: "🗂️ 연극 > 코미디", Location: models.Location{VenueName: "대학로 자유극장"}},
		{Title: "햄릿", Category: "Tragedy", Location: models.Location{Address: "서울 종로구 대학로 12길"}},
		{Title: "Hamlet: The Musical", Category: "전시"},
	} {
		p.DetailURL = "https://timeticket.co.kr/product/" + string(rune('1'+i))
		require.NoError(t, store.Upsert(ctx, p))
	}
	return store
}

func newTestServer(t *testing.T, store PlayReader) *Server {
	t.Helper()
	return NewServer(store, Config{
		SiteURL:   "https://timeticket.co.kr",
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
	}, utils.NewNopLogger())
}

// allowLoopback lets the image proxy reach httptest servers.
func allowLoopback(s *Server) *Server {
	s.allowIP = func(net.IP) bool { return true }
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeItems(t *testing.T, rec *httptest.ResponseRecorder) []services.PlayView {
	t.Helper()
	var body struct {
		Items []services.PlayView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Items)
	return body.Items
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, storage.NewMemoryStore()), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestListPlaysPresentsRecords(t *testing.T) {
	rec := get(t, newTestServer(t, seededStore(t)), "/api/play")
	require.Equal(t, http.StatusOK, rec.Code)

	items := decodeItems(t, rec)
	require.Len(t, items, 3)
	assert.Equal(t, "라면", items[0].Title)
	assert.Equal(t, "Comedy", items[0].Category)
	assert.Equal(t, "Tragedy", items[1].Category)
	assert.Equal(t, "Others", items[2].Category)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, seededStore(t))

	items := decodeItems(t, get(t, s, "/api/search?q=hamlet"))
	require.Len(t, items, 1)
	assert.Equal(t, "Hamlet: The Musical", items[0].Title)

	items = decodeItems(t, get(t, s, "/api/search?q="+url.QueryEscape("대학로")))
	assert.Len(t, items, 2, "venue and address both match")

	items = decodeItems(t, get(t, s, "/api/search?q="+url.QueryEscape("대학로")+"&limit=1"))
	assert.Len(t, items, 1)

	items = decodeItems(t, get(t, s, "/api/search?q=%20%20"))
	assert.Empty(t, items)
}

func TestSearchLimit(t *testing.T) {
	tests := map[string]int{"": 20, "abc": 20, "0": 20, "-3": 20, "5": 5, "50": 50, "500": 50}
	for raw, want := range tests {
		assert.Equal(t, want, searchLimit(raw), "limit=%q", raw)
	}
}

func TestNotFound(t *testing.T) {
	rec := get(t, newTestServer(t, storage.NewMemoryStore()), "/nope?x=1")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found","path":"/nope?x=1"}`, rec.Body.String())
}

type panickingReader struct{ storage.MemoryStore }

func (*panickingReader) FetchAll(context.Context) ([]models.Play, error) {
	panic("boom")
}

func TestPanicBecomes500(t *testing.T) {
	rec := get(t, newTestServer(t, &panickingReader{}), "/api/play")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}

func TestImageProxy(t *testing.T) {
	var gotReferer, gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/poster.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("PNGDATA"))
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	}))
	defer upstream.Close()

	s := allowLoopback(newTestServer(t, storage.NewMemoryStore()))

	rec := get(t, s, "/image-proxy?url="+url.QueryEscape(upstream.URL+"/poster.png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PNGDATA", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, imageCacheControl, rec.Header().Get("Cache-Control"))
	assert.Equal(t, "http://127.0.0.1/", gotReferer, "foreign hosts get their own origin")
	assert.Equal(t, "test-agent", gotUA)

	rec = get(t, s, "/image-proxy?url="+url.QueryEscape(upstream.URL+"/hotlinked.png"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upstream 403")
}

func TestImageProxyBadRequests(t *testing.T) {
	s := allowLoopback(newTestServer(t, storage.NewMemoryStore()))

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/image-proxy").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/image-proxy?url="+url.QueryEscape("ftp://x/y.png")).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/image-proxy?url=%25zz").Code)

	closed := httptest.NewServer(http.NotFoundHandler())
	addr := closed.URL
	closed.Close()
	assert.Equal(t, http.StatusBadGateway, get(t, s, "/image-proxy?url="+url.QueryEscape(addr+"/a.png")).Code)
}

func TestImageProxyRejectsNonPublicHosts(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("secret"))
	}))
	defer upstream.Close()

	s := newTestServer(t, storage.NewMemoryStore())
	for _, raw := range []string{
		upstream.URL + "/poster.png",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.7/a.png",
		"http://0.0.0.0/a.png",
	} {
		rec := get(t, s, "/image-proxy?url="+url.QueryEscape(raw))
		assert.Equal(t, http.StatusForbidden, rec.Code, raw)
		assert.NotContains(t, rec.Body.String(), "secret", raw)
	}
	assert.Zero(t, hits.Load(), "blocked hosts are never dialed")
}

func TestPublicIP(t *testing.T) {
	for raw, want := range map[string]bool{
		"8.8.8.8":         true,
		"211.43.201.10":   true,
		"2001:4860::8888": true,
		"127.0.0.1":       false,
		"10.1.2.3":        false,
		"172.16.0.1":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"0.0.0.0":         false,
		"::1":             false,
		"fe80::1":         false,
		"fd00::1":         false,
		"224.0.0.1":       false,
	} {
		assert.Equal(t, want, publicIP(net.ParseIP(raw)), raw)
	}
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t, storage.NewMemoryStore())
	const origin = "https://relocal.example"

	req := httptest.NewRequest(http.MethodGet, "/api/play", nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, []string{"*", origin}, rec.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	preflight.Header.Set("Origin", origin)
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, preflight)
	assert.Less(t, rec.Code, 300)
	assert.Contains(t, []string{"*", origin}, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)
}

func TestRefererFor(t *testing.T) {
	s := newTestServer(t, storage.NewMemoryStore())
	for raw, want := range map[string]string{
		"https://timeticket.co.kr/img/a.jpg":     "https://timeticket.co.kr/",
		"https://img.timeticket.co.kr/a.jpg":     "https://timeticket.co.kr/",
		"https://nottimeticket.co.kr/a.jpg":      "https://nottimeticket.co.kr/",
		"http://cdn.example.com:8080/poster.jpg": "http://cdn.example.com/",
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, s.refererFor(u), raw)
	}
}
