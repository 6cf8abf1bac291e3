// Package api serves the stored plays over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/services"
	"github.com/Re-Local/Backend/utils"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
	imageCacheControl  = "public, max-age=86400, s-maxage=86400"
)

// errBlockedHost is returned by the proxy dialer for non-public addresses.
var errBlockedHost = errors.New("image proxy: host is not public")

// PlayReader is the read side of storage.PlayStore.
type PlayReader interface {
	FetchAll(ctx context.Context) ([]models.Play, error)
	Search(ctx context.Context, query string, limit int) ([]models.Play, error)
}

// Config holds what the handlers need to know about the scraped site.
type Config struct {
	SiteURL   string // Referer/Origin sent for images hosted on the site
	UserAgent string
	Timeout   time.Duration
}

// Server wires HTTP handlers to the play store.
type Server struct {
	router    chi.Router
	store     PlayReader
	logger    *utils.Logger
	client    *http.Client
	cfg       Config
	siteHosts *regexp.Regexp

	// allowIP decides which resolved addresses the image proxy may dial.
	allowIP func(ip net.IP) bool
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store PlayReader, cfg Config, logger *utils.Logger) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	s := &Server{
		store:     store,
		logger:    logger.With("component", "api"),
		cfg:       cfg,
		siteHosts: siteHostPattern(cfg.SiteURL),
		allowIP:   publicIP,
	}
	s.client = s.proxyClient()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(middleware.Timeout(cfg.Timeout))

	r.Get("/health", s.health)
	r.Get("/api/play", s.listPlays)
	r.Get("/api/search", s.searchPlays)
	r.Get("/image-proxy", s.imageProxy)
	r.NotFound(s.notFound)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listPlays(w http.ResponseWriter, r *http.Request) {
	plays, err := s.store.FetchAll(r.Context())
	if err != nil {
		s.logger.Error("[api] list plays: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load plays")
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: present(plays)})
}

func (s *Server) searchPlays(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, itemsResponse{Items: []services.PlayView{}})
		return
	}

	plays, err := s.store.Search(r.Context(), q, searchLimit(r.URL.Query().Get("limit")))
	if err != nil {
		s.logger.Error("[api] search %q: %v", q, err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: present(plays)})
}

// searchLimit parses the limit parameter; missing or non-positive values
// select the default and large ones are capped.
func searchLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return defaultSearchLimit
	}
	return min(n, maxSearchLimit)
}

// imageProxy streams a poster through this server so browsers are not
// refused by the site's hotlink protection.
func (s *Server) imageProxy(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "Missing url", http.StatusBadRequest)
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		http.Error(w, "Bad url", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		http.Error(w, "Bad url", http.StatusBadRequest)
		return
	}
	origin := s.refererFor(target)
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	req.Header.Set("Referer", origin)
	req.Header.Set("Origin", origin)

	resp, err := s.client.Do(req)
	if errors.Is(err, errBlockedHost) {
		s.logger.Warn("[api] image proxy refused %s", target)
		http.Error(w, "Forbidden host", http.StatusForbidden)
		return
	}
	if err != nil {
		s.logger.Warn("[api] image proxy %s: %v", target, err)
		http.Error(w, "Bad gateway (proxy failed)", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		http.Error(w, fmt.Sprintf("Upstream %d", resp.StatusCode), resp.StatusCode)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	if n := resp.Header.Get("Content-Length"); n != "" {
		w.Header().Set("Content-Length", n)
	}
	w.Header().Set("Cache-Control", imageCacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Warn("[api] image proxy copy %s: %v", target, err)
	}
}

// proxyClient checks every address the proxy connects to, after DNS
// resolution and on each redirect hop.
func (s *Server) proxyClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !s.allowIP(ip) {
				return errBlockedHost
			}
			return nil
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: s.cfg.Timeout, Transport: transport}
}

// publicIP rejects loopback, private, link-local, multicast and unspecified
// addresses.
func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified())
}

func (s *Server) refererFor(target *url.URL) string {
	if s.siteHosts != nil && s.siteHosts.MatchString(target.Hostname()) {
		return strings.TrimRight(s.cfg.SiteURL, "/") + "/"
	}
	return target.Scheme + "://" + target.Hostname() + "/"
}

// siteHostPattern matches the site's host and any of its subdomains.
func siteHostPattern(siteURL string) *regexp.Regexp {
	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)(^|\.)` + regexp.QuoteMeta(u.Hostname()) + `$`)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found", "path": r.URL.RequestURI()})
}

func present(plays []models.Play) []services.PlayView {
	views := make([]services.PlayView, 0, len(plays))
	for _, p := range plays {
		views = append(views, services.PresentPlay(p))
	}
	return views
}

type itemsResponse struct {
	Items []services.PlayView `json:"items"`
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("[api] %s %s %d %dms req=%s",
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds(), middleware.GetReqID(r.Context()))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("[api] panic recovered on %s: %v", r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
