// Package testutil provides a fake gallery site for package tests.
package testutil

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// Image is one page image served by the fake site.
type Image struct {
	Ext  string
	Data []byte
}

// Tag is a tag link on the landing page, e.g. {"/artist/x/", "x"}.
type Tag struct {
	Href  string
	Value string
}

// Gallery describes a gallery served by the fake site. Pages missing from
// Images answer 404 for every extension; pages in Broken drop the connection.
type Gallery struct {
	ID        string
	Name      string
	PageCount int
	Images    map[int]Image
	Tags      []Tag
	Broken    map[int]bool
}

// Server is an httptest server exposing /gallery/{id}/ and /g/{id}/{page}.{ext}.
type Server struct {
	*httptest.Server
	mu        sync.Mutex
	galleries map[string]*Gallery
	requests  map[string]int
	order     []string
}

// GeneratePage returns deterministic image bytes for a page.
func GeneratePage(page int, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i + page*7) % 256)
	}
	return data
}

// NewGallery builds a gallery whose pages 1..count are all JPEGs.
func NewGallery(id string, count int) *Gallery {
	g := &Gallery{
		ID:        id,
		Name:      "Gallery " + id,
		PageCount: count,
		Images:    make(map[int]Image),
		Broken:    make(map[int]bool),
	}
	for p := 1; p <= count; p++ {
		g.Images[p] = Image{Ext: "jpg", Data: GeneratePage(p, 512+p)}
	}
	return g
}

func StartServer(t *testing.T, galleries ...*Gallery) *Server {
	t.Helper()
	s := &Server{
		galleries: make(map[string]*Gallery),
		requests:  make(map[string]int),
	}
	for _, g := range galleries {
		s.galleries[g.ID] = g
	}
	r := mux.NewRouter()
	r.HandleFunc("/gallery/{id}/", s.handleLanding).Methods(http.MethodGet)
	r.HandleFunc("/g/{id}/{page:[0-9]+}.{ext}", s.handleImage).Methods(http.MethodGet)
	r.Use(s.countRequests)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Base is the gallery URL prefix accepted by the resolver.
func (s *Server) Base() string {
	return s.URL + "/gallery/"
}

func (s *Server) GalleryURL(id string) string {
	return s.Base() + id + "/"
}

// Requests reports how many requests hit path.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// Order returns every requested path in arrival order.
func (s *Server) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		s.order = append(s.order, r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	g, ok := s.galleries[mux.Vars(r)["id"]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, LandingPage(g))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	g, ok := s.galleries[vars["id"]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, _ := strconv.Atoi(vars["page"])
	if g.Broken[page] {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijack unsupported", http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}
	img, ok := g.Images[page]
	if !ok || img.Ext != vars["ext"] {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/"+img.Ext)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Write(img.Data)
}

// LandingPage renders the landing page markup for g.
func LandingPage(g *Gallery) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n<ul class=\"tags\">\n", html.EscapeString(g.Name))
	for _, tag := range g.Tags {
		fmt.Fprintf(&b, "<li><a href=\"%s\"><span class=\"item_name\">%s<span class=\"split_tag\">12</span></span></a></li>\n",
			html.EscapeString(tag.Href), html.EscapeString(tag.Value))
	}
	b.WriteString("</ul>\n<ul class=\"info\">\n")
	fmt.Fprintf(&b, "<li class=\"pages\">%d pages</li>\n</ul>\n", g.PageCount)
	first := firstImage(g)
	fmt.Fprintf(&b, "<img class=\"lazy preloader\" data-src=\"/g/%s/%s\" src=\"/blank.gif\">\n", g.ID, first)
	b.WriteString("</body></html>\n")
	return b.String()
}

func firstImage(g *Gallery) string {
	pages := make([]int, 0, len(g.Images))
	for p := range g.Images {
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		return "1t.jpg"
	}
	sort.Ints(pages)
	return fmt.Sprintf("%dt.%s", pages[0], g.Images[pages[0]].Ext)
}
