package handler

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-course-format/internal/data"
)

// CourseLister lists the courses published in the sitemap.
type CourseLister interface {
	ListCourses(ctx context.Context) ([]*data.Course, error)
}

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	courses CourseLister
	baseURL string
}

// NewSeoHandler creates a new SeoHandler. baseURL is the public site root.
func NewSeoHandler(cl CourseLister, baseURL string) *SeoHandler {
	return &SeoHandler{courses: cl, baseURL: strings.TrimRight(baseURL, "/")}
}

// robotsHandler serves robots.txt pointing at the sitemap.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /course/")
	fmt.Fprintln(w, "Disallow: /auth/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler lists every course page.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		http.Error(w, "Failed to retrieve courses for sitemap", http.StatusInternalServerError)
		return
	}

	sitemap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, len(courses)),
	}
	for i, c := range courses {
		u := sitemapURL{Loc: fmt.Sprintf("%s/course/view.php?id=%d", h.baseURL, c.ID)}
		if c.TimeModified > 0 {
			u.LastMod = time.Unix(c.TimeModified, 0).UTC().Format(sitemapDateFormat)
		}
		sitemap.URLs[i] = u
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(sitemap); err != nil {
		http.Error(w, "Failed to generate sitemap XML", http.StatusInternalServerError)
		return
	}
}
