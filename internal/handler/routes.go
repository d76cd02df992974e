package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appmw "go-course-format/internal/middleware"
	"go-course-format/internal/session"
)

// Handlers groups the HTTP handlers of the application.
type Handlers struct {
	Course *CourseHandler
	Forum  *ForumHandler
	Auth   *AuthHandler
	Seo    *SeoHandler
}

// NewRouter creates and configures a new chi router.
func NewRouter(h Handlers, static fs.FS, sm session.Manager, authz, settings func(http.Handler) http.Handler, errorHandler func(appmw.AppHandler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appmw.Metrics)

	// Public routes
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/robots.txt", h.Seo.robotsHandler)
	r.Get("/sitemap.xml", h.Seo.sitemapHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(sm.LoadAndSave)
		r.Use(authz)
		r.Use(settings)

		r.Get("/auth/login", h.Auth.handleLogin)
		r.Get("/auth/callback", h.Auth.handleCallback)
		r.Get("/auth/logout", h.Auth.handleLogout)
		r.Post("/auth/logout", h.Auth.handleLogout)

		r.Method(http.MethodGet, "/", errorHandler(h.Course.indexHandler))
		r.Method(http.MethodGet, "/course/view.php", errorHandler(h.Course.viewHandler))
		r.Method(http.MethodGet, "/mod/forum/view.php", errorHandler(h.Forum.viewHandler))
	})

	return r
}
