package middleware

import (
	"net/http"
	"strconv"

	"go-course-format/internal/session"
	"go-course-format/internal/view"
)

var displayModes = map[int]bool{-1: true, 1: true, 2: true, 3: true}

// DisplayMode picks the forum display mode of the request. A valid "mode"
// query parameter is remembered in the session; otherwise the session value
// or the site default is used.
func DisplayMode(sm session.Manager, fallback int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mode := fallback
			if stored := sm.GetInt(r.Context(), session.KeyMode); displayModes[stored] {
				mode = stored
			}
			if raw := r.URL.Query().Get("mode"); raw != "" {
				if m, err := strconv.Atoi(raw); err == nil && displayModes[m] {
					mode = m
					sm.Put(r.Context(), session.KeyMode, m)
				}
			}
			next.ServeHTTP(w, r.WithContext(view.WithDisplayMode(r.Context(), mode)))
		})
	}
}
