package handler

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"go-course-format/internal/data"
	"go-course-format/internal/i18n"
	"go-course-format/internal/logger"
	"go-course-format/internal/middleware"
	"go-course-format/internal/render"
	"go-course-format/internal/service"
	"go-course-format/internal/session"
	"go-course-format/internal/view"
)

// CourseHandler serves the course page.
type CourseHandler struct {
	courses  service.CourseServicer
	forums   service.ForumServicer
	renderer *render.Renderer
	view     middleware.PageRenderer
	sessions session.Manager
	str      *i18n.Strings
	log      logger.Logger
	validate *validator.Validate
}

// NewCourseHandler creates a new CourseHandler with the given dependencies.
func NewCourseHandler(cs service.CourseServicer, fs service.ForumServicer, rn *render.Renderer, v middleware.PageRenderer, sm session.Manager, str *i18n.Strings, log logger.Logger) *CourseHandler {
	return &CourseHandler{
		courses:  cs,
		forums:   fs,
		renderer: rn,
		view:     v,
		sessions: sm,
		str:      str,
		log:      log,
		validate: validator.New(),
	}
}

type courseParams struct {
	ID      int64  `validate:"gt=0"`
	Marker  int    `validate:"gte=-1"`
	SessKey string `validate:"omitempty,max=64"`
	Section int    `validate:"gte=0"`
}

// intParam parses the query parameter key, returning def when it is absent.
func intParam(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter %q", key, raw)
	}
	return n, nil
}

func (h *CourseHandler) parseParams(r *http.Request) (courseParams, error) {
	var p courseParams
	id, err := intParam(r, "id", 0)
	if err != nil {
		return p, err
	}
	// An unusable marker leaves the highlight as it is.
	marker, err := intParam(r, "marker", -1)
	if err != nil || marker < 0 {
		marker = -1
	}
	section, err := intParam(r, "section", 0)
	if err != nil {
		return p, err
	}
	p = courseParams{ID: id, Marker: int(marker), SessKey: r.URL.Query().Get("sesskey"), Section: int(section)}
	return p, h.validate.Struct(p)
}

// displayMode returns the forum display mode of the request.
func displayMode(r *http.Request, forums service.ForumServicer) int {
	if mode, ok := view.DisplayMode(r.Context()); ok {
		return mode
	}
	return forums.Config().DisplayMode
}

// pageData returns the common template data of a page.
func (h *CourseHandler) pageData(r *http.Request, title string) map[string]interface{} {
	viewer := middleware.ViewerFrom(r.Context())
	data := map[string]interface{}{
		"Title": title,
		"User":  viewer.User,
	}
	if viewer.User != nil {
		data["UserName"] = h.forums.FullName(viewer.User)
	}
	return data
}

// indexHandler lists the courses of the site.
func (h *CourseHandler) indexHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}
	data := h.pageData(r, "Courses")
	data["Courses"] = courses
	if err := h.view.Render(w, r, "index.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render course list", Code: http.StatusInternalServerError}
	}
	return nil
}

// viewHandler renders a course, optionally moving its highlight first.
func (h *CourseHandler) viewHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	params, err := h.parseParams(r)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidcourseid"), Code: http.StatusBadRequest}
	}

	course, err := h.courses.GetCourse(ctx, params.ID)
	if errors.Is(err, data.ErrNotFound) {
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidcourseid"), Code: http.StatusNotFound}
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}

	viewer := middleware.ViewerFrom(ctx)
	canSetMarker, err := h.courses.CanSetMarker(ctx, course, viewer)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}
	if params.Marker >= 0 {
		if canSetMarker && session.ConfirmSessKey(ctx, h.sessions, params.SessKey) {
			if err := h.courses.SetMarker(ctx, course, params.Marker); err != nil {
				return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
			}
		} else {
			h.log.Debug(fmt.Sprintf("Ignoring marker %d for course %d", params.Marker, course.ID))
		}
	}

	if err := h.courses.EnsureSections(ctx, course, 0); err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}
	sections, err := h.courses.Sections(ctx, course, viewer)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}
	modules, err := h.courses.SectionModules(ctx, course, viewer)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}

	pass := render.NewPass(viewer, session.SessKey(ctx, h.sessions), displayMode(r, h.forums))
	headers := render.NewForumPreviewHeader(render.NewDefaultSectionHeader(h.renderer), h.renderer)
	page := render.CoursePage{Course: course, Sections: sections, Modules: modules, CanSetMarker: canSetMarker}

	var content template.HTML
	if params.Section > 0 {
		content, err = h.renderer.SingleSectionPage(ctx, pass, headers, page, params.Section)
	} else {
		content, err = h.renderer.MultipleSectionPage(ctx, pass, headers, page)
	}
	switch {
	case errors.Is(err, render.ErrNoSuchSection):
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidsection"), Code: http.StatusNotFound}
	case errors.Is(err, service.ErrInvalidCourseModule):
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidcoursemodule"), Code: http.StatusInternalServerError}
	case err != nil:
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}

	data := h.pageData(r, course.FullName)
	data["Course"] = course
	data["Content"] = content
	if err := h.view.Render(w, r, "course.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render course page", Code: http.StatusInternalServerError}
	}
	return nil
}
