package handler

import (
	"errors"
	"net/http"

	"go-course-format/internal/data"
	"go-course-format/internal/i18n"
	"go-course-format/internal/middleware"
	"go-course-format/internal/render"
	"go-course-format/internal/service"
	"go-course-format/internal/session"
)

// ForumHandler serves the discussion list of one forum.
type ForumHandler struct {
	courses  service.CourseServicer
	forums   service.ForumServicer
	renderer *render.Renderer
	view     middleware.PageRenderer
	sessions session.Manager
	str      *i18n.Strings
}

// NewForumHandler creates a new ForumHandler.
func NewForumHandler(cs service.CourseServicer, fs service.ForumServicer, rn *render.Renderer, v middleware.PageRenderer, sm session.Manager, str *i18n.Strings) *ForumHandler {
	return &ForumHandler{courses: cs, forums: fs, renderer: rn, view: v, sessions: sm, str: str}
}

// viewHandler lists the discussions of the forum given by f, a page at a time.
func (h *ForumHandler) viewHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	forumID, err := intParam(r, "f", 0)
	if err == nil && forumID <= 0 {
		err = errors.New("missing forum id")
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidforumid"), Code: http.StatusBadRequest}
	}
	page, err := intParam(r, "page", 0)
	if err != nil || page < 0 {
		page = 0
	}

	forum, err := h.forums.GetForum(ctx, forumID)
	if errors.Is(err, data.ErrNotFound) {
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidforumid"), Code: http.StatusNotFound}
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}
	course, err := h.courses.GetCourse(ctx, forum.CourseID)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidcourseid"), Code: http.StatusNotFound}
	}
	cm, err := h.forums.CourseModule(ctx, course, forum)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("invalidcoursemodule"), Code: http.StatusInternalServerError}
	}

	viewer := middleware.ViewerFrom(ctx)
	caps, err := h.forums.ModuleCaps(ctx, cm, viewer)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}
	if !cm.UserVisible || !caps.ViewDiscussion {
		return &middleware.AppError{Error: errors.New("forum not readable"), Message: h.str.Get("accessdenied"), Code: http.StatusForbidden}
	}

	opts := render.DefaultListOptions()
	opts.CM = cm
	opts.Page = int(page)
	opts.PerPage = h.forums.Config().PerPage
	switch forum.Type {
	case data.ForumTypeNews, data.ForumTypeBlog:
		opts.DisplayFormat = render.ListPlain
	default:
		opts.DisplayFormat = render.ListHeader
	}
	if r.URL.Query().Get("showall") != "" {
		opts.MaxDiscussions = 0
	}

	pass := render.NewPass(viewer, session.SessKey(ctx, h.sessions), displayMode(r, h.forums))
	content, err := h.renderer.LatestDiscussions(ctx, pass, course, forum, opts)
	if err != nil {
		return &middleware.AppError{Error: err, Message: h.str.Get("servererror"), Code: http.StatusInternalServerError}
	}

	d := map[string]interface{}{
		"Title":   forum.Name,
		"User":    viewer.User,
		"Course":  course,
		"Forum":   forum,
		"Intro":   h.renderer.ForumIntro(forum),
		"Content": content,
	}
	if viewer.User != nil {
		d["UserName"] = h.forums.FullName(viewer.User)
	}
	if err := h.view.Render(w, r, "forum.html", d); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render forum page", Code: http.StatusInternalServerError}
	}
	return nil
}
