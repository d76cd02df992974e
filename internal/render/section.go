package render

import (
	"context"
	"fmt"
	"html/template"

	"go-course-format/internal/data"
	"go-course-format/internal/format"
)

// previewDiscussions is the number of discussions shown above section 0.
const previewDiscussions = 3

// SectionContext is one section as placed on a course page.
type SectionContext struct {
	Course        *data.Course
	Section       *data.Section
	OnSectionPage bool
	CanSetMarker  bool
}

// SectionHeaderRenderer renders the opening markup of a course section.
type SectionHeaderRenderer interface {
	SectionHeader(ctx context.Context, p *Pass, sc SectionContext) (template.HTML, error)
}

type sectionHeaderView struct {
	Num         int
	Classes     string
	Title       string
	Summary     template.HTML
	Available   bool
	Unavailable string
	Current     string
	Hidden      string
	Highlight   *command
}

// DefaultSectionHeader renders the topics style section heading with the
// highlight control.
type DefaultSectionHeader struct {
	r *Renderer
}

// NewDefaultSectionHeader creates a DefaultSectionHeader.
func NewDefaultSectionHeader(r *Renderer) *DefaultSectionHeader {
	return &DefaultSectionHeader{r: r}
}

// SectionTitle is the display name of a section.
func (r *Renderer) SectionTitle(sec *data.Section) string {
	switch {
	case sec.Name != "":
		return sec.Name
	case sec.Section == 0:
		return r.str.Get("general")
	default:
		return r.str.Get("topic", itoa(int64(sec.Section)))
	}
}

// SectionHeader implements SectionHeaderRenderer.
func (h *DefaultSectionHeader) SectionHeader(ctx context.Context, p *Pass, sc SectionContext) (template.HTML, error) {
	r := h.r
	sec := sc.Section
	v := sectionHeaderView{
		Num:       sec.Section,
		Classes:   "section main clearfix",
		Title:     r.SectionTitle(sec),
		Available: sec.UserVisible,
	}
	if !sec.Visible {
		v.Classes += " hidden"
		v.Hidden = r.str.Get("hiddenfromstudents")
	}
	current := sec.Section > 0 && sc.Course.Marker == sec.Section
	if current {
		v.Classes += " current"
		v.Current = r.str.Get("markedthistopic")
	}
	if sec.UserVisible {
		v.Summary = template.HTML(r.formatText(ctx, sec.Summary, format.FormatHTML, false))
	} else {
		v.Unavailable = r.str.Get("notavailable")
	}

	if sc.CanSetMarker && sec.Section > 0 {
		marker, text := sec.Section, r.str.Get("highlight")
		if current {
			marker, text = 0, r.str.Get("removehighlight")
		}
		v.Highlight = &command{
			URL:   r.link("/course/view.php", "section-"+itoa(int64(sec.Section)), "id", itoa(sc.Course.ID), "marker", itoa(int64(marker)), "sesskey", p.SessKey),
			Text:  text,
			Title: text,
		}
	}
	return r.tmpl.Fragment("section_header", v)
}

// ForumPreviewHeader puts the latest discussions of the first readable forum
// of the course in front of the section 0 heading of the course page.
type ForumPreviewHeader struct {
	inner SectionHeaderRenderer
	r     *Renderer
}

// NewForumPreviewHeader decorates inner with the forum preview.
func NewForumPreviewHeader(inner SectionHeaderRenderer, r *Renderer) *ForumPreviewHeader {
	return &ForumPreviewHeader{inner: inner, r: r}
}

// SectionHeader implements SectionHeaderRenderer.
func (h *ForumPreviewHeader) SectionHeader(ctx context.Context, p *Pass, sc SectionContext) (template.HTML, error) {
	header, err := h.inner.SectionHeader(ctx, p, sc)
	if err != nil {
		return "", err
	}
	if sc.Section.Section != 0 || sc.OnSectionPage || !sc.Section.UserVisible {
		return header, nil
	}

	forums, err := h.r.forums.ReadableForums(ctx, sc.Course, p.Viewer)
	if err != nil {
		return "", err
	}
	if len(forums) == 0 {
		h.r.log.Debug(fmt.Sprintf("No readable forum to preview in course %d", sc.Course.ID))
		return header, nil
	}
	first := forums[0]
	opts := DefaultListOptions()
	opts.MaxDiscussions = previewDiscussions
	opts.CM = first.CM
	preview, err := h.r.LatestDiscussions(ctx, p, sc.Course, first.Forum, opts)
	if err != nil {
		return "", err
	}
	wrapped, err := h.r.tmpl.Fragment("forum_preview", preview)
	if err != nil {
		return "", err
	}
	return wrapped + header, nil
}
