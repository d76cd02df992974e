package render

import (
	"context"
	"errors"
	"html/template"

	"go-course-format/internal/data"
)

// ErrNoSuchSection is returned for a section number beyond the last section.
var ErrNoSuchSection = errors.New("invalidsection")

// CoursePage is the content of one course page.
type CoursePage struct {
	Course       *data.Course
	Sections     []*data.Section
	Modules      map[int][]*data.CourseModule
	CanSetMarker bool
}

type moduleView struct {
	ID      int64
	Name    string
	URL     string
	Dimmed  bool
	Hidden  string
	ModName string
}

type sectionBodyView struct {
	Modules []moduleView
}

type sectionNav struct {
	Previous *command
	Next     *command
	All      *command
}

type courseView struct {
	// Section0 precedes the navigation of a single section page.
	Section0 template.HTML
	Nav      *sectionNav
	Sections []template.HTML
}

func (r *Renderer) section(ctx context.Context, p *Pass, headers SectionHeaderRenderer, page CoursePage, sec *data.Section, onSectionPage bool) (template.HTML, error) {
	header, err := headers.SectionHeader(ctx, p, SectionContext{
		Course:        page.Course,
		Section:       sec,
		OnSectionPage: onSectionPage,
		CanSetMarker:  page.CanSetMarker,
	})
	if err != nil {
		return "", err
	}
	var body sectionBodyView
	if sec.UserVisible {
		for _, cm := range page.Modules[sec.Section] {
			if !cm.UserVisible {
				continue
			}
			m := moduleView{ID: cm.ID, Name: cm.Name, ModName: cm.Module, Dimmed: !cm.Visible}
			if cm.Module == "forum" {
				m.URL = r.link("/mod/forum/view.php", "", "f", itoa(cm.Instance))
			} else {
				m.URL = r.link("/mod/"+cm.Module+"/view.php", "", "id", itoa(cm.ID))
			}
			if m.Dimmed {
				m.Hidden = r.str.Get("hiddenfromstudents")
			}
			body.Modules = append(body.Modules, m)
		}
	}
	footer, err := r.tmpl.Fragment("section_body", body)
	if err != nil {
		return "", err
	}
	return header + footer, nil
}

// MultipleSectionPage renders every section of the course. Sections the
// viewer may not see are shown as not available.
func (r *Renderer) MultipleSectionPage(ctx context.Context, p *Pass, headers SectionHeaderRenderer, page CoursePage) (template.HTML, error) {
	var v courseView
	for _, sec := range page.Sections {
		html, err := r.section(ctx, p, headers, page, sec, false)
		if err != nil {
			return "", err
		}
		v.Sections = append(v.Sections, html)
	}
	return r.tmpl.Fragment("course_sections", v)
}

// SingleSectionPage renders section 0 followed by the navigation and the
// requested section.
func (r *Renderer) SingleSectionPage(ctx context.Context, p *Pass, headers SectionHeaderRenderer, page CoursePage, num int) (template.HTML, error) {
	idx := -1
	for i, sec := range page.Sections {
		if sec.Section == num {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", ErrNoSuchSection
	}

	var v courseView
	if num != 0 && page.Sections[0].Section == 0 {
		html, err := r.section(ctx, p, headers, page, page.Sections[0], true)
		if err != nil {
			return "", err
		}
		v.Section0 = html
	}

	nav := &sectionNav{All: &command{URL: r.link("/course/view.php", "", "id", itoa(page.Course.ID)), Text: r.str.Get("allsections")}}
	for i := idx - 1; i >= 0; i-- {
		if s := page.Sections[i]; s.Section > 0 && s.UserVisible {
			nav.Previous = r.sectionLink(page.Course, s)
			break
		}
	}
	for i := idx + 1; i < len(page.Sections); i++ {
		if s := page.Sections[i]; s.UserVisible {
			nav.Next = r.sectionLink(page.Course, s)
			break
		}
	}
	v.Nav = nav

	html, err := r.section(ctx, p, headers, page, page.Sections[idx], true)
	if err != nil {
		return "", err
	}
	v.Sections = append(v.Sections, html)
	return r.tmpl.Fragment("course_sections", v)
}

func (r *Renderer) sectionLink(course *data.Course, sec *data.Section) *command {
	return &command{
		URL:  r.link("/course/view.php", "", "id", itoa(course.ID), "section", itoa(int64(sec.Section))),
		Text: r.SectionTitle(sec),
	}
}
