package render

import (
	"context"
	"html/template"

	"go-course-format/internal/data"
	"go-course-format/internal/service"
)

// Forum post display modes.
const (
	ModeFlatNewest = -1
	ModeFlatOldest = 1
	ModeThreaded   = 2
	ModeNested     = 3
)

// Pass holds the state of one page render. It is created by the caller for
// a single top-level render and thrown away afterwards; it must not be
// shared between requests.
type Pass struct {
	Viewer      service.Viewer
	SessKey     string
	DisplayMode int

	open         map[int64]int
	unreadAnchor bool
	caps         map[int64]*service.ModuleCaps
	groups       map[int64]*data.Group
	userGroups   map[[2]int64][]*data.Group
}

// NewPass creates the state of one render for viewer.
func NewPass(viewer service.Viewer, sesskey string, displayMode int) *Pass {
	return &Pass{
		Viewer:      viewer,
		SessKey:     sesskey,
		DisplayMode: displayMode,
		open:        make(map[int64]int),
		caps:        make(map[int64]*service.ModuleCaps),
		groups:      make(map[int64]*data.Group),
		userGroups:  make(map[[2]int64][]*data.Group),
	}
}

// PostStart opens the container of a post. Only the first open of an id
// emits markup; further opens are counted.
func (p *Pass) PostStart(postID int64) template.HTML {
	p.open[postID]++
	if p.open[postID] > 1 {
		return ""
	}
	return template.HTML(`<article id="p` + itoa(postID) + `" tabindex="-1" class="relativelink">`)
}

// PostEnd closes one open of a post container and emits the closing tag
// once the id has no opens left. Ids that were never opened emit nothing.
func (p *Pass) PostEnd(postID int64) template.HTML {
	n, ok := p.open[postID]
	if !ok {
		return ""
	}
	if n > 1 {
		p.open[postID] = n - 1
		return ""
	}
	delete(p.open, postID)
	return "</article>"
}

// Open returns how many times the container of postID is currently open.
func (p *Pass) Open(postID int64) int {
	return p.open[postID]
}

// takeUnreadAnchor reports whether the unread anchor is still to be printed
// and marks it printed.
func (p *Pass) takeUnreadAnchor() bool {
	if p.unreadAnchor {
		return false
	}
	p.unreadAnchor = true
	return true
}

func (p *Pass) moduleCaps(ctx context.Context, forums service.ForumServicer, cm *data.CourseModule) (*service.ModuleCaps, error) {
	if c, ok := p.caps[cm.ID]; ok {
		cm.UserVisible = cm.Visible || c.ViewHiddenActivities
		return c, nil
	}
	c, err := forums.ModuleCaps(ctx, cm, p.Viewer)
	if err != nil {
		return nil, err
	}
	p.caps[cm.ID] = c
	return c, nil
}

func (p *Pass) group(ctx context.Context, forums service.ForumServicer, id int64) (*data.Group, error) {
	if g, ok := p.groups[id]; ok {
		return g, nil
	}
	g, err := forums.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	p.groups[id] = g
	return g, nil
}

func (p *Pass) posterGroups(ctx context.Context, forums service.ForumServicer, course *data.Course, cm *data.CourseModule, userID int64) ([]*data.Group, error) {
	key := [2]int64{cm.ID, userID}
	if gs, ok := p.userGroups[key]; ok {
		return gs, nil
	}
	gs, err := forums.UserGroups(ctx, course, cm, userID)
	if err != nil {
		return nil, err
	}
	p.userGroups[key] = gs
	return gs, nil
}
