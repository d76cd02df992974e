package render

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"go-course-format/internal/data"
	"go-course-format/internal/format"
	"go-course-format/internal/service"
)

// Discussion list display formats.
const (
	ListPlain  = "plain"
	ListHeader = "header"
)

// manyDiscussions is the forum size above which replies are only counted for
// the displayed page.
const manyDiscussions = 1000

// ListOptions control a discussion listing.
type ListOptions struct {
	// MaxDiscussions is -1 for paging, 0 for every discussion and a positive
	// number to show at most that many.
	MaxDiscussions int
	DisplayFormat  string
	Sort           string
	// CurrentGroup and GroupMode are detected from the course module when -1.
	CurrentGroup int64
	GroupMode    int
	// Page is the zero based page, -1 disables paging.
	Page    int
	PerPage int
	CM      *data.CourseModule
}

// DefaultListOptions returns the options of a plain paged listing.
func DefaultListOptions() ListOptions {
	return ListOptions{
		MaxDiscussions: -1,
		DisplayFormat:  ListPlain,
		CurrentGroup:   -1,
		GroupMode:      -1,
		Page:           -1,
		PerPage:        100,
	}
}

type listing struct {
	page    int
	perPage int
	format  string
}

// paging reports whether the listing is split into pages.
func (l listing) paging() bool {
	return l.page != -1
}

func resolveListing(opts ListOptions) listing {
	l := listing{page: opts.Page, perPage: opts.PerPage, format: opts.DisplayFormat}
	if l.format != ListHeader {
		l.format = ListPlain
	}
	if l.perPage <= 0 {
		l.perPage = 0
		l.page = -1
	}
	switch {
	case opts.MaxDiscussions == 0:
		l.page = -1
		l.perPage = 0
		l.format = ListHeader
	case opts.MaxDiscussions > 0:
		l.page = -1
		l.perPage = opts.MaxDiscussions
	}
	return l
}

// replyScope returns the discussions whose replies are counted; nil counts
// the whole forum. Only the pages of a large forum are narrowed.
func (l listing) replyScope(total int, page []*data.DiscussionSummary) []int64 {
	if !l.paging() || total <= manyDiscussions {
		return nil
	}
	ids := make([]int64, len(page))
	for i, d := range page {
		ids[i] = d.ID
	}
	return ids
}

type startInputs struct {
	ForumType         string
	CanPost           bool
	Guest             bool
	LoggedIn          bool
	Enrolled          bool
	Viewing           bool
	SelfEnrol         bool
	StartDiscussion   bool
	AddQuestion       bool
	GroupMode         int
	AccessAllGroups   bool
	CanPostToMyGroups bool
	CurrentGroup      int64
	GroupMember       bool
}

// startOutcome holds string keys: the button label, or the notice shown
// instead of it. Both empty means nothing is shown.
type startOutcome struct {
	Label  string
	Notice string
}

func newDiscussionPolicy(in startInputs) startOutcome {
	news := in.ForumType == data.ForumTypeNews
	eligible := in.CanPost ||
		(!news && (in.Guest || !in.LoggedIn)) ||
		(!news && !in.Enrolled && !in.Viewing && in.SelfEnrol)
	if eligible {
		switch in.ForumType {
		case data.ForumTypeNews, data.ForumTypeBlog:
			return startOutcome{Label: "addanewtopic"}
		case data.ForumTypeQandA:
			return startOutcome{Label: "addanewquestion"}
		default:
			return startOutcome{Label: "addanewdiscussion"}
		}
	}

	lacksStart := (in.ForumType == data.ForumTypeQandA && !in.AddQuestion) ||
		(in.ForumType != data.ForumTypeQandA && !in.StartDiscussion)
	if in.Guest || !in.LoggedIn || news || lacksStart {
		return startOutcome{}
	}
	if in.GroupMode > data.NoGroups && !in.AccessAllGroups {
		if in.CurrentGroup <= 0 {
			if !in.CanPostToMyGroups {
				return startOutcome{Notice: "cannotadddiscussiongroup"}
			}
			return startOutcome{Notice: "cannotadddiscussionall"}
		}
		if !in.GroupMember {
			return startOutcome{Notice: "cannotadddiscussion"}
		}
	}
	return startOutcome{}
}

type newButton struct {
	Action  string
	ForumID int64
	Label   string
}

type pageLink struct {
	Num     int
	URL     string
	Current bool
}

type pagingView struct {
	Label    string
	Previous string
	Next     string
	Pages    []pageLink
	PrevText string
	NextText string
}

type olderLink struct {
	URL  string
	Text string
}

type headerRow struct {
	Classes    string
	Subject    template.HTML
	URL        string
	AuthorName string
	AuthorURL  string
	PictureURL string

	GroupName string
	GroupURL  string

	Replies     int
	Unread      string
	UnreadURL   string
	MarkReadURL string

	LastName    string
	LastURL     string
	LastDate    string
	LastPostURL string

	SubscribeURL  string
	SubscribeText string
	Subscribed    bool
}

type headerView struct {
	ShowGroup     bool
	ShowReplies   bool
	ShowUnread    bool
	ShowSubscribe bool
	Tracked       bool
	MarkReadTitle string
	MarkAllTitle  string
	MarkAllURL    string
	Rows          []headerRow
}

type listView struct {
	Button *newButton
	Notice string
	Empty  string
	Paging template.HTML
	Header *headerView
	Posts  []template.HTML
	Older  *olderLink
}

// LatestDiscussions renders the discussions of forum visible to the viewer.
func (r *Renderer) LatestDiscussions(ctx context.Context, p *Pass, course *data.Course, forum *data.Forum, opts ListOptions) (template.HTML, error) {
	if opts.CM == nil {
		cm, err := r.forums.CourseModule(ctx, course, forum)
		if err != nil {
			return "", err
		}
		opts.CM = cm
	}
	cm := opts.CM
	l := resolveListing(opts)
	defer func(start time.Time) {
		listRenderDuration.WithLabelValues(l.format).Observe(time.Since(start).Seconds())
	}(time.Now())

	caps, err := p.moduleCaps(ctx, r.forums, cm)
	if err != nil {
		return "", err
	}

	groupMode := opts.GroupMode
	if groupMode == -1 {
		groupMode = r.forums.ActivityGroupMode(course, cm)
	}
	currentGroup := opts.CurrentGroup
	if currentGroup == -1 {
		if currentGroup, err = r.forums.ActivityGroup(ctx, course, cm, caps, p.Viewer, 0); err != nil {
			return "", err
		}
	}

	var v listView
	if err := r.newDiscussion(ctx, p, &v, course, forum, cm, caps, groupMode, currentGroup); err != nil {
		return "", err
	}

	sort := opts.Sort
	if !data.ValidSort(sort) {
		sort = ""
	}
	q := r.forums.DiscussionQuery(forum, caps, p.Viewer, groupMode, currentGroup)
	q.Sort = sort
	switch {
	case opts.MaxDiscussions > 0:
		q.Limit = opts.MaxDiscussions + 1
	case l.paging():
		q.Limit = l.perPage
		q.Offset = l.page * l.perPage
	}
	discussions, err := r.forums.Discussions(ctx, q)
	if err != nil {
		return "", err
	}
	if len(discussions) == 0 {
		v.Empty = r.str.Get(emptyKey(forum.Type))
		return r.tmpl.Fragment("discussions", v)
	}
	if opts.MaxDiscussions > 0 && len(discussions) > opts.MaxDiscussions {
		discussions = discussions[:opts.MaxDiscussions]
		key := "olderdiscussions"
		if forum.Type == data.ForumTypeNews {
			key = "oldertopics"
		}
		v.Older = &olderLink{URL: r.link("/mod/forum/view.php", "", "f", itoa(forum.ID), "showall", "1"), Text: r.str.Get(key)}
	}

	total := len(discussions)
	if l.paging() {
		if total, err = r.forums.CountDiscussions(ctx, q); err != nil {
			return "", err
		}
		if v.Paging, err = r.pagingBar(forum, total, l.page, l.perPage); err != nil {
			return "", err
		}
	}
	replies, err := r.forums.CountReplies(ctx, forum.ID, l.replyScope(total, discussions))
	if err != nil {
		return "", err
	}

	tracked, err := r.forums.IsTracked(ctx, forum, p.Viewer)
	if err != nil {
		return "", err
	}
	var unreads map[int64]int
	if tracked {
		if unreads, err = r.forums.Unreads(ctx, forum.ID, p.Viewer); err != nil {
			return "", err
		}
	}
	for _, d := range discussions {
		rc := replies[d.ID]
		d.Replies = rc.Replies
		d.LastPostID = rc.LastPostID
		if d.LastPostID == 0 {
			d.LastPostID = d.FirstPost
		}
		d.Post.IsLastPost = d.LastPostID == d.Post.ID
		switch {
		case !tracked:
			d.Unread = data.UnreadNotTracked
		case !p.Viewer.LoggedIn():
			d.Unread = 0
		default:
			d.Unread = data.Unread(unreads[d.ID])
		}
	}

	if l.format == ListHeader {
		if v.Header, err = r.headerTable(ctx, p, course, forum, cm, caps, groupMode, tracked, discussions); err != nil {
			return "", err
		}
	} else {
		for _, d := range discussions {
			html, err := r.plainDiscussion(ctx, p, course, forum, cm, caps, tracked, d)
			if err != nil {
				return "", err
			}
			v.Posts = append(v.Posts, html)
		}
	}
	return r.tmpl.Fragment("discussions", v)
}

func emptyKey(forumType string) string {
	switch forumType {
	case data.ForumTypeNews:
		return "nonews"
	case data.ForumTypeQandA:
		return "noquestions"
	default:
		return "nodiscussions"
	}
}

func (r *Renderer) newDiscussion(ctx context.Context, p *Pass, v *listView, course *data.Course, forum *data.Forum, cm *data.CourseModule, caps *service.ModuleCaps, groupMode int, currentGroup int64) error {
	canPost, err := r.forums.CanPostDiscussion(ctx, forum, course, cm, caps, p.Viewer, groupMode, currentGroup)
	if err != nil {
		return err
	}
	in := startInputs{
		ForumType:         forum.Type,
		CanPost:           canPost,
		Guest:             p.Viewer.IsGuest(),
		LoggedIn:          p.Viewer.LoggedIn(),
		SelfEnrol:         course.SelfEnrol,
		StartDiscussion:   caps.StartDiscussion,
		AddQuestion:       caps.AddQuestion,
		GroupMode:         groupMode,
		AccessAllGroups:   caps.AccessAllGroups,
		CanPostToMyGroups: caps.CanPostToMyGroups,
		CurrentGroup:      currentGroup,
	}
	if !canPost && in.LoggedIn && !in.Guest && forum.Type != data.ForumTypeNews {
		if in.Enrolled, err = r.forums.IsEnrolled(ctx, course, p.Viewer); err != nil {
			return err
		}
		if in.Viewing, err = r.forums.IsViewing(ctx, course, p.Viewer); err != nil {
			return err
		}
	}
	if groupMode > data.NoGroups && currentGroup > 0 {
		if in.GroupMember, err = r.forums.IsMember(ctx, currentGroup, p.Viewer); err != nil {
			return err
		}
	}

	out := newDiscussionPolicy(in)
	if out.Label != "" {
		v.Button = &newButton{Action: r.link("/mod/forum/post.php", ""), ForumID: forum.ID, Label: r.str.Get(out.Label)}
	}
	if out.Notice != "" {
		v.Notice = r.str.Get(out.Notice)
	}
	return nil
}

func (r *Renderer) plainDiscussion(ctx context.Context, p *Pass, course *data.Course, forum *data.Forum, cm *data.CourseModule, caps *service.ModuleCaps, tracked bool, d *data.DiscussionSummary) (template.HTML, error) {
	link := d.Replies > 0
	if !link {
		canSee, err := r.forums.CanSeeDiscussion(ctx, course, &d.Discussion, cm, caps, p.Viewer)
		if err != nil {
			return "", err
		}
		link = canSee
	}
	body, err := r.Post(ctx, p, PostTarget{
		Course:     course,
		Forum:      forum,
		CM:         cm,
		Discussion: &d.Discussion,
		Post:       &d.Post,
		Replies:    d.Replies,
		Unread:     d.Unread,
	}, PostOptions{
		OwnPost:        p.Viewer.Member() && d.Post.UserID == p.Viewer.ID(),
		Link:           link,
		DummyIfCantSee: true,
		IsTracked:      tracked,
	})
	if err != nil {
		return "", err
	}
	return p.PostStart(d.Post.ID) + body + p.PostEnd(d.Post.ID), nil
}

func (r *Renderer) headerTable(ctx context.Context, p *Pass, course *data.Course, forum *data.Forum, cm *data.CourseModule, caps *service.ModuleCaps, groupMode int, tracked bool, discussions []*data.DiscussionSummary) (*headerView, error) {
	h := &headerView{
		ShowGroup:     groupMode > data.NoGroups,
		ShowReplies:   caps.ViewDiscussion,
		ShowUnread:    caps.ViewDiscussion && r.forums.CanTrack(forum),
		ShowSubscribe: p.Viewer.Member() && caps.ViewDiscussion && forum.Subscribable(),
		Tracked:       tracked,
		MarkReadTitle: r.str.Get("markalldread"),
	}
	if h.ShowUnread && tracked {
		h.MarkAllTitle = r.str.Get("markallread")
		h.MarkAllURL = r.link("/mod/forum/markposts.php", "", "f", itoa(forum.ID), "mark", "read", "return", "/mod/forum/view.php", "sesskey", p.SessKey)
	}
	var subscribed map[int64]bool
	if h.ShowSubscribe {
		var err error
		if subscribed, err = r.forums.Subscriptions(ctx, forum.ID, p.Viewer); err != nil {
			return nil, err
		}
	}

	for _, d := range discussions {
		participants := true
		if forum.Type == data.ForumTypeQandA && !caps.ViewQandAWithoutPosting {
			posted, err := r.forums.UserHasPosted(ctx, forum, &d.Discussion, p.Viewer)
			if err != nil {
				return nil, err
			}
			participants = posted
		}

		row := headerRow{
			Classes:     "discussion",
			Subject:     template.HTML(r.text.String(d.Name)),
			URL:         r.discussionURL(d.ID, ""),
			AuthorName:  r.forums.FullName(&d.Author),
			PictureURL:  r.pictureURL(d.Author.ID, d.Author.Picture),
			Replies:     d.Replies,
			Unread:      d.Unread.String(),
			LastDate:    r.date(d.TimeModified),
			LastPostURL: r.discussionURL(d.ID, "", "parent", itoa(d.LastPostID)),
		}
		if d.Pinned {
			row.Classes += " pinned"
		}
		if participants {
			row.AuthorURL = r.profileURL(d.Author.ID, course.ID)
		}
		if d.LastAuthor != nil {
			row.LastName = r.forums.FullName(d.LastAuthor)
			if participants {
				row.LastURL = r.profileURL(d.UserModified, course.ID)
			}
		}

		if h.ShowGroup && d.GroupID != data.AllParticipants {
			g, err := p.group(ctx, r.forums, d.GroupID)
			switch {
			case errors.Is(err, data.ErrNotFound):
			case err != nil:
				return nil, err
			default:
				row.GroupName = g.Name
				if participants {
					row.GroupURL = r.link("/user/index.php", "", "id", itoa(course.ID), "group", itoa(g.ID))
				}
			}
		}

		if tracked && d.Unread > 0 {
			row.UnreadURL = r.discussionURL(d.ID, "unread")
			row.MarkReadURL = r.link("/mod/forum/markposts.php", "", "f", itoa(forum.ID), "d", itoa(d.ID), "mark", "read", "returnpage", "view.php")
		}

		if h.ShowSubscribe {
			row.Subscribed = subscribed[d.ID]
			row.SubscribeText = r.str.Get("subscribe")
			if row.Subscribed {
				row.SubscribeText = r.str.Get("unsubscribe")
			}
			row.SubscribeURL = r.link("/mod/forum/subscribe.php", "", "id", itoa(forum.ID), "d", itoa(d.ID), "sesskey", p.SessKey)
		}
		h.Rows = append(h.Rows, row)
	}
	return h, nil
}

func (r *Renderer) pagingBar(forum *data.Forum, total, page, perPage int) (template.HTML, error) {
	if perPage <= 0 || total <= perPage {
		return "", nil
	}
	pages := (total + perPage - 1) / perPage
	pageURL := func(n int) string {
		return r.link("/mod/forum/view.php", "", "f", itoa(forum.ID), "page", fmt.Sprint(n))
	}
	v := pagingView{Label: r.str.Get("page"), PrevText: r.str.Get("previous"), NextText: r.str.Get("next")}
	if page > 0 {
		v.Previous = pageURL(page - 1)
	}
	if page < pages-1 {
		v.Next = pageURL(page + 1)
	}
	for n := 0; n < pages; n++ {
		v.Pages = append(v.Pages, pageLink{Num: n + 1, URL: pageURL(n), Current: n == page})
	}
	return r.tmpl.Fragment("paging_bar", v)
}

// ForumIntro formats the description of forum.
func (r *Renderer) ForumIntro(forum *data.Forum) template.HTML {
	return template.HTML(r.text.Text(forum.Intro, format.FormatHTML, false))
}
