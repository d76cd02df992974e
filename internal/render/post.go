package render

import (
	"context"
	"html/template"
	"time"

	"go-course-format/internal/data"
	"go-course-format/internal/format"
	"go-course-format/internal/service"
)

// PostOptions are the display flags of one post.
type PostOptions struct {
	OwnPost bool
	// Reply adds a reply command.
	Reply bool
	// Link shows the post as a teaser linking to its discussion.
	Link   bool
	Footer template.HTML
	// Highlight lists space separated terms to mark in the body.
	Highlight string
	// PostIsRead is the known read state; nil looks it up when tracked.
	PostIsRead *bool
	// DummyIfCantSee renders a placeholder instead of nothing for posts the
	// viewer may not see or that were deleted.
	DummyIfCantSee bool
	IsTracked      bool
}

// PostTarget is a post with the records it belongs to.
type PostTarget struct {
	Course     *data.Course
	Forum      *data.Forum
	CM         *data.CourseModule
	Discussion *data.Discussion
	Post       *data.Post
	// Replies and Unread are shown in the discussion link of Link mode.
	Replies int
	Unread  data.Unread
}

type command struct {
	URL   string
	Text  string
	Title string
	Rel   string
}

type groupPicture struct {
	Name string
	URL  string
}

type discussionLink struct {
	URL        string
	Text       string
	Replies    string
	UnreadURL  string
	UnreadText string
}

type postView struct {
	ID           int64
	Kind         string
	Classes      string
	TopicClasses string
	UnreadAnchor bool
	AriaLabel    string
	Subject      template.HTML

	AuthorHidden bool
	Byline       template.HTML
	PictureURL   string
	ProfileURL   string
	AuthorName   string
	ShowLeft     bool
	Groups       []groupPicture

	Body        template.HTML
	BodyClass   string
	ReadMoreURL string
	WordCount   string
	Commands    []command
	Link        *discussionLink
	Footer      template.HTML
}

const (
	postFull    = "full"
	postHidden  = "hidden"
	postDeleted = "deleted"
)

// AuthorHidden reports whether the author of post is anonymised. The first
// post of a single simple discussion forum is the forum description.
func AuthorHidden(post *data.Post, forum *data.Forum) bool {
	return forum.Type == data.ForumTypeSingle && post.Parent == 0
}

// Post renders one post. Callers surround it with PostStart and PostEnd and
// render replies before the PostEnd of their parent.
func (r *Renderer) Post(ctx context.Context, p *Pass, t PostTarget, opts PostOptions) (template.HTML, error) {
	post, forum, d := t.Post, t.Forum, t.Discussion
	caps, err := p.moduleCaps(ctx, r.forums, t.CM)
	if err != nil {
		return "", err
	}

	postIsRead := false
	if opts.PostIsRead != nil {
		postIsRead = *opts.PostIsRead
	} else if opts.IsTracked {
		if postIsRead, err = r.forums.IsPostRead(ctx, post, p.Viewer); err != nil {
			return "", err
		}
	}

	canSee, err := r.forums.CanSeePost(ctx, t.Course, forum, d, post, t.CM, caps, p.Viewer)
	if err != nil {
		return "", err
	}
	starter := post.Parent == 0
	topicClasses := "topic"
	if starter {
		topicClasses = "topic starter"
	}
	if !canSee {
		if !opts.DummyIfCantSee {
			return "", nil
		}
		postsRendered.WithLabelValues(postHidden).Inc()
		return r.tmpl.Fragment("post", postView{
			ID:           post.ID,
			Kind:         postHidden,
			TopicClasses: topicClasses,
			AriaLabel:    r.str.Get("hiddenforumpost"),
			Subject:      escape(r.str.Get("forumsubjecthidden")),
			Byline:       escape(r.str.Get("forumauthorhidden")),
			Body:         escape(r.str.Get("forumbodyhidden")),
		})
	}
	if post.Deleted {
		if !opts.DummyIfCantSee {
			return "", nil
		}
		postsRendered.WithLabelValues(postDeleted).Inc()
		return r.tmpl.Fragment("post", postView{
			ID:           post.ID,
			Kind:         postDeleted,
			TopicClasses: topicClasses,
			AriaLabel:    r.str.Get("forumbodydeleted"),
			Subject:      escape(r.str.Get("forumsubjectdeleted")),
			Body:         escape(r.str.Get("forumbodydeleted")),
		})
	}

	cfg := r.forums.Config()
	author := post.Author
	if author == nil {
		author = &data.User{ID: post.UserID}
	}
	fullName := r.forums.FullName(author)
	authorHidden := AuthorHidden(post, forum)

	v := postView{
		ID:           post.ID,
		Kind:         postFull,
		Classes:      "forumpost clearfix",
		TopicClasses: "topic",
		Subject:      template.HTML(r.text.String(post.Subject)),
		AuthorHidden: authorHidden,
		AuthorName:   fullName,
		Commands:     r.commands(p, t, opts, caps, postIsRead),
		Footer:       opts.Footer,
	}
	v.AriaLabel = r.text.StripTags(post.Subject)
	if !authorHidden {
		v.AriaLabel = r.str.Get("postbyuser", v.AriaLabel, fullName)
	}

	if opts.IsTracked {
		if postIsRead {
			v.Classes += " read"
		} else {
			v.Classes += " unread"
			v.UnreadAnchor = p.takeUnreadAnchor()
		}
	}
	if post.IsLastPost {
		v.Classes += " lastpost"
	}
	if starter {
		v.Classes += " firstpost starter"
		v.TopicClasses += " firstpost starter"
	}

	date := r.date(post.Created)
	if authorHidden {
		v.Byline = escape(date)
	} else {
		v.ProfileURL = r.profileURL(post.UserID, t.Course.ID)
		v.PictureURL = r.pictureURL(post.UserID, author.Picture)
		name := `<a href="` + template.HTMLEscapeString(v.ProfileURL) + `">` + template.HTMLEscapeString(fullName) + `</a>`
		v.Byline = template.HTML(r.str.Get("bynameondate", name, template.HTMLEscapeString(date)))
	}

	groups, err := p.posterGroups(ctx, r.forums, t.Course, t.CM, post.UserID)
	if err != nil {
		return "", err
	}
	for _, g := range groups {
		if g.Picture && !g.HidePicture {
			v.Groups = append(v.Groups, groupPicture{Name: g.Name, URL: r.link("/group/pix.php/"+itoa(g.ID)+"/f1.jpg", "")})
		}
	}
	v.ShowLeft = !authorHidden || len(groups) > 0

	body := r.formatText(ctx, post.Message, post.MessageFormat, post.MessageTrust)
	if opts.Link && len([]rune(r.text.StripTags(post.Message))) > cfg.LongPost {
		v.BodyClass = "shortenedpost"
		v.Body = template.HTML(format.ShortenText(body, cfg.ShortPost))
		v.ReadMoreURL = r.discussionURL(d.ID, "")
		v.WordCount = "(" + r.str.Plural("numwords", format.CountWords(post.Message)) + ")"
	} else {
		v.BodyClass = "fullpost"
		if opts.Highlight != "" {
			body = format.Highlight(opts.Highlight, body)
		}
		v.Body = template.HTML(body)
		if forum.DisplayWordCount {
			v.WordCount = r.str.Plural("numwords", format.CountWords(body))
		}
	}

	if opts.Link {
		canReply, err := r.forums.CanReply(ctx, forum, d, t.Course, t.CM, caps, p.Viewer)
		if err != nil {
			return "", err
		}
		link := &discussionLink{URL: r.discussionURL(d.ID, ""), Text: r.str.Get("viewthediscussion"), Replies: r.str.Plural("numreplies", t.Replies)}
		if canReply {
			link.Text = r.str.Get("discussthistopic")
		}
		if t.Unread > 0 {
			link.UnreadURL = r.discussionURL(d.ID, "unread")
			link.UnreadText = r.str.Plural("unreadposts", int(t.Unread))
		}
		v.Link = link
	}

	html, err := r.tmpl.Fragment("post", v)
	if err != nil {
		return "", err
	}
	postsRendered.WithLabelValues(postFull).Inc()

	if opts.IsTracked && !cfg.UserMarksRead && !postIsRead {
		if err := r.forums.MarkPostRead(ctx, forum, post, p.Viewer); err != nil {
			return "", err
		}
	}
	return html, nil
}

// commands lists the actions offered below a post.
func (r *Renderer) commands(p *Pass, t PostTarget, opts PostOptions, caps *service.ModuleCaps, postIsRead bool) []command {
	post, forum, d := t.Post, t.Forum, t.Discussion
	cfg := r.forums.Config()
	threaded := p.DisplayMode == ModeThreaded

	cmds := []command{{URL: r.discussionURL(d.ID, "p"+itoa(post.ID)), Text: r.str.Get("permalink"), Rel: "bookmark"}}

	if opts.IsTracked && cfg.UserMarksRead && p.Viewer.LoggedIn() {
		mark, text := "unread", r.str.Get("markunread")
		if !postIsRead {
			mark, text = "read", r.str.Get("markread")
		}
		params := []string{"postid", itoa(post.ID), "mark", mark}
		anchor := "p" + itoa(post.ID)
		if threaded {
			params = append(params, "parent", itoa(post.Parent))
			anchor = ""
		}
		cmds = append(cmds, command{URL: r.discussionURL(d.ID, anchor, params...), Text: text, Rel: "bookmark"})
	}

	if post.Parent != 0 {
		u := r.discussionURL(d.ID, "p"+itoa(post.Parent))
		if threaded {
			u = r.discussionURL(d.ID, "", "parent", itoa(post.Parent))
		}
		cmds = append(cmds, command{URL: u, Text: r.str.Get("parent"), Rel: "bookmark"})
	}

	now := r.forums.Now().Unix()
	age := time.Duration(now-post.Created) * time.Second
	if post.Parent == 0 && forum.Type == data.ForumTypeNews && d.TimeStart > now {
		age = 0
	}
	inWindow := opts.OwnPost && age < cfg.MaxEditingTime
	singleFirst := forum.Type == data.ForumTypeSingle && d.FirstPost == post.ID

	if singleFirst {
		if caps.ManageActivities {
			cmds = append(cmds, command{URL: r.link("/course/modedit.php", "", "update", itoa(t.CM.ID), "sesskey", p.SessKey, "return", "1"), Text: r.str.Get("edit")})
		}
	} else if inWindow || caps.EditAnyPost {
		cmds = append(cmds, command{URL: r.link("/mod/forum/post.php", "", "edit", itoa(post.ID)), Text: r.str.Get("edit")})
	}

	if caps.SplitDiscussions && post.Parent != 0 && forum.Type != data.ForumTypeSingle {
		cmds = append(cmds, command{URL: r.link("/mod/forum/post.php", "", "prune", itoa(post.ID)), Text: r.str.Get("prune"), Title: r.str.Get("pruneheading")})
	}

	if !singleFirst && ((inWindow && caps.DeleteOwnPost) || caps.DeleteAnyPost) {
		cmds = append(cmds, command{URL: r.link("/mod/forum/post.php", "", "delete", itoa(post.ID)), Text: r.str.Get("delete")})
	}

	if opts.Reply {
		cmds = append(cmds, command{URL: r.link("/mod/forum/post.php", "mformforum", "reply", itoa(post.ID)), Text: r.str.Get("reply")})
	}

	if cfg.EnablePortfolios && (caps.ExportPost || (opts.OwnPost && caps.ExportOwnPost)) {
		cmds = append(cmds, command{URL: r.link("/portfolio/add.php", "", "postid", itoa(post.ID), "sesskey", p.SessKey), Text: r.str.Get("exportportfolio")})
	}
	return cmds
}
