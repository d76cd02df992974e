package service

import (
	"context"
	"errors"
	"fmt"
	"go-course-format/internal/auth"
	"go-course-format/internal/config"
	"go-course-format/internal/data"
	"strings"
	"time"
)

// ForumRepository defines the database operations on forums and discussions.
type ForumRepository interface {
	GetForum(ctx context.Context, id int64) (*data.Forum, error)
	CourseForums(ctx context.Context, courseID int64) ([]*data.Forum, []*data.CourseModule, error)
	Discussions(ctx context.Context, q data.DiscussionQuery) ([]*data.DiscussionSummary, error)
	CountDiscussions(ctx context.Context, q data.DiscussionQuery) (int, error)
	CountReplies(ctx context.Context, forumID int64, discussionIDs []int64) (map[int64]data.ReplyCount, error)
	FirstPost(ctx context.Context, discussionID int64) (*data.Post, error)
	UserPostedTime(ctx context.Context, discussionID, userID int64) (int64, bool, error)
	UserHasStartedDiscussion(ctx context.Context, forumID, userID int64) (bool, error)
	SubscribedDiscussions(ctx context.Context, forumID, userID int64) (map[int64]bool, error)
}

// ReadRepository defines the read tracking storage.
type ReadRepository interface {
	Unreads(ctx context.Context, forumID, userID, cutoff int64) (map[int64]int, error)
	HasRead(ctx context.Context, userID, postID int64) (bool, error)
	MarkRead(ctx context.Context, userID, forumID int64, post *data.Post, now int64) error
	TrackingDisabled(ctx context.Context, userID, forumID int64) (bool, error)
}

// GroupRepository defines the course group storage.
type GroupRepository interface {
	GetGroup(ctx context.Context, id int64) (*data.Group, error)
	UserGroups(ctx context.Context, courseID, userID, groupingID int64) ([]*data.Group, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// ForumModule is a forum together with its course module.
type ForumModule struct {
	Forum *data.Forum
	CM    *data.CourseModule
}

// ModuleCaps are the capabilities of one viewer in one forum module.
type ModuleCaps struct {
	ViewDiscussion          bool
	ViewQandAWithoutPosting bool
	ViewHiddenTimedPosts    bool
	ViewHiddenActivities    bool
	AccessAllGroups         bool
	ManageActivities        bool
	StartDiscussion         bool
	AddNews                 bool
	AddQuestion             bool
	ReplyPost               bool
	ReplyNews               bool
	EditAnyPost             bool
	DeleteOwnPost           bool
	DeleteAnyPost           bool
	SplitDiscussions        bool
	ExportPost              bool
	ExportOwnPost           bool
	CanPostToMyGroups       bool
}

// StartCapability reports whether the viewer holds the capability needed to
// start a discussion in a forum of type forumType.
func (c *ModuleCaps) StartCapability(forumType string) bool {
	switch forumType {
	case data.ForumTypeNews:
		return c.AddNews
	case data.ForumTypeQandA:
		return c.AddQuestion
	default:
		return c.StartDiscussion
	}
}

// ForumServicer defines the forum operations used by the renderers.
type ForumServicer interface {
	Config() config.ForumConfig
	Now() time.Time
	FullName(u *data.User) string

	GetForum(ctx context.Context, id int64) (*data.Forum, error)
	ReadableForums(ctx context.Context, course *data.Course, viewer Viewer) ([]ForumModule, error)
	CourseModule(ctx context.Context, course *data.Course, forum *data.Forum) (*data.CourseModule, error)
	ModuleCaps(ctx context.Context, cm *data.CourseModule, viewer Viewer) (*ModuleCaps, error)

	DiscussionQuery(forum *data.Forum, caps *ModuleCaps, viewer Viewer, groupMode int, currentGroup int64) data.DiscussionQuery
	Discussions(ctx context.Context, q data.DiscussionQuery) ([]*data.DiscussionSummary, error)
	CountDiscussions(ctx context.Context, q data.DiscussionQuery) (int, error)
	CountReplies(ctx context.Context, forumID int64, discussionIDs []int64) (map[int64]data.ReplyCount, error)
	Unreads(ctx context.Context, forumID int64, viewer Viewer) (map[int64]int, error)
	Subscriptions(ctx context.Context, forumID int64, viewer Viewer) (map[int64]bool, error)

	CanSeeDiscussion(ctx context.Context, course *data.Course, d *data.Discussion, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer) (bool, error)
	CanSeePost(ctx context.Context, course *data.Course, forum *data.Forum, d *data.Discussion, post *data.Post, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer) (bool, error)
	CanPostDiscussion(ctx context.Context, forum *data.Forum, course *data.Course, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer, groupMode int, currentGroup int64) (bool, error)
	CanReply(ctx context.Context, forum *data.Forum, d *data.Discussion, course *data.Course, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer) (bool, error)
	UserHasPosted(ctx context.Context, forum *data.Forum, d *data.Discussion, viewer Viewer) (bool, error)

	ActivityGroupMode(course *data.Course, cm *data.CourseModule) int
	ActivityGroup(ctx context.Context, course *data.Course, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer, requested int64) (int64, error)
	GetGroup(ctx context.Context, id int64) (*data.Group, error)
	UserGroups(ctx context.Context, course *data.Course, cm *data.CourseModule, userID int64) ([]*data.Group, error)
	IsMember(ctx context.Context, groupID int64, viewer Viewer) (bool, error)

	CanTrack(forum *data.Forum) bool
	IsTracked(ctx context.Context, forum *data.Forum, viewer Viewer) (bool, error)
	IsPostRead(ctx context.Context, post *data.Post, viewer Viewer) (bool, error)
	MarkPostRead(ctx context.Context, forum *data.Forum, post *data.Post, viewer Viewer) error

	IsEnrolled(ctx context.Context, course *data.Course, viewer Viewer) (bool, error)
	IsViewing(ctx context.Context, course *data.Course, viewer Viewer) (bool, error)
}

// ForumService implements the forum rules on top of the repositories.
type ForumService struct {
	forums ForumRepository
	reads  ReadRepository
	groups GroupRepository
	caps   Capabilities
	cfg    config.ForumConfig
	now    func() time.Time
}

var _ ForumServicer = (*ForumService)(nil)

// NewForumService creates a ForumService.
func NewForumService(forums ForumRepository, reads ReadRepository, groups GroupRepository, caps Capabilities, cfg config.ForumConfig) *ForumService {
	return &ForumService{
		forums: forums,
		reads:  reads,
		groups: groups,
		caps:   caps,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for time windows.
func (s *ForumService) WithClock(now func() time.Time) *ForumService {
	s.now = now
	return s
}

// Config returns the forum settings.
func (s *ForumService) Config() config.ForumConfig { return s.cfg }

// Now returns the current time in the display timezone.
func (s *ForumService) Now() time.Time { return s.now().In(s.cfg.Location()) }

// FullName formats the name of u following the fullnamedisplay setting.
func (s *ForumService) FullName(u *data.User) string {
	if u == nil {
		return ""
	}
	r := strings.NewReplacer("firstname", u.FirstName, "lastname", u.LastName)
	return strings.TrimSpace(r.Replace(s.cfg.FullNameDisplay))
}

// GetForum retrieves a forum by ID.
func (s *ForumService) GetForum(ctx context.Context, id int64) (*data.Forum, error) {
	return s.forums.GetForum(ctx, id)
}

// ReadableForums returns the forums of the course the viewer can read, in
// course order. Visibility and capabilities are checked on every call.
func (s *ForumService) ReadableForums(ctx context.Context, course *data.Course, viewer Viewer) ([]ForumModule, error) {
	forums, cms, err := s.forums.CourseForums(ctx, course.ID)
	if err != nil {
		return nil, err
	}

	var out []ForumModule
	for i, cm := range cms {
		caps, err := s.ModuleCaps(ctx, cm, viewer)
		if err != nil {
			return nil, err
		}
		if cm.UserVisible && caps.ViewDiscussion {
			out = append(out, ForumModule{Forum: forums[i], CM: cm})
		}
	}
	return out, nil
}

// ErrInvalidCourseModule is returned when a forum has no course module.
var ErrInvalidCourseModule = errors.New("invalidcoursemodule")

// CourseModule finds the course module of forum.
func (s *ForumService) CourseModule(ctx context.Context, course *data.Course, forum *data.Forum) (*data.CourseModule, error) {
	_, cms, err := s.forums.CourseForums(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	for _, cm := range cms {
		if cm.Instance == forum.ID {
			return cm, nil
		}
	}
	return nil, fmt.Errorf("forum %d: %w", forum.ID, ErrInvalidCourseModule)
}

// ModuleCaps reads every forum capability of the viewer in the module and
// sets cm.UserVisible.
func (s *ForumService) ModuleCaps(ctx context.Context, cm *data.CourseModule, viewer Viewer) (*ModuleCaps, error) {
	c := &ModuleCaps{}
	checks := []struct {
		capability string
		dst        *bool
	}{
		{auth.CapViewDiscussion, &c.ViewDiscussion},
		{auth.CapViewQandAWithoutPost, &c.ViewQandAWithoutPosting},
		{auth.CapViewHiddenTimedPosts, &c.ViewHiddenTimedPosts},
		{auth.CapViewHiddenActivities, &c.ViewHiddenActivities},
		{auth.CapAccessAllGroups, &c.AccessAllGroups},
		{auth.CapManageActivities, &c.ManageActivities},
		{auth.CapStartDiscussion, &c.StartDiscussion},
		{auth.CapAddNews, &c.AddNews},
		{auth.CapAddQuestion, &c.AddQuestion},
		{auth.CapReplyPost, &c.ReplyPost},
		{auth.CapReplyNews, &c.ReplyNews},
		{auth.CapEditAnyPost, &c.EditAnyPost},
		{auth.CapDeleteOwnPost, &c.DeleteOwnPost},
		{auth.CapDeleteAnyPost, &c.DeleteAnyPost},
		{auth.CapSplitDiscussions, &c.SplitDiscussions},
		{auth.CapExportPost, &c.ExportPost},
		{auth.CapExportOwnPost, &c.ExportOwnPost},
		{auth.CapCanPostToMyGroups, &c.CanPostToMyGroups},
	}
	for _, check := range checks {
		ok, err := s.caps.Has(viewer.ID(), cm.CourseID, check.capability)
		if err != nil {
			return nil, err
		}
		*check.dst = ok
	}
	cm.UserVisible = cm.Visible || c.ViewHiddenActivities
	return c, nil
}

// DiscussionQuery builds the query selecting the discussions of forum the
// viewer may list in the current group.
func (s *ForumService) DiscussionQuery(forum *data.Forum, caps *ModuleCaps, viewer Viewer, groupMode int, currentGroup int64) data.DiscussionQuery {
	q := data.DiscussionQuery{
		ForumID:   forum.ID,
		HideTimed: !caps.ViewHiddenTimedPosts,
		ViewerID:  viewer.ID(),
		Now:       s.now().Unix(),
	}
	if groupMode > data.NoGroups {
		switch {
		case currentGroup > 0:
			q.Groups = []int64{currentGroup}
		case groupMode == data.SeparateGroups && !caps.AccessAllGroups:
			q.Groups = []int64{}
		}
	}
	return q
}

// Discussions lists discussions.
func (s *ForumService) Discussions(ctx context.Context, q data.DiscussionQuery) ([]*data.DiscussionSummary, error) {
	return s.forums.Discussions(ctx, q)
}

// CountDiscussions counts discussions.
func (s *ForumService) CountDiscussions(ctx context.Context, q data.DiscussionQuery) (int, error) {
	return s.forums.CountDiscussions(ctx, q)
}

// CountReplies counts replies per discussion.
func (s *ForumService) CountReplies(ctx context.Context, forumID int64, discussionIDs []int64) (map[int64]data.ReplyCount, error) {
	return s.forums.CountReplies(ctx, forumID, discussionIDs)
}

// OldPostCutoff is the unix time before which posts count as read.
func (s *ForumService) OldPostCutoff() int64 {
	return s.now().AddDate(0, 0, -s.cfg.OldPostDays).Unix()
}

// Unreads counts the unread recent posts per discussion for viewer.
func (s *ForumService) Unreads(ctx context.Context, forumID int64, viewer Viewer) (map[int64]int, error) {
	if !viewer.Member() {
		return map[int64]int{}, nil
	}
	return s.reads.Unreads(ctx, forumID, viewer.ID(), s.OldPostCutoff())
}

// Subscriptions returns the discussions of the forum the viewer follows.
func (s *ForumService) Subscriptions(ctx context.Context, forumID int64, viewer Viewer) (map[int64]bool, error) {
	if !viewer.Member() {
		return map[int64]bool{}, nil
	}
	return s.forums.SubscribedDiscussions(ctx, forumID, viewer.ID())
}

// CanSeeDiscussion reports whether viewer may open discussion d, honouring
// timed display periods and separate groups.
func (s *ForumService) CanSeeDiscussion(ctx context.Context, course *data.Course, d *data.Discussion, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer) (bool, error) {
	if !caps.ViewDiscussion {
		return false, nil
	}
	if d.Timed() && !caps.ViewHiddenTimedPosts && d.UserID != viewer.ID() && !d.VisibleAt(s.now()) {
		return false, nil
	}
	if d.GroupID == data.AllParticipants || s.ActivityGroupMode(course, cm) != data.SeparateGroups || caps.AccessAllGroups {
		return true, nil
	}
	return s.IsMember(ctx, d.GroupID, viewer)
}

// CanSeePost reports whether viewer may read post. In Q&A forums a post is
// hidden from users without their own post older than the editing window,
// unless it is the first post or theirs.
func (s *ForumService) CanSeePost(ctx context.Context, course *data.Course, forum *data.Forum, d *data.Discussion, post *data.Post, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer) (bool, error) {
	if !cm.UserVisible {
		return false, nil
	}
	ok, err := s.CanSeeDiscussion(ctx, course, d, cm, caps, viewer)
	if err != nil || !ok {
		return false, err
	}
	if forum.Type != data.ForumTypeQandA || caps.ViewQandAWithoutPosting {
		return true, nil
	}

	uid := viewer.ID()
	if post.UserID == uid || d.UserID == uid || post.ID == d.FirstPost {
		return true, nil
	}
	first, err := s.forums.FirstPost(ctx, d.ID)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return false, err
	}
	if first != nil && first.UserID == uid {
		return true, nil
	}
	posted, has, err := s.forums.UserPostedTime(ctx, d.ID, uid)
	if err != nil {
		return false, err
	}
	return has && s.now().Unix()-posted >= int64(s.cfg.MaxEditingTime/time.Second), nil
}

// CanPostDiscussion reports whether viewer holds the right to start a
// discussion in forum for currentGroup.
func (s *ForumService) CanPostDiscussion(ctx context.Context, forum *data.Forum, course *data.Course, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer, groupMode int, currentGroup int64) (bool, error) {
	if !caps.StartCapability(forum.Type) {
		return false, nil
	}
	if forum.Type == data.ForumTypeSingle {
		return false, nil
	}
	if forum.Type == data.ForumTypeEachUser {
		started, err := s.forums.UserHasStartedDiscussion(ctx, forum.ID, viewer.ID())
		if err != nil || started {
			return false, err
		}
	}
	if groupMode == data.NoGroups || caps.AccessAllGroups {
		return true, nil
	}
	if currentGroup > 0 {
		return s.IsMember(ctx, currentGroup, viewer)
	}
	if !caps.CanPostToMyGroups {
		return false, nil
	}
	groups, err := s.groups.UserGroups(ctx, course.ID, viewer.ID(), cm.GroupingID)
	if err != nil {
		return false, err
	}
	return len(groups) > 0, nil
}

// CanReply reports whether viewer may reply in discussion d.
func (s *ForumService) CanReply(ctx context.Context, forum *data.Forum, d *data.Discussion, course *data.Course, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer) (bool, error) {
	if !viewer.Member() || !cm.UserVisible {
		return false, nil
	}
	if forum.Type == data.ForumTypeNews {
		if !caps.ReplyNews {
			return false, nil
		}
	} else if !caps.ReplyPost {
		return false, nil
	}
	mode := s.ActivityGroupMode(course, cm)
	if mode == data.NoGroups || caps.AccessAllGroups || d.GroupID == data.AllParticipants {
		return true, nil
	}
	return s.IsMember(ctx, d.GroupID, viewer)
}

// UserHasPosted reports whether viewer posted in discussion d.
func (s *ForumService) UserHasPosted(ctx context.Context, forum *data.Forum, d *data.Discussion, viewer Viewer) (bool, error) {
	if !viewer.Member() {
		return false, nil
	}
	_, has, err := s.forums.UserPostedTime(ctx, d.ID, viewer.ID())
	return has, err
}

// ActivityGroupMode is the effective group mode of a course module.
func (s *ForumService) ActivityGroupMode(course *data.Course, cm *data.CourseModule) int {
	if course.GroupModeForce {
		return course.GroupMode
	}
	return cm.GroupMode
}

// ActivityGroup selects the active group of the viewer in a module. A
// positive requested group is used when the viewer may see it; otherwise
// viewers with access to all groups, and everybody in visible groups mode, see
// all participants while others see their first group.
func (s *ForumService) ActivityGroup(ctx context.Context, course *data.Course, cm *data.CourseModule, caps *ModuleCaps, viewer Viewer, requested int64) (int64, error) {
	mode := s.ActivityGroupMode(course, cm)
	if mode == data.NoGroups {
		return 0, nil
	}
	if requested > 0 {
		g, err := s.groups.GetGroup(ctx, requested)
		switch {
		case errors.Is(err, data.ErrNotFound):
		case err != nil:
			return 0, err
		case g.CourseID == course.ID:
			if mode == data.VisibleGroups || caps.AccessAllGroups {
				return g.ID, nil
			}
			member, err := s.IsMember(ctx, g.ID, viewer)
			if err != nil {
				return 0, err
			}
			if member {
				return g.ID, nil
			}
		}
	}
	if mode == data.VisibleGroups || caps.AccessAllGroups || !viewer.Member() {
		return 0, nil
	}
	groups, err := s.groups.UserGroups(ctx, course.ID, viewer.ID(), cm.GroupingID)
	if err != nil {
		return 0, err
	}
	if len(groups) == 0 {
		return 0, nil
	}
	return groups[0].ID, nil
}

// GetGroup retrieves a group by ID.
func (s *ForumService) GetGroup(ctx context.Context, id int64) (*data.Group, error) {
	return s.groups.GetGroup(ctx, id)
}

// UserGroups returns the groups of the module's grouping a user belongs to.
func (s *ForumService) UserGroups(ctx context.Context, course *data.Course, cm *data.CourseModule, userID int64) ([]*data.Group, error) {
	return s.groups.UserGroups(ctx, course.ID, userID, cm.GroupingID)
}

// IsMember reports whether viewer belongs to the group.
func (s *ForumService) IsMember(ctx context.Context, groupID int64, viewer Viewer) (bool, error) {
	if !viewer.Member() {
		return false, nil
	}
	return s.groups.IsMember(ctx, groupID, viewer.ID())
}

// CanTrack reports whether read tracking is available in forum.
func (s *ForumService) CanTrack(forum *data.Forum) bool {
	return s.cfg.TrackReadPosts && forum.TrackingType != data.TrackingOff
}

// IsTracked reports whether the forum tracks read posts for viewer.
func (s *ForumService) IsTracked(ctx context.Context, forum *data.Forum, viewer Viewer) (bool, error) {
	if !s.CanTrack(forum) || !viewer.Member() {
		return false, nil
	}
	if forum.TrackingType == data.TrackingForced {
		return true, nil
	}
	if !viewer.User.TrackForums {
		return false, nil
	}
	disabled, err := s.reads.TrackingDisabled(ctx, viewer.ID(), forum.ID)
	if err != nil {
		return false, err
	}
	return !disabled, nil
}

// IsPostRead reports whether viewer read post. Posts older than the
// oldpostdays window always count as read.
func (s *ForumService) IsPostRead(ctx context.Context, post *data.Post, viewer Viewer) (bool, error) {
	if post.Modified < s.OldPostCutoff() {
		return true, nil
	}
	if !viewer.Member() {
		return false, nil
	}
	return s.reads.HasRead(ctx, viewer.ID(), post.ID)
}

// MarkPostRead records that viewer read post.
func (s *ForumService) MarkPostRead(ctx context.Context, forum *data.Forum, post *data.Post, viewer Viewer) error {
	if !viewer.Member() {
		return nil
	}
	return s.reads.MarkRead(ctx, viewer.ID(), forum.ID, post, s.now().Unix())
}

// IsEnrolled reports whether viewer is enrolled in course.
func (s *ForumService) IsEnrolled(ctx context.Context, course *data.Course, viewer Viewer) (bool, error) {
	return s.caps.IsEnrolled(viewer.ID(), course.ID)
}

// IsViewing reports whether viewer may view course without enrolment.
func (s *ForumService) IsViewing(ctx context.Context, course *data.Course, viewer Viewer) (bool, error) {
	return s.caps.IsViewing(viewer.ID(), course.ID)
}
