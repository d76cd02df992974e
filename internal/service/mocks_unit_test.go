//go:build unit

package service

import (
	"context"
	"go-course-format/internal/data"
)

// mockForumRepository is a mock implementation of the ForumRepository interface.
type mockForumRepository struct {
	errToReturn        error
	forums             []*data.Forum
	cms                []*data.CourseModule
	firstPost          *data.Post
	postedAt           map[int64]int64
	started            bool
	courseForumsCalled int
	lastQuery          data.DiscussionQuery
}

var _ ForumRepository = (*mockForumRepository)(nil)

func (m *mockForumRepository) GetForum(ctx context.Context, id int64) (*data.Forum, error) {
	for _, f := range m.forums {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockForumRepository) CourseForums(ctx context.Context, courseID int64) ([]*data.Forum, []*data.CourseModule, error) {
	m.courseForumsCalled++
	if m.errToReturn != nil {
		return nil, nil, m.errToReturn
	}
	return m.forums, m.cms, nil
}

func (m *mockForumRepository) Discussions(ctx context.Context, q data.DiscussionQuery) ([]*data.DiscussionSummary, error) {
	m.lastQuery = q
	return nil, m.errToReturn
}

func (m *mockForumRepository) CountDiscussions(ctx context.Context, q data.DiscussionQuery) (int, error) {
	m.lastQuery = q
	return 0, m.errToReturn
}

func (m *mockForumRepository) CountReplies(ctx context.Context, forumID int64, discussionIDs []int64) (map[int64]data.ReplyCount, error) {
	return map[int64]data.ReplyCount{}, m.errToReturn
}

func (m *mockForumRepository) FirstPost(ctx context.Context, discussionID int64) (*data.Post, error) {
	if m.firstPost == nil {
		return nil, data.ErrNotFound
	}
	return m.firstPost, nil
}

func (m *mockForumRepository) UserPostedTime(ctx context.Context, discussionID, userID int64) (int64, bool, error) {
	created, ok := m.postedAt[userID]
	return created, ok, m.errToReturn
}

func (m *mockForumRepository) UserHasStartedDiscussion(ctx context.Context, forumID, userID int64) (bool, error) {
	return m.started, m.errToReturn
}

func (m *mockForumRepository) SubscribedDiscussions(ctx context.Context, forumID, userID int64) (map[int64]bool, error) {
	return map[int64]bool{}, m.errToReturn
}

// mockReadRepository is a mock implementation of the ReadRepository interface.
type mockReadRepository struct {
	read          map[int64]bool
	disabled      bool
	hasReadCalled int
	marked        []int64
	lastCutoff    int64
}

var _ ReadRepository = (*mockReadRepository)(nil)

func (m *mockReadRepository) Unreads(ctx context.Context, forumID, userID, cutoff int64) (map[int64]int, error) {
	m.lastCutoff = cutoff
	return map[int64]int{}, nil
}

func (m *mockReadRepository) HasRead(ctx context.Context, userID, postID int64) (bool, error) {
	m.hasReadCalled++
	return m.read[postID], nil
}

func (m *mockReadRepository) MarkRead(ctx context.Context, userID, forumID int64, post *data.Post, now int64) error {
	m.marked = append(m.marked, post.ID)
	return nil
}

func (m *mockReadRepository) TrackingDisabled(ctx context.Context, userID, forumID int64) (bool, error) {
	return m.disabled, nil
}

// mockGroupRepository is a mock implementation of the GroupRepository interface.
type mockGroupRepository struct {
	groups  map[int64]*data.Group
	members map[int64]bool
	mine    []*data.Group
}

var _ GroupRepository = (*mockGroupRepository)(nil)

func (m *mockGroupRepository) GetGroup(ctx context.Context, id int64) (*data.Group, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return nil, data.ErrNotFound
}

func (m *mockGroupRepository) UserGroups(ctx context.Context, courseID, userID, groupingID int64) ([]*data.Group, error) {
	return m.mine, nil
}

func (m *mockGroupRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	return m.members[groupID], nil
}

// mockCapabilities grants the listed capabilities to every user.
type mockCapabilities struct {
	granted   map[string]bool
	enrolled  bool
	viewing   bool
	hasCalled int
}

var _ Capabilities = (*mockCapabilities)(nil)

func (m *mockCapabilities) Has(userID, courseID int64, capability string) (bool, error) {
	m.hasCalled++
	return m.granted[capability], nil
}

func (m *mockCapabilities) IsEnrolled(userID, courseID int64) (bool, error) {
	return m.enrolled, nil
}

func (m *mockCapabilities) IsViewing(userID, courseID int64) (bool, error) {
	return m.viewing, nil
}

// mockCourseRepository is a mock implementation of the CourseRepository interface.
type mockCourseRepository struct {
	errToReturn     error
	course          *data.Course
	sections        []*data.Section
	cms             []*data.CourseModule
	lastMarker      int
	setMarkerCalled bool
	ensuredUpTo     int
}

var _ CourseRepository = (*mockCourseRepository)(nil)

func (m *mockCourseRepository) GetCourse(ctx context.Context, id int64) (*data.Course, error) {
	if m.course == nil || m.course.ID != id {
		return nil, data.ErrNotFound
	}
	return m.course, nil
}

func (m *mockCourseRepository) ListCourses(ctx context.Context) ([]*data.Course, error) {
	return []*data.Course{m.course}, nil
}

func (m *mockCourseRepository) SetMarker(ctx context.Context, courseID int64, marker int) error {
	m.setMarkerCalled = true
	m.lastMarker = marker
	return m.errToReturn
}

func (m *mockCourseRepository) Sections(ctx context.Context, courseID int64) ([]*data.Section, error) {
	return m.sections, m.errToReturn
}

func (m *mockCourseRepository) CreateSectionsIfMissing(ctx context.Context, courseID int64, upTo int) (int, error) {
	m.ensuredUpTo = upTo
	return 1, m.errToReturn
}

func (m *mockCourseRepository) CourseModules(ctx context.Context, courseID int64) ([]*data.CourseModule, error) {
	return m.cms, m.errToReturn
}

func (m *mockCourseRepository) CourseModuleByInstance(ctx context.Context, module string, instance int64) (*data.CourseModule, error) {
	for _, cm := range m.cms {
		if cm.Module == module && cm.Instance == instance {
			return cm, nil
		}
	}
	return nil, data.ErrNotFound
}
