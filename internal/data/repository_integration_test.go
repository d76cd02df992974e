//go:build integration

package data_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-course-format/internal/data"
	"go-course-format/internal/testutil"
)

func TestCourseRepository(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := data.NewCourseRepository(db)
	ctx := context.Background()
	course := fx.Course("Biology", 2)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetCourse(ctx, course.ID)
		require.NoError(t, err)
		assert.Equal(t, "Biology", got.FullName)
		assert.Equal(t, "biology", got.ShortName)

		_, err = repo.GetCourse(ctx, 9999)
		assert.ErrorIs(t, err, data.ErrNotFound)
	})

	t.Run("set marker", func(t *testing.T) {
		require.NoError(t, repo.SetMarker(ctx, course.ID, 2))
		got, err := repo.GetCourse(ctx, course.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Marker)

		assert.ErrorIs(t, repo.SetMarker(ctx, 9999, 1), data.ErrNotFound)
	})

	t.Run("create missing sections", func(t *testing.T) {
		n, err := repo.CreateSectionsIfMissing(ctx, course.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.CreateSectionsIfMissing(ctx, course.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "only section 3 was missing")

		sections, err := repo.Sections(ctx, course.ID)
		require.NoError(t, err)
		require.Len(t, sections, 4)
		for i, s := range sections {
			assert.Equal(t, i, s.Section)
			assert.True(t, s.Visible)
		}
	})

	t.Run("modules", func(t *testing.T) {
		fx.Forum(course, 2, data.ForumTypeGeneral, "Later")
		_, cm := fx.Forum(course, 0, data.ForumTypeNews, "Announcements")

		cms, err := repo.CourseModules(ctx, course.ID)
		require.NoError(t, err)
		require.Len(t, cms, 2)
		assert.Equal(t, "Announcements", cms[0].Name)
		assert.Equal(t, 0, cms[0].Section)
		assert.Equal(t, "Later", cms[1].Name)

		got, err := repo.CourseModuleByInstance(ctx, "forum", cm.Instance)
		require.NoError(t, err)
		assert.Equal(t, cm.ID, got.ID)

		_, err = repo.CourseModuleByInstance(ctx, "forum", 9999)
		assert.ErrorIs(t, err, data.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		fx.Course("Chemistry", 0)
		courses, err := repo.ListCourses(ctx)
		require.NoError(t, err)
		assert.Len(t, courses, 2)
	})
}

func TestForumRepositoryDiscussions(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := data.NewForumRepository(db)
	ctx := context.Background()

	tina := fx.User("Tina", "Teacher")
	sam := fx.User("Sam", "Student")
	course := fx.Course("Biology", 1)
	forum, _ := fx.Forum(course, 1, data.ForumTypeGeneral, "Discussions")
	red := fx.Group(course, "Red", sam)
	blue := fx.Group(course, "Blue")

	old, oldFirst := fx.Discussion(forum, tina, "Old", "m", 100)
	mid, _ := fx.Discussion(forum, tina, "Mid", "m", 200, testutil.DiscussionOpts{GroupID: red.ID})
	fx.Discussion(forum, tina, "New", "m", 300, testutil.DiscussionOpts{GroupID: blue.ID})
	fx.Discussion(forum, tina, "Pinned", "m", 50, testutil.DiscussionOpts{Pinned: true})
	fx.Discussion(forum, tina, "Future", "m", 400, testutil.DiscussionOpts{TimeStart: 5000})
	fx.Discussion(forum, sam, "Mine later", "m", 410, testutil.DiscussionOpts{TimeStart: 5000})
	fx.Reply(old, oldFirst, sam, "bump", 500)

	names := func(ds []*data.DiscussionSummary) []string {
		var out []string
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}

	tests := []struct {
		name  string
		query data.DiscussionQuery
		want  []string
	}{
		{"last post order", data.DiscussionQuery{ForumID: forum.ID},
			[]string{"Pinned", "Old", "Mine later", "Future", "New", "Mid"}},
		{"hide timed", data.DiscussionQuery{ForumID: forum.ID, HideTimed: true, Now: 1000, ViewerID: sam.ID},
			[]string{"Pinned", "Old", "Mine later", "New", "Mid"}},
		{"name order", data.DiscussionQuery{ForumID: forum.ID, Sort: "name"},
			[]string{"Pinned", "Future", "Mid", "Mine later", "New", "Old"}},
		{"limit and offset", data.DiscussionQuery{ForumID: forum.ID, Limit: 2, Offset: 1},
			[]string{"Old", "Mine later"}},
		{"all participants only", data.DiscussionQuery{ForumID: forum.ID, Groups: []int64{}},
			[]string{"Pinned", "Old", "Mine later", "Future"}},
		{"one group", data.DiscussionQuery{ForumID: forum.ID, Groups: []int64{red.ID}},
			[]string{"Pinned", "Old", "Mine later", "Future", "Mid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Discussions(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))

			q := tt.query
			q.Limit, q.Offset = 0, 0
			all, err := repo.Discussions(ctx, q)
			require.NoError(t, err)
			n, err := repo.CountDiscussions(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, len(all), n)
		})
	}

	t.Run("unknown sort", func(t *testing.T) {
		_, err := repo.Discussions(ctx, data.DiscussionQuery{ForumID: forum.ID, Sort: "random; DROP TABLE"})
		assert.Error(t, err)
		assert.False(t, data.ValidSort("random"))
		assert.True(t, data.ValidSort("oldest"))
	})

	t.Run("summary joins", func(t *testing.T) {
		got, err := repo.Discussions(ctx, data.DiscussionQuery{ForumID: forum.ID, Sort: "name", Limit: 6})
		require.NoError(t, err)
		var oldSummary *data.DiscussionSummary
		for _, d := range got {
			if d.ID == old.ID {
				oldSummary = d
			}
		}
		require.NotNil(t, oldSummary)
		assert.Equal(t, oldFirst.ID, oldSummary.Post.ID)
		assert.Equal(t, "Tina", oldSummary.Author.FirstName)
		assert.Same(t, &oldSummary.Author, oldSummary.Post.Author)
		require.NotNil(t, oldSummary.LastAuthor)
		assert.Equal(t, "Sam", oldSummary.LastAuthor.FirstName)
	})

	t.Run("replies", func(t *testing.T) {
		fx.Reply(old, oldFirst, tina, "again", 600)
		all, err := repo.CountReplies(ctx, forum.ID, nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Equal(t, 2, all[old.ID].Replies)
		assert.Greater(t, all[old.ID].LastPostID, oldFirst.ID)

		some, err := repo.CountReplies(ctx, forum.ID, []int64{mid.ID})
		require.NoError(t, err)
		assert.Empty(t, some)

		none, err := repo.CountReplies(ctx, forum.ID, []int64{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("posts by user", func(t *testing.T) {
		first, err := repo.FirstPost(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, oldFirst.ID, first.ID)

		_, err = repo.FirstPost(ctx, 9999)
		assert.ErrorIs(t, err, data.ErrNotFound)

		created, ok, err := repo.UserPostedTime(ctx, old.ID, sam.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(500), created)

		_, ok, err = repo.UserPostedTime(ctx, mid.ID, sam.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		started, err := repo.UserHasStartedDiscussion(ctx, forum.ID, sam.ID)
		require.NoError(t, err)
		assert.True(t, started)
	})

	t.Run("subscriptions", func(t *testing.T) {
		fx.Subscribe(sam, mid)
		subs, err := repo.SubscribedDiscussions(ctx, forum.ID, sam.ID)
		require.NoError(t, err)
		assert.Equal(t, map[int64]bool{mid.ID: true}, subs)
	})
}

func TestForumRepositoryForums(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := data.NewForumRepository(db)
	ctx := context.Background()
	course := fx.Course("Biology", 2)
	second, _ := fx.Forum(course, 2, data.ForumTypeQandA, "Questions")
	first, firstCM := fx.Forum(course, 1, data.ForumTypeGeneral, "Chat")
	fx.HideModule(firstCM)
	fx.SetForum(first, data.TrackingForced, true)

	got, err := repo.GetForum(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, data.TrackingForced, got.TrackingType)
	assert.True(t, got.DisplayWordCount)

	_, err = repo.GetForum(ctx, 9999)
	assert.ErrorIs(t, err, data.ErrNotFound)

	forums, cms, err := repo.CourseForums(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, forums, 2)
	require.Len(t, cms, 2)
	assert.Equal(t, first.ID, forums[0].ID)
	assert.Equal(t, second.ID, forums[1].ID)
	assert.Equal(t, firstCM.ID, cms[0].ID)
	assert.Equal(t, first.ID, cms[0].Instance)
	assert.False(t, cms[0].Visible)
	assert.True(t, cms[1].Visible)
}

func TestReadRepository(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := data.NewReadRepository(db)
	ctx := context.Background()
	tina := fx.User("Tina", "Teacher")
	sam := fx.User("Sam", "Student")
	course := fx.Course("Biology", 1)
	forum, _ := fx.Forum(course, 1, data.ForumTypeGeneral, "Discussions")
	d1, p1 := fx.Discussion(forum, tina, "One", "m", 1000)
	r1 := fx.Reply(d1, p1, tina, "r", 1100)
	d2, _ := fx.Discussion(forum, tina, "Two", "m", 10)
	fx.Read(sam, forum, p1, 1200)

	unreads, err := repo.Unreads(ctx, forum.ID, sam.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{d1.ID: 1}, unreads, "old posts and read posts are not counted")

	read, err := repo.HasRead(ctx, sam.ID, r1.ID)
	require.NoError(t, err)
	assert.False(t, read)

	require.NoError(t, repo.MarkRead(ctx, sam.ID, forum.ID, r1, 1300))
	require.NoError(t, repo.MarkRead(ctx, sam.ID, forum.ID, r1, 1400))
	var lastread, rows int64
	require.NoError(t, db.Get(&rows, `SELECT COUNT(*) FROM forum_read WHERE userid = ? AND postid = ?`, sam.ID, r1.ID))
	require.NoError(t, db.Get(&lastread, `SELECT lastread FROM forum_read WHERE userid = ? AND postid = ?`, sam.ID, r1.ID))
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, int64(1400), lastread)

	unreads, err = repo.Unreads(ctx, forum.ID, sam.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{d2.ID: 1}, unreads)

	disabled, err := repo.TrackingDisabled(ctx, sam.ID, forum.ID)
	require.NoError(t, err)
	assert.False(t, disabled)
	fx.DisableTracking(sam, forum)
	disabled, err = repo.TrackingDisabled(ctx, sam.ID, forum.ID)
	require.NoError(t, err)
	assert.True(t, disabled)
}

func TestGroupRepository(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := data.NewGroupRepository(db)
	ctx := context.Background()
	sam := fx.User("Sam", "Student")
	course := fx.Course("Biology", 1)
	other := fx.Course("Chemistry", 1)
	red := fx.Group(course, "Red", sam)
	blue := fx.Group(course, "Blue", sam)
	fx.Group(course, "Green")
	fx.Group(other, "Elsewhere", sam)
	db.MustExec(`INSERT INTO groupings_groups (grouping_id, group_id) VALUES (7, ?)`, red.ID)

	g, err := repo.GetGroup(ctx, red.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red", g.Name)
	_, err = repo.GetGroup(ctx, 9999)
	assert.ErrorIs(t, err, data.ErrNotFound)

	groups, err := repo.UserGroups(ctx, course.ID, sam.ID, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, blue.ID, groups[0].ID, "ordered by name")
	assert.Equal(t, red.ID, groups[1].ID)

	groups, err = repo.UserGroups(ctx, course.ID, sam.ID, 7)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, red.ID, groups[0].ID)

	member, err := repo.IsMember(ctx, red.ID, sam.ID)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := data.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &data.User{
		Username: "ada", AuthSubject: "sub-ada", FirstName: "Ada", LastName: "Lovelace", TrackForums: true,
	}))
	u, err := repo.GetBySubject(ctx, "sub-ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FirstName)
	assert.True(t, u.TrackForums)
	assert.False(t, u.IsGuest)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, byID)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, data.ErrNotFound)
	_, err = repo.GetBySubject(ctx, "nobody")
	assert.ErrorIs(t, err, data.ErrNotFound)
}
