// Package testutil builds throwaway SQLite databases with course and forum
// fixtures for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"go-course-format/internal/data"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var dbSeq atomic.Int64

// MigrationsDir returns the directory holding the migrations of driver.
func MigrationsDir(driver string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", driver)
}

// NewDB opens a private in-memory SQLite database with the schema applied.
// It is closed when the test ends.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join(MigrationsDir("sqlite3"), "000001_initial_schema.up.sql"))
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	db.MustExec(string(schema))
	return db
}

// Fixtures inserts rows for tests and fails the test on any error.
type Fixtures struct {
	t  *testing.T
	db *sqlx.DB
}

// NewFixtures creates a fixture builder on db.
func NewFixtures(t *testing.T, db *sqlx.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) insert(query string, args ...interface{}) int64 {
	f.t.Helper()
	res, err := f.db.Exec(query, args...)
	if err != nil {
		f.t.Fatalf("fixture insert failed: %v\n%s", err, query)
	}
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("fixture insert id failed: %v", err)
	}
	return id
}

// User inserts a user named after first and last.
func (f *Fixtures) User(first, last string) *data.User {
	f.t.Helper()
	u := &data.User{
		Username:    strings.ToLower(first + "." + last),
		AuthSubject: "sub-" + strings.ToLower(first+last),
		FirstName:   first,
		LastName:    last,
		Email:       strings.ToLower(first) + "@example.com",
		TrackForums: true,
	}
	u.ID = f.insert(`INSERT INTO users (username, auth_subject, firstname, lastname, email, picture, is_guest, trackforums)
		VALUES (?, ?, ?, ?, ?, 0, 0, 1)`, u.Username, u.AuthSubject, u.FirstName, u.LastName, u.Email)
	return u
}

// Guest inserts the guest account.
func (f *Fixtures) Guest() *data.User {
	f.t.Helper()
	u := &data.User{Username: "guest", FirstName: "Guest", LastName: "user", IsGuest: true}
	u.ID = f.insert(`INSERT INTO users (username, firstname, lastname, is_guest) VALUES ('guest', 'Guest', 'user', 1)`)
	return u
}

// Course inserts a course with sections 1..sections. Section 0 is left out
// so that callers exercise its creation.
func (f *Fixtures) Course(name string, sections int) *data.Course {
	f.t.Helper()
	c := &data.Course{FullName: name, ShortName: strings.ToLower(strings.ReplaceAll(name, " ", ""))}
	c.ID = f.insert(`INSERT INTO courses (fullname, shortname) VALUES (?, ?)`, c.FullName, c.ShortName)
	for s := 1; s <= sections; s++ {
		f.insert(`INSERT INTO course_sections (course_id, section, name, summary, visible) VALUES (?, ?, '', '', 1)`, c.ID, s)
	}
	return c
}

// Section0 inserts section 0 of a course.
func (f *Fixtures) Section0(c *data.Course, summary string) {
	f.t.Helper()
	f.insert(`INSERT INTO course_sections (course_id, section, name, summary, visible) VALUES (?, 0, '', ?, 1)`, c.ID, summary)
}

// HideSection marks a section hidden.
func (f *Fixtures) HideSection(c *data.Course, section int) {
	f.t.Helper()
	f.db.MustExec(`UPDATE course_sections SET visible = 0 WHERE course_id = ? AND section = ?`, c.ID, section)
}

// SetGroupMode sets the course group mode; force applies it to every activity.
func (f *Fixtures) SetGroupMode(c *data.Course, mode int, force bool) {
	f.t.Helper()
	f.db.MustExec(`UPDATE courses SET groupmode = ?, groupmodeforce = ? WHERE id = ?`, mode, force, c.ID)
	c.GroupMode, c.GroupModeForce = mode, force
}

// SetSelfEnrol toggles self enrolment of a course.
func (f *Fixtures) SetSelfEnrol(c *data.Course, on bool) {
	f.t.Helper()
	f.db.MustExec(`UPDATE courses SET selfenrol = ? WHERE id = ?`, on, c.ID)
	c.SelfEnrol = on
}

// Forum inserts a forum of the given type and its course module in section.
func (f *Fixtures) Forum(c *data.Course, section int, forumType, name string) (*data.Forum, *data.CourseModule) {
	f.t.Helper()
	forum := &data.Forum{CourseID: c.ID, Type: forumType, Name: name, TrackingType: data.TrackingOptional}
	forum.ID = f.insert(`INSERT INTO forums (course_id, type, name, intro, trackingtype, forcesubscribe, displaywordcount)
		VALUES (?, ?, ?, '', ?, 0, 0)`, c.ID, forumType, name, forum.TrackingType)
	cm := &data.CourseModule{CourseID: c.ID, Module: "forum", Instance: forum.ID, Section: section, Name: name, Visible: true, UserVisible: true}
	cm.ID = f.insert(`INSERT INTO course_modules (course_id, module, instance, section, visible, groupmode, groupingid)
		VALUES (?, 'forum', ?, ?, 1, 0, 0)`, c.ID, forum.ID, section)
	return forum, cm
}

// HideModule makes a course module invisible to students.
func (f *Fixtures) HideModule(cm *data.CourseModule) {
	f.t.Helper()
	f.db.MustExec(`UPDATE course_modules SET visible = 0 WHERE id = ?`, cm.ID)
	cm.Visible = false
}

// SetModuleGroupMode sets the group mode of a course module.
func (f *Fixtures) SetModuleGroupMode(cm *data.CourseModule, mode int) {
	f.t.Helper()
	f.db.MustExec(`UPDATE course_modules SET groupmode = ? WHERE id = ?`, mode, cm.ID)
	cm.GroupMode = mode
}

// SetForum updates the tracking type and word count display of a forum.
func (f *Fixtures) SetForum(forum *data.Forum, tracking int, wordCount bool) {
	f.t.Helper()
	f.db.MustExec(`UPDATE forums SET trackingtype = ?, displaywordcount = ? WHERE id = ?`, tracking, wordCount, forum.ID)
	forum.TrackingType, forum.DisplayWordCount = tracking, wordCount
}

// DiscussionOpts tweaks a new discussion.
type DiscussionOpts struct {
	GroupID   int64
	TimeStart int64
	TimeEnd   int64
	Pinned    bool
	Format    int
}

// Discussion inserts a discussion and its first post created at the unix
// time created.
func (f *Fixtures) Discussion(forum *data.Forum, author *data.User, subject, message string, created int64, opts ...DiscussionOpts) (*data.Discussion, *data.Post) {
	f.t.Helper()
	o := DiscussionOpts{GroupID: data.AllParticipants, Format: 1}
	if len(opts) > 0 {
		o = opts[0]
		if o.GroupID == 0 {
			o.GroupID = data.AllParticipants
		}
	}
	d := &data.Discussion{
		ForumID: forum.ID, Name: subject, UserID: author.ID, GroupID: o.GroupID,
		TimeModified: created, UserModified: author.ID, TimeStart: o.TimeStart, TimeEnd: o.TimeEnd, Pinned: o.Pinned,
	}
	d.ID = f.insert(`INSERT INTO forum_discussions (forum_id, name, firstpost, userid, groupid, timemodified, usermodified, timestart, timeend, pinned)
		VALUES (?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`, d.ForumID, d.Name, d.UserID, d.GroupID, d.TimeModified, d.UserModified, d.TimeStart, d.TimeEnd, d.Pinned)
	p := f.post(d, 0, author, subject, message, created, o.Format)
	d.FirstPost = p.ID
	f.db.MustExec(`UPDATE forum_discussions SET firstpost = ? WHERE id = ?`, p.ID, d.ID)
	return d, p
}

// Reply inserts a reply to parent and bumps the discussion.
func (f *Fixtures) Reply(d *data.Discussion, parent *data.Post, author *data.User, message string, created int64) *data.Post {
	f.t.Helper()
	p := f.post(d, parent.ID, author, "Re: "+parent.Subject, message, created, 1)
	d.TimeModified, d.UserModified = created, author.ID
	f.db.MustExec(`UPDATE forum_discussions SET timemodified = ?, usermodified = ? WHERE id = ?`, created, author.ID, d.ID)
	return p
}

func (f *Fixtures) post(d *data.Discussion, parent int64, author *data.User, subject, message string, created int64, format int) *data.Post {
	f.t.Helper()
	p := &data.Post{
		DiscussionID: d.ID, Parent: parent, UserID: author.ID, Created: created, Modified: created,
		Subject: subject, Message: message, MessageFormat: format, Author: author,
	}
	p.ID = f.insert(`INSERT INTO forum_posts (discussion_id, parent, userid, created, modified, subject, message, messageformat, messagetrust, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`, p.DiscussionID, p.Parent, p.UserID, p.Created, p.Modified, p.Subject, p.Message, p.MessageFormat)
	return p
}

// DeletePost flags a post as deleted.
func (f *Fixtures) DeletePost(p *data.Post) {
	f.t.Helper()
	f.db.MustExec(`UPDATE forum_posts SET deleted = 1 WHERE id = ?`, p.ID)
	p.Deleted = true
}

// Read records that user read post.
func (f *Fixtures) Read(u *data.User, forum *data.Forum, p *data.Post, at int64) {
	f.t.Helper()
	f.db.MustExec(`INSERT INTO forum_read (userid, forumid, discussionid, postid, firstread, lastread) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, forum.ID, p.DiscussionID, p.ID, at, at)
}

// DisableTracking stores a user's opt-out of tracking for forum.
func (f *Fixtures) DisableTracking(u *data.User, forum *data.Forum) {
	f.t.Helper()
	f.db.MustExec(`INSERT INTO forum_track_prefs (userid, forumid) VALUES (?, ?)`, u.ID, forum.ID)
}

// Subscribe subscribes a user to a discussion.
func (f *Fixtures) Subscribe(u *data.User, d *data.Discussion) {
	f.t.Helper()
	f.db.MustExec(`INSERT INTO forum_discussion_subs (userid, forumid, discussionid, preference) VALUES (?, ?, ?, 1)`, u.ID, d.ForumID, d.ID)
}

// Group inserts a group of c with the given members.
func (f *Fixtures) Group(c *data.Course, name string, members ...*data.User) *data.Group {
	f.t.Helper()
	g := &data.Group{CourseID: c.ID, Name: name}
	g.ID = f.insert(`INSERT INTO course_groups (course_id, name, picture, hidepicture) VALUES (?, ?, 0, 0)`, c.ID, name)
	for _, m := range members {
		f.db.MustExec(`INSERT INTO groups_members (group_id, userid) VALUES (?, ?)`, g.ID, m.ID)
	}
	return g
}
