package data

import (
	"strconv"
	"time"
)

// Forum types.
const (
	ForumTypeGeneral  = "general"
	ForumTypeNews     = "news"
	ForumTypeQandA    = "qanda"
	ForumTypeSingle   = "single"
	ForumTypeBlog     = "blog"
	ForumTypeEachUser = "eachuser"
)

// Forum read tracking types.
const (
	TrackingOff      = 0
	TrackingOptional = 1
	TrackingForced   = 2
)

// Forum subscription modes.
const (
	SubscriptionOptional   = 0
	SubscriptionForced     = 1
	SubscriptionInitial    = 2
	SubscriptionDisallowed = 3
)

// Group modes of a course or activity.
const (
	NoGroups       = 0
	SeparateGroups = 1
	VisibleGroups  = 2
)

// AllParticipants is the group id of discussions not bound to a group.
const AllParticipants int64 = -1

// Course is a course record.
type Course struct {
	ID             int64  `db:"id"`
	FullName       string `db:"fullname"`
	ShortName      string `db:"shortname"`
	Marker         int    `db:"marker"`
	GroupMode      int    `db:"groupmode"`
	GroupModeForce bool   `db:"groupmodeforce"`
	SelfEnrol      bool   `db:"selfenrol"`
	TimeModified   int64  `db:"timemodified"`
}

// Section is a course section ("topic").
type Section struct {
	ID          int64  `db:"id"`
	CourseID    int64  `db:"course_id"`
	Section     int    `db:"section"`
	Name        string `db:"name"`
	Summary     string `db:"summary"`
	Visible     bool   `db:"visible"`
	UserVisible bool   `db:"-"`
}

// CourseModule places an activity instance in a course section.
type CourseModule struct {
	ID          int64  `db:"id"`
	CourseID    int64  `db:"course_id"`
	Module      string `db:"module"`
	Instance    int64  `db:"instance"`
	Section     int    `db:"section"`
	Name        string `db:"name"`
	Visible     bool   `db:"visible"`
	GroupMode   int    `db:"groupmode"`
	GroupingID  int64  `db:"groupingid"`
	UserVisible bool   `db:"-"`
}

// Forum is a forum activity.
type Forum struct {
	ID               int64  `db:"id"`
	CourseID         int64  `db:"course_id"`
	Type             string `db:"type"`
	Name             string `db:"name"`
	Intro            string `db:"intro"`
	TrackingType     int    `db:"trackingtype"`
	ForceSubscribe   int    `db:"forcesubscribe"`
	DisplayWordCount bool   `db:"displaywordcount"`
}

// Subscribable reports whether users may choose to follow discussions of this forum.
func (f *Forum) Subscribable() bool {
	return f.ForceSubscribe != SubscriptionForced && f.ForceSubscribe != SubscriptionDisallowed
}

// User is a site account.
type User struct {
	ID          int64  `db:"id"`
	Username    string `db:"username"`
	AuthSubject string `db:"auth_subject"`
	FirstName   string `db:"firstname"`
	LastName    string `db:"lastname"`
	Email       string `db:"email"`
	Picture     bool   `db:"picture"`
	IsGuest     bool   `db:"is_guest"`
	TrackForums bool   `db:"trackforums"`
}

// Group is a course group.
type Group struct {
	ID          int64  `db:"id"`
	CourseID    int64  `db:"course_id"`
	Name        string `db:"name"`
	Picture     bool   `db:"picture"`
	HidePicture bool   `db:"hidepicture"`
}

// Discussion is a forum discussion thread.
type Discussion struct {
	ID           int64  `db:"id"`
	ForumID      int64  `db:"forum_id"`
	Name         string `db:"name"`
	FirstPost    int64  `db:"firstpost"`
	UserID       int64  `db:"userid"`
	GroupID      int64  `db:"groupid"`
	TimeModified int64  `db:"timemodified"`
	UserModified int64  `db:"usermodified"`
	TimeStart    int64  `db:"timestart"`
	TimeEnd      int64  `db:"timeend"`
	Pinned       bool   `db:"pinned"`
}

// Timed reports whether the discussion has a display period.
func (d *Discussion) Timed() bool {
	return d.TimeStart > 0 || d.TimeEnd > 0
}

// VisibleAt reports whether the display period includes t.
func (d *Discussion) VisibleAt(t time.Time) bool {
	now := t.Unix()
	return d.TimeStart <= now && (d.TimeEnd == 0 || d.TimeEnd > now)
}

// Post is a forum post.
type Post struct {
	ID            int64  `db:"id"`
	DiscussionID  int64  `db:"discussion_id"`
	Parent        int64  `db:"parent"`
	UserID        int64  `db:"userid"`
	Created       int64  `db:"created"`
	Modified      int64  `db:"modified"`
	Subject       string `db:"subject"`
	Message       string `db:"message"`
	MessageFormat int    `db:"messageformat"`
	MessageTrust  bool   `db:"messagetrust"`
	Deleted       bool   `db:"deleted"`

	Author     *User `db:"-"`
	IsLastPost bool  `db:"-"`
}

// Unread is the unread post count of a discussion; UnreadNotTracked means
// the forum is not tracked for the viewer.
type Unread int

// UnreadNotTracked is displayed as "-".
const UnreadNotTracked Unread = -1

func (u Unread) String() string {
	if u == UnreadNotTracked {
		return "-"
	}
	return strconv.Itoa(int(u))
}

// DiscussionSummary is a discussion joined with its first post and author, as
// listed on a forum page.
type DiscussionSummary struct {
	Discussion
	Post       Post
	Author     User
	LastAuthor *User

	Replies    int
	LastPostID int64
	Unread     Unread
}

// ReplyCount aggregates the replies of one discussion.
type ReplyCount struct {
	DiscussionID int64 `db:"discussion_id"`
	Replies      int   `db:"replies"`
	LastPostID   int64 `db:"lastpostid"`
}
