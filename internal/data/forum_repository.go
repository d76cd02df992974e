package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ForumRepository handles database operations for forums, discussions and posts.
type ForumRepository struct {
	db *sqlx.DB
}

// NewForumRepository creates a new ForumRepository.
func NewForumRepository(db *sqlx.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

// discussionSorts maps the accepted sort keys to ORDER BY clauses.
var discussionSorts = map[string]string{
	"":         "d.pinned DESC, d.timemodified DESC, d.id DESC",
	"lastpost": "d.pinned DESC, d.timemodified DESC, d.id DESC",
	"created":  "d.pinned DESC, p.created DESC, d.id DESC",
	"oldest":   "d.pinned DESC, p.created ASC, d.id ASC",
	"name":     "d.pinned DESC, d.name ASC, d.id ASC",
}

// ValidSort reports whether key is an accepted discussion sort key.
func ValidSort(key string) bool {
	_, ok := discussionSorts[key]
	return ok
}

// DiscussionQuery selects the discussions of a forum visible to one viewer.
type DiscussionQuery struct {
	ForumID int64
	Sort    string
	// Limit of zero fetches every discussion.
	Limit  int
	Offset int

	// HideTimed restricts timed discussions to their display period, except
	// those started by ViewerID.
	HideTimed bool
	ViewerID  int64
	Now       int64

	// Groups, when non-nil, restricts discussions to all-participants ones and
	// those of the listed groups.
	Groups []int64
}

func (q DiscussionQuery) where() (string, []interface{}, error) {
	clauses := []string{"d.forum_id = ?"}
	args := []interface{}{q.ForumID}
	if q.HideTimed {
		clauses = append(clauses, "((d.timestart <= ? AND (d.timeend = 0 OR d.timeend > ?)) OR d.userid = ?)")
		args = append(args, q.Now, q.Now, q.ViewerID)
	}
	if q.Groups != nil {
		if len(q.Groups) == 0 {
			clauses = append(clauses, "d.groupid = -1")
		} else {
			in, inArgs, err := sqlx.In("(d.groupid = -1 OR d.groupid IN (?))", q.Groups)
			if err != nil {
				return "", nil, fmt.Errorf("failed to expand group filter: %w", err)
			}
			clauses = append(clauses, in)
			args = append(args, inArgs...)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

type discussionRow struct {
	Discussion

	PostID            int64  `db:"post_id"`
	PostParent        int64  `db:"post_parent"`
	PostUserID        int64  `db:"post_userid"`
	PostCreated       int64  `db:"post_created"`
	PostModified      int64  `db:"post_modified"`
	PostSubject       string `db:"post_subject"`
	PostMessage       string `db:"post_message"`
	PostMessageFormat int    `db:"post_messageformat"`
	PostMessageTrust  bool   `db:"post_messagetrust"`
	PostDeleted       bool   `db:"post_deleted"`

	AuthorUsername  string `db:"author_username"`
	AuthorFirstName string `db:"author_firstname"`
	AuthorLastName  string `db:"author_lastname"`
	AuthorPicture   bool   `db:"author_picture"`

	ModifiedFirstName sql.NullString `db:"um_firstname"`
	ModifiedLastName  sql.NullString `db:"um_lastname"`
	ModifiedPicture   sql.NullBool   `db:"um_picture"`
}

func (row *discussionRow) summary() *DiscussionSummary {
	s := &DiscussionSummary{
		Discussion: row.Discussion,
		Post: Post{
			ID:            row.PostID,
			DiscussionID:  row.ID,
			Parent:        row.PostParent,
			UserID:        row.PostUserID,
			Created:       row.PostCreated,
			Modified:      row.PostModified,
			Subject:       row.PostSubject,
			Message:       row.PostMessage,
			MessageFormat: row.PostMessageFormat,
			MessageTrust:  row.PostMessageTrust,
			Deleted:       row.PostDeleted,
		},
		Author: User{
			ID:        row.PostUserID,
			Username:  row.AuthorUsername,
			FirstName: row.AuthorFirstName,
			LastName:  row.AuthorLastName,
			Picture:   row.AuthorPicture,
		},
	}
	if row.ModifiedFirstName.Valid {
		s.LastAuthor = &User{
			ID:        row.UserModified,
			FirstName: row.ModifiedFirstName.String,
			LastName:  row.ModifiedLastName.String,
			Picture:   row.ModifiedPicture.Bool,
		}
	}
	s.Post.Author = &s.Author
	return s
}

// Discussions retrieves the discussions matching q, each joined with its
// first post, the post author and the user who last modified it.
func (r *ForumRepository) Discussions(ctx context.Context, q DiscussionQuery) ([]*DiscussionSummary, error) {
	order, ok := discussionSorts[q.Sort]
	if !ok {
		return nil, fmt.Errorf("unknown discussion sort %q", q.Sort)
	}
	where, args, err := q.where()
	if err != nil {
		return nil, err
	}
	query := `SELECT d.id, d.forum_id, d.name, d.firstpost, d.userid, d.groupid, d.timemodified, d.usermodified,
			d.timestart, d.timeend, d.pinned,
			p.id AS post_id, p.parent AS post_parent, p.userid AS post_userid, p.created AS post_created,
			p.modified AS post_modified, p.subject AS post_subject, p.message AS post_message,
			p.messageformat AS post_messageformat, p.messagetrust AS post_messagetrust, p.deleted AS post_deleted,
			u.username AS author_username, u.firstname AS author_firstname, u.lastname AS author_lastname,
			u.picture AS author_picture,
			um.firstname AS um_firstname, um.lastname AS um_lastname, um.picture AS um_picture
		FROM forum_discussions d
		JOIN forum_posts p ON p.id = d.firstpost
		JOIN users u ON u.id = p.userid
		LEFT JOIN users um ON um.id = d.usermodified
		WHERE ` + where + ` ORDER BY ` + order
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}

	var rows []*discussionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get discussions: %w", err)
	}
	summaries := make([]*DiscussionSummary, len(rows))
	for i, row := range rows {
		summaries[i] = row.summary()
	}
	return summaries, nil
}

// CountDiscussions counts the discussions matching q, ignoring limit and offset.
func (r *ForumRepository) CountDiscussions(ctx context.Context, q DiscussionQuery) (int, error) {
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}
	var n int
	query := `SELECT COUNT(*) FROM forum_discussions d JOIN forum_posts p ON p.id = d.firstpost WHERE ` + where
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count discussions: %w", err)
	}
	return n, nil
}

// CountReplies aggregates replies per discussion of a forum. When
// discussionIDs is non-nil only those discussions are counted.
func (r *ForumRepository) CountReplies(ctx context.Context, forumID int64, discussionIDs []int64) (map[int64]ReplyCount, error) {
	query := `SELECT p.discussion_id, COUNT(p.id) AS replies, MAX(p.id) AS lastpostid
		FROM forum_posts p
		JOIN forum_discussions d ON d.id = p.discussion_id
		WHERE p.parent > 0 AND d.forum_id = ?`
	args := []interface{}{forumID}
	if discussionIDs != nil {
		if len(discussionIDs) == 0 {
			return map[int64]ReplyCount{}, nil
		}
		in, inArgs, err := sqlx.In(" AND d.id IN (?)", discussionIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to expand discussion filter: %w", err)
		}
		query += in
		args = append(args, inArgs...)
	}
	query += ` GROUP BY p.discussion_id`

	var counts []ReplyCount
	if err := r.db.SelectContext(ctx, &counts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to count replies: %w", err)
	}
	byDiscussion := make(map[int64]ReplyCount, len(counts))
	for _, c := range counts {
		byDiscussion[c.DiscussionID] = c
	}
	return byDiscussion, nil
}

// FirstPost retrieves the first post of a discussion.
func (r *ForumRepository) FirstPost(ctx context.Context, discussionID int64) (*Post, error) {
	var post Post
	query := r.db.Rebind(`SELECT p.id, p.discussion_id, p.parent, p.userid, p.created, p.modified, p.subject, p.message,
			p.messageformat, p.messagetrust, p.deleted
		FROM forum_posts p JOIN forum_discussions d ON d.firstpost = p.id WHERE d.id = ?`)
	if err := r.db.GetContext(ctx, &post, query, discussionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("first post of discussion %d: %w", discussionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get first post: %w", err)
	}
	return &post, nil
}

// UserPostedTime returns when the user first posted in the discussion; ok is
// false when they never did.
func (r *ForumRepository) UserPostedTime(ctx context.Context, discussionID, userID int64) (created int64, ok bool, err error) {
	var first sql.NullInt64
	query := r.db.Rebind(`SELECT MIN(created) FROM forum_posts WHERE discussion_id = ? AND userid = ?`)
	if err := r.db.GetContext(ctx, &first, query, discussionID, userID); err != nil {
		return 0, false, fmt.Errorf("failed to get user posted time: %w", err)
	}
	return first.Int64, first.Valid, nil
}

// UserHasStartedDiscussion reports whether the user started any discussion in the forum.
func (r *ForumRepository) UserHasStartedDiscussion(ctx context.Context, forumID, userID int64) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM forum_discussions WHERE forum_id = ? AND userid = ?`)
	if err := r.db.GetContext(ctx, &n, query, forumID, userID); err != nil {
		return false, fmt.Errorf("failed to check started discussions: %w", err)
	}
	return n > 0, nil
}

// SubscribedDiscussions returns the discussions of a forum the user follows.
func (r *ForumRepository) SubscribedDiscussions(ctx context.Context, forumID, userID int64) (map[int64]bool, error) {
	var ids []int64
	query := r.db.Rebind(`SELECT discussionid FROM forum_discussion_subs WHERE forumid = ? AND userid = ? AND preference >= 0`)
	if err := r.db.SelectContext(ctx, &ids, query, forumID, userID); err != nil {
		return nil, fmt.Errorf("failed to get discussion subscriptions: %w", err)
	}
	subscribed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		subscribed[id] = true
	}
	return subscribed, nil
}

// GetForum retrieves a forum by ID.
func (r *ForumRepository) GetForum(ctx context.Context, id int64) (*Forum, error) {
	var forum Forum
	query := r.db.Rebind(`SELECT id, course_id, type, name, intro, trackingtype, forcesubscribe, displaywordcount FROM forums WHERE id = ?`)
	if err := r.db.GetContext(ctx, &forum, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("forum %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get forum: %w", err)
	}
	return &forum, nil
}

// CourseForums retrieves the forums of a course in course display order,
// together with their course modules.
func (r *ForumRepository) CourseForums(ctx context.Context, courseID int64) ([]*Forum, []*CourseModule, error) {
	var rows []struct {
		Forum
		CMID         int64 `db:"cm_id"`
		CMSection    int   `db:"cm_section"`
		CMVisible    bool  `db:"cm_visible"`
		CMGroupMode  int   `db:"cm_groupmode"`
		CMGroupingID int64 `db:"cm_groupingid"`
	}
	query := r.db.Rebind(`SELECT f.id, f.course_id, f.type, f.name, f.intro, f.trackingtype, f.forcesubscribe, f.displaywordcount,
			cm.id AS cm_id, cm.section AS cm_section, cm.visible AS cm_visible, cm.groupmode AS cm_groupmode,
			cm.groupingid AS cm_groupingid
		FROM forums f
		JOIN course_modules cm ON cm.module = 'forum' AND cm.instance = f.id
		WHERE f.course_id = ?
		ORDER BY cm.section, cm.id`)
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, nil, fmt.Errorf("failed to get course forums: %w", err)
	}
	forums := make([]*Forum, len(rows))
	cms := make([]*CourseModule, len(rows))
	for i := range rows {
		row := rows[i]
		forum := row.Forum
		forums[i] = &forum
		cms[i] = &CourseModule{
			ID:         row.CMID,
			CourseID:   row.CourseID,
			Module:     "forum",
			Instance:   row.ID,
			Section:    row.CMSection,
			Name:       row.Name,
			Visible:    row.CMVisible,
			GroupMode:  row.CMGroupMode,
			GroupingID: row.CMGroupingID,
		}
	}
	return forums, cms, nil
}
