package data

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ReadRepository stores per-user read tracking of forum posts.
type ReadRepository struct {
	db *sqlx.DB
}

// NewReadRepository creates a new ReadRepository.
func NewReadRepository(db *sqlx.DB) *ReadRepository {
	return &ReadRepository{db: db}
}

// Unreads counts, per discussion of a forum, the posts modified at or after
// cutoff that the user has not read.
func (r *ReadRepository) Unreads(ctx context.Context, forumID, userID, cutoff int64) (map[int64]int, error) {
	var rows []struct {
		DiscussionID int64 `db:"discussion_id"`
		Unread       int   `db:"unread"`
	}
	query := r.db.Rebind(`SELECT p.discussion_id, COUNT(p.id) AS unread
		FROM forum_posts p
		JOIN forum_discussions d ON d.id = p.discussion_id
		LEFT JOIN forum_read fr ON fr.postid = p.id AND fr.userid = ?
		WHERE d.forum_id = ? AND p.modified >= ? AND fr.postid IS NULL
		GROUP BY p.discussion_id`)
	if err := r.db.SelectContext(ctx, &rows, query, userID, forumID, cutoff); err != nil {
		return nil, fmt.Errorf("failed to count unread posts: %w", err)
	}
	unreads := make(map[int64]int, len(rows))
	for _, row := range rows {
		unreads[row.DiscussionID] = row.Unread
	}
	return unreads, nil
}

// HasRead reports whether a read row exists for the user and post.
func (r *ReadRepository) HasRead(ctx context.Context, userID, postID int64) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM forum_read WHERE userid = ? AND postid = ?`)
	if err := r.db.GetContext(ctx, &n, query, userID, postID); err != nil {
		return false, fmt.Errorf("failed to read post state: %w", err)
	}
	return n > 0, nil
}

// MarkRead records that the user read the post at time now.
func (r *ReadRepository) MarkRead(ctx context.Context, userID, forumID int64, post *Post, now int64) error {
	read, err := r.HasRead(ctx, userID, post.ID)
	if err != nil {
		return err
	}
	if read {
		query := r.db.Rebind(`UPDATE forum_read SET lastread = ? WHERE userid = ? AND postid = ?`)
		if _, err := r.db.ExecContext(ctx, query, now, userID, post.ID); err != nil {
			return fmt.Errorf("failed to update read post: %w", err)
		}
		return nil
	}
	query := r.db.Rebind(`INSERT INTO forum_read (userid, forumid, discussionid, postid, firstread, lastread) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, userID, forumID, post.DiscussionID, post.ID, now, now); err != nil {
		return fmt.Errorf("failed to mark post read: %w", err)
	}
	return nil
}

// TrackingDisabled reports whether the user switched off tracking for the forum.
func (r *ReadRepository) TrackingDisabled(ctx context.Context, userID, forumID int64) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM forum_track_prefs WHERE userid = ? AND forumid = ?`)
	if err := r.db.GetContext(ctx, &n, query, userID, forumID); err != nil {
		return false, fmt.Errorf("failed to read tracking preference: %w", err)
	}
	return n > 0, nil
}
